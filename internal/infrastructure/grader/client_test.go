package grader

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gradeflow/gradeflow/internal/core/domain"
)

func TestCompareAnswerSendsBothTexts(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/compare" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"similarity_score": 0.87,
			"correctness":      "mostly_correct",
			"confidence":       0.9,
		})
	}))
	defer server.Close()

	client := New(server.URL, nil)
	comparison, err := client.CompareAnswer(context.Background(), "student essay", "model essay")
	if err != nil {
		t.Fatalf("CompareAnswer() error = %v", err)
	}
	if captured["student_answer"] != "student essay" || captured["correct_answer"] != "model essay" {
		t.Fatalf("unexpected request payload: %v", captured)
	}
	if comparison.SimilarityScore != 0.87 || comparison.Correctness != "mostly_correct" {
		t.Fatalf("unexpected comparison: %+v", comparison)
	}
}

func TestCompareAnswerClampsScores(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"similarity_score": 1.7,
			"correctness":      "correct",
			"confidence":       -0.2,
		})
	}))
	defer server.Close()

	client := New(server.URL, nil)
	comparison, err := client.CompareAnswer(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("CompareAnswer() error = %v", err)
	}
	if comparison.SimilarityScore != 1 || comparison.Confidence != 0 {
		t.Fatalf("scores must be clamped to [0,1], got %+v", comparison)
	}
}

func TestCompareAnswerSurfacesServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model not loaded"})
	}))
	defer server.Close()

	client := New(server.URL, nil)
	_, err := client.CompareAnswer(context.Background(), "a", "b")
	if err == nil || !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("expected service error surfaced, got %v", err)
	}
}

func TestCompareAnswerServerErrorIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "warming up", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, nil)
	_, err := client.CompareAnswer(context.Background(), "a", "b")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("5xx must surface as temporary, got %v", err)
	}
}
