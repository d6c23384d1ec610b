// Package grader is the client for the semantic-similarity service that
// compares a student answer to the instructor's model answer. The service is
// a black box returning a normalized similarity score and a discrete
// correctness label.
package grader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gradeflow/gradeflow/internal/core/domain"
	"github.com/gradeflow/gradeflow/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

// CompareAnswer returns the service's verdict. Similarity is clamped to
// [0,1] so a misbehaving service cannot push scores out of range.
func (c *Client) CompareAnswer(ctx context.Context, studentText, modelText string) (domain.SemanticComparison, error) {
	request := map[string]any{
		"student_answer": studentText,
		"correct_answer": modelText,
	}
	var response struct {
		SimilarityScore float64 `json:"similarity_score"`
		Correctness     string  `json:"correctness"`
		Confidence      float64 `json:"confidence"`
		Error           string  `json:"error,omitempty"`
	}
	if err := c.postJSON(ctx, "/compare", request, &response); err != nil {
		return domain.SemanticComparison{}, err
	}
	if response.Error != "" {
		return domain.SemanticComparison{}, fmt.Errorf("grader compare: %s", response.Error)
	}

	return domain.SemanticComparison{
		SimilarityScore: clamp01(response.SimilarityScore),
		Correctness:     response.Correctness,
		Confidence:      clamp01(response.Confidence),
	}, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	call := func(callCtx context.Context) error {
		return c.doPostJSON(callCtx, path, payload, out)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "grader.compare", call, classifyGraderError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}

func (c *Client) doPostJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal compare request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create compare request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("grader compare request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode compare response: %w", err)
	}
	return nil
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
