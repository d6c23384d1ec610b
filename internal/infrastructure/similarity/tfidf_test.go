package similarity

import (
	"math"
	"testing"

	"github.com/gradeflow/gradeflow/internal/core/domain"
)

func TestTargetSimilaritiesSelfSimilarity(t *testing.T) {
	e := NewVectorEngine(0)
	report := e.TargetSimilarities(poolOf(
		domain.PoolEntry{SubmissionID: "peer", Text: essayText},
		domain.PoolEntry{SubmissionID: "target", Text: essayText},
	))

	if math.Abs(report.MaxSimilarity-1.0) > 1e-9 {
		t.Fatalf("identical documents must score ~1.0, got %v", report.MaxSimilarity)
	}
	if len(report.Comparisons) != 1 || report.Comparisons[0].SubmissionID != "peer" {
		t.Fatalf("expected one comparison against peer, got %+v", report.Comparisons)
	}
}

func TestTargetSimilaritiesUnrelatedTexts(t *testing.T) {
	e := NewVectorEngine(0)
	report := e.TargetSimilarities(poolOf(
		domain.PoolEntry{SubmissionID: "peer", Text: "risotto butter parmesan ladle stirring tender grains"},
		domain.PoolEntry{SubmissionID: "target", Text: essayText},
	))

	if report.MaxSimilarity > 0.1 {
		t.Fatalf("disjoint vocabularies must score near zero, got %v", report.MaxSimilarity)
	}
}

func TestTargetSimilaritiesPicksClosestPeer(t *testing.T) {
	e := NewVectorEngine(0)
	report := e.TargetSimilarities(poolOf(
		domain.PoolEntry{SubmissionID: "far", Text: "cooking recipes require patience butter stock risotto"},
		domain.PoolEntry{SubmissionID: "near", Text: essayText},
		domain.PoolEntry{SubmissionID: "target", Text: essayText + " Plus one more closing thought."},
	))

	var nearScore, farScore float64
	for _, c := range report.Comparisons {
		switch c.SubmissionID {
		case "near":
			nearScore = c.Score
		case "far":
			farScore = c.Score
		}
	}
	if nearScore <= farScore {
		t.Fatalf("near peer must outscore far peer: %v <= %v", nearScore, farScore)
	}
	if report.MaxSimilarity != nearScore {
		t.Fatalf("max similarity must track the best peer, got %v want %v", report.MaxSimilarity, nearScore)
	}
}

func TestTargetSimilaritiesSmallPool(t *testing.T) {
	e := NewVectorEngine(0)
	report := e.TargetSimilarities(poolOf(domain.PoolEntry{SubmissionID: "only", Text: essayText}))
	if report.MaxSimilarity != 0 || report.Note == "" {
		t.Fatalf("small pool must degrade with a note, got %+v", report)
	}
}

func TestTargetSimilaritiesStopWordOnlyCorpus(t *testing.T) {
	e := NewVectorEngine(0)
	report := e.TargetSimilarities(poolOf(
		domain.PoolEntry{SubmissionID: "peer", Text: "the and of to in it is a"},
		domain.PoolEntry{SubmissionID: "target", Text: "was were be been being"},
	))
	if report.MaxSimilarity != 0 || report.Note == "" {
		t.Fatalf("stop-word-only corpus must degrade with a note, got %+v", report)
	}
}

func TestTargetSimilaritiesVocabularyCap(t *testing.T) {
	e := NewVectorEngine(5)
	report := e.TargetSimilarities(poolOf(
		domain.PoolEntry{SubmissionID: "peer", Text: essayText},
		domain.PoolEntry{SubmissionID: "target", Text: essayText},
	))
	if report.VocabularySize != 5 {
		t.Fatalf("vocabulary must be capped at 5 features, got %d", report.VocabularySize)
	}
	if math.Abs(report.MaxSimilarity-1.0) > 1e-9 {
		t.Fatalf("identical documents stay identical in the capped space, got %v", report.MaxSimilarity)
	}
}

func TestTokenizeTermsFiltersShortAndStopWords(t *testing.T) {
	terms := tokenizeTerms("The system, a DESIGN of X and databases2fast!")
	want := []string{"system", "design", "databases", "fast"}
	if len(terms) != len(want) {
		t.Fatalf("got %v, want %v", terms, want)
	}
	for i := range want {
		if terms[i] != want[i] {
			t.Fatalf("got %v, want %v", terms, want)
		}
	}
}
