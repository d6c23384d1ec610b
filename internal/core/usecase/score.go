package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/gradeflow/gradeflow/internal/core/domain"
	"github.com/gradeflow/gradeflow/internal/core/ports"
)

// technicalKeywords is the fixed vocabulary the fallback heuristic credits
// when no model answer is available. Matching is substring containment on the
// lowercased text.
var technicalKeywords = []string{
	"software", "engineering", "development", "system", "design",
	"architecture", "database", "algorithm", "programming", "testing",
	"methodology", "principles", "framework", "implementation", "analysis",
}

var introWords = []string{"introduction", "fundamentals", "principles"}
var conclusionWords = []string{"conclusion", "summary"}

type ScoringConfig struct {
	// PenaltyFactor multiplies the base score once plagiarism is confirmed.
	PenaltyFactor float64
	// MinTextChars is the floor below which a submission has no gradable content.
	MinTextChars int
}

func (c ScoringConfig) normalize() ScoringConfig {
	out := c
	if out.PenaltyFactor <= 0 || out.PenaltyFactor > 1 {
		out.PenaltyFactor = 0.4
	}
	if out.MinTextChars <= 0 {
		out.MinTextChars = 50
	}
	return out
}

// Scorer derives a 0-100 correctness score and a descriptive label from the
// extracted text, the assignment's model answer, and the plagiarism decision.
type Scorer struct {
	grader ports.SemanticGrader
	cfg    ScoringConfig
	logger *slog.Logger
}

func NewScorer(grader ports.SemanticGrader, cfg ScoringConfig, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{grader: grader, cfg: cfg.normalize(), logger: logger}
}

// Score never fails: grader errors degrade to the fallback heuristic, and an
// unexpected panic inside the scoring path yields the terminal error grade.
func (s *Scorer) Score(ctx context.Context, text string, assignment *domain.Assignment, plagiarized bool) (score float64, label string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scoring panicked", "panic", r)
			score, label = 0, "Error in Grading"
		}
	}()

	if len(strings.TrimSpace(text)) < s.cfg.MinTextChars {
		return 0, "Insufficient Content"
	}

	modelAnswer := ""
	if assignment != nil {
		modelAnswer = assignment.ModelAnswerText
	}
	if len(strings.TrimSpace(modelAnswer)) < s.cfg.MinTextChars {
		s.logger.Warn("no usable model answer, using content heuristic", "assignment_id", assignmentID(assignment))
		return s.contentScore(text, plagiarized)
	}

	comparison, err := s.grader.CompareAnswer(ctx, text, modelAnswer)
	if err != nil {
		s.logger.Warn("semantic grader unavailable, using content heuristic", "error", err)
		return s.contentScore(text, plagiarized)
	}
	return s.modelAnswerScore(text, comparison, plagiarized)
}

// modelAnswerScore converts the grader's similarity into a percentage score
// with length adjustments and, when flagged, the plagiarism penalty. Labels
// are chosen from the pre-penalty base score.
func (s *Scorer) modelAnswerScore(text string, comparison domain.SemanticComparison, plagiarized bool) (float64, string) {
	base := round1(comparison.SimilarityScore * 100)

	wordCount := len(strings.Fields(text))
	switch {
	case wordCount >= 300:
		base += math.Min(5, float64(wordCount-300)/100)
	case wordCount < 100:
		base *= float64(wordCount) / 100
	}
	base = math.Min(100, base)

	if plagiarized {
		final := round1(base * s.cfg.PenaltyFactor)
		var label string
		switch {
		case base >= 80:
			label = fmt.Sprintf("Plagiarized (High Similarity to Model: %.1f%%)", base)
		case base >= 60:
			label = fmt.Sprintf("Plagiarized (Good Similarity to Model: %.1f%%)", base)
		case base >= 40:
			label = fmt.Sprintf("Plagiarized (Fair Similarity to Model: %.1f%%)", base)
		default:
			label = fmt.Sprintf("Plagiarized (Poor Answer: %.1f%%)", base)
		}
		return final, label
	}

	var label string
	switch {
	case base >= 85:
		label = fmt.Sprintf("Excellent (Similarity: %.3f)", comparison.SimilarityScore)
	case base >= 70:
		label = fmt.Sprintf("Good (Similarity: %.3f)", comparison.SimilarityScore)
	case base >= 55:
		label = fmt.Sprintf("Satisfactory (Similarity: %.3f)", comparison.SimilarityScore)
	case base >= 40:
		label = fmt.Sprintf("Needs Improvement (Similarity: %.3f)", comparison.SimilarityScore)
	default:
		label = fmt.Sprintf("Poor (Similarity: %.3f)", comparison.SimilarityScore)
	}
	return round1(base), label
}

// contentScore is the fallback heuristic: word count, document structure
// markers, and technical vocabulary, starting from a 60-point content base.
func (s *Scorer) contentScore(text string, plagiarized bool) (float64, string) {
	wordCount := float64(len(strings.Fields(text)))

	score := 60.0
	if wordCount >= 200 {
		score += math.Min(25, wordCount/400*25)
	} else {
		score += wordCount / 200 * 15
	}

	lower := strings.ToLower(text)
	if strings.Contains(lower, "assignment") || strings.Contains(lower, "name:") {
		score += 3
	}
	if strings.Contains(lower, "student id") || strings.Contains(lower, "id:") {
		score += 2
	}
	if containsAny(lower, introWords) {
		score += 3
	}
	if containsAny(lower, conclusionWords) {
		score += 2
	}

	matched := 0
	for _, keyword := range technicalKeywords {
		if strings.Contains(lower, keyword) {
			matched++
		}
	}
	score += math.Min(10, float64(matched))
	score = math.Min(100, round1(score))

	if plagiarized {
		return round1(score * s.cfg.PenaltyFactor), fmt.Sprintf("Plagiarized (Content Quality: %.1f%%)", score)
	}
	switch {
	case score >= 90:
		return score, "Good Content (No Model Answer Available)"
	case score >= 80:
		return score, "Fair Content (No Model Answer Available)"
	case score >= 70:
		return score, "Basic Content (No Model Answer Available)"
	default:
		return score, "Poor Content (No Model Answer Available)"
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func assignmentID(assignment *domain.Assignment) string {
	if assignment == nil {
		return "unknown"
	}
	return assignment.ID
}
