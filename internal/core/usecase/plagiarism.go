package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gradeflow/gradeflow/internal/core/domain"
	"github.com/gradeflow/gradeflow/internal/core/ports"
)

type PlagiarismConfig struct {
	// VectorThreshold is the max cosine similarity at which the vector engine
	// reports a match.
	VectorThreshold float64
	// MinTextChars excludes degenerate texts from the comparison pool.
	MinTextChars int
}

func (c PlagiarismConfig) normalize() PlagiarismConfig {
	out := c
	if out.VectorThreshold <= 0 || out.VectorThreshold > 1 {
		out.VectorThreshold = 0.6
	}
	if out.MinTextChars <= 0 {
		out.MinTextChars = 50
	}
	return out
}

// PlagiarismChecker runs both detectors over the submission's peer pool and
// combines their signals into a single found/not_found decision. The two
// detectors catch different copying styles, so either one triggering is
// sufficient.
type PlagiarismChecker struct {
	submissions ports.SubmissionRepository
	nearDup     ports.NearDuplicateDetector
	vector      ports.VectorSimilarity
	cfg         PlagiarismConfig
	logger      *slog.Logger
}

func NewPlagiarismChecker(
	submissions ports.SubmissionRepository,
	nearDup ports.NearDuplicateDetector,
	vector ports.VectorSimilarity,
	cfg PlagiarismConfig,
	logger *slog.Logger,
) *PlagiarismChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlagiarismChecker{
		submissions: submissions,
		nearDup:     nearDup,
		vector:      vector,
		cfg:         cfg.normalize(),
		logger:      logger,
	}
}

// Check builds the comparison pool, runs both detectors, flags implicated
// peers, and returns the full diagnostic report. Persistence failures
// propagate: a silently mis-scored plagiarism check is a grading-integrity
// problem.
func (c *PlagiarismChecker) Check(ctx context.Context, submission *domain.Submission) (domain.PlagiarismReport, error) {
	report := domain.PlagiarismReport{Result: domain.PlagiarismNotFound}
	report.Vector.Threshold = c.cfg.VectorThreshold

	if len(strings.TrimSpace(submission.ExtractedText)) < c.cfg.MinTextChars {
		report.Note = "text too short for meaningful plagiarism analysis"
		return report, nil
	}

	peers, err := c.submissions.ListPeersWithText(ctx, submission.AssignmentID, submission.ID, c.cfg.MinTextChars)
	if err != nil {
		return domain.PlagiarismReport{}, fmt.Errorf("list peer submissions: %w", err)
	}
	if len(peers) == 0 {
		report.Note = "no other submissions to compare against"
		return report, nil
	}

	// Target goes last: the vector engine scores the final entry against the rest.
	pool := append(peers, domain.PoolEntry{SubmissionID: submission.ID, Text: submission.ExtractedText})

	cluster := c.targetCluster(pool, submission.ID)
	if cluster != nil {
		report.NearDuplicate.Matched = true
		report.NearDuplicate.ClusterIDs = cluster
	} else {
		report.NearDuplicate.Note = "no exact or near-exact copy detected"
	}

	vectorOut := c.vector.TargetSimilarities(pool)
	report.Vector.MaxSimilarity = vectorOut.MaxSimilarity
	report.Vector.VocabularySize = vectorOut.VocabularySize
	report.Vector.Comparisons = vectorOut.Comparisons
	report.Vector.Note = vectorOut.Note
	vectorFound := vectorOut.MaxSimilarity >= c.cfg.VectorThreshold

	if !report.NearDuplicate.Matched && !vectorFound {
		return report, nil
	}

	report.Result = domain.PlagiarismFound
	if err := c.flagPeers(ctx, submission.ID, report); err != nil {
		return domain.PlagiarismReport{}, err
	}
	return report, nil
}

func (c *PlagiarismChecker) targetCluster(pool []domain.PoolEntry, targetID string) []string {
	for _, cluster := range c.nearDup.Clusters(pool) {
		for _, id := range cluster {
			if id == targetID {
				return cluster
			}
		}
	}
	return nil
}

// flagPeers marks every other submission implicated by either detector.
// Flagging is symmetric: if A copied B, B is flagged too, including the
// likely original. That is accepted behavior, not a bug.
func (c *PlagiarismChecker) flagPeers(ctx context.Context, targetID string, report domain.PlagiarismReport) error {
	implicated := make(map[string]struct{})
	for _, id := range report.NearDuplicate.ClusterIDs {
		if id != targetID {
			implicated[id] = struct{}{}
		}
	}
	for _, comparison := range report.Vector.Comparisons {
		if comparison.Score >= c.cfg.VectorThreshold && comparison.SubmissionID != targetID {
			implicated[comparison.SubmissionID] = struct{}{}
		}
	}

	for id := range implicated {
		if err := c.submissions.MarkPlagiarized(ctx, id); err != nil {
			return fmt.Errorf("flag peer submission %s: %w", id, err)
		}
		c.logger.Info("flagged peer submission", "submission_id", id, "matched_against", targetID)
	}
	return nil
}
