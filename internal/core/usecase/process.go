package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gradeflow/gradeflow/internal/core/domain"
	"github.com/gradeflow/gradeflow/internal/core/ports"
)

// ProcessSubmissionUseCase is the top-level state machine: extraction,
// plagiarism check, correctness scoring, each persisted incrementally.
type ProcessSubmissionUseCase struct {
	submissions ports.SubmissionRepository
	assignments ports.AssignmentRepository
	blobs       ports.BlobStorage
	extractor   ports.TextExtractor
	plagiarism  *PlagiarismChecker
	scorer      *Scorer
	logger      *slog.Logger
}

func NewProcessSubmissionUseCase(
	submissions ports.SubmissionRepository,
	assignments ports.AssignmentRepository,
	blobs ports.BlobStorage,
	extractor ports.TextExtractor,
	plagiarism *PlagiarismChecker,
	scorer *Scorer,
	logger *slog.Logger,
) *ProcessSubmissionUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessSubmissionUseCase{
		submissions: submissions,
		assignments: assignments,
		blobs:       blobs,
		extractor:   extractor,
		plagiarism:  plagiarism,
		scorer:      scorer,
		logger:      logger,
	}
}

// ProcessByID drives one submission through pending -> processing ->
// completed/failed. A missing submission is logged and swallowed: the trigger
// is fire-and-forget and there is nobody to surface the error to. If the
// failure-recovery write itself fails, the record is left in processing as a
// detectable stuck state for external reconciliation.
func (uc *ProcessSubmissionUseCase) ProcessByID(ctx context.Context, submissionID string) error {
	submission, err := uc.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if domain.IsKind(err, domain.ErrSubmissionNotFound) {
			uc.logger.Error("submission missing at dispatch", "submission_id", submissionID)
			return nil
		}
		return fmt.Errorf("fetch submission by id: %w", err)
	}

	if err := uc.submissions.UpdateStatus(ctx, submissionID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.runPipeline(ctx, submission); err != nil {
		if failErr := uc.markFailed(ctx, submissionID, err); failErr != nil {
			uc.logger.Error("record failure state", "submission_id", submissionID, "error", failErr)
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.submissions.UpdateStatus(ctx, submissionID, domain.StatusCompleted, ""); err != nil {
		return fmt.Errorf("set status=completed: %w", err)
	}

	uc.logger.Info("submission processed", "submission_id", submissionID)
	return nil
}

func (uc *ProcessSubmissionUseCase) runPipeline(ctx context.Context, submission *domain.Submission) error {
	text, err := uc.extractText(ctx, submission)
	if err != nil {
		return err
	}
	submission.ExtractedText = text

	report, err := uc.checkPlagiarism(ctx, submission)
	if err != nil {
		return err
	}

	return uc.scoreCorrectness(ctx, submission, report)
}

func (uc *ProcessSubmissionUseCase) extractText(ctx context.Context, submission *domain.Submission) (string, error) {
	raw, err := uc.blobs.Read(ctx, submission.AnswerFileKey)
	if err != nil {
		return "", fmt.Errorf("read answer file: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}

	// Persisted regardless of length: short or empty text is still a valid
	// extraction result and feeds the short-circuit paths downstream.
	if err := uc.submissions.SaveExtractedText(ctx, submission.ID, text); err != nil {
		return "", fmt.Errorf("save extracted text: %w", err)
	}
	return text, nil
}

func (uc *ProcessSubmissionUseCase) checkPlagiarism(ctx context.Context, submission *domain.Submission) (domain.PlagiarismReport, error) {
	report, err := uc.plagiarism.Check(ctx, submission)
	if err != nil {
		return domain.PlagiarismReport{}, fmt.Errorf("check plagiarism: %w", err)
	}
	if err := uc.submissions.SavePlagiarism(ctx, submission.ID, report); err != nil {
		return domain.PlagiarismReport{}, fmt.Errorf("save plagiarism result: %w", err)
	}
	return report, nil
}

func (uc *ProcessSubmissionUseCase) scoreCorrectness(ctx context.Context, submission *domain.Submission, report domain.PlagiarismReport) error {
	assignment, err := uc.loadAssignment(ctx, submission.AssignmentID)
	if err != nil {
		return err
	}

	score, label := uc.scorer.Score(ctx, submission.ExtractedText, assignment, report.Result == domain.PlagiarismFound)
	if err := uc.submissions.SaveScore(ctx, submission.ID, score, label); err != nil {
		return fmt.Errorf("save correctness score: %w", err)
	}
	return nil
}

// loadAssignment tolerates a missing assignment: the scorer falls back to its
// content heuristic when no model answer exists.
func (uc *ProcessSubmissionUseCase) loadAssignment(ctx context.Context, assignmentID string) (*domain.Assignment, error) {
	assignment, err := uc.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if domain.IsKind(err, domain.ErrAssignmentNotFound) {
			uc.logger.Warn("assignment missing, grading without model answer", "assignment_id", assignmentID)
			return nil, nil
		}
		return nil, fmt.Errorf("fetch assignment by id: %w", err)
	}
	return assignment, nil
}

func (uc *ProcessSubmissionUseCase) markFailed(ctx context.Context, submissionID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.submissions.UpdateStatus(ctx, submissionID, domain.StatusFailed, processErr.Error())
}
