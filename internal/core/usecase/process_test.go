package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gradeflow/gradeflow/internal/core/domain"
)

type statusCall struct {
	status domain.ProcessingStatus
	errMsg string
}

type submissionRepoFake struct {
	submission *domain.Submission
	peers      []domain.PoolEntry

	getErr        error
	peersErr      error
	statusErr     error
	failStatusErr error
	saveTextErr   error
	savePlagErr   error
	saveScoreErr  error
	markErr       error

	statusCalls []statusCall
	savedText   string
	savedReport *domain.PlagiarismReport
	savedScore  float64
	savedLabel  string
	scoreSaved  bool
	markedPeers []string
}

func (f *submissionRepoFake) GetByID(context.Context, string) (*domain.Submission, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	copySub := *f.submission
	return &copySub, nil
}

func (f *submissionRepoFake) ListPeersWithText(context.Context, string, string, int) ([]domain.PoolEntry, error) {
	if f.peersErr != nil {
		return nil, f.peersErr
	}
	return f.peers, nil
}

func (f *submissionRepoFake) UpdateStatus(_ context.Context, _ string, status domain.ProcessingStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	if status == domain.StatusFailed && f.failStatusErr != nil {
		return f.failStatusErr
	}
	if f.statusErr != nil {
		return f.statusErr
	}
	return nil
}

func (f *submissionRepoFake) SaveExtractedText(_ context.Context, _ string, text string) error {
	if f.saveTextErr != nil {
		return f.saveTextErr
	}
	f.savedText = text
	return nil
}

func (f *submissionRepoFake) SavePlagiarism(_ context.Context, _ string, report domain.PlagiarismReport) error {
	if f.savePlagErr != nil {
		return f.savePlagErr
	}
	f.savedReport = &report
	return nil
}

func (f *submissionRepoFake) SaveScore(_ context.Context, _ string, score float64, label string) error {
	if f.saveScoreErr != nil {
		return f.saveScoreErr
	}
	f.savedScore = score
	f.savedLabel = label
	f.scoreSaved = true
	return nil
}

func (f *submissionRepoFake) MarkPlagiarized(_ context.Context, id string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.markedPeers = append(f.markedPeers, id)
	return nil
}

type assignmentRepoFake struct {
	assignment *domain.Assignment
	err        error
}

func (f *assignmentRepoFake) GetByID(context.Context, string) (*domain.Assignment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.assignment, nil
}

type blobFake struct {
	data []byte
	err  error
}

func (f *blobFake) Read(context.Context, string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

type textExtractorFake struct {
	text string
	err  error
}

func (f *textExtractorFake) Extract(context.Context, []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type nearDupFake struct {
	clusters [][]string
}

func (f *nearDupFake) Clusters([]domain.PoolEntry) [][]string { return f.clusters }

type vectorFake struct {
	report domain.VectorReport
}

func (f *vectorFake) TargetSimilarities([]domain.PoolEntry) domain.VectorReport { return f.report }

type graderFake struct {
	comparison domain.SemanticComparison
	err        error
}

func (f *graderFake) CompareAnswer(context.Context, string, string) (domain.SemanticComparison, error) {
	if f.err != nil {
		return domain.SemanticComparison{}, f.err
	}
	return f.comparison, nil
}

const longAnswer = "This essay discusses software architecture and database design in depth, " +
	"covering the principles of layered systems and the methodology behind testing them properly."

func newProcessFixture(repo *submissionRepoFake, assignments *assignmentRepoFake, blobs *blobFake, extractor *textExtractorFake, grader *graderFake) *ProcessSubmissionUseCase {
	checker := NewPlagiarismChecker(repo, &nearDupFake{}, &vectorFake{}, PlagiarismConfig{}, nil)
	scorer := NewScorer(grader, ScoringConfig{}, nil)
	return NewProcessSubmissionUseCase(repo, assignments, blobs, extractor, checker, scorer, nil)
}

func TestProcessByIDSuccess(t *testing.T) {
	repo := &submissionRepoFake{submission: &domain.Submission{ID: "sub-1", AssignmentID: "hw-1", AnswerFileKey: "answers/sub-1.pdf"}}
	assignments := &assignmentRepoFake{assignment: &domain.Assignment{ID: "hw-1", ModelAnswerText: strings.Repeat("model answer about software design ", 10)}}
	grader := &graderFake{comparison: domain.SemanticComparison{SimilarityScore: 0.9, Correctness: "correct", Confidence: 0.8}}
	uc := newProcessFixture(repo, assignments, &blobFake{data: []byte("%PDF")}, &textExtractorFake{text: longAnswer}, grader)

	if err := uc.ProcessByID(context.Background(), "sub-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if len(repo.statusCalls) != 2 {
		t.Fatalf("expected 2 status calls, got %d", len(repo.statusCalls))
	}
	if repo.statusCalls[0].status != domain.StatusProcessing || repo.statusCalls[1].status != domain.StatusCompleted {
		t.Fatalf("unexpected status sequence: %+v", repo.statusCalls)
	}
	if repo.savedText != longAnswer {
		t.Fatalf("extracted text not persisted, got %q", repo.savedText)
	}
	if repo.savedReport == nil || repo.savedReport.Result != domain.PlagiarismNotFound {
		t.Fatalf("expected persisted not_found report, got %+v", repo.savedReport)
	}
	if !repo.scoreSaved {
		t.Fatalf("expected score to be saved")
	}
}

func TestProcessByIDMissingSubmissionIsSwallowed(t *testing.T) {
	repo := &submissionRepoFake{getErr: domain.ErrSubmissionNotFound}
	uc := newProcessFixture(repo, &assignmentRepoFake{}, &blobFake{}, &textExtractorFake{}, &graderFake{})

	if err := uc.ProcessByID(context.Background(), "ghost"); err != nil {
		t.Fatalf("expected nil for missing submission, got %v", err)
	}
	if len(repo.statusCalls) != 0 {
		t.Fatalf("expected no status transitions, got %+v", repo.statusCalls)
	}
}

func TestProcessByIDMarksFailedOnExtractError(t *testing.T) {
	repo := &submissionRepoFake{submission: &domain.Submission{ID: "sub-1", AssignmentID: "hw-1"}}
	uc := newProcessFixture(repo, &assignmentRepoFake{}, &blobFake{data: []byte("junk")},
		&textExtractorFake{err: errors.New("scanned pages unreadable")}, &graderFake{})

	err := uc.ProcessByID(context.Background(), "sub-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.statusCalls) != 2 || repo.statusCalls[1].status != domain.StatusFailed {
		t.Fatalf("expected processing + failed sequence, got %+v", repo.statusCalls)
	}
	if repo.statusCalls[1].errMsg == "" {
		t.Fatalf("failed status must carry an error message")
	}
	if repo.scoreSaved {
		t.Fatalf("score must not be saved after extraction failure")
	}
}

func TestProcessByIDMarksFailedOnBlobError(t *testing.T) {
	repo := &submissionRepoFake{submission: &domain.Submission{ID: "sub-1", AssignmentID: "hw-1"}}
	uc := newProcessFixture(repo, &assignmentRepoFake{}, &blobFake{err: errors.New("object missing")},
		&textExtractorFake{text: longAnswer}, &graderFake{})

	err := uc.ProcessByID(context.Background(), "sub-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if repo.statusCalls[len(repo.statusCalls)-1].status != domain.StatusFailed {
		t.Fatalf("expected terminal failed status, got %+v", repo.statusCalls)
	}
}

func TestProcessByIDReportsBothErrorsWhenFailWriteFails(t *testing.T) {
	repo := &submissionRepoFake{
		submission:    &domain.Submission{ID: "sub-1", AssignmentID: "hw-1"},
		failStatusErr: errors.New("db down"),
	}
	uc := newProcessFixture(repo, &assignmentRepoFake{}, &blobFake{data: []byte("junk")},
		&textExtractorFake{err: errors.New("extract fail")}, &graderFake{})

	err := uc.ProcessByID(context.Background(), "sub-1")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "extract fail") || !strings.Contains(err.Error(), "db down") {
		t.Fatalf("error should mention both pipeline and recovery failures, got %v", err)
	}
}

func TestProcessByIDGradesWithoutAssignment(t *testing.T) {
	repo := &submissionRepoFake{submission: &domain.Submission{ID: "sub-1", AssignmentID: "hw-gone"}}
	assignments := &assignmentRepoFake{err: domain.ErrAssignmentNotFound}
	uc := newProcessFixture(repo, assignments, &blobFake{data: []byte("%PDF")},
		&textExtractorFake{text: longAnswer}, &graderFake{err: errors.New("should not be called")})

	if err := uc.ProcessByID(context.Background(), "sub-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if !repo.scoreSaved {
		t.Fatalf("expected heuristic score without model answer")
	}
	if !strings.Contains(repo.savedLabel, "No Model Answer Available") {
		t.Fatalf("expected fallback label, got %q", repo.savedLabel)
	}
}
