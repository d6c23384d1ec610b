package usecase

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/gradeflow/gradeflow/internal/core/domain"
)

func plagiarismSubmission(text string) *domain.Submission {
	return &domain.Submission{ID: "target", AssignmentID: "hw-1", ExtractedText: text}
}

func TestCheckShortTextShortCircuits(t *testing.T) {
	repo := &submissionRepoFake{peersErr: errors.New("must not query peers")}
	checker := NewPlagiarismChecker(repo, &nearDupFake{}, &vectorFake{}, PlagiarismConfig{}, nil)

	report, err := checker.Check(context.Background(), plagiarismSubmission("too short"))
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if report.Result != domain.PlagiarismNotFound {
		t.Fatalf("expected not_found, got %s", report.Result)
	}
	if report.Note == "" {
		t.Fatalf("short-text report must carry an explanatory note")
	}
}

func TestCheckEmptyPoolShortCircuits(t *testing.T) {
	repo := &submissionRepoFake{}
	checker := NewPlagiarismChecker(repo, &nearDupFake{}, &vectorFake{}, PlagiarismConfig{}, nil)

	report, err := checker.Check(context.Background(), plagiarismSubmission(longAnswer))
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if report.Result != domain.PlagiarismNotFound || report.Note == "" {
		t.Fatalf("expected annotated not_found for empty pool, got %+v", report)
	}
}

func TestCheckNearDuplicateAloneFlags(t *testing.T) {
	repo := &submissionRepoFake{peers: []domain.PoolEntry{{SubmissionID: "peer-1", Text: longAnswer}}}
	nearDup := &nearDupFake{clusters: [][]string{{"peer-1", "target"}}}
	vector := &vectorFake{report: domain.VectorReport{MaxSimilarity: 0.1}}
	checker := NewPlagiarismChecker(repo, nearDup, vector, PlagiarismConfig{}, nil)

	report, err := checker.Check(context.Background(), plagiarismSubmission(longAnswer))
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if report.Result != domain.PlagiarismFound {
		t.Fatalf("expected found, got %s", report.Result)
	}
	if !report.NearDuplicate.Matched {
		t.Fatalf("expected near-duplicate match recorded")
	}
	if len(repo.markedPeers) != 1 || repo.markedPeers[0] != "peer-1" {
		t.Fatalf("expected peer-1 flagged, got %v", repo.markedPeers)
	}
}

func TestCheckVectorSimilarityAloneFlags(t *testing.T) {
	repo := &submissionRepoFake{peers: []domain.PoolEntry{
		{SubmissionID: "peer-1", Text: longAnswer},
		{SubmissionID: "peer-2", Text: longAnswer},
	}}
	vector := &vectorFake{report: domain.VectorReport{
		MaxSimilarity: 0.75,
		Comparisons: []domain.PeerSimilarity{
			{SubmissionID: "peer-1", Score: 0.75},
			{SubmissionID: "peer-2", Score: 0.2},
		},
	}}
	checker := NewPlagiarismChecker(repo, &nearDupFake{}, vector, PlagiarismConfig{}, nil)

	report, err := checker.Check(context.Background(), plagiarismSubmission(longAnswer))
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if report.Result != domain.PlagiarismFound {
		t.Fatalf("expected found, got %s", report.Result)
	}
	if report.NearDuplicate.Matched {
		t.Fatalf("near-duplicate detector did not match, report says it did")
	}
	if len(repo.markedPeers) != 1 || repo.markedPeers[0] != "peer-1" {
		t.Fatalf("only the over-threshold peer should be flagged, got %v", repo.markedPeers)
	}
}

func TestCheckBelowThresholdsNotFound(t *testing.T) {
	repo := &submissionRepoFake{peers: []domain.PoolEntry{{SubmissionID: "peer-1", Text: longAnswer}}}
	vector := &vectorFake{report: domain.VectorReport{
		MaxSimilarity: 0.59,
		Comparisons:   []domain.PeerSimilarity{{SubmissionID: "peer-1", Score: 0.59}},
	}}
	checker := NewPlagiarismChecker(repo, &nearDupFake{}, vector, PlagiarismConfig{}, nil)

	report, err := checker.Check(context.Background(), plagiarismSubmission(longAnswer))
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if report.Result != domain.PlagiarismNotFound {
		t.Fatalf("expected not_found below threshold, got %s", report.Result)
	}
	if len(repo.markedPeers) != 0 {
		t.Fatalf("no peers should be flagged, got %v", repo.markedPeers)
	}
	if report.Vector.MaxSimilarity != 0.59 {
		t.Fatalf("report must keep the observed similarity, got %v", report.Vector.MaxSimilarity)
	}
}

func TestCheckFlagsUnionOfDetectors(t *testing.T) {
	repo := &submissionRepoFake{peers: []domain.PoolEntry{
		{SubmissionID: "peer-1", Text: longAnswer},
		{SubmissionID: "peer-2", Text: longAnswer},
	}}
	nearDup := &nearDupFake{clusters: [][]string{{"peer-2", "target"}}}
	vector := &vectorFake{report: domain.VectorReport{
		MaxSimilarity: 0.9,
		Comparisons: []domain.PeerSimilarity{
			{SubmissionID: "peer-1", Score: 0.9},
			{SubmissionID: "peer-2", Score: 0.3},
		},
	}}
	checker := NewPlagiarismChecker(repo, nearDup, vector, PlagiarismConfig{}, nil)

	if _, err := checker.Check(context.Background(), plagiarismSubmission(longAnswer)); err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	sort.Strings(repo.markedPeers)
	if len(repo.markedPeers) != 2 || repo.markedPeers[0] != "peer-1" || repo.markedPeers[1] != "peer-2" {
		t.Fatalf("expected both peers flagged, got %v", repo.markedPeers)
	}
}

func TestCheckPropagatesFlagError(t *testing.T) {
	repo := &submissionRepoFake{
		peers:   []domain.PoolEntry{{SubmissionID: "peer-1", Text: longAnswer}},
		markErr: errors.New("write denied"),
	}
	nearDup := &nearDupFake{clusters: [][]string{{"peer-1", "target"}}}
	checker := NewPlagiarismChecker(repo, nearDup, &vectorFake{}, PlagiarismConfig{}, nil)

	if _, err := checker.Check(context.Background(), plagiarismSubmission(longAnswer)); err == nil {
		t.Fatalf("expected flag persistence error to propagate")
	}
}
