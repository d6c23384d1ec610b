package ports

import (
	"context"

	"github.com/gradeflow/gradeflow/internal/core/domain"
)

// SubmissionRepository persists and reads submission state. Individual record
// updates are serialized by the store; the pipeline's read-modify-write across
// steps is not atomic, so concurrent readers may observe intermediate states.
type SubmissionRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Submission, error)
	// ListPeersWithText returns {id, text} pairs for every other submission on
	// the assignment whose trimmed extracted text has at least minChars characters.
	ListPeersWithText(ctx context.Context, assignmentID, excludeID string, minChars int) ([]domain.PoolEntry, error)
	UpdateStatus(ctx context.Context, id string, status domain.ProcessingStatus, errMessage string) error
	SaveExtractedText(ctx context.Context, id, text string) error
	SavePlagiarism(ctx context.Context, id string, report domain.PlagiarismReport) error
	// SaveScore writes correctness score + label and mirrors the score into
	// final_score (the plagiarism penalty is already folded in).
	SaveScore(ctx context.Context, id string, score float64, label string) error
	// MarkPlagiarized flags a peer submission implicated by a detector match.
	MarkPlagiarized(ctx context.Context, id string) error
}

// AssignmentRepository reads instructor-side assignment data.
type AssignmentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Assignment, error)
}

// BlobStorage reads uploaded answer files.
type BlobStorage interface {
	Read(ctx context.Context, key string) ([]byte, error)
}

// ProcessQueue delivers fire-and-forget "process this submission" signals.
type ProcessQueue interface {
	PublishSubmissionProcess(ctx context.Context, submissionID string) error
	SubscribeSubmissionProcess(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor turns a PDF byte stream into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, pdfData []byte) (string, error)
}

// OCRService rasterizes PDF pages and recognizes text on them.
type OCRService interface {
	RenderPages(ctx context.Context, pdfData []byte, dpi int) ([][]byte, error)
	RecognizeText(ctx context.Context, image []byte, lang string) (string, error)
}

// NearDuplicateDetector clusters a comparison pool into groups of exact and
// near-exact copies. Each cluster holds at least two submission ids.
type NearDuplicateDetector interface {
	Clusters(pool []domain.PoolEntry) [][]string
}

// VectorSimilarity scores the target (last) pool entry against every other
// entry in a shared term-weighted vector space. Degenerate input degrades to
// a zero-similarity report, never an error.
type VectorSimilarity interface {
	TargetSimilarities(pool []domain.PoolEntry) domain.VectorReport
}

// SemanticGrader compares a student answer to the instructor's model answer.
type SemanticGrader interface {
	CompareAnswer(ctx context.Context, studentText, modelText string) (domain.SemanticComparison, error)
}
