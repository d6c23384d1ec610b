package domain

import "time"

type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

type PlagiarismResult string

const (
	// PlagiarismUnchecked is the zero value before processing completes.
	PlagiarismUnchecked PlagiarismResult = ""
	PlagiarismFound     PlagiarismResult = "found"
	PlagiarismNotFound  PlagiarismResult = "not_found"
)

type Submission struct {
	ID               string            `json:"id"`
	AssignmentID     string            `json:"assignment_id"`
	AnswerFileKey    string            `json:"answer_file_key"`
	ExtractedText    string            `json:"extracted_text,omitempty"`
	Status           ProcessingStatus  `json:"status"`
	ProcessingError  string            `json:"processing_error,omitempty"`
	PlagiarismResult PlagiarismResult  `json:"plagiarism_result,omitempty"`
	PlagiarismReport *PlagiarismReport `json:"plagiarism_details,omitempty"`
	CorrectnessScore float64           `json:"correctness_score"`
	CorrectnessLabel string            `json:"correctness_label,omitempty"`
	FinalScore       float64           `json:"final_score"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Assignment is read-only from the processing core's point of view.
type Assignment struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	ModelAnswerText string `json:"model_answer_text,omitempty"`
}

// PoolEntry is one member of the ephemeral comparison pool built for a single
// plagiarism check. Pools are never persisted.
type PoolEntry struct {
	SubmissionID string
	Text         string
}
