package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/gradeflow/gradeflow/internal/core/domain"
)

type SubmissionRepository struct {
	db *sql.DB
}

func NewSubmissionRepository(db *sql.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *SubmissionRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS assignments (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	model_answer_text TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS submissions (
	id TEXT PRIMARY KEY,
	assignment_id TEXT NOT NULL,
	answer_file_key TEXT NOT NULL,
	extracted_text TEXT,
	status TEXT NOT NULL,
	processing_error TEXT,
	plagiarism_result TEXT,
	plagiarism_details JSONB,
	correctness_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	correctness_label TEXT,
	final_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_submissions_assignment ON submissions(assignment_id);
CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*domain.Submission, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, assignment_id, answer_file_key, extracted_text, status, processing_error,
	plagiarism_result, plagiarism_details, correctness_score, correctness_label,
	final_score, created_at, updated_at
FROM submissions
WHERE id = $1
`, id)

	var sub domain.Submission
	var extractedText, processingError, plagiarismResult, correctnessLabel sql.NullString
	var detailsRaw []byte
	var status string

	err := row.Scan(
		&sub.ID, &sub.AssignmentID, &sub.AnswerFileKey, &extractedText, &status, &processingError,
		&plagiarismResult, &detailsRaw, &sub.CorrectnessScore, &correctnessLabel,
		&sub.FinalScore, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSubmissionNotFound, "get submission", err)
		}
		return nil, fmt.Errorf("scan submission: %w", err)
	}

	sub.Status = domain.ProcessingStatus(status)
	sub.ExtractedText = extractedText.String
	sub.ProcessingError = processingError.String
	sub.PlagiarismResult = domain.PlagiarismResult(plagiarismResult.String)
	sub.CorrectnessLabel = correctnessLabel.String
	if len(detailsRaw) > 0 {
		var report domain.PlagiarismReport
		if err := json.Unmarshal(detailsRaw, &report); err != nil {
			return nil, fmt.Errorf("unmarshal plagiarism details: %w", err)
		}
		sub.PlagiarismReport = &report
	}
	return &sub, nil
}

func (r *SubmissionRepository) ListPeersWithText(ctx context.Context, assignmentID, excludeID string, minChars int) ([]domain.PoolEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, extracted_text
FROM submissions
WHERE assignment_id = $1
  AND id <> $2
  AND extracted_text IS NOT NULL
  AND length(btrim(extracted_text)) >= $3
ORDER BY created_at
`, assignmentID, excludeID, minChars)
	if err != nil {
		return nil, fmt.Errorf("query peer submissions: %w", err)
	}
	defer rows.Close()

	var peers []domain.PoolEntry
	for rows.Next() {
		var entry domain.PoolEntry
		if err := rows.Scan(&entry.SubmissionID, &entry.Text); err != nil {
			return nil, fmt.Errorf("scan peer submission: %w", err)
		}
		peers = append(peers, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate peer submissions: %w", err)
	}
	return peers, nil
}

func (r *SubmissionRepository) UpdateStatus(ctx context.Context, id string, status domain.ProcessingStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE submissions
SET status = $2, processing_error = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	return requireRow(result, "update submission status", id)
}

func (r *SubmissionRepository) SaveExtractedText(ctx context.Context, id, text string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE submissions
SET extracted_text = $2, updated_at = $3
WHERE id = $1
`, id, text, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save extracted text: %w", err)
	}
	return requireRow(result, "save extracted text", id)
}

func (r *SubmissionRepository) SavePlagiarism(ctx context.Context, id string, report domain.PlagiarismReport) error {
	detailsJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal plagiarism details: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE submissions
SET plagiarism_result = $2, plagiarism_details = $3, updated_at = $4
WHERE id = $1
`, id, string(report.Result), detailsJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save plagiarism result: %w", err)
	}
	return requireRow(result, "save plagiarism result", id)
}

func (r *SubmissionRepository) SaveScore(ctx context.Context, id string, score float64, label string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE submissions
SET correctness_score = $2, correctness_label = $3, final_score = $2, updated_at = $4
WHERE id = $1
`, id, score, label, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save correctness score: %w", err)
	}
	return requireRow(result, "save correctness score", id)
}

// MarkPlagiarized flags a peer implicated by a detector match. It does not
// touch the peer's details: the full report belongs to the submission whose
// check produced it.
func (r *SubmissionRepository) MarkPlagiarized(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE submissions
SET plagiarism_result = $2, updated_at = $3
WHERE id = $1
`, id, string(domain.PlagiarismFound), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark submission plagiarized: %w", err)
	}
	return requireRow(result, "mark submission plagiarized", id)
}

func requireRow(result sql.Result, operation, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrSubmissionNotFound, operation, fmt.Errorf("id %s", id))
	}
	return nil
}
