package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gradeflow/gradeflow/internal/core/domain"
)

type AssignmentRepository struct {
	db *sql.DB
}

func NewAssignmentRepository(db *sql.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) GetByID(ctx context.Context, id string) (*domain.Assignment, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, title, model_answer_text
FROM assignments
WHERE id = $1
`, id)

	var assignment domain.Assignment
	var modelAnswer sql.NullString
	if err := row.Scan(&assignment.ID, &assignment.Title, &modelAnswer); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrAssignmentNotFound, "get assignment", err)
		}
		return nil, fmt.Errorf("scan assignment: %w", err)
	}
	assignment.ModelAnswerText = modelAnswer.String
	return &assignment, nil
}
