package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutorbot/internal/models"
)

const assignmentColumns = `id, title, description, due_at, group_id, student_tg_id, created_by_tg_id, created_at`

// AssignmentRepository stores homework assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Create inserts an assignment.
func (r *AssignmentRepository) Create(ctx context.Context, a *models.Assignment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO assignments (` + assignmentColumns + `) VALUES (:id, :title, :description, :due_at, :group_id, :student_tg_id, :created_by_tg_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// FindByID returns an assignment by identifier.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	const query = `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1 LIMIT 1`
	var a models.Assignment
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return &a, nil
}

// ListForStudent returns assignments addressed to the student directly or
// to the student's group, newest first.
func (r *AssignmentRepository) ListForStudent(ctx context.Context, studentTgID int64, groupID *string) ([]models.Assignment, error) {
	const query = `SELECT ` + assignmentColumns + ` FROM assignments WHERE student_tg_id = $1 OR (group_id IS NOT NULL AND group_id = $2) ORDER BY created_at DESC`
	var list []models.Assignment
	if err := r.db.SelectContext(ctx, &list, query, studentTgID, groupID); err != nil {
		return nil, fmt.Errorf("list student assignments: %w", err)
	}
	return list, nil
}

// ListDueAfter returns assignments whose deadline is at or after the instant.
func (r *AssignmentRepository) ListDueAfter(ctx context.Context, after time.Time) ([]models.Assignment, error) {
	const query = `SELECT ` + assignmentColumns + ` FROM assignments WHERE due_at >= $1 ORDER BY due_at ASC`
	var list []models.Assignment
	if err := r.db.SelectContext(ctx, &list, query, after); err != nil {
		return nil, fmt.Errorf("list upcoming assignments: %w", err)
	}
	return list, nil
}
