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

const submissionColumns = `id, assignment_id, student_tg_id, text_content, file_id, file_type, submitted_at, grade, feedback, graded_by_tg_id, graded_at`

// SubmissionRepository stores student submissions and their grades.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a submission.
func (r *SubmissionRepository) Create(ctx context.Context, s *models.Submission) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO submissions (id, assignment_id, student_tg_id, text_content, file_id, file_type, submitted_at) VALUES (:id, :assignment_id, :student_tg_id, :text_content, :file_id, :file_type, :submitted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// FindByID returns a submission by identifier.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.Submission, error) {
	const query = `SELECT ` + submissionColumns + ` FROM submissions WHERE id = $1 LIMIT 1`
	var s models.Submission
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find submission: %w", err)
	}
	return &s, nil
}

// NextPending returns the oldest submission without a grade.
func (r *SubmissionRepository) NextPending(ctx context.Context) (*models.Submission, error) {
	const query = `SELECT ` + submissionColumns + ` FROM submissions WHERE grade IS NULL ORDER BY submitted_at ASC LIMIT 1`
	var s models.Submission
	if err := r.db.GetContext(ctx, &s, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("next pending submission: %w", err)
	}
	return &s, nil
}

// SetGrade stores a grade with optional feedback.
func (r *SubmissionRepository) SetGrade(ctx context.Context, id, grade string, feedback *string, teacherTgID int64, at time.Time) error {
	const query = `UPDATE submissions SET grade = $2, feedback = $3, graded_by_tg_id = $4, graded_at = $5 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, grade, feedback, teacherTgID, at)
	if err != nil {
		return fmt.Errorf("set grade: %w", err)
	}
	return ensureAffected(res)
}

// SetFeedback stores a comment without grading; the submission stays pending.
func (r *SubmissionRepository) SetFeedback(ctx context.Context, id, feedback string) error {
	const query = `UPDATE submissions SET feedback = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, feedback)
	if err != nil {
		return fmt.Errorf("set feedback: %w", err)
	}
	return ensureAffected(res)
}

// CountGradedSince counts the student's submissions graded at or after since.
func (r *SubmissionRepository) CountGradedSince(ctx context.Context, studentTgID int64, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM submissions WHERE student_tg_id = $1 AND graded_at >= $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, studentTgID, since); err != nil {
		return 0, fmt.Errorf("count graded submissions: %w", err)
	}
	return count, nil
}

// Gradebook returns every submission joined with its assignment and student.
func (r *SubmissionRepository) Gradebook(ctx context.Context) ([]models.GradebookRow, error) {
	const query = `SELECT s.id AS submission_id, a.title AS assignment_title, COALESCE(u.full_name, '') AS student_name, COALESCE(u.username, '') AS student_username, s.submitted_at, s.grade, s.feedback, s.graded_at
FROM submissions s
JOIN assignments a ON a.id = s.assignment_id
LEFT JOIN users u ON u.tg_id = s.student_tg_id
ORDER BY s.submitted_at ASC`
	var rows []models.GradebookRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("load gradebook: %w", err)
	}
	return rows, nil
}

func ensureAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
