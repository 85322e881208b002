package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutorbot/internal/models"
)

const lessonColumns = `id, group_id, starts_at, duration_min, location, notes`

// LessonRepository stores scheduled lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository constructs the repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// Create inserts a lesson.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	if lesson.DurationMin <= 0 {
		lesson.DurationMin = models.DefaultLessonDuration
	}
	const query = `INSERT INTO lessons (` + lessonColumns + `) VALUES (:id, :group_id, :starts_at, :duration_min, :location, :notes)`
	if _, err := r.db.NamedExecContext(ctx, query, lesson); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// ListUpcomingForGroup returns the group's next lessons starting at or after from.
func (r *LessonRepository) ListUpcomingForGroup(ctx context.Context, groupID string, from time.Time, limit int) ([]models.Lesson, error) {
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT %s FROM lessons WHERE group_id = $1 AND starts_at >= $2 ORDER BY starts_at ASC LIMIT %d`, lessonColumns, limit)
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, groupID, from); err != nil {
		return nil, fmt.Errorf("list upcoming lessons: %w", err)
	}
	return lessons, nil
}

// ListStartingAfter returns every lesson starting at or after from.
func (r *LessonRepository) ListStartingAfter(ctx context.Context, from time.Time) ([]models.Lesson, error) {
	const query = `SELECT ` + lessonColumns + ` FROM lessons WHERE starts_at >= $1 ORDER BY starts_at ASC`
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, from); err != nil {
		return nil, fmt.Errorf("list future lessons: %w", err)
	}
	return lessons, nil
}
