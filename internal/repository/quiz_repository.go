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

const quizColumns = `id, group_id, question, correct, wrong1, wrong2, wrong3, created_by_tg_id, created_at`

// QuizRepository stores quiz questions and answers.
type QuizRepository struct {
	db *sqlx.DB
}

// NewQuizRepository constructs the repository.
func NewQuizRepository(db *sqlx.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

// Create inserts a question.
func (r *QuizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO quizzes (` + quizColumns + `) VALUES (:id, :group_id, :question, :correct, :wrong1, :wrong2, :wrong3, :created_by_tg_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, quiz); err != nil {
		return fmt.Errorf("create quiz: %w", err)
	}
	return nil
}

// FindByID returns a question by identifier.
func (r *QuizRepository) FindByID(ctx context.Context, id string) (*models.Quiz, error) {
	const query = `SELECT ` + quizColumns + ` FROM quizzes WHERE id = $1 LIMIT 1`
	var quiz models.Quiz
	if err := r.db.GetContext(ctx, &quiz, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find quiz: %w", err)
	}
	return &quiz, nil
}

// RandomForGroup picks one question of the group at random.
func (r *QuizRepository) RandomForGroup(ctx context.Context, groupID string) (*models.Quiz, error) {
	const query = `SELECT ` + quizColumns + ` FROM quizzes WHERE group_id = $1 ORDER BY RANDOM() LIMIT 1`
	var quiz models.Quiz
	if err := r.db.GetContext(ctx, &quiz, query, groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("random quiz: %w", err)
	}
	return &quiz, nil
}

// SaveResult records one answer.
func (r *QuizRepository) SaveResult(ctx context.Context, result *models.QuizResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.AnsweredAt.IsZero() {
		result.AnsweredAt = time.Now().UTC()
	}
	const query = `INSERT INTO quiz_results (id, quiz_id, student_tg_id, is_correct, answered_at) VALUES (:id, :quiz_id, :student_tg_id, :is_correct, :answered_at)`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("save quiz result: %w", err)
	}
	return nil
}
