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

const flashcardColumns = `id, group_id, front, back, created_by_tg_id, created_at`

// FlashcardRepository stores flashcards and per-student progress.
type FlashcardRepository struct {
	db *sqlx.DB
}

// NewFlashcardRepository constructs the repository.
func NewFlashcardRepository(db *sqlx.DB) *FlashcardRepository {
	return &FlashcardRepository{db: db}
}

// Create inserts a card.
func (r *FlashcardRepository) Create(ctx context.Context, card *models.Flashcard) error {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	if card.CreatedAt.IsZero() {
		card.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO flashcards (` + flashcardColumns + `) VALUES (:id, :group_id, :front, :back, :created_by_tg_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, card); err != nil {
		return fmt.Errorf("create flashcard: %w", err)
	}
	return nil
}

// FindByID returns a card by identifier.
func (r *FlashcardRepository) FindByID(ctx context.Context, id string) (*models.Flashcard, error) {
	const query = `SELECT ` + flashcardColumns + ` FROM flashcards WHERE id = $1 LIMIT 1`
	var card models.Flashcard
	if err := r.db.GetContext(ctx, &card, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find flashcard: %w", err)
	}
	return &card, nil
}

// RandomForGroup picks one card of the group at random.
func (r *FlashcardRepository) RandomForGroup(ctx context.Context, groupID string) (*models.Flashcard, error) {
	const query = `SELECT ` + flashcardColumns + ` FROM flashcards WHERE group_id = $1 ORDER BY RANDOM() LIMIT 1`
	var card models.Flashcard
	if err := r.db.GetContext(ctx, &card, query, groupID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("random flashcard: %w", err)
	}
	return &card, nil
}

// SetProgress records how well the student knows the card, replacing any earlier mark.
func (r *FlashcardRepository) SetProgress(ctx context.Context, cardID string, studentTgID int64, status models.CardStatus, at time.Time) error {
	const query = `INSERT INTO flash_progress (card_id, student_tg_id, status, last_seen) VALUES ($1, $2, $3, $4)
ON CONFLICT (card_id, student_tg_id) DO UPDATE SET status = excluded.status, last_seen = excluded.last_seen`
	if _, err := r.db.ExecContext(ctx, query, cardID, studentTgID, string(status), at); err != nil {
		return fmt.Errorf("set flashcard progress: %w", err)
	}
	return nil
}
