package models

import "time"

// Flashcard is a word/translation pair for a group.
type Flashcard struct {
	ID            string    `db:"id" json:"id"`
	GroupID       string    `db:"group_id" json:"group_id"`
	Front         string    `db:"front" json:"front"`
	Back          string    `db:"back" json:"back"`
	CreatedByTgID int64     `db:"created_by_tg_id" json:"created_by_tg_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// CardStatus is how well a student knows a card.
type CardStatus string

const (
	CardKnown    CardStatus = "known"
	CardLearning CardStatus = "learning"
)
