package models

import "time"

// Quiz is a multiple-choice question with one correct and three wrong answers.
type Quiz struct {
	ID            string    `db:"id" json:"id"`
	GroupID       string    `db:"group_id" json:"group_id"`
	Question      string    `db:"question" json:"question"`
	Correct       string    `db:"correct" json:"correct"`
	Wrong1        string    `db:"wrong1" json:"wrong1"`
	Wrong2        string    `db:"wrong2" json:"wrong2"`
	Wrong3        string    `db:"wrong3" json:"wrong3"`
	CreatedByTgID int64     `db:"created_by_tg_id" json:"created_by_tg_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Options returns the answers with the correct one first.
func (q *Quiz) Options() []string {
	return []string{q.Correct, q.Wrong1, q.Wrong2, q.Wrong3}
}

// QuizOption is one shuffled answer presented to the student.
type QuizOption struct {
	Text    string
	Correct bool
}

// QuizResult records one answer.
type QuizResult struct {
	ID          string    `db:"id" json:"id"`
	QuizID      string    `db:"quiz_id" json:"quiz_id"`
	StudentTgID int64     `db:"student_tg_id" json:"student_tg_id"`
	IsCorrect   bool      `db:"is_correct" json:"is_correct"`
	AnsweredAt  time.Time `db:"answered_at" json:"answered_at"`
}
