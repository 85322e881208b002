package models

import "time"

// Assignment is homework addressed either to a whole group or to one student.
type Assignment struct {
	ID            string    `db:"id" json:"id"`
	Title         string    `db:"title" json:"title"`
	Description   string    `db:"description" json:"description"`
	DueAt         time.Time `db:"due_at" json:"due_at"`
	GroupID       *string   `db:"group_id" json:"group_id,omitempty"`
	StudentTgID   *int64    `db:"student_tg_id" json:"student_tg_id,omitempty"`
	CreatedByTgID int64     `db:"created_by_tg_id" json:"created_by_tg_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// TargetKind tells who an assignment is for.
type TargetKind string

const (
	TargetGroup   TargetKind = "group"
	TargetStudent TargetKind = "student"
)
