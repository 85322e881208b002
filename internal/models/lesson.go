package models

import "time"

// Lesson is a scheduled class for a group.
type Lesson struct {
	ID          string    `db:"id" json:"id"`
	GroupID     string    `db:"group_id" json:"group_id"`
	StartsAt    time.Time `db:"starts_at" json:"starts_at"`
	DurationMin int       `db:"duration_min" json:"duration_min"`
	Location    string    `db:"location" json:"location"`
	Notes       string    `db:"notes" json:"notes"`
}

// DefaultLessonDuration is used when the teacher does not specify one.
const DefaultLessonDuration = 60
