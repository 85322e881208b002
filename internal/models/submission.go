package models

import "time"

// ContentType is the kind of payload a student sent.
type ContentType string

const (
	ContentText     ContentType = "text"
	ContentDocument ContentType = "document"
	ContentPhoto    ContentType = "photo"
	ContentAudio    ContentType = "audio"
	ContentVoice    ContentType = "voice"
)

// Submission is a student's answer to an assignment.
type Submission struct {
	ID           string       `db:"id" json:"id"`
	AssignmentID string       `db:"assignment_id" json:"assignment_id"`
	StudentTgID  int64        `db:"student_tg_id" json:"student_tg_id"`
	TextContent  *string      `db:"text_content" json:"text_content,omitempty"`
	FileID       *string      `db:"file_id" json:"file_id,omitempty"`
	FileType     *ContentType `db:"file_type" json:"file_type,omitempty"`
	SubmittedAt  time.Time    `db:"submitted_at" json:"submitted_at"`
	Grade        *string      `db:"grade" json:"grade,omitempty"`
	Feedback     *string      `db:"feedback" json:"feedback,omitempty"`
	GradedByTgID *int64       `db:"graded_by_tg_id" json:"graded_by_tg_id,omitempty"`
	GradedAt     *time.Time   `db:"graded_at" json:"graded_at,omitempty"`
}

// Pending reports whether the submission still waits for a grade.
func (s *Submission) Pending() bool { return s.Grade == nil }

// SubmissionContent carries what the student sent in one message.
type SubmissionContent struct {
	Text     string
	FileID   string
	FileType ContentType
}

// GradebookRow is one line of the teacher export.
type GradebookRow struct {
	SubmissionID    string     `db:"submission_id"`
	AssignmentTitle string     `db:"assignment_title"`
	StudentName     string     `db:"student_name"`
	StudentUsername string     `db:"student_username"`
	SubmittedAt     time.Time  `db:"submitted_at"`
	Grade           *string    `db:"grade"`
	Feedback        *string    `db:"feedback"`
	GradedAt        *time.Time `db:"graded_at"`
}
