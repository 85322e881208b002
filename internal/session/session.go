// Package session keeps per-chat conversation state between updates.
package session

import (
	"context"
	"time"

	"github.com/noah-isme/tutorbot/internal/models"
)

// State names the step of a multi-message conversation.
type State string

const (
	StateIdle                State = ""
	StateAwaitTeacherCode    State = "await_teacher_code"
	StateParentChildUsername State = "parent_child_username"
	StateJoinGroupName       State = "join_group_name"
	StateNewTaskTarget       State = "new_task_target"
	StateNewTaskGroup        State = "new_task_group"
	StateNewTaskStudent      State = "new_task_student"
	StateNewTaskTitle        State = "new_task_title"
	StateNewTaskDesc         State = "new_task_desc"
	StateNewTaskDue          State = "new_task_due"
	StateNewTaskConfirm      State = "new_task_confirm"
	StateAddGroupName        State = "add_group_name"
	StateScheduleGroup       State = "schedule_group"
	StateScheduleDateTime    State = "schedule_datetime"
	StateScheduleLocation    State = "schedule_location"
	StateScheduleConfirm     State = "schedule_confirm"
	StateSubmitWait          State = "submit_wait"
	StateGradeComment        State = "grade_comment"
	StateFlashAddGroup       State = "flash_add_group"
	StateFlashAddText        State = "flash_add_text"
	StateQuizAddGroup        State = "quiz_add_group"
	StateQuizAddText         State = "quiz_add_text"
)

// TaskDraft collects the new-assignment wizard answers.
type TaskDraft struct {
	Target          models.TargetKind `json:"target,omitempty"`
	GroupID         string            `json:"group_id,omitempty"`
	StudentUsername string            `json:"student_username,omitempty"`
	Title           string            `json:"title,omitempty"`
	Description     string            `json:"description,omitempty"`
	Due             string            `json:"due,omitempty"`
}

// LessonDraft collects the schedule wizard answers.
type LessonDraft struct {
	GroupID  string `json:"group_id,omitempty"`
	StartsAt string `json:"starts_at,omitempty"`
	Location string `json:"location,omitempty"`
}

// Session is the conversation state of one chat.
type Session struct {
	State        State        `json:"state"`
	Task         *TaskDraft   `json:"task,omitempty"`
	Lesson       *LessonDraft `json:"lesson,omitempty"`
	AssignmentID string       `json:"assignment_id,omitempty"`
	SubmissionID string       `json:"submission_id,omitempty"`
	PendingGrade string       `json:"pending_grade,omitempty"`
	GroupID      string       `json:"group_id,omitempty"`
	FlashcardID  string       `json:"flashcard_id,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Reset drops the current conversation. The last drawn flashcard survives
// so the student can still mark it.
func (s *Session) Reset() {
	card := s.FlashcardID
	*s = Session{FlashcardID: card}
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return &Session{}
	}
	out := *s
	if s.Task != nil {
		task := *s.Task
		out.Task = &task
	}
	if s.Lesson != nil {
		lesson := *s.Lesson
		out.Lesson = &lesson
	}
	return &out
}

// TaskDraft returns the draft, creating it on first use.
func (s *Session) TaskDraft() *TaskDraft {
	if s.Task == nil {
		s.Task = &TaskDraft{}
	}
	return s.Task
}

// LessonDraft returns the draft, creating it on first use.
func (s *Session) LessonDraft() *LessonDraft {
	if s.Lesson == nil {
		s.Lesson = &LessonDraft{}
	}
	return s.Lesson
}

// Store persists sessions by chat id. Get never returns nil: a missing or
// expired session comes back empty.
type Store interface {
	Get(ctx context.Context, chatID int64) (*Session, error)
	Save(ctx context.Context, chatID int64, s *Session) error
	Clear(ctx context.Context, chatID int64) error
	Close() error
}

func expired(s *Session, ttl time.Duration, now time.Time) bool {
	return ttl > 0 && !s.UpdatedAt.IsZero() && now.Sub(s.UpdatedAt) > ttl
}
