package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorbot/internal/models"
	appErrors "github.com/noah-isme/tutorbot/pkg/errors"
)

type submissionRepository interface {
	Create(ctx context.Context, s *models.Submission) error
	FindByID(ctx context.Context, id string) (*models.Submission, error)
	NextPending(ctx context.Context) (*models.Submission, error)
	SetGrade(ctx context.Context, id, grade string, feedback *string, teacherTgID int64, at time.Time) error
	SetFeedback(ctx context.Context, id, feedback string) error
	Gradebook(ctx context.Context) ([]models.GradebookRow, error)
}

// NoFeedback is what a teacher types to grade without a comment.
const NoFeedback = "-"

// GradeRequest grades one submission.
type GradeRequest struct {
	SubmissionID string `validate:"required"`
	Grade        string `validate:"required,oneof=2 3 4 5"`
	Feedback     string `validate:"max=1000"`
	TeacherTgID  int64  `validate:"required"`
}

// SubmitResult reports the stored submission and the updated streak.
type SubmitResult struct {
	Submission *models.Submission
	Assignment *models.Assignment
	Streak     int
	Milestone  bool
}

// PendingReview is the next ungraded submission with its context.
type PendingReview struct {
	Submission *models.Submission
	Assignment *models.Assignment
	Student    *models.User
}

// SubmissionService accepts student work and records grades.
type SubmissionService struct {
	repo        submissionRepository
	assignments *AssignmentService
	users       userRepository
	notifier    Notifier
	streaks     StreakCalculator
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewSubmissionService creates an instance of SubmissionService.
func NewSubmissionService(repo submissionRepository, assignments *AssignmentService, users userRepository, notifier Notifier, streaks StreakCalculator, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SubmissionService{
		repo:        repo,
		assignments: assignments,
		users:       users,
		notifier:    notifier,
		streaks:     streaks,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Submit stores a student's answer and bumps the activity streak.
func (s *SubmissionService) Submit(ctx context.Context, assignmentID string, studentTgID int64, content models.SubmissionContent) (*SubmitResult, error) {
	if strings.TrimSpace(content.Text) == "" && content.FileID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "empty submission")
	}
	assignment, err := s.assignments.Get(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	sub := &models.Submission{
		AssignmentID: assignment.ID,
		StudentTgID:  studentTgID,
		SubmittedAt:  now,
	}
	if content.FileID != "" {
		fileID := content.FileID
		kind := content.FileType
		sub.FileID = &fileID
		sub.FileType = &kind
	} else {
		text := content.Text
		sub.TextContent = &text
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store submission")
	}

	result := &SubmitResult{Submission: sub, Assignment: assignment}
	student, err := s.users.FindByTgID(ctx, studentTgID)
	if err != nil {
		s.logger.Warn("streak skipped: student not loaded", zap.Int64("tg_id", studentTgID), zap.Error(err))
	} else {
		result.Streak = s.streaks.Next(student.StreakDays, student.LastActivity, now)
		if err := s.users.UpdateStreak(ctx, studentTgID, result.Streak, now); err != nil {
			s.logger.Warn("failed to update streak", zap.Int64("tg_id", studentTgID), zap.Error(err))
		}
		result.Milestone = result.Streak != student.StreakDays && IsMilestone(result.Streak)
	}

	s.logger.Info("submission received",
		zap.String("submission_id", sub.ID),
		zap.String("assignment_id", assignment.ID),
		zap.Int64("student_tg_id", studentTgID))

	s.notifier.Notify(ctx, assignment.CreatedByTgID,
		fmt.Sprintf("📥 Новая работа по заданию «%s». Откройте «Проверка».", assignment.Title))
	return result, nil
}

// NextPending returns the oldest ungraded submission, or nil when the queue
// is empty.
func (s *SubmissionService) NextPending(ctx context.Context) (*PendingReview, error) {
	sub, err := s.repo.NextPending(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending submission")
	}
	review := &PendingReview{Submission: sub}
	if a, err := s.assignments.Get(ctx, sub.AssignmentID); err == nil {
		review.Assignment = a
	}
	if u, err := s.users.FindByTgID(ctx, sub.StudentTgID); err == nil {
		review.Student = u
	}
	return review, nil
}

// Get returns a submission by id.
func (s *SubmissionService) Get(ctx context.Context, id string) (*models.Submission, error) {
	sub, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	return sub, nil
}

// Grade stores the grade and tells the student.
func (s *SubmissionService) Grade(ctx context.Context, req GradeRequest) (*models.Submission, error) {
	req.Feedback = strings.TrimSpace(req.Feedback)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade")
	}
	sub, err := s.Get(ctx, req.SubmissionID)
	if err != nil {
		return nil, err
	}

	var feedback *string
	if req.Feedback != "" && req.Feedback != NoFeedback {
		feedback = &req.Feedback
	}
	now := s.now().UTC()
	if err := s.repo.SetGrade(ctx, sub.ID, req.Grade, feedback, req.TeacherTgID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grade")
	}
	grade := req.Grade
	teacher := req.TeacherTgID
	sub.Grade = &grade
	sub.Feedback = feedback
	sub.GradedByTgID = &teacher
	sub.GradedAt = &now

	s.logger.Info("submission graded", zap.String("submission_id", sub.ID), zap.String("grade", grade))
	s.notifier.Notify(ctx, sub.StudentTgID, s.gradeMessage(ctx, sub))
	return sub, nil
}

// Comment attaches feedback without a grade; the submission stays pending.
func (s *SubmissionService) Comment(ctx context.Context, submissionID string, feedback string) (*models.Submission, error) {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" || feedback == NoFeedback {
		return nil, appErrors.Clone(appErrors.ErrValidation, "empty comment")
	}
	sub, err := s.Get(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetFeedback(ctx, sub.ID, feedback); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save comment")
	}
	sub.Feedback = &feedback

	title := s.assignmentTitle(ctx, sub.AssignmentID)
	s.notifier.Notify(ctx, sub.StudentTgID, fmt.Sprintf("💬 Комментарий учителя к работе «%s»: %s", title, feedback))
	return sub, nil
}

// Gradebook returns all submissions for export.
func (s *SubmissionService) Gradebook(ctx context.Context) ([]models.GradebookRow, error) {
	rows, err := s.repo.Gradebook(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load gradebook")
	}
	return rows, nil
}

func (s *SubmissionService) gradeMessage(ctx context.Context, sub *models.Submission) string {
	text := fmt.Sprintf("✅ Работа по заданию «%s» проверена. Оценка: %s.", s.assignmentTitle(ctx, sub.AssignmentID), *sub.Grade)
	if sub.Feedback != nil {
		text += "\nКомментарий: " + *sub.Feedback
	}
	return text
}

func (s *SubmissionService) assignmentTitle(ctx context.Context, id string) string {
	a, err := s.assignments.Get(ctx, id)
	if err != nil {
		return id
	}
	return a.Title
}
