package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorbot/internal/models"
	appErrors "github.com/noah-isme/tutorbot/pkg/errors"
)

type lessonRepository interface {
	Create(ctx context.Context, lesson *models.Lesson) error
	ListUpcomingForGroup(ctx context.Context, groupID string, from time.Time, limit int) ([]models.Lesson, error)
}

// LessonScheduler plans the reminder for a new lesson.
type LessonScheduler interface {
	ScheduleLesson(ctx context.Context, lesson *models.Lesson) error
}

// ScheduleLessonRequest is the completed schedule wizard.
type ScheduleLessonRequest struct {
	GroupID  string `validate:"required"`
	StartsAt string `validate:"required"`
	Location string `validate:"required,max=500"`
	Notes    string `validate:"max=1000"`
}

// UpcomingLessonsLimit caps the student schedule view.
const UpcomingLessonsLimit = 10

// LessonService schedules group lessons.
type LessonService struct {
	repo      lessonRepository
	users     *UserService
	groups    *GroupService
	reminders LessonScheduler
	validator *validator.Validate
	logger    *zap.Logger
	loc       *time.Location
	now       func() time.Time
}

// NewLessonService creates an instance of LessonService.
func NewLessonService(repo lessonRepository, users *UserService, groups *GroupService, reminders LessonScheduler, loc *time.Location, validate *validator.Validate, logger *zap.Logger) *LessonService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &LessonService{repo: repo, users: users, groups: groups, reminders: reminders, validator: validate, logger: logger, loc: loc, now: time.Now}
}

// Schedule stores a lesson (always 60 minutes) and plans its reminder.
func (s *LessonService) Schedule(ctx context.Context, req ScheduleLessonRequest) (*models.Lesson, error) {
	req.Location = strings.TrimSpace(req.Location)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson")
	}
	startsAt, err := ParseLocalDateTime(req.StartsAt, s.loc)
	if err != nil {
		return nil, err
	}
	group, err := s.groups.Get(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}

	lesson := &models.Lesson{
		GroupID:     group.ID,
		StartsAt:    startsAt,
		DurationMin: models.DefaultLessonDuration,
		Location:    req.Location,
		Notes:       strings.TrimSpace(req.Notes),
	}
	if err := s.repo.Create(ctx, lesson); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lesson")
	}
	s.logger.Info("lesson scheduled", zap.String("lesson_id", lesson.ID), zap.String("group_id", group.ID), zap.Time("starts_at", startsAt))

	if s.reminders != nil {
		if err := s.reminders.ScheduleLesson(ctx, lesson); err != nil {
			s.logger.Warn("failed to schedule lesson reminder", zap.String("lesson_id", lesson.ID), zap.Error(err))
		}
	}
	return lesson, nil
}

// Upcoming lists the next lessons of the student's group.
func (s *LessonService) Upcoming(ctx context.Context, tgID int64) ([]models.Lesson, error) {
	user, err := s.users.Get(ctx, tgID)
	if err != nil {
		return nil, err
	}
	if user.GroupID == nil {
		return nil, appErrors.ErrNoGroup
	}
	lessons, err := s.repo.ListUpcomingForGroup(ctx, *user.GroupID, s.now().UTC(), UpcomingLessonsLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	return lessons, nil
}

// Location is the timezone lesson times are typed in.
func (s *LessonService) Location() *time.Location {
	return s.loc
}
