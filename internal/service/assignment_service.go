package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorbot/internal/models"
	appErrors "github.com/noah-isme/tutorbot/pkg/errors"
)

type assignmentRepository interface {
	Create(ctx context.Context, a *models.Assignment) error
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
	ListForStudent(ctx context.Context, studentTgID int64, groupID *string) ([]models.Assignment, error)
}

// AssignmentScheduler plans deadline reminders for a new assignment.
type AssignmentScheduler interface {
	ScheduleAssignment(ctx context.Context, a *models.Assignment) error
}

// CreateAssignmentRequest is the completed new-task wizard.
type CreateAssignmentRequest struct {
	Target          models.TargetKind `validate:"required,oneof=group student"`
	GroupID         string            `validate:"required_if=Target group"`
	StudentUsername string            `validate:"required_if=Target student"`
	Title           string            `validate:"required,max=200"`
	Description     string            `validate:"max=2000"`
	Due             string            `validate:"required"`
	CreatedByTgID   int64             `validate:"required"`
}

// AssignmentPage is one page of a student's task list.
type AssignmentPage struct {
	Items   []models.Assignment
	Page    int
	Offset  int
	HasPrev bool
	HasNext bool
	Total   int
}

// AssignmentService creates and lists homework.
type AssignmentService struct {
	repo      assignmentRepository
	users     *UserService
	groups    *GroupService
	reminders AssignmentScheduler
	validator *validator.Validate
	logger    *zap.Logger
	loc       *time.Location
	pageSize  int
	now       func() time.Time
}

// NewAssignmentService creates an instance of AssignmentService.
func NewAssignmentService(repo assignmentRepository, users *UserService, groups *GroupService, reminders AssignmentScheduler, loc *time.Location, pageSize int, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if loc == nil {
		loc = time.UTC
	}
	if pageSize <= 0 {
		pageSize = 3
	}
	return &AssignmentService{
		repo:      repo,
		users:     users,
		groups:    groups,
		reminders: reminders,
		validator: validate,
		logger:    logger,
		loc:       loc,
		pageSize:  pageSize,
		now:       time.Now,
	}
}

// Create validates the wizard result, stores the assignment and plans its
// deadline reminders.
func (s *AssignmentService) Create(ctx context.Context, req CreateAssignmentRequest) (*models.Assignment, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment")
	}

	due, err := ParseLocalDateTime(req.Due, s.loc)
	if err != nil {
		return nil, err
	}

	assignment := &models.Assignment{
		Title:         req.Title,
		Description:   req.Description,
		DueAt:         due,
		CreatedByTgID: req.CreatedByTgID,
	}

	switch req.Target {
	case models.TargetGroup:
		group, err := s.groups.Get(ctx, req.GroupID)
		if err != nil {
			return nil, err
		}
		assignment.GroupID = &group.ID
	case models.TargetStudent:
		student, err := s.users.ResolveStudent(ctx, req.StudentUsername)
		if err != nil {
			return nil, err
		}
		assignment.StudentTgID = &student.TgID
	}

	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	s.logger.Info("assignment created",
		zap.String("assignment_id", assignment.ID),
		zap.String("target", string(req.Target)),
		zap.Time("due_at", assignment.DueAt))

	if s.reminders != nil {
		if err := s.reminders.ScheduleAssignment(ctx, assignment); err != nil {
			s.logger.Warn("failed to schedule deadline reminders", zap.String("assignment_id", assignment.ID), zap.Error(err))
		}
	}
	return assignment, nil
}

// Get returns an assignment by id.
func (s *AssignmentService) Get(ctx context.Context, id string) (*models.Assignment, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return a, nil
}

// ListForStudent returns one page (1-based) of the student's assignments,
// newest first.
func (s *AssignmentService) ListForStudent(ctx context.Context, tgID int64, page int) (*AssignmentPage, error) {
	user, err := s.users.Get(ctx, tgID)
	if err != nil {
		return nil, err
	}
	all, err := s.repo.ListForStudent(ctx, tgID, user.GroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}

	if page < 1 {
		page = 1
	}
	start := (page - 1) * s.pageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + s.pageSize
	if end > len(all) {
		end = len(all)
	}
	return &AssignmentPage{
		Items:   all[start:end],
		Page:    page,
		Offset:  start,
		HasPrev: page > 1,
		HasNext: end < len(all),
		Total:   len(all),
	}, nil
}

// DuePresets offers one-tap deadlines relative to the current local time.
func (s *AssignmentService) DuePresets() []DuePreset {
	return DuePresets(s.now(), s.loc)
}

// Location is the timezone deadlines are typed in.
func (s *AssignmentService) Location() *time.Location {
	return s.loc
}

// Recipients returns who the assignment is addressed to.
func (s *AssignmentService) Recipients(ctx context.Context, a *models.Assignment) ([]int64, error) {
	return assignmentRecipients(ctx, s.users, a)
}

type memberLister interface {
	GroupMembers(ctx context.Context, groupID string) ([]int64, error)
}

func assignmentRecipients(ctx context.Context, members memberLister, a *models.Assignment) ([]int64, error) {
	switch {
	case a.StudentTgID != nil:
		return []int64{*a.StudentTgID}, nil
	case a.GroupID != nil:
		return members.GroupMembers(ctx, *a.GroupID)
	default:
		return nil, nil
	}
}
