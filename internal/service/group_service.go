package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/tutorbot/internal/models"
	appErrors "github.com/noah-isme/tutorbot/pkg/errors"
)

type groupRepository interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
	FindByName(ctx context.Context, name string) (*models.Group, error)
	Create(ctx context.Context, group *models.Group) error
	List(ctx context.Context, limit int) ([]models.Group, error)
}

type createGroupRequest struct {
	Name string `validate:"required,max=64"`
}

// GroupService manages study groups.
type GroupService struct {
	repo      groupRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGroupService creates an instance of GroupService.
func NewGroupService(repo groupRepository, validate *validator.Validate, logger *zap.Logger) *GroupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &GroupService{repo: repo, validator: validate, logger: logger}
}

// Create returns the group with that name, creating it when missing.
func (s *GroupService) Create(ctx context.Context, name string) (*models.Group, error) {
	req := createGroupRequest{Name: strings.TrimSpace(name)}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group name")
	}

	existing, err := s.repo.FindByName(ctx, req.Name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up group")
	}

	group := &models.Group{Name: req.Name}
	if err := s.repo.Create(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}
	s.logger.Info("group created", zap.String("group_id", group.ID), zap.String("name", group.Name))
	return group, nil
}

// Get returns a group by id.
func (s *GroupService) Get(ctx context.Context, id string) (*models.Group, error) {
	group, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	return group, nil
}

// List returns up to limit groups ordered by name.
func (s *GroupService) List(ctx context.Context, limit int) ([]models.Group, error) {
	groups, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
	}
	return groups, nil
}
