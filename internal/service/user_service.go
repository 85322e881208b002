package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/tutorbot/internal/models"
	appErrors "github.com/noah-isme/tutorbot/pkg/errors"
)

type userRepository interface {
	FindByTgID(ctx context.Context, tgID int64) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, tgID int64, username, fullName string) error
	SetRole(ctx context.Context, tgID int64, role models.UserRole) error
	SetGroup(ctx context.Context, tgID int64, groupID string) error
	ListTgIDsByGroup(ctx context.Context, groupID string) ([]int64, error)
	UpdateStreak(ctx context.Context, tgID int64, streak int, at time.Time) error
}

type parentLinker interface {
	Link(ctx context.Context, studentTgID, parentTgID int64) error
}

// RegisterRequest carries the Telegram profile seen on an update.
type RegisterRequest struct {
	TgID     int64  `validate:"required"`
	Username string `validate:"max=64"`
	FullName string `validate:"max=128"`
}

// TeacherAuth holds the secret teachers type to get the teacher role.
// A bcrypt Hash, when set, takes precedence over the plain Code.
type TeacherAuth struct {
	Code string
	Hash string
}

// UserService handles registration, roles, group membership and parent links.
type UserService struct {
	users     userRepository
	groups    *GroupService
	parents   parentLinker
	auth      TeacherAuth
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(users userRepository, groups *GroupService, parents parentLinker, auth TeacherAuth, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{users: users, groups: groups, parents: parents, auth: auth, validator: validate, logger: logger}
}

// Register creates the user on first contact and refreshes the profile after.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid telegram profile")
	}
	username := normalizeUsername(req.Username)
	if username == "" {
		username = "id" + strconv.FormatInt(req.TgID, 10)
	}

	user, err := s.users.FindByTgID(ctx, req.TgID)
	switch {
	case err == nil:
		if user.Username != username || user.FullName != req.FullName {
			if err := s.users.UpdateProfile(ctx, req.TgID, username, req.FullName); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
			}
			user.Username = username
			user.FullName = req.FullName
		}
		return user, nil
	case errors.Is(err, sql.ErrNoRows):
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	user = &models.User{TgID: req.TgID, Username: username, FullName: req.FullName}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}
	s.logger.Info("user registered", zap.Int64("tg_id", user.TgID), zap.String("username", user.Username))
	return user, nil
}

// Get returns a user by Telegram id.
func (s *UserService) Get(ctx context.Context, tgID int64) (*models.User, error) {
	user, err := s.users.FindByTgID(ctx, tgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUnknownUser
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// ChooseRole stores the student or parent role. The teacher role is only
// granted through VerifyTeacherCode.
func (s *UserService) ChooseRole(ctx context.Context, tgID int64, role models.UserRole) error {
	if !role.Valid() || role == models.RoleTeacher {
		return appErrors.Clone(appErrors.ErrValidation, "unsupported role")
	}
	if err := s.users.SetRole(ctx, tgID, role); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set role")
	}
	return nil
}

// VerifyTeacherCode grants the teacher role when code matches.
func (s *UserService) VerifyTeacherCode(ctx context.Context, tgID int64, code string) error {
	if !s.codeMatches(strings.TrimSpace(code)) {
		s.logger.Warn("teacher code rejected", zap.Int64("tg_id", tgID))
		return appErrors.ErrInvalidCode
	}
	if err := s.users.SetRole(ctx, tgID, models.RoleTeacher); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set role")
	}
	s.logger.Info("teacher role granted", zap.Int64("tg_id", tgID))
	return nil
}

func (s *UserService) codeMatches(code string) bool {
	if code == "" {
		return false
	}
	if s.auth.Hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(s.auth.Hash), []byte(code)) == nil
	}
	if s.auth.Code == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.auth.Code), []byte(code)) == 1
}

// JoinGroup puts the student into an existing group. Joining the current
// group again changes nothing.
func (s *UserService) JoinGroup(ctx context.Context, tgID int64, groupID string) (*models.Group, error) {
	group, err := s.groups.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return group, s.join(ctx, tgID, group)
}

// JoinGroupByName joins the group with that name, creating it if needed.
func (s *UserService) JoinGroupByName(ctx context.Context, tgID int64, name string) (*models.Group, error) {
	group, err := s.groups.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return group, s.join(ctx, tgID, group)
}

func (s *UserService) join(ctx context.Context, tgID int64, group *models.Group) error {
	user, err := s.Get(ctx, tgID)
	if err != nil {
		return err
	}
	if user.GroupID != nil && *user.GroupID == group.ID {
		return nil
	}
	if user.Role == nil {
		if err := s.users.SetRole(ctx, tgID, models.RoleStudent); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set role")
		}
	}
	if err := s.users.SetGroup(ctx, tgID, group.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join group")
	}
	s.logger.Info("student joined group", zap.Int64("tg_id", tgID), zap.String("group_id", group.ID))
	return nil
}

// LinkParent subscribes the parent to weekly reports about the child with
// the given @username.
func (s *UserService) LinkParent(ctx context.Context, parentTgID int64, childUsername string) (*models.User, error) {
	username := normalizeUsername(childUsername)
	if username == "" {
		return nil, appErrors.ErrUnknownUser
	}
	child, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUnknownUser
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find child")
	}
	if err := s.parents.Link(ctx, child.TgID, parentTgID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link parent")
	}
	return child, nil
}

// ResolveStudent finds a registered user by @username.
func (s *UserService) ResolveStudent(ctx context.Context, username string) (*models.User, error) {
	name := normalizeUsername(username)
	if name == "" {
		return nil, appErrors.ErrUnknownUser
	}
	user, err := s.users.FindByUsername(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUnknownUser
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find student")
	}
	return user, nil
}

// Progress returns the student's current activity streak.
func (s *UserService) Progress(ctx context.Context, tgID int64) (int, error) {
	user, err := s.Get(ctx, tgID)
	if err != nil {
		return 0, err
	}
	return user.StreakDays, nil
}

// GroupMembers lists Telegram ids of a group's members.
func (s *UserService) GroupMembers(ctx context.Context, groupID string) ([]int64, error) {
	ids, err := s.users.ListTgIDsByGroup(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list group members")
	}
	return ids, nil
}

func normalizeUsername(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "@")
}
