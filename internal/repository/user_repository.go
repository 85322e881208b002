package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/tutorbot/internal/models"
)

const userColumns = `id, tg_id, username, full_name, role, group_id, streak_days, last_activity, created_at`

// UserRepository provides database access for chat users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByTgID returns a user by Telegram id.
func (r *UserRepository) FindByTgID(ctx context.Context, tgID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE tg_id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, tgID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by tg id: %w", err)
	}
	return &user, nil
}

// FindByUsername returns a user by Telegram username (without the @).
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by username: %w", err)
	}
	return &user, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO users (id, tg_id, username, full_name, role, group_id, streak_days, created_at) VALUES (:id, :tg_id, :username, :full_name, :role, :group_id, :streak_days, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateProfile refreshes username and display name from the latest update.
func (r *UserRepository) UpdateProfile(ctx context.Context, tgID int64, username, fullName string) error {
	const query = `UPDATE users SET username = $2, full_name = $3 WHERE tg_id = $1`
	if _, err := r.db.ExecContext(ctx, query, tgID, username, fullName); err != nil {
		return fmt.Errorf("update user profile: %w", err)
	}
	return nil
}

// SetRole stores the chosen role.
func (r *UserRepository) SetRole(ctx context.Context, tgID int64, role models.UserRole) error {
	const query = `UPDATE users SET role = $2 WHERE tg_id = $1`
	if _, err := r.db.ExecContext(ctx, query, tgID, string(role)); err != nil {
		return fmt.Errorf("set user role: %w", err)
	}
	return nil
}

// SetGroup moves the user into a group.
func (r *UserRepository) SetGroup(ctx context.Context, tgID int64, groupID string) error {
	const query = `UPDATE users SET group_id = $2 WHERE tg_id = $1`
	if _, err := r.db.ExecContext(ctx, query, tgID, groupID); err != nil {
		return fmt.Errorf("set user group: %w", err)
	}
	return nil
}

// ListTgIDsByGroup returns Telegram ids of every member of the group.
func (r *UserRepository) ListTgIDsByGroup(ctx context.Context, groupID string) ([]int64, error) {
	const query = `SELECT tg_id FROM users WHERE group_id = $1 ORDER BY tg_id`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, groupID); err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	return ids, nil
}

// UpdateStreak stores the recalculated activity streak.
func (r *UserRepository) UpdateStreak(ctx context.Context, tgID int64, streak int, at time.Time) error {
	const query = `UPDATE users SET streak_days = $2, last_activity = $3 WHERE tg_id = $1`
	if _, err := r.db.ExecContext(ctx, query, tgID, streak, at); err != nil {
		return fmt.Errorf("update streak: %w", err)
	}
	return nil
}
