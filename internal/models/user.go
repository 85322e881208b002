package models

import "time"

// UserRole is the role a chat user picks after /start.
type UserRole string

const (
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
	RoleParent  UserRole = "parent"
)

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleTeacher, RoleStudent, RoleParent:
		return true
	}
	return false
}

// User is a Telegram account known to the bot.
type User struct {
	ID           string     `db:"id" json:"id"`
	TgID         int64      `db:"tg_id" json:"tg_id"`
	Username     string     `db:"username" json:"username"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         *UserRole  `db:"role" json:"role,omitempty"`
	GroupID      *string    `db:"group_id" json:"group_id,omitempty"`
	StreakDays   int        `db:"streak_days" json:"streak_days"`
	LastActivity *time.Time `db:"last_activity" json:"last_activity,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// HasRole reports whether the user picked the given role.
func (u *User) HasRole(role UserRole) bool {
	return u != nil && u.Role != nil && *u.Role == role
}

// IsTeacher is a shorthand used by the router guards.
func (u *User) IsTeacher() bool { return u.HasRole(RoleTeacher) }

// IsParent is a shorthand used by the router guards.
func (u *User) IsParent() bool { return u.HasRole(RoleParent) }

// DisplayName prefers the full name, then the username.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
