package models

import "time"

// Roles a user can hold. Exactly one at a time.
const (
	RoleNormal = "normal"
	RoleAdmin  = "admin"
	RoleSuper  = "super"
)

// User represents an account in the users table.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	Phone        string    `db:"phone" json:"phone,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	IsBlocked    bool      `db:"is_blocked" json:"is_blocked"`
	AvatarURL    string    `db:"avatar_url" json:"avatar_url,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// IsAdmin reports whether the user may perform admin actions.
func (u User) IsAdmin() bool {
	return RoleIsAdmin(u.Role)
}

// RoleIsAdmin reports whether a role string grants admin rights.
func RoleIsAdmin(role string) bool {
	return role == RoleAdmin || role == RoleSuper
}

// ValidRole reports whether the role string is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleNormal || role == RoleAdmin || role == RoleSuper
}
