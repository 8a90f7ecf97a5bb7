package domain

import "time"

// StaffRole enumerates dashboard operator roles.
type StaffRole string

const (
	StaffRoleModerator StaffRole = "MODERATOR"
	StaffRoleAdmin     StaffRole = "ADMIN"
)

// Valid reports whether r is a known role.
func (r StaffRole) Valid() bool {
	return r == StaffRoleModerator || r == StaffRoleAdmin
}

// StaffMember models an administrator or moderator.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         StaffRole
	Active       bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
