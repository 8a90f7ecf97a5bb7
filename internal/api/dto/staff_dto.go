package dto

import (
	"time"

	"github.com/gasc/blood-bridge/internal/domain"
)

// StaffCreateRequest payload.
type StaffCreateRequest struct {
	Name     string           `json:"name" validate:"required"`
	Email    string           `json:"email" validate:"required,email"`
	Password string           `json:"password" validate:"required,min=8"`
	Role     domain.StaffRole `json:"role" validate:"required,oneof=ADMIN MODERATOR"`
}

func (r *StaffCreateRequest) Validate() error {
	return validate.Struct(r)
}

// StaffUpdateRequest payload.
type StaffUpdateRequest struct {
	Name   *string           `json:"name" validate:"omitempty,min=1"`
	Role   *domain.StaffRole `json:"role" validate:"omitempty,oneof=ADMIN MODERATOR"`
	Active *bool             `json:"active"`
}

func (r *StaffUpdateRequest) Validate() error {
	return validate.Struct(r)
}

// StaffResponse view.
type StaffResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Role        domain.StaffRole `json:"role"`
	Active      bool             `json:"active"`
	LastLoginAt *time.Time       `json:"last_login_at,omitempty"`
}
