package dto

import (
	"time"

	"github.com/gasc/blood-bridge/internal/domain"
)

// DonorRegisterRequest is the public sign-up payload. Blood group is parsed by the service so
// malformed values surface as INVALID_BLOOD_GROUP.
type DonorRegisterRequest struct {
	Name             string        `json:"name" validate:"required,max=120"`
	Email            string        `json:"email" validate:"required,email"`
	Phone            string        `json:"phone" validate:"required,max=32"`
	Password         string        `json:"password" validate:"required,min=8"`
	Gender           domain.Gender `json:"gender" validate:"required,oneof=Male Female Other"`
	BloodGroup       string        `json:"blood_group" validate:"required"`
	City             string        `json:"city" validate:"required,max=80"`
	LastDonationDate *time.Time    `json:"last_donation_date"`
}

func (r *DonorRegisterRequest) Validate() error {
	return validate.Struct(r)
}

// DonorProfileRequest updates donor-editable fields.
type DonorProfileRequest struct {
	Name             *string    `json:"name" validate:"omitempty,min=1,max=120"`
	Phone            *string    `json:"phone" validate:"omitempty,max=32"`
	City             *string    `json:"city" validate:"omitempty,min=1,max=80"`
	LastDonationDate *time.Time `json:"last_donation_date"`
}

func (r *DonorProfileRequest) Validate() error {
	return validate.Struct(r)
}

// FlagRequest sets a boolean donor flag.
type FlagRequest struct {
	Value *bool `json:"value" validate:"required"`
}

func (r *FlagRequest) Validate() error {
	return validate.Struct(r)
}

// RecordDonationRequest payload.
type RecordDonationRequest struct {
	RequestID    *string    `json:"request_id" validate:"omitempty,uuid"`
	DonationDate *time.Time `json:"donation_date"`
	Units        int        `json:"units" validate:"omitempty,min=1,max=10"`
	Notes        string     `json:"notes" validate:"max=500"`
}

func (r *RecordDonationRequest) Validate() error {
	return validate.Struct(r)
}

// DonorResponse view.
type DonorResponse struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Email            string            `json:"email"`
	Phone            string            `json:"phone"`
	Gender           domain.Gender     `json:"gender"`
	BloodGroup       domain.BloodGroup `json:"blood_group"`
	City             string            `json:"city"`
	LastDonationDate *time.Time        `json:"last_donation_date"`
	IsAvailable      bool              `json:"is_available"`
	IsVerified       bool              `json:"is_verified"`
	IsActive         bool              `json:"is_active"`
	EmailVerified    bool              `json:"email_verified"`
	CanDonateNow     bool              `json:"can_donate_now"`
	NextEligibleDate *time.Time        `json:"next_eligible_date,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// DonationResponse view.
type DonationResponse struct {
	ID           string    `json:"id"`
	DonorID      string    `json:"donor_id"`
	RequestID    *string   `json:"request_id,omitempty"`
	DonationDate time.Time `json:"donation_date"`
	Units        int       `json:"units"`
	Notes        string    `json:"notes,omitempty"`
}
