package dto

import (
	"time"

	"github.com/gasc/blood-bridge/internal/domain"
)

// CreateBloodRequest is the public request submission.
type CreateBloodRequest struct {
	RequestorEmail string                `json:"requestor_email" validate:"required,email"`
	PatientName    string                `json:"patient_name" validate:"required,max=120"`
	Hospital       string                `json:"hospital" validate:"required,max=160"`
	ContactPhone   string                `json:"contact_phone" validate:"required,max=32"`
	BloodGroup     string                `json:"blood_group" validate:"required"`
	City           string                `json:"city" validate:"required,max=80"`
	UnitsNeeded    int                   `json:"units_needed" validate:"required,min=1,max=20"`
	Urgency        domain.RequestUrgency `json:"urgency" validate:"required,oneof=Critical Urgent Normal"`
	Notes          string                `json:"notes" validate:"max=1000"`
}

func (r *CreateBloodRequest) Validate() error {
	return validate.Struct(r)
}

// StatusUpdateRequest payload for staff transitions.
type StatusUpdateRequest struct {
	Status domain.RequestStatus `json:"status" validate:"required,oneof=Fulfilled Expired Cancelled"`
	Reason string               `json:"reason" validate:"max=500"`
}

func (r *StatusUpdateRequest) Validate() error {
	return validate.Struct(r)
}

// BloodRequestResponse view.
type BloodRequestResponse struct {
	ID             string                `json:"id"`
	RequestorEmail string                `json:"requestor_email"`
	PatientName    string                `json:"patient_name"`
	Hospital       string                `json:"hospital"`
	ContactPhone   string                `json:"contact_phone"`
	BloodGroup     domain.BloodGroup     `json:"blood_group"`
	City           string                `json:"city"`
	UnitsNeeded    int                   `json:"units_needed"`
	Urgency        domain.RequestUrgency `json:"urgency"`
	Status         domain.RequestStatus  `json:"status"`
	Notes          string                `json:"notes,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	ExpiresAt      time.Time             `json:"expires_at"`
}
