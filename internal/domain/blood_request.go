package domain

import "time"

// RequestUrgency drives request expiry.
type RequestUrgency string

const (
	UrgencyCritical RequestUrgency = "Critical"
	UrgencyUrgent   RequestUrgency = "Urgent"
	UrgencyNormal   RequestUrgency = "Normal"
)

// Window returns how long a request stays active. Unknown values get the Normal window.
func (u RequestUrgency) Window() time.Duration {
	switch u {
	case UrgencyCritical:
		return 24 * time.Hour
	case UrgencyUrgent:
		return 3 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// Valid reports whether u is a known urgency.
func (u RequestUrgency) Valid() bool {
	switch u {
	case UrgencyCritical, UrgencyUrgent, UrgencyNormal:
		return true
	}
	return false
}

// RequestStatus enumerates lifecycle states for blood requests.
type RequestStatus string

const (
	RequestStatusActive    RequestStatus = "Active"
	RequestStatusFulfilled RequestStatus = "Fulfilled"
	RequestStatusExpired   RequestStatus = "Expired"
	RequestStatusCancelled RequestStatus = "Cancelled"
)

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusActive, RequestStatusFulfilled, RequestStatusExpired, RequestStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo enforces Active -> {Fulfilled, Expired, Cancelled}; terminal states never move.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	if s != RequestStatusActive {
		return false
	}
	switch next {
	case RequestStatusFulfilled, RequestStatusExpired, RequestStatusCancelled:
		return true
	}
	return false
}

// BloodRequest is a submitted need for blood units.
type BloodRequest struct {
	ID             string
	RequestorEmail string
	PatientName    string
	Hospital       string
	ContactPhone   string
	BloodGroup     BloodGroup
	City           string
	UnitsNeeded    int
	Urgency        RequestUrgency
	Status         RequestStatus
	Notes          string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	UpdatedAt      time.Time
}

// ExpiryFor computes expiresAt for a request created at createdAt.
func ExpiryFor(createdAt time.Time, urgency RequestUrgency) time.Time {
	return createdAt.Add(urgency.Window())
}

// Overdue reports whether an active request has passed its expiry.
func (r *BloodRequest) Overdue(now time.Time) bool {
	return r.Status == RequestStatusActive && !now.Before(r.ExpiresAt)
}
