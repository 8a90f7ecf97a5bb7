package domain

import "time"

// ActivityAction names an audited operation.
type ActivityAction string

const (
	ActionDonorRegistered      ActivityAction = "donor_registered"
	ActionDonorEmailVerified   ActivityAction = "donor_email_verified"
	ActionDonorVerified        ActivityAction = "donor_verified"
	ActionDonorAvailability    ActivityAction = "donor_availability_changed"
	ActionDonorStatus          ActivityAction = "donor_status_changed"
	ActionDonationRecorded     ActivityAction = "donation_recorded"
	ActionRequestCreated       ActivityAction = "request_created"
	ActionRequestStatusChanged ActivityAction = "request_status_changed"
	ActionRequestsExpired      ActivityAction = "requests_expired"
	ActionStaffCreated         ActivityAction = "staff_created"
	ActionStaffLogin           ActivityAction = "staff_login"
	ActionReportExported       ActivityAction = "report_exported"
)

// ActivityLog is one audit trail entry.
type ActivityLog struct {
	ID         string
	ActorType  SubjectType
	ActorID    *string
	Action     ActivityAction
	EntityType string
	EntityID   *string
	Details    map[string]any
	CreatedAt  time.Time
}
