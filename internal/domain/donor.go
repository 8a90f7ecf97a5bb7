package domain

import "time"

// Gender as recorded on the donor profile.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Valid reports whether g is a known gender value.
func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

// Donor is a registered blood donor.
type Donor struct {
	ID               string
	Name             string
	Email            string
	Phone            string
	PasswordHash     string
	Gender           Gender
	BloodGroup       BloodGroup
	City             string
	LastDonationDate *time.Time
	IsAvailable      bool
	IsVerified       bool
	IsActive         bool
	EmailVerified    bool
	EmailVerifyToken *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Listed reports whether all four profile flags allow the donor to be matched.
func (d *Donor) Listed() bool {
	return d.IsActive && d.IsVerified && d.IsAvailable && d.EmailVerified
}

// Donation records a single donation event.
type Donation struct {
	ID           string
	DonorID      string
	RequestID    *string
	DonationDate time.Time
	Units        int
	Notes        string
	RecordedBy   *string
	CreatedAt    time.Time
}
