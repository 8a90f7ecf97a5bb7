package eligibility

import (
	"fmt"
	"time"

	"github.com/gasc/blood-bridge/internal/domain"
)

const (
	DefaultFemaleCooldownDays = 120
	DefaultMaleCooldownDays   = 90
	DefaultOtherCooldownDays  = 90
)

// DataIntegrityWarning flags a donor record whose last donation date cannot be trusted.
// It is never fatal; the donor is treated as not eligible.
type DataIntegrityWarning struct {
	DonorID          string
	LastDonationDate time.Time
	Reason           string
}

func (w *DataIntegrityWarning) Error() string {
	if w.DonorID != "" {
		return fmt.Sprintf("donor %s: %s (%s)", w.DonorID, w.Reason, w.LastDonationDate.Format(time.DateOnly))
	}
	return fmt.Sprintf("%s (%s)", w.Reason, w.LastDonationDate.Format(time.DateOnly))
}

// CooldownPolicy holds the minimum days between donations per gender and the reporting timezone
// that days are counted in.
type CooldownPolicy struct {
	FemaleDays int
	MaleDays   int
	OtherDays  int
	Location   *time.Location
}

// DefaultCooldownPolicy returns 120 days for female donors and 90 days otherwise.
func DefaultCooldownPolicy(loc *time.Location) CooldownPolicy {
	if loc == nil {
		loc = time.Local
	}
	return CooldownPolicy{
		FemaleDays: DefaultFemaleCooldownDays,
		MaleDays:   DefaultMaleCooldownDays,
		OtherDays:  DefaultOtherCooldownDays,
		Location:   loc,
	}
}

// Threshold returns the cooldown in days for gender. Unrecognized values use the male window.
func (p CooldownPolicy) Threshold(gender domain.Gender) int {
	switch gender {
	case domain.GenderFemale:
		return p.FemaleDays
	case domain.GenderOther:
		return p.OtherDays
	default:
		return p.MaleDays
	}
}

// DaysSince counts calendar days between from and to in the policy location.
func (p CooldownPolicy) DaysSince(from, to time.Time) int {
	return int(p.calendarDate(to).Sub(p.calendarDate(from)).Hours() / 24)
}

// CanDonateNow reports whether a donor of gender whose last donation was lastDonation may donate
// on today. The boundary day counts as eligible. A future-dated last donation returns false along
// with a *DataIntegrityWarning.
func (p CooldownPolicy) CanDonateNow(gender domain.Gender, lastDonation *time.Time, today time.Time) (bool, error) {
	if lastDonation == nil {
		return true, nil
	}
	days := p.DaysSince(*lastDonation, today)
	if days < 0 {
		return false, &DataIntegrityWarning{
			LastDonationDate: *lastDonation,
			Reason:           "last donation date is in the future",
		}
	}
	return days >= p.Threshold(gender), nil
}

// NextEligibleDate returns the first calendar date, in the policy location, on which the donor may
// donate again. A nil lastDonation yields the zero time.
func (p CooldownPolicy) NextEligibleDate(gender domain.Gender, lastDonation *time.Time) time.Time {
	if lastDonation == nil {
		return time.Time{}
	}
	last := lastDonation.In(p.location())
	y, m, d := last.Date()
	return time.Date(y, m, d+p.Threshold(gender), 0, 0, 0, 0, p.location())
}

// DonorEligibleNow combines the profile flags with the cooldown rule.
func (p CooldownPolicy) DonorEligibleNow(donor *domain.Donor, today time.Time) (bool, error) {
	if donor == nil || !donor.Listed() {
		return false, nil
	}
	ok, err := p.CanDonateNow(donor.Gender, donor.LastDonationDate, today)
	if warn, isWarn := err.(*DataIntegrityWarning); isWarn {
		warn.DonorID = donor.ID
	}
	return ok, err
}

// calendarDate maps t to midnight UTC of its calendar date in the policy location so that
// subtraction is immune to DST shifts.
func (p CooldownPolicy) calendarDate(t time.Time) time.Time {
	y, m, d := t.In(p.location()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (p CooldownPolicy) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}
