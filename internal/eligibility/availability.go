package eligibility

import (
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/gasc/blood-bridge/internal/domain"
)

// Criteria selects donors for an availability count.
type Criteria struct {
	BloodGroups []domain.BloodGroup
	City        string
}

// AvailabilityResult holds the counts of listed donors and of those who can donate today.
// Breakdown maps never contain zero-count groups.
type AvailabilityResult struct {
	Total                 int                       `json:"total"`
	Breakdown             map[domain.BloodGroup]int `json:"breakdown"`
	AvailableNow          int                       `json:"available_now"`
	AvailableNowBreakdown map[domain.BloodGroup]int `json:"available_now_breakdown"`
	Warnings              []error                   `json:"-"`
}

// CountAvailableDonors filters donors to those that are active, verified, available, email
// verified, in one of the criteria groups and (when set) in the criteria city, then counts how
// many of them pass the cooldown rule on today. donors is not modified.
func CountAvailableDonors(donors []domain.Donor, criteria Criteria, policy CooldownPolicy, today time.Time) AvailabilityResult {
	result := AvailabilityResult{
		Breakdown:             map[domain.BloodGroup]int{},
		AvailableNowBreakdown: map[domain.BloodGroup]int{},
	}
	groups := lo.SliceToMap(criteria.BloodGroups, func(bg domain.BloodGroup) (domain.BloodGroup, struct{}) {
		return bg, struct{}{}
	})
	city := normalizeCity(criteria.City)

	for i := range donors {
		donor := &donors[i]
		if !donor.Listed() {
			continue
		}
		if _, ok := groups[donor.BloodGroup]; !ok {
			continue
		}
		if city != "" && normalizeCity(donor.City) != city {
			continue
		}
		result.Total++
		result.Breakdown[donor.BloodGroup]++

		ok, err := policy.CanDonateNow(donor.Gender, donor.LastDonationDate, today)
		if err != nil {
			if warn, isWarn := err.(*DataIntegrityWarning); isWarn {
				warn.DonorID = donor.ID
			}
			result.Warnings = append(result.Warnings, err)
		}
		if ok {
			result.AvailableNow++
			result.AvailableNowBreakdown[donor.BloodGroup]++
		}
	}
	return result
}

// CityKnown reports whether any donor, listed or not, is registered in city.
func CityKnown(donors []domain.Donor, city string) bool {
	city = normalizeCity(city)
	return lo.ContainsBy(donors, func(d domain.Donor) bool {
		return normalizeCity(d.City) == city
	})
}

func normalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}
