package eligibility

import (
	"time"

	"github.com/gasc/blood-bridge/internal/domain"
)

// ClassifyStock labels supply against demand. With no active requests the stock is always Good.
func ClassifyStock(availableDonors, activeRequests int) domain.StockStatus {
	switch {
	case availableDonors >= 2*activeRequests:
		return domain.StockGood
	case availableDonors >= activeRequests:
		return domain.StockLow
	default:
		return domain.StockCritical
	}
}

// SnapshotInput carries the independently read figures a snapshot is built from.
type SnapshotInput struct {
	Donors             []domain.Donor
	ActiveRequests     map[domain.BloodGroup]int
	FulfilledThisMonth map[domain.BloodGroup]int
}

// BuildSnapshot computes one InventorySnapshot per blood group in catalog order. Warnings for
// donors with unusable donation dates are returned alongside.
func BuildSnapshot(in SnapshotInput, policy CooldownPolicy, today time.Time) ([]domain.InventorySnapshot, []error) {
	byGroup := make(map[domain.BloodGroup]*domain.InventorySnapshot, 8)
	groups := domain.AllBloodGroups()
	out := make([]domain.InventorySnapshot, len(groups))
	for i, bg := range groups {
		out[i] = domain.InventorySnapshot{
			BloodGroup:         bg,
			ActiveRequests:     in.ActiveRequests[bg],
			FulfilledThisMonth: in.FulfilledThisMonth[bg],
		}
		byGroup[bg] = &out[i]
	}

	var warnings []error
	for i := range in.Donors {
		donor := &in.Donors[i]
		snap, ok := byGroup[donor.BloodGroup]
		if !ok || !donor.IsActive {
			continue
		}
		snap.TotalDonors++
		if !donor.Listed() {
			continue
		}
		snap.AvailableDonors++
		eligible, err := policy.CanDonateNow(donor.Gender, donor.LastDonationDate, today)
		if err != nil {
			if warn, isWarn := err.(*DataIntegrityWarning); isWarn {
				warn.DonorID = donor.ID
			}
			warnings = append(warnings, err)
		}
		if eligible {
			snap.CanDonateNow++
		}
	}

	for i := range out {
		out[i].StockStatus = ClassifyStock(out[i].AvailableDonors, out[i].ActiveRequests)
	}
	return out, warnings
}
