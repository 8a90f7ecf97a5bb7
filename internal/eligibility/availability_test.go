package eligibility

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gasc/blood-bridge/internal/domain"
)

func listedDonor(id string, bg domain.BloodGroup, gender domain.Gender, city string, last *time.Time) domain.Donor {
	return domain.Donor{
		ID:               id,
		BloodGroup:       bg,
		Gender:           gender,
		City:             city,
		LastDonationDate: last,
		IsActive:         true,
		IsVerified:       true,
		IsAvailable:      true,
		EmailVerified:    true,
	}
}

func TestCountAvailableDonors(t *testing.T) {
	policy := DefaultCooldownPolicy(dhaka)
	today := time.Date(2024, time.June, 15, 0, 0, 0, 0, dhaka)
	recent := daysBefore(today, 10)

	unverified := listedDonor("u1", domain.BloodGroupAPos, domain.GenderMale, "Dhaka", nil)
	unverified.IsVerified = false
	inactive := listedDonor("u2", domain.BloodGroupONeg, domain.GenderMale, "Dhaka", nil)
	inactive.IsActive = false
	noEmail := listedDonor("u3", domain.BloodGroupONeg, domain.GenderMale, "Dhaka", nil)
	noEmail.EmailVerified = false
	away := listedDonor("u4", domain.BloodGroupONeg, domain.GenderMale, "Dhaka", nil)
	away.IsAvailable = false

	donors := []domain.Donor{
		listedDonor("a1", domain.BloodGroupAPos, domain.GenderMale, "Dhaka", nil),
		listedDonor("a2", domain.BloodGroupAPos, domain.GenderFemale, "Gazipur", recent),
		listedDonor("o1", domain.BloodGroupONeg, domain.GenderFemale, " dhaka ", nil),
		listedDonor("b1", domain.BloodGroupBPos, domain.GenderMale, "Dhaka", nil),
		unverified, inactive, noEmail, away,
	}

	tests := []struct {
		name         string
		criteria     Criteria
		wantTotal    int
		wantNow      int
		wantBreak    map[domain.BloodGroup]int
		wantNowBreak map[domain.BloodGroup]int
	}{
		{
			name:         "compatible groups any city",
			criteria:     Criteria{BloodGroups: []domain.BloodGroup{"A+", "A-", "O+", "O-"}},
			wantTotal:    3,
			wantNow:      2,
			wantBreak:    map[domain.BloodGroup]int{"A+": 2, "O-": 1},
			wantNowBreak: map[domain.BloodGroup]int{"A+": 1, "O-": 1},
		},
		{
			name:         "city filter is case and space insensitive",
			criteria:     Criteria{BloodGroups: []domain.BloodGroup{"A+", "O-"}, City: "DHAKA"},
			wantTotal:    2,
			wantNow:      2,
			wantBreak:    map[domain.BloodGroup]int{"A+": 1, "O-": 1},
			wantNowBreak: map[domain.BloodGroup]int{"A+": 1, "O-": 1},
		},
		{
			name:         "no matching group",
			criteria:     Criteria{BloodGroups: []domain.BloodGroup{"AB-"}},
			wantBreak:    map[domain.BloodGroup]int{},
			wantNowBreak: map[domain.BloodGroup]int{},
		},
		{
			name:         "unknown city yields empty result",
			criteria:     Criteria{BloodGroups: domain.AllBloodGroups(), City: "Sylhet"},
			wantBreak:    map[domain.BloodGroup]int{},
			wantNowBreak: map[domain.BloodGroup]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountAvailableDonors(donors, tt.criteria, policy, today)
			assert.Equal(t, tt.wantTotal, got.Total)
			assert.Equal(t, tt.wantNow, got.AvailableNow)
			assert.Equal(t, tt.wantBreak, got.Breakdown)
			assert.Equal(t, tt.wantNowBreak, got.AvailableNowBreakdown)
			assert.Empty(t, got.Warnings)
		})
	}
}

func TestCountAvailableDonors_Idempotent(t *testing.T) {
	policy := DefaultCooldownPolicy(dhaka)
	today := time.Date(2024, time.June, 15, 0, 0, 0, 0, dhaka)
	donors := []domain.Donor{
		listedDonor("a1", domain.BloodGroupAPos, domain.GenderMale, "Dhaka", nil),
		listedDonor("a2", domain.BloodGroupAPos, domain.GenderFemale, "Dhaka", daysBefore(today, 30)),
	}
	snapshot := append([]domain.Donor(nil), donors...)
	criteria := Criteria{BloodGroups: []domain.BloodGroup{"A+"}}

	first := CountAvailableDonors(donors, criteria, policy, today)
	second := CountAvailableDonors(donors, criteria, policy, today)
	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, donors)
}

func TestCountAvailableDonors_FutureDateWarnsWithoutCrashing(t *testing.T) {
	policy := DefaultCooldownPolicy(dhaka)
	today := time.Date(2024, time.June, 15, 0, 0, 0, 0, dhaka)
	future := today.AddDate(0, 0, 5)
	donors := []domain.Donor{
		listedDonor("bad", domain.BloodGroupOPos, domain.GenderMale, "Dhaka", &future),
		listedDonor("good", domain.BloodGroupOPos, domain.GenderMale, "Dhaka", nil),
	}

	got := CountAvailableDonors(donors, Criteria{BloodGroups: []domain.BloodGroup{"O+"}}, policy, today)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 1, got.AvailableNow)
	if assert.Len(t, got.Warnings, 1) {
		var warn *DataIntegrityWarning
		assert.ErrorAs(t, got.Warnings[0], &warn)
		assert.Equal(t, "bad", warn.DonorID)
	}
}

func TestCityKnown(t *testing.T) {
	donors := []domain.Donor{{City: "Gazipur"}}
	assert.True(t, CityKnown(donors, " gazipur"))
	assert.False(t, CityKnown(donors, "Khulna"))
}
