package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBloodGroup(t *testing.T) {
	tests := []struct {
		raw     string
		want    BloodGroup
		wantErr bool
	}{
		{raw: "A+", want: BloodGroupAPos},
		{raw: " ab- ", want: BloodGroupABNeg},
		{raw: "o-", want: BloodGroupONeg},
		{raw: "AB", wantErr: true},
		{raw: "", wantErr: true},
		{raw: "A +", wantErr: true},
		{raw: "O−", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseBloodGroup(tt.raw)
			if tt.wantErr {
				var invalid *InvalidBloodGroupError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, tt.raw, invalid.Value)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllBloodGroups(t *testing.T) {
	groups := AllBloodGroups()
	require.Len(t, groups, 8)
	groups[0] = "X"
	assert.Equal(t, BloodGroupAPos, AllBloodGroups()[0])
}

func TestExpiryFor(t *testing.T) {
	created := time.Date(2024, time.May, 1, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, created.AddDate(0, 0, 1), ExpiryFor(created, UrgencyCritical))
	assert.Equal(t, created.AddDate(0, 0, 3), ExpiryFor(created, UrgencyUrgent))
	assert.Equal(t, created.AddDate(0, 0, 7), ExpiryFor(created, UrgencyNormal))
}

func TestRequestStatusTransitions(t *testing.T) {
	assert.True(t, RequestStatusActive.CanTransitionTo(RequestStatusFulfilled))
	assert.True(t, RequestStatusActive.CanTransitionTo(RequestStatusExpired))
	assert.True(t, RequestStatusActive.CanTransitionTo(RequestStatusCancelled))
	assert.False(t, RequestStatusActive.CanTransitionTo(RequestStatusActive))

	for _, terminal := range []RequestStatus{RequestStatusFulfilled, RequestStatusExpired, RequestStatusCancelled} {
		for _, next := range []RequestStatus{RequestStatusActive, RequestStatusFulfilled, RequestStatusExpired, RequestStatusCancelled} {
			assert.False(t, terminal.CanTransitionTo(next), "%s -> %s", terminal, next)
		}
	}
}

func TestBloodRequestOverdue(t *testing.T) {
	created := time.Date(2024, time.May, 1, 8, 0, 0, 0, time.UTC)
	req := BloodRequest{Status: RequestStatusActive, CreatedAt: created, ExpiresAt: ExpiryFor(created, UrgencyCritical)}
	assert.False(t, req.Overdue(created.Add(23*time.Hour)))
	assert.True(t, req.Overdue(created.Add(24*time.Hour)))

	req.Status = RequestStatusFulfilled
	assert.False(t, req.Overdue(created.Add(48*time.Hour)))
}
