package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gasc/blood-bridge/internal/domain"
)

func TestStaffService_CreateStaffMember(t *testing.T) {
	repo := newFakeStaffRepo(domain.StaffMember{ID: "admin-1", Email: "admin@example.org", Role: domain.StaffRoleAdmin, Active: true})
	activity := &fakeActivityRepo{}
	svc := NewStaffService(testConfig(), repo, NewActivityService(activity, nil), nil)
	ctx := context.Background()

	_, err := svc.CreateStaffMember(ctx, moderator, "Mod", "mod@example.org", "pass", domain.StaffRoleModerator)
	assertCode(t, err, "FORBIDDEN")

	created, err := svc.CreateStaffMember(ctx, admin, "Mod", " Mod@Example.org ", "pass", domain.StaffRoleModerator)
	require.NoError(t, err)
	assert.Equal(t, "mod@example.org", created.Email)
	assert.True(t, created.Active)
	assert.Equal(t, []domain.ActivityAction{domain.ActionStaffCreated}, activity.actions())

	_, err = svc.CreateStaffMember(ctx, admin, "Dup", "admin@example.org", "pass", domain.StaffRoleModerator)
	assertCode(t, err, "CONFLICT")

	_, err = svc.CreateStaffMember(ctx, admin, "Bad", "bad@example.org", "pass", "OWNER")
	assertCode(t, err, "VALIDATION_FAILED")
}

func TestStaffService_UpdateStaffMember(t *testing.T) {
	repo := newFakeStaffRepo(
		domain.StaffMember{ID: "admin-1", Role: domain.StaffRoleAdmin, Active: true},
		domain.StaffMember{ID: "mod-1", Role: domain.StaffRoleModerator, Active: true},
	)
	svc := NewStaffService(testConfig(), repo, nil, nil)
	ctx := context.Background()
	inactive := false
	mod := domain.StaffRoleModerator

	_, err := svc.UpdateStaffMember(ctx, admin, "admin-1", StaffUpdateInput{Role: &mod})
	assertCode(t, err, "CONFLICT")

	got, err := svc.UpdateStaffMember(ctx, admin, "mod-1", StaffUpdateInput{Active: &inactive})
	require.NoError(t, err)
	assert.False(t, got.Active)

	list, err := svc.ListStaffMembers(ctx, admin, StaffListFilters{Role: &mod})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStaffService_BootstrapAdmin(t *testing.T) {
	repo := newFakeStaffRepo()
	svc := NewStaffService(testConfig(), repo, nil, nil)
	ctx := context.Background()

	require.NoError(t, svc.BootstrapAdmin(ctx, "", ""))
	assert.Empty(t, repo.byID)

	require.NoError(t, svc.BootstrapAdmin(ctx, "root@example.org", "root-pass"))
	require.Len(t, repo.byID, 1)
	require.NoError(t, svc.BootstrapAdmin(ctx, "other@example.org", "root-pass"))
	assert.Len(t, repo.byID, 1)
	for _, s := range repo.byID {
		assert.Equal(t, domain.StaffRoleAdmin, s.Role)
	}
}
