package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gasc/blood-bridge/internal/domain"
	"github.com/gasc/blood-bridge/internal/eligibility"
	"github.com/gasc/blood-bridge/internal/events"
)

type donorFixture struct {
	svc        *DonorService
	donors     *fakeDonorRepo
	requests   *fakeRequestRepo
	donations  *fakeDonationRepo
	activity   *fakeActivityRepo
	dispatcher *capturingDispatcher
}

func newDonorFixture(donors ...domain.Donor) *donorFixture {
	f := &donorFixture{
		donors:     newFakeDonorRepo(donors...),
		requests:   newFakeRequestRepo(),
		activity:   &fakeActivityRepo{},
		dispatcher: newCapturingDispatcher(),
	}
	f.donations = &fakeDonationRepo{donors: f.donors}
	f.svc = NewDonorService(testConfig(), DonorDependencies{
		DonorRepo:    f.donors,
		DonationRepo: f.donations,
		RequestRepo:  f.requests,
		Activity:     NewActivityService(f.activity, nil),
		Dispatcher:   f.dispatcher,
		Policy:       eligibility.DefaultCooldownPolicy(dhaka),
		Now:          clockFunc,
	})
	return f
}

var moderator = &domain.StaffMember{ID: "mod-1", Role: domain.StaffRoleModerator, Active: true}
var admin = &domain.StaffMember{ID: "admin-1", Role: domain.StaffRoleAdmin, Active: true}

func TestDonorService_RegisterAndVerifyEmail(t *testing.T) {
	f := newDonorFixture()
	ctx := context.Background()

	donor, err := f.svc.Register(ctx, RegisterDonorInput{
		Name:       " Rahim ",
		Email:      "Rahim@Example.org",
		Password:   "s3cret-pass",
		Gender:     domain.GenderMale,
		BloodGroup: " o- ",
		City:       "Dhaka",
	})
	require.NoError(t, err)
	assert.Equal(t, "rahim@example.org", donor.Email)
	assert.Equal(t, domain.BloodGroupONeg, donor.BloodGroup)
	assert.False(t, donor.EmailVerified)
	assert.False(t, donor.IsVerified)
	require.NotNil(t, donor.EmailVerifyToken)
	assert.NotEqual(t, "s3cret-pass", donor.PasswordHash)
	assert.Equal(t, []events.EventType{events.EventDonorRegistered}, f.dispatcher.types())

	_, err = f.svc.Register(ctx, RegisterDonorInput{Email: "rahim@example.org", Password: "x", Gender: domain.GenderMale, BloodGroup: "A+"})
	assertCode(t, err, "CONFLICT")

	verified, err := f.svc.VerifyEmail(ctx, *donor.EmailVerifyToken)
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)
	assert.Nil(t, verified.EmailVerifyToken)

	_, err = f.svc.VerifyEmail(ctx, *donor.EmailVerifyToken)
	assertCode(t, err, "NOT_FOUND")

	assert.Equal(t, []domain.ActivityAction{domain.ActionDonorRegistered, domain.ActionDonorEmailVerified}, f.activity.actions())
}

func TestDonorService_RegisterRejectsBadInput(t *testing.T) {
	f := newDonorFixture()
	future := fixedNow.AddDate(0, 0, 1)
	tests := []struct {
		name  string
		input RegisterDonorInput
		code  string
	}{
		{name: "blood group", input: RegisterDonorInput{Gender: domain.GenderMale, BloodGroup: "Z+"}, code: "INVALID_BLOOD_GROUP"},
		{name: "gender", input: RegisterDonorInput{Gender: "X", BloodGroup: "A+"}, code: "VALIDATION_FAILED"},
		{name: "future donation", input: RegisterDonorInput{Gender: domain.GenderMale, BloodGroup: "A+", LastDonationDate: &future}, code: "VALIDATION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tt.input)
			assertCode(t, err, tt.code)
		})
	}
}

func TestDonorService_Moderation(t *testing.T) {
	d := listed("d1", domain.BloodGroupAPos, domain.GenderFemale, "Dhaka", nil)
	d.IsVerified = false
	f := newDonorFixture(d)
	ctx := context.Background()

	got, err := f.svc.Verify(ctx, moderator, "d1", true)
	require.NoError(t, err)
	assert.True(t, got.IsVerified)

	got, err = f.svc.SetAvailability(ctx, moderator, "d1", false)
	require.NoError(t, err)
	assert.False(t, got.IsAvailable)

	got, err = f.svc.SetOwnAvailability(ctx, got, true)
	require.NoError(t, err)
	assert.True(t, got.IsAvailable)

	_, err = f.svc.SetActive(ctx, moderator, "d1", false)
	assertCode(t, err, "FORBIDDEN")

	got, err = f.svc.SetActive(ctx, admin, "d1", false)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	_, err = f.svc.Verify(ctx, moderator, "missing", true)
	assertCode(t, err, "NOT_FOUND")
}

func TestDonorService_RecordDonationFulfilsRequest(t *testing.T) {
	f := newDonorFixture(listed("d1", domain.BloodGroupONeg, domain.GenderMale, "Dhaka", daysAgo(200)))
	f.requests.byID["r1"] = &domain.BloodRequest{ID: "r1", BloodGroup: domain.BloodGroupONeg, Status: domain.RequestStatusActive}
	ctx := context.Background()
	reqID := "r1"

	donation, err := f.svc.RecordDonation(ctx, moderator, RecordDonationInput{DonorID: "d1", RequestID: &reqID})
	require.NoError(t, err)
	assert.Equal(t, 1, donation.Units)
	assert.Equal(t, fixedNow, donation.DonationDate)

	donor, _ := f.donors.GetByID(ctx, "d1")
	require.NotNil(t, donor.LastDonationDate)
	assert.Equal(t, fixedNow, *donor.LastDonationDate)
	assert.Equal(t, domain.RequestStatusFulfilled, f.requests.byID["r1"].Status)
	assert.Equal(t, []events.EventType{events.EventDonationRecorded, events.EventRequestStatusChanged}, f.dispatcher.types())

	elig := f.svc.Eligibility(donor)
	assert.False(t, elig.CanDonateNow)
	require.NotNil(t, elig.NextEligibleDate)
	assert.Equal(t, "2024-09-13", elig.NextEligibleDate.Format("2006-01-02"))

	_, err = f.svc.RecordDonation(ctx, moderator, RecordDonationInput{DonorID: "d1", RequestID: &reqID})
	assertCode(t, err, "CONFLICT")
}

func TestDonorService_RecordDonationRejectsIncompatibleGroup(t *testing.T) {
	f := newDonorFixture(listed("d1", domain.BloodGroupAPos, domain.GenderMale, "Dhaka", daysAgo(200)))
	f.requests.byID["r1"] = &domain.BloodRequest{ID: "r1", BloodGroup: domain.BloodGroupONeg, Status: domain.RequestStatusActive}
	ctx := context.Background()
	reqID := "r1"

	_, err := f.svc.RecordDonation(ctx, moderator, RecordDonationInput{DonorID: "d1", RequestID: &reqID})
	assertCode(t, err, "CONFLICT")
	assert.Equal(t, domain.RequestStatusActive, f.requests.byID["r1"].Status)
	assert.Empty(t, f.donations.recorded)
	assert.Empty(t, f.dispatcher.types())

	donor, _ := f.donors.GetByID(ctx, "d1")
	assert.Equal(t, *daysAgo(200), *donor.LastDonationDate)
}

func TestDonorService_RecordDonationExactMode(t *testing.T) {
	exact, err := eligibility.NewResolver(eligibility.MatchingModeExact)
	require.NoError(t, err)
	f := newDonorFixture(listed("d1", domain.BloodGroupONeg, domain.GenderMale, "Dhaka", nil))
	f.svc.resolver = exact
	f.requests.byID["r1"] = &domain.BloodRequest{ID: "r1", BloodGroup: domain.BloodGroupAPos, Status: domain.RequestStatusActive}
	reqID := "r1"

	_, err = f.svc.RecordDonation(context.Background(), moderator, RecordDonationInput{DonorID: "d1", RequestID: &reqID})
	assertCode(t, err, "CONFLICT")
}

func TestDonorService_FlagUpdateKeepsRecordedDonation(t *testing.T) {
	f := newDonorFixture(listed("d1", domain.BloodGroupAPos, domain.GenderMale, "Dhaka", nil))
	ctx := context.Background()

	stale, err := f.donors.GetByID(ctx, "d1")
	require.NoError(t, err)
	_, err = f.svc.RecordDonation(ctx, moderator, RecordDonationInput{DonorID: "d1"})
	require.NoError(t, err)

	stale.IsVerified = false
	require.NoError(t, f.donors.Update(ctx, stale))
	require.NotNil(t, stale.LastDonationDate)

	donor, _ := f.donors.GetByID(ctx, "d1")
	require.NotNil(t, donor.LastDonationDate)
	assert.Equal(t, fixedNow, *donor.LastDonationDate)
	assert.False(t, donor.IsVerified)
	assert.False(t, f.svc.Eligibility(donor).CanDonateNow)
}

func TestDonorService_UpdateProfileKeepsNewestDonation(t *testing.T) {
	f := newDonorFixture(listed("d1", domain.BloodGroupAPos, domain.GenderMale, "Dhaka", daysAgo(10)))
	ctx := context.Background()
	city := "Sylhet"

	got, err := f.svc.UpdateProfile(ctx, &domain.Donor{ID: "d1"}, DonorProfileInput{City: &city, LastDonationDate: daysAgo(50)})
	require.NoError(t, err)
	assert.Equal(t, "Sylhet", got.City)
	assert.Equal(t, *daysAgo(10), *got.LastDonationDate)

	future := fixedNow.AddDate(0, 1, 0)
	_, err = f.svc.UpdateProfile(ctx, &domain.Donor{ID: "d1"}, DonorProfileInput{LastDonationDate: &future})
	assertCode(t, err, "VALIDATION_FAILED")
}

func TestDonorService_EligibilityWarnsOnFutureDate(t *testing.T) {
	future := fixedNow.AddDate(0, 0, 5)
	f := newDonorFixture()
	d := listed("d1", domain.BloodGroupAPos, domain.GenderMale, "Dhaka", &future)

	elig := f.svc.Eligibility(&d)
	assert.False(t, elig.CanDonateNow)
	assert.True(t, elig.Listed)
	assert.NotEmpty(t, elig.Warning)
}
