package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gasc/blood-bridge/internal/domain"
	"github.com/gasc/blood-bridge/internal/events"
)

func TestNotificationService_RequestCreatedAlertsEligibleDonors(t *testing.T) {
	donors := newFakeDonorRepo(
		listed("o1", domain.BloodGroupONeg, domain.GenderMale, "Dhaka", nil),
		listed("a1", domain.BloodGroupANeg, domain.GenderMale, "Dhaka", daysAgo(5)),
		listed("b1", domain.BloodGroupBPos, domain.GenderMale, "Dhaka", nil),
	)
	requests := newFakeRequestRepo()
	mailer := &recordingMailer{}
	dispatcher := events.NewInMemoryDispatcher(nil)
	n := NewNotificationService(testConfig().Notification, NotificationDependencies{
		Dispatcher:  dispatcher,
		Inventory:   newInventory(donors, requests, false),
		RequestRepo: requests,
		Mailer:      mailer,
	})
	n.RegisterHandlers()
	reqSvc := NewRequestService(RequestDependencies{RequestRepo: requests, Dispatcher: dispatcher, Now: clockFunc})

	_, err := reqSvc.Create(context.Background(), CreateRequestInput{
		RequestorEmail: "family@example.org",
		PatientName:    "Karim",
		Hospital:       "DMC",
		BloodGroup:     "A-",
		City:           "dhaka",
		UnitsNeeded:    1,
		Urgency:        domain.UrgencyCritical,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"o1@example.org"}, mailer.recipients())
	assert.Contains(t, mailer.sent[0].Subject, "A-")
}

func TestNotificationService_CapsRecipients(t *testing.T) {
	donors := newFakeDonorRepo(
		listed("o1", domain.BloodGroupONeg, domain.GenderMale, "Dhaka", nil),
		listed("o2", domain.BloodGroupONeg, domain.GenderMale, "Dhaka", nil),
		listed("o3", domain.BloodGroupONeg, domain.GenderMale, "Dhaka", nil),
	)
	mailer := &recordingMailer{}
	n := NewNotificationService(testConfig().Notification, NotificationDependencies{
		Inventory: newInventory(donors, newFakeRequestRepo(), false),
		Mailer:    mailer,
	})

	err := n.handleRequestCreated(context.Background(), events.Event{
		Type:    events.EventRequestCreated,
		Payload: events.RequestCreatedPayload{Request: domain.BloodRequest{ID: "r1", BloodGroup: domain.BloodGroupONeg, City: "Dhaka"}},
	})
	require.NoError(t, err)
	assert.Len(t, mailer.recipients(), 2)
}

func TestNotificationService_StatusChangeAndVerification(t *testing.T) {
	requests := newFakeRequestRepo(domain.BloodRequest{ID: "r1", RequestorEmail: "family@example.org", BloodGroup: domain.BloodGroupBPos})
	mailer := &recordingMailer{}
	n := NewNotificationService(testConfig().Notification, NotificationDependencies{RequestRepo: requests, Mailer: mailer})
	ctx := context.Background()

	require.NoError(t, n.handleRequestStatusChanged(ctx, events.Event{
		Type:     events.EventRequestStatusChanged,
		EntityID: "r1",
		Payload:  events.RequestStatusChangedPayload{OldStatus: domain.RequestStatusActive, NewStatus: domain.RequestStatusExpired},
	}))
	require.NoError(t, n.handleDonorRegistered(ctx, events.Event{
		Type:    events.EventDonorRegistered,
		Payload: events.DonorRegisteredPayload{Email: "new@example.org", Name: "New", VerifyToken: "tok-1"},
	}))

	require.Len(t, mailer.sent, 2)
	assert.Equal(t, "family@example.org", mailer.sent[0].To)
	assert.Contains(t, mailer.sent[0].Subject, "Expired")
	assert.Equal(t, "new@example.org", mailer.sent[1].To)
	assert.Contains(t, mailer.sent[1].Body, "https://bridge.example.org/api/donors/verify-email?token=tok-1")

	err := n.handleDonorRegistered(ctx, events.Event{Type: events.EventDonorRegistered, Payload: "oops"})
	assert.Error(t, err)
}
