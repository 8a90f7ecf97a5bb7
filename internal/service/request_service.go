package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gasc/blood-bridge/internal/domain"
	"github.com/gasc/blood-bridge/internal/events"
	"github.com/gasc/blood-bridge/internal/repository"
	apperrors "github.com/gasc/blood-bridge/pkg/util/errorutil"
)

// RequestService coordinates blood request lifecycle.
type RequestService struct {
	requests   repository.BloodRequestRepository
	activity   *ActivityService
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// RequestDependencies bundles collaborators for the request service.
type RequestDependencies struct {
	RequestRepo repository.BloodRequestRepository
	Activity    *ActivityService
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Now         func() time.Time
}

// CreateRequestInput holds the public submission.
type CreateRequestInput struct {
	RequestorEmail string
	PatientName    string
	Hospital       string
	ContactPhone   string
	BloodGroup     string
	City           string
	UnitsNeeded    int
	Urgency        domain.RequestUrgency
	Notes          string
}

// RequestListFilters define staff listing parameters.
type RequestListFilters struct {
	BloodGroup  *domain.BloodGroup
	City        *string
	Statuses    []domain.RequestStatus
	Urgencies   []domain.RequestUrgency
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &RequestService{
		requests:   deps.RequestRepo,
		activity:   deps.Activity,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        now,
	}
}

// Create stores a new active request with its urgency-derived expiry and notifies listeners.
func (s *RequestService) Create(ctx context.Context, input CreateRequestInput) (*domain.BloodRequest, error) {
	bg, err := domain.ParseBloodGroup(input.BloodGroup)
	if err != nil {
		return nil, err
	}
	if !input.Urgency.Valid() {
		return nil, apperrors.NewValidationError("invalid urgency", map[string]any{"urgency": input.Urgency})
	}
	if input.UnitsNeeded <= 0 {
		return nil, apperrors.NewValidationError("units needed must be positive", nil)
	}

	createdAt := s.now()
	req := &domain.BloodRequest{
		RequestorEmail: strings.ToLower(strings.TrimSpace(input.RequestorEmail)),
		PatientName:    strings.TrimSpace(input.PatientName),
		Hospital:       strings.TrimSpace(input.Hospital),
		ContactPhone:   strings.TrimSpace(input.ContactPhone),
		BloodGroup:     bg,
		City:           strings.TrimSpace(input.City),
		UnitsNeeded:    input.UnitsNeeded,
		Urgency:        input.Urgency,
		Status:         domain.RequestStatusActive,
		Notes:          strings.TrimSpace(input.Notes),
		CreatedAt:      createdAt,
		ExpiresAt:      domain.ExpiryFor(createdAt, input.Urgency),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, apperrors.MapError(err)
	}

	actor := events.Actor{Type: domain.SubjectTypeRequestor}
	s.activity.Record(ctx, domain.ActivityLog{
		ActorType:  domain.SubjectTypeRequestor,
		Action:     domain.ActionRequestCreated,
		EntityType: "blood_request",
		EntityID:   &req.ID,
		Details: map[string]any{
			"blood_group": req.BloodGroup,
			"city":        req.City,
			"urgency":     req.Urgency,
			"units":       req.UnitsNeeded,
		},
	})
	publishEvent(ctx, s.dispatcher, s.logger, s.now, events.EventRequestCreated, req.ID, actor,
		events.RequestCreatedPayload{Request: *req})
	return req, nil
}

// Get loads a single request.
func (s *RequestService) Get(ctx context.Context, id string) (*domain.BloodRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return req, nil
}

// ListForRequestor returns the requests submitted with the session email.
func (s *RequestService) ListForRequestor(ctx context.Context, email string, limit, offset int) ([]domain.BloodRequest, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	items, err := s.requests.List(ctx, repository.RequestFilter{RequestorEmail: &email, Limit: limit, Offset: offset})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// CancelAsRequestor cancels one of the requestor's own active requests.
func (s *RequestService) CancelAsRequestor(ctx context.Context, email, requestID string) (*domain.BloodRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !strings.EqualFold(req.RequestorEmail, strings.TrimSpace(email)) {
		return nil, apperrors.NewNotFound("blood request", map[string]any{"id": requestID})
	}
	return s.transition(ctx, req, domain.RequestStatusCancelled, events.Actor{Type: domain.SubjectTypeRequestor}, "cancelled by requestor")
}

// ListForStaff lists requests for the dashboard.
func (s *RequestService) ListForStaff(ctx context.Context, filters RequestListFilters) ([]domain.BloodRequest, error) {
	filter := repository.RequestFilter{
		City:        filters.City,
		Statuses:    filters.Statuses,
		Urgencies:   filters.Urgencies,
		CreatedFrom: filters.CreatedFrom,
		CreatedTo:   filters.CreatedTo,
		Limit:       filters.Limit,
		Offset:      filters.Offset,
	}
	if filters.BloodGroup != nil {
		filter.BloodGroups = []domain.BloodGroup{*filters.BloodGroup}
	}
	items, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// UpdateStatus applies a staff-driven transition.
func (s *RequestService) UpdateStatus(ctx context.Context, actor *domain.StaffMember, requestID string, status domain.RequestStatus, reason string) (*domain.BloodRequest, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": status})
	}
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return s.transition(ctx, req, status, staffActor(actor), reason)
}

func (s *RequestService) transition(ctx context.Context, req *domain.BloodRequest, next domain.RequestStatus, actor events.Actor, reason string) (*domain.BloodRequest, error) {
	old := req.Status
	if !old.CanTransitionTo(next) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{"from": old, "to": next})
	}
	updated, err := s.requests.TransitionStatus(ctx, req.ID, old, next)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, apperrors.NewConflict("request status changed concurrently", map[string]any{"id": req.ID})
		}
		return nil, apperrors.MapError(err)
	}

	s.activity.Record(ctx, domain.ActivityLog{
		ActorType:  actor.Type,
		ActorID:    actor.ID,
		Action:     domain.ActionRequestStatusChanged,
		EntityType: "blood_request",
		EntityID:   &updated.ID,
		Details:    map[string]any{"old_status": old, "new_status": next, "reason": reason},
	})
	publishEvent(ctx, s.dispatcher, s.logger, s.now, events.EventRequestStatusChanged, updated.ID, actor,
		events.RequestStatusChangedPayload{OldStatus: old, NewStatus: next, Reason: reason})
	return updated, nil
}

// ExpireOverdue marks every active request past its expiry as Expired and returns how many moved.
func (s *RequestService) ExpireOverdue(ctx context.Context) (int, error) {
	ids, err := s.requests.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, apperrors.NewStoreUnavailable(err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	s.activity.Record(ctx, domain.ActivityLog{
		ActorType:  domain.SubjectTypeSystem,
		Action:     domain.ActionRequestsExpired,
		EntityType: "blood_request",
		EntityID:   entityRef(singleID(ids)),
		Details:    map[string]any{"count": len(ids), "ids": ids},
	})
	actor := events.Actor{Type: domain.SubjectTypeSystem}
	for _, id := range ids {
		publishEvent(ctx, s.dispatcher, s.logger, s.now, events.EventRequestStatusChanged, id, actor,
			events.RequestStatusChangedPayload{
				OldStatus: domain.RequestStatusActive,
				NewStatus: domain.RequestStatusExpired,
				Reason:    "expired",
			})
	}
	return len(ids), nil
}

func singleID(ids []string) string {
	if len(ids) == 1 {
		return ids[0]
	}
	return ""
}
