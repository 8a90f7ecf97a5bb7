package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/gasc/blood-bridge/internal/auth"
	"github.com/gasc/blood-bridge/internal/config"
	"github.com/gasc/blood-bridge/internal/domain"
	"github.com/gasc/blood-bridge/internal/eligibility"
	"github.com/gasc/blood-bridge/internal/events"
	"github.com/gasc/blood-bridge/internal/repository"
	apperrors "github.com/gasc/blood-bridge/pkg/util/errorutil"
)

// DonorService coordinates donor registration, profile and moderation flows.
type DonorService struct {
	donors     repository.DonorRepository
	donations  repository.DonationRepository
	requests   repository.BloodRequestRepository
	activity   *ActivityService
	dispatcher events.Dispatcher
	policy     eligibility.CooldownPolicy
	resolver   *eligibility.Resolver
	bcryptCost int
	logger     *zap.Logger
	now        func() time.Time
}

// DonorDependencies bundles collaborators for the donor service.
type DonorDependencies struct {
	DonorRepo    repository.DonorRepository
	DonationRepo repository.DonationRepository
	RequestRepo  repository.BloodRequestRepository
	Activity     *ActivityService
	Dispatcher   events.Dispatcher
	Policy       eligibility.CooldownPolicy
	Resolver     *eligibility.Resolver
	Logger       *zap.Logger
	Now          func() time.Time
}

// RegisterDonorInput holds self-registration fields.
type RegisterDonorInput struct {
	Name             string
	Email            string
	Phone            string
	Password         string
	Gender           domain.Gender
	BloodGroup       string
	City             string
	LastDonationDate *time.Time
}

// DonorProfileInput carries donor-editable profile fields. Nil fields are left unchanged.
type DonorProfileInput struct {
	Name             *string
	Phone            *string
	City             *string
	LastDonationDate *time.Time
}

// DonorListFilters define staff listing parameters.
type DonorListFilters struct {
	BloodGroup    *domain.BloodGroup
	City          *string
	Verified      *bool
	Available     *bool
	Active        *bool
	EmailVerified *bool
	Search        *string
	Limit         int
	Offset        int
}

// RecordDonationInput holds the staff-entered donation.
type RecordDonationInput struct {
	DonorID      string
	RequestID    *string
	DonationDate time.Time
	Units        int
	Notes        string
}

// DonorEligibility is the eligibility view of a donor.
type DonorEligibility struct {
	CanDonateNow     bool       `json:"can_donate_now"`
	NextEligibleDate *time.Time `json:"next_eligible_date,omitempty"`
	Listed           bool       `json:"listed"`
	Warning          string     `json:"warning,omitempty"`
}

// NewDonorService constructs the service.
func NewDonorService(cfg config.Config, deps DonorDependencies) *DonorService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	resolver := deps.Resolver
	if resolver == nil {
		resolver, _ = eligibility.NewResolver(eligibility.MatchingModeCompatible)
	}
	return &DonorService{
		donors:     deps.DonorRepo,
		donations:  deps.DonationRepo,
		requests:   deps.RequestRepo,
		activity:   deps.Activity,
		dispatcher: deps.Dispatcher,
		policy:     deps.Policy,
		resolver:   resolver,
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     logger,
		now:        now,
	}
}

// Register creates an unverified donor and issues an email verification token.
func (s *DonorService) Register(ctx context.Context, input RegisterDonorInput) (*domain.Donor, error) {
	bg, err := domain.ParseBloodGroup(input.BloodGroup)
	if err != nil {
		return nil, err
	}
	if !input.Gender.Valid() {
		return nil, apperrors.NewValidationError("invalid gender", map[string]any{"gender": input.Gender})
	}
	if input.LastDonationDate != nil && input.LastDonationDate.After(s.now()) {
		return nil, apperrors.NewValidationError("last donation date cannot be in the future", nil)
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := s.donors.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("donor email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	token := uuid.NewString()
	donor := &domain.Donor{
		Name:             strings.TrimSpace(input.Name),
		Email:            email,
		Phone:            strings.TrimSpace(input.Phone),
		PasswordHash:     hash,
		Gender:           input.Gender,
		BloodGroup:       bg,
		City:             strings.TrimSpace(input.City),
		LastDonationDate: input.LastDonationDate,
		IsAvailable:      true,
		IsActive:         true,
		EmailVerifyToken: &token,
	}
	if err := s.donors.Create(ctx, donor); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.activity.Record(ctx, domain.ActivityLog{
		ActorType:  domain.SubjectTypeDonor,
		ActorID:    &donor.ID,
		Action:     domain.ActionDonorRegistered,
		EntityType: "donor",
		EntityID:   &donor.ID,
		Details:    map[string]any{"blood_group": donor.BloodGroup, "city": donor.City},
	})
	s.publish(ctx, events.EventDonorRegistered, donor.ID, events.Actor{Type: domain.SubjectTypeDonor, ID: &donor.ID},
		events.DonorRegisteredPayload{DonorID: donor.ID, Email: donor.Email, Name: donor.Name, VerifyToken: token})
	return donor, nil
}

// VerifyEmail consumes a verification token.
func (s *DonorService) VerifyEmail(ctx context.Context, token string) (*domain.Donor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NewValidationError("token required", nil)
	}
	donor, err := s.donors.GetByVerifyToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("verification token", nil)
		}
		return nil, apperrors.MapError(err)
	}
	donor.EmailVerified = true
	donor.EmailVerifyToken = nil
	if err := s.donors.Update(ctx, donor); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.activity.Record(ctx, domain.ActivityLog{
		ActorType:  domain.SubjectTypeDonor,
		ActorID:    &donor.ID,
		Action:     domain.ActionDonorEmailVerified,
		EntityType: "donor",
		EntityID:   &donor.ID,
	})
	return donor, nil
}

// UpdateProfile applies donor-editable fields. A reported last donation only moves forward.
func (s *DonorService) UpdateProfile(ctx context.Context, donor *domain.Donor, input DonorProfileInput) (*domain.Donor, error) {
	if input.LastDonationDate != nil && input.LastDonationDate.After(s.now()) {
		return nil, apperrors.NewValidationError("last donation date cannot be in the future", nil)
	}
	current, err := s.donors.GetByID(ctx, donor.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if input.Name != nil {
		current.Name = strings.TrimSpace(*input.Name)
	}
	if input.Phone != nil {
		current.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.City != nil {
		current.City = strings.TrimSpace(*input.City)
	}
	if err := s.donors.Update(ctx, current); err != nil {
		return nil, apperrors.MapError(err)
	}
	if input.LastDonationDate != nil {
		if err := s.donors.SetLastDonation(ctx, current.ID, *input.LastDonationDate); err != nil {
			return nil, apperrors.MapError(err)
		}
		if current.LastDonationDate == nil || current.LastDonationDate.Before(*input.LastDonationDate) {
			current.LastDonationDate = input.LastDonationDate
		}
	}
	return current, nil
}

// SetOwnAvailability lets a donor toggle whether they can be contacted.
func (s *DonorService) SetOwnAvailability(ctx context.Context, donor *domain.Donor, available bool) (*domain.Donor, error) {
	return s.setAvailability(ctx, donor.ID, available, events.Actor{Type: domain.SubjectTypeDonor, ID: &donor.ID})
}

// SetAvailability is the staff variant of SetOwnAvailability.
func (s *DonorService) SetAvailability(ctx context.Context, actor *domain.StaffMember, donorID string, available bool) (*domain.Donor, error) {
	return s.setAvailability(ctx, donorID, available, staffActor(actor))
}

func (s *DonorService) setAvailability(ctx context.Context, donorID string, available bool, actor events.Actor) (*domain.Donor, error) {
	donor, err := s.donors.GetByID(ctx, donorID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if donor.IsAvailable == available {
		return donor, nil
	}
	donor.IsAvailable = available
	if err := s.donors.Update(ctx, donor); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.activity.Record(ctx, domain.ActivityLog{
		ActorType:  actor.Type,
		ActorID:    actor.ID,
		Action:     domain.ActionDonorAvailability,
		EntityType: "donor",
		EntityID:   &donor.ID,
		Details:    map[string]any{"is_available": available},
	})
	return donor, nil
}

// Verify marks a donor as vetted by staff.
func (s *DonorService) Verify(ctx context.Context, actor *domain.StaffMember, donorID string, verified bool) (*domain.Donor, error) {
	donor, err := s.donors.GetByID(ctx, donorID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	donor.IsVerified = verified
	if err := s.donors.Update(ctx, donor); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.activity.Record(ctx, domain.ActivityLog{
		ActorType:  domain.SubjectTypeStaff,
		ActorID:    &actor.ID,
		Action:     domain.ActionDonorVerified,
		EntityType: "donor",
		EntityID:   &donor.ID,
		Details:    map[string]any{"is_verified": verified},
	})
	return donor, nil
}

// SetActive activates or deactivates a donor account. Admin only.
func (s *DonorService) SetActive(ctx context.Context, actor *domain.StaffMember, donorID string, active bool) (*domain.Donor, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	donor, err := s.donors.GetByID(ctx, donorID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	donor.IsActive = active
	if err := s.donors.Update(ctx, donor); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.activity.Record(ctx, domain.ActivityLog{
		ActorType:  domain.SubjectTypeStaff,
		ActorID:    &actor.ID,
		Action:     domain.ActionDonorStatus,
		EntityType: "donor",
		EntityID:   &donor.ID,
		Details:    map[string]any{"is_active": active},
	})
	return donor, nil
}

// List returns donors for the staff dashboard.
func (s *DonorService) List(ctx context.Context, filters DonorListFilters) ([]domain.Donor, error) {
	filter := repository.DonorFilter{
		City:          filters.City,
		Verified:      filters.Verified,
		Available:     filters.Available,
		Active:        filters.Active,
		EmailVerified: filters.EmailVerified,
		SearchTerm:    filters.Search,
		Limit:         filters.Limit,
		Offset:        filters.Offset,
	}
	if filters.BloodGroup != nil {
		filter.BloodGroups = []domain.BloodGroup{*filters.BloodGroup}
	}
	donors, err := s.donors.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return donors, nil
}

// ForEach streams every donor for exports. Errors returned by fn are passed through unchanged.
func (s *DonorService) ForEach(ctx context.Context, fn func(*domain.Donor) error) error {
	var fnErr error
	err := s.donors.ForEach(ctx, func(donor domain.Donor) error {
		fnErr = fn(&donor)
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return apperrors.NewStoreUnavailable(err)
	}
	return nil
}

// Get loads a single donor.
func (s *DonorService) Get(ctx context.Context, donorID string) (*domain.Donor, error) {
	donor, err := s.donors.GetByID(ctx, donorID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return donor, nil
}

// Eligibility evaluates a donor against the cooldown policy as of now.
func (s *DonorService) Eligibility(donor *domain.Donor) DonorEligibility {
	today := s.now()
	out := DonorEligibility{Listed: donor.Listed()}
	ok, err := s.policy.CanDonateNow(donor.Gender, donor.LastDonationDate, today)
	out.CanDonateNow = ok && out.Listed
	if err != nil {
		out.Warning = err.Error()
		s.logger.Warn("donor data integrity", zap.String("donor_id", donor.ID), zap.Error(err))
		return out
	}
	if donor.LastDonationDate != nil && !ok {
		next := s.policy.NextEligibleDate(donor.Gender, donor.LastDonationDate)
		out.NextEligibleDate = &next
	}
	return out
}

// Donations lists a donor's recorded donations.
func (s *DonorService) Donations(ctx context.Context, donorID string, limit, offset int) ([]domain.Donation, error) {
	items, err := s.donations.ListByDonor(ctx, donorID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

// RecordDonation stores a donation and, when it answers an active request, marks that request
// fulfilled.
func (s *DonorService) RecordDonation(ctx context.Context, actor *domain.StaffMember, input RecordDonationInput) (*domain.Donation, error) {
	if input.Units <= 0 {
		input.Units = 1
	}
	if input.DonationDate.IsZero() {
		input.DonationDate = s.now()
	}
	if input.DonationDate.After(s.now()) {
		return nil, apperrors.NewValidationError("donation date cannot be in the future", nil)
	}
	donor, err := s.donors.GetByID(ctx, input.DonorID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	var request *domain.BloodRequest
	if input.RequestID != nil {
		request, err = s.requests.GetByID(ctx, *input.RequestID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if request.Status != domain.RequestStatusActive {
			return nil, apperrors.NewConflict("request is not active", map[string]any{"status": request.Status})
		}
		groups, err := s.resolver.DonorGroupsFor(request.BloodGroup)
		if err != nil {
			return nil, err
		}
		if !lo.Contains(groups, donor.BloodGroup) {
			return nil, apperrors.NewConflict("donor blood group cannot serve this request", map[string]any{
				"donor_blood_group":   donor.BloodGroup,
				"request_blood_group": request.BloodGroup,
				"matching_mode":       s.resolver.Mode(),
			})
		}
	}

	donation := &domain.Donation{
		DonorID:      donor.ID,
		RequestID:    input.RequestID,
		DonationDate: input.DonationDate,
		Units:        input.Units,
		Notes:        strings.TrimSpace(input.Notes),
		RecordedBy:   &actor.ID,
	}
	if err := s.donations.Record(ctx, donation); err != nil {
		return nil, apperrors.MapError(err)
	}

	evActor := staffActor(actor)
	s.activity.Record(ctx, domain.ActivityLog{
		ActorType:  domain.SubjectTypeStaff,
		ActorID:    &actor.ID,
		Action:     domain.ActionDonationRecorded,
		EntityType: "donor",
		EntityID:   &donor.ID,
		Details:    map[string]any{"donation_id": donation.ID, "units": donation.Units},
	})
	s.publish(ctx, events.EventDonationRecorded, donor.ID, evActor, events.DonationRecordedPayload{
		DonorID:      donor.ID,
		RequestID:    input.RequestID,
		DonationDate: donation.DonationDate,
	})

	if request != nil {
		updated, err := s.requests.TransitionStatus(ctx, request.ID, domain.RequestStatusActive, domain.RequestStatusFulfilled)
		switch {
		case errors.Is(err, repository.ErrStatusConflict):
			s.logger.Info("request no longer active after donation", zap.String("request_id", request.ID))
		case err != nil:
			return donation, apperrors.MapError(err)
		default:
			s.activity.Record(ctx, domain.ActivityLog{
				ActorType:  domain.SubjectTypeStaff,
				ActorID:    &actor.ID,
				Action:     domain.ActionRequestStatusChanged,
				EntityType: "blood_request",
				EntityID:   &updated.ID,
				Details:    map[string]any{"old_status": domain.RequestStatusActive, "new_status": updated.Status},
			})
			s.publish(ctx, events.EventRequestStatusChanged, updated.ID, evActor, events.RequestStatusChangedPayload{
				OldStatus: domain.RequestStatusActive,
				NewStatus: updated.Status,
				Reason:    "donation recorded",
			})
		}
	}
	return donation, nil
}

func (s *DonorService) publish(ctx context.Context, eventType events.EventType, entityID string, actor events.Actor, payload any) {
	publishEvent(ctx, s.dispatcher, s.logger, s.now, eventType, entityID, actor, payload)
}

func staffActor(actor *domain.StaffMember) events.Actor {
	if actor == nil {
		return events.Actor{Type: domain.SubjectTypeStaff}
	}
	return events.Actor{Type: domain.SubjectTypeStaff, ID: &actor.ID}
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, now func() time.Time, eventType events.EventType, entityID string, actor events.Actor, payload any) {
	if dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		EntityID:  entityID,
		Actor:     actor,
		Timestamp: now(),
		Payload:   payload,
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event publish failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
