package service

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/gasc/blood-bridge/internal/domain"
	"github.com/gasc/blood-bridge/internal/eligibility"
	"github.com/gasc/blood-bridge/internal/observability"
	"github.com/gasc/blood-bridge/internal/repository"
	apperrors "github.com/gasc/blood-bridge/pkg/util/errorutil"
)

// InventoryService answers donor availability and stock questions. Every call reads current store
// state; nothing is cached between calls.
type InventoryService struct {
	donors     repository.DonorRepository
	requests   repository.BloodRequestRepository
	resolver   *eligibility.Resolver
	policy     eligibility.CooldownPolicy
	strictCity bool
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// InventoryDependencies bundles collaborators for the inventory service.
type InventoryDependencies struct {
	DonorRepo        repository.DonorRepository
	RequestRepo      repository.BloodRequestRepository
	Resolver         *eligibility.Resolver
	Policy           eligibility.CooldownPolicy
	StrictCityFilter bool
	Logger           *zap.Logger
	Metrics          *observability.Metrics
	Now              func() time.Time
}

// DonorCountQuery selects the donors to count.
type DonorCountQuery struct {
	BloodGroup domain.BloodGroup
	City       string
	// Mode overrides the configured matching mode for this query only.
	Mode *eligibility.MatchingMode
}

// DonorCount is the availability answer for one query.
type DonorCount struct {
	BloodGroup  domain.BloodGroup        `json:"blood_group"`
	City        string                   `json:"city,omitempty"`
	Mode        eligibility.MatchingMode `json:"matching_mode"`
	DonorGroups []domain.BloodGroup      `json:"donor_groups"`
	eligibility.AvailabilityResult
}

// NewInventoryService constructs the service.
func NewInventoryService(deps InventoryDependencies) *InventoryService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &InventoryService{
		donors:     deps.DonorRepo,
		requests:   deps.RequestRepo,
		resolver:   deps.Resolver,
		policy:     deps.Policy,
		strictCity: deps.StrictCityFilter,
		logger:     logger,
		metrics:    deps.Metrics,
		now:        now,
	}
}

// Resolver exposes the configured compatibility resolver.
func (s *InventoryService) Resolver() *eligibility.Resolver {
	return s.resolver
}

// Policy exposes the configured cooldown policy.
func (s *InventoryService) Policy() eligibility.CooldownPolicy {
	return s.policy
}

// Today returns the current instant in the reporting timezone.
func (s *InventoryService) Today() time.Time {
	return s.now().In(s.policyLocation())
}

// CountAvailableDonors counts listed donors who can satisfy a request for q.BloodGroup.
func (s *InventoryService) CountAvailableDonors(ctx context.Context, q DonorCountQuery) (*DonorCount, error) {
	resolver := s.resolver
	if q.Mode != nil && *q.Mode != resolver.Mode() {
		override, err := eligibility.NewResolver(*q.Mode)
		if err != nil {
			return nil, apperrors.NewValidationError(err.Error(), nil)
		}
		resolver = override
	}
	groups, err := resolver.DonorGroupsFor(q.BloodGroup)
	if err != nil {
		return nil, err
	}

	if err := s.checkCity(ctx, q.City); err != nil {
		return nil, err
	}

	donors, err := s.donors.ListMatchCandidates(ctx, groups, q.City)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	result := eligibility.CountAvailableDonors(donors, eligibility.Criteria{BloodGroups: groups, City: q.City}, s.policy, s.Today())
	s.reportWarnings(result.Warnings)

	return &DonorCount{
		BloodGroup:         q.BloodGroup,
		City:               q.City,
		Mode:               resolver.Mode(),
		DonorGroups:        groups,
		AvailabilityResult: result,
	}, nil
}

// MatchDonors returns the donors who can satisfy a request right now, soonest-rested first.
func (s *InventoryService) MatchDonors(ctx context.Context, requested domain.BloodGroup, city string) ([]domain.Donor, error) {
	groups, err := s.resolver.DonorGroupsFor(requested)
	if err != nil {
		return nil, err
	}
	candidates, err := s.donors.ListMatchCandidates(ctx, groups, city)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}

	today := s.Today()
	var warnings []error
	matched := make([]domain.Donor, 0, len(candidates))
	for i := range candidates {
		ok, err := s.policy.DonorEligibleNow(&candidates[i], today)
		if err != nil {
			warnings = append(warnings, err)
		}
		if ok {
			matched = append(matched, candidates[i])
		}
	}
	s.reportWarnings(warnings)
	return matched, nil
}

// Snapshot computes the per-group inventory. The donor projection and the two request counts are
// read concurrently and independently, so a label may be momentarily stale.
func (s *InventoryService) Snapshot(ctx context.Context) ([]domain.InventorySnapshot, error) {
	var (
		donors    []domain.Donor
		active    map[domain.BloodGroup]int
		fulfilled map[domain.BloodGroup]int
	)
	today := s.Today()
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		var err error
		donors, err = s.donors.ListProfiles(ctx)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		active, err = s.requests.CountActiveByGroup(ctx)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		fulfilled, err = s.requests.CountFulfilledSince(ctx, monthStart)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}

	snaps, warnings := eligibility.BuildSnapshot(eligibility.SnapshotInput{
		Donors:             donors,
		ActiveRequests:     active,
		FulfilledThisMonth: fulfilled,
	}, s.policy, today)
	s.reportWarnings(warnings)
	return snaps, nil
}

func (s *InventoryService) checkCity(ctx context.Context, city string) error {
	if !s.strictCity || city == "" {
		return nil
	}
	known, err := s.donors.CityExists(ctx, city)
	if err != nil {
		return apperrors.NewStoreUnavailable(err)
	}
	if !known {
		return apperrors.NewUnknownCity(city)
	}
	return nil
}

func (s *InventoryService) reportWarnings(warnings []error) {
	if len(warnings) == 0 {
		return
	}
	s.metrics.RecordWarnings("donation_date", len(warnings))
	for _, w := range warnings {
		s.logger.Warn("donor data integrity", zap.Error(w))
	}
}

func (s *InventoryService) policyLocation() *time.Location {
	if s.policy.Location == nil {
		return time.Local
	}
	return s.policy.Location
}
