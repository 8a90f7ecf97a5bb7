package eligibility

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/gasc/blood-bridge/internal/domain"
)

// MatchingMode selects how a requested group maps to donor groups.
type MatchingMode string

const (
	MatchingModeExact      MatchingMode = "exact"
	MatchingModeCompatible MatchingMode = "compatible"
)

// donorTable lists, per recipient group, the donor groups that may satisfy it.
var donorTable = map[domain.BloodGroup][]domain.BloodGroup{
	domain.BloodGroupAPos:  {domain.BloodGroupAPos, domain.BloodGroupANeg, domain.BloodGroupOPos, domain.BloodGroupONeg},
	domain.BloodGroupANeg:  {domain.BloodGroupANeg, domain.BloodGroupONeg},
	domain.BloodGroupBPos:  {domain.BloodGroupBPos, domain.BloodGroupBNeg, domain.BloodGroupOPos, domain.BloodGroupONeg},
	domain.BloodGroupBNeg:  {domain.BloodGroupBNeg, domain.BloodGroupONeg},
	domain.BloodGroupABPos: domain.AllBloodGroups(),
	domain.BloodGroupABNeg: {domain.BloodGroupABNeg, domain.BloodGroupANeg, domain.BloodGroupBNeg, domain.BloodGroupONeg},
	domain.BloodGroupOPos:  {domain.BloodGroupOPos, domain.BloodGroupONeg},
	domain.BloodGroupONeg:  {domain.BloodGroupONeg},
}

// CompatibleDonorGroups returns the donor groups whose blood a recipient of requested may receive.
func CompatibleDonorGroups(requested domain.BloodGroup) ([]domain.BloodGroup, error) {
	donors, ok := donorTable[requested]
	if !ok {
		return nil, &domain.InvalidBloodGroupError{Value: string(requested)}
	}
	return append([]domain.BloodGroup(nil), donors...), nil
}

// CompatibleRecipientGroups returns the recipient groups that may receive blood from donor.
func CompatibleRecipientGroups(donor domain.BloodGroup) ([]domain.BloodGroup, error) {
	if !donor.Valid() {
		return nil, &domain.InvalidBloodGroupError{Value: string(donor)}
	}
	return lo.Filter(domain.AllBloodGroups(), func(recipient domain.BloodGroup, _ int) bool {
		return lo.Contains(donorTable[recipient], donor)
	}), nil
}

// Resolver applies one matching mode consistently.
type Resolver struct {
	mode MatchingMode
}

// NewResolver builds a resolver for mode.
func NewResolver(mode MatchingMode) (*Resolver, error) {
	switch mode {
	case MatchingModeExact, MatchingModeCompatible:
		return &Resolver{mode: mode}, nil
	default:
		return nil, fmt.Errorf("unknown matching mode: %q", mode)
	}
}

// ParseMatchingMode converts a raw string, e.g. from configuration or a query parameter.
func ParseMatchingMode(raw string) (MatchingMode, error) {
	mode := MatchingMode(raw)
	if mode != MatchingModeExact && mode != MatchingModeCompatible {
		return "", fmt.Errorf("unknown matching mode: %q", raw)
	}
	return mode, nil
}

// Mode returns the configured matching mode.
func (r *Resolver) Mode() MatchingMode {
	return r.mode
}

// DonorGroupsFor returns the donor groups that satisfy a request for requested.
func (r *Resolver) DonorGroupsFor(requested domain.BloodGroup) ([]domain.BloodGroup, error) {
	if r.mode == MatchingModeExact {
		if !requested.Valid() {
			return nil, &domain.InvalidBloodGroupError{Value: string(requested)}
		}
		return []domain.BloodGroup{requested}, nil
	}
	return CompatibleDonorGroups(requested)
}
