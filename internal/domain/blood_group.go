package domain

import (
	"fmt"
	"strings"
)

// BloodGroup is one of the eight ABO/Rh types.
type BloodGroup string

const (
	BloodGroupAPos  BloodGroup = "A+"
	BloodGroupANeg  BloodGroup = "A-"
	BloodGroupBPos  BloodGroup = "B+"
	BloodGroupBNeg  BloodGroup = "B-"
	BloodGroupABPos BloodGroup = "AB+"
	BloodGroupABNeg BloodGroup = "AB-"
	BloodGroupOPos  BloodGroup = "O+"
	BloodGroupONeg  BloodGroup = "O-"
)

var allBloodGroups = []BloodGroup{
	BloodGroupAPos,
	BloodGroupANeg,
	BloodGroupBPos,
	BloodGroupBNeg,
	BloodGroupABPos,
	BloodGroupABNeg,
	BloodGroupOPos,
	BloodGroupONeg,
}

// AllBloodGroups returns the catalog in display order. The slice is a copy.
func AllBloodGroups() []BloodGroup {
	out := make([]BloodGroup, len(allBloodGroups))
	copy(out, allBloodGroups)
	return out
}

// InvalidBloodGroupError reports an unknown or malformed blood group string.
type InvalidBloodGroupError struct {
	Value string
}

func (e *InvalidBloodGroupError) Error() string {
	return fmt.Sprintf("invalid blood group %q", e.Value)
}

// ParseBloodGroup normalizes case and surrounding whitespace, nothing else.
func ParseBloodGroup(raw string) (BloodGroup, error) {
	candidate := BloodGroup(strings.ToUpper(strings.TrimSpace(raw)))
	if candidate.Valid() {
		return candidate, nil
	}
	return "", &InvalidBloodGroupError{Value: raw}
}

// Valid reports whether bg belongs to the catalog.
func (bg BloodGroup) Valid() bool {
	for _, known := range allBloodGroups {
		if bg == known {
			return true
		}
	}
	return false
}

func (bg BloodGroup) String() string {
	return string(bg)
}
