package valueobjects

import (
	"fmt"

	pkgerrors "memgraph/pkg/errors"
)

// ConsentLevel is the default visibility class of a memory node.
// It is a closed set: consent decisions are exhaustively checkable
// and never carried as free-form strings.
type ConsentLevel string

const (
	// ConsentPrivate means only the owning office can read the node.
	// Grants never override Private.
	ConsentPrivate ConsentLevel = "private"

	// ConsentRestricted requires an unexpired grant issued by the
	// current owner.
	ConsentRestricted ConsentLevel = "restricted"

	// ConsentShared requires an unexpired grant for the requester.
	ConsentShared ConsentLevel = "shared"

	// ConsentPublic is freely readable by any office.
	ConsentPublic ConsentLevel = "public"
)

// consentRank orders levels from most to least restrictive
var consentRank = map[ConsentLevel]int{
	ConsentPrivate:    0,
	ConsentRestricted: 1,
	ConsentShared:     2,
	ConsentPublic:     3,
}

// ParseConsentLevel validates and converts a string into a ConsentLevel
func ParseConsentLevel(s string) (ConsentLevel, error) {
	level := ConsentLevel(s)
	if !level.IsValid() {
		return "", pkgerrors.NewValidationError(fmt.Sprintf("invalid consent level: %q", s))
	}
	return level, nil
}

// IsValid reports whether the level is one of the four known variants
func (c ConsentLevel) IsValid() bool {
	_, ok := consentRank[c]
	return ok
}

// String returns the string representation
func (c ConsentLevel) String() string {
	return string(c)
}

// MoreRestrictiveThan reports whether c exposes strictly less than other
func (c ConsentLevel) MoreRestrictiveThan(other ConsentLevel) bool {
	return consentRank[c] < consentRank[other]
}

// MostRestrictiveConsent returns the most restrictive level among the
// given ones. Summary nodes take the most restrictive consent of their
// sources so that rollup can never widen exposure.
func MostRestrictiveConsent(levels ...ConsentLevel) ConsentLevel {
	if len(levels) == 0 {
		return ConsentPrivate
	}
	result := levels[0]
	for _, l := range levels[1:] {
		if l.MoreRestrictiveThan(result) {
			result = l
		}
	}
	return result
}
