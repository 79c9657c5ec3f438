package valueobjects

import (
	"github.com/google/uuid"

	pkgerrors "memgraph/pkg/errors"
)

// GrantID is a value object identifying an access grant record
type GrantID struct {
	value string
}

// NewGrantID creates a new random GrantID
func NewGrantID() GrantID {
	return GrantID{value: uuid.New().String()}
}

// NewGrantIDFromString creates a GrantID from an existing string
func NewGrantIDFromString(id string) (GrantID, error) {
	if id == "" {
		return GrantID{}, pkgerrors.NewValidationError("grant ID cannot be empty")
	}
	if !isValidUUID(id) {
		return GrantID{}, pkgerrors.NewValidationError("grant ID must be a valid UUID")
	}
	return GrantID{value: id}, nil
}

// String returns the string representation of the GrantID
func (id GrantID) String() string {
	return id.value
}

// Equals checks if two GrantIDs are equal
func (id GrantID) Equals(other GrantID) bool {
	return id.value == other.value
}

// IsZero checks if the GrantID is the zero value
func (id GrantID) IsZero() bool {
	return id.value == ""
}
