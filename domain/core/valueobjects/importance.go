package valueobjects

import (
	pkgerrors "memgraph/pkg/errors"
)

// Importance is a float in [0, 1] biasing retrieval ranking and
// summarization input selection. It never influences access control.
type Importance struct {
	value float64
}

// DefaultImportance is the midpoint used when a creator does not care
func DefaultImportance() Importance {
	return Importance{value: 0.5}
}

// NewImportance creates a validated Importance
func NewImportance(v float64) (Importance, error) {
	if v < 0 || v > 1 {
		return Importance{}, pkgerrors.NewValidationError("importance must be in [0, 1]")
	}
	return Importance{value: v}, nil
}

// Value returns the raw float
func (i Importance) Value() float64 {
	return i.value
}

// GreaterThan compares two importance values
func (i Importance) GreaterThan(other Importance) bool {
	return i.value > other.value
}
