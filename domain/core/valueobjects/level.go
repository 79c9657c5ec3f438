package valueobjects

import (
	"fmt"

	pkgerrors "memgraph/pkg/errors"
)

// MemoryLevel is a node's position in the summarization hierarchy.
// A node's level is immutable after creation; summary nodes are created
// directly at their level, never promoted in place.
type MemoryLevel string

const (
	LevelAtomic  MemoryLevel = "atomic"
	LevelDaily   MemoryLevel = "daily"
	LevelWeekly  MemoryLevel = "weekly"
	LevelMonthly MemoryLevel = "monthly"
)

// levelRank orders levels from finest to coarsest
var levelRank = map[MemoryLevel]int{
	LevelAtomic:  0,
	LevelDaily:   1,
	LevelWeekly:  2,
	LevelMonthly: 3,
}

// ParseMemoryLevel validates and converts a string into a MemoryLevel
func ParseMemoryLevel(s string) (MemoryLevel, error) {
	level := MemoryLevel(s)
	if !level.IsValid() {
		return "", pkgerrors.NewValidationError(fmt.Sprintf("invalid memory level: %q", s))
	}
	return level, nil
}

// IsValid reports whether the level is one of the four known variants
func (l MemoryLevel) IsValid() bool {
	_, ok := levelRank[l]
	return ok
}

// String returns the string representation
func (l MemoryLevel) String() string {
	return string(l)
}

// Next returns the next coarser level. ok is false for Monthly, which
// is terminal and never rolled up further.
func (l MemoryLevel) Next() (MemoryLevel, bool) {
	switch l {
	case LevelAtomic:
		return LevelDaily, true
	case LevelDaily:
		return LevelWeekly, true
	case LevelWeekly:
		return LevelMonthly, true
	default:
		return "", false
	}
}

// CanHaveChildren reports whether nodes at this level may reference
// source nodes. Atomic nodes never have children.
func (l MemoryLevel) CanHaveChildren() bool {
	return l != LevelAtomic && l.IsValid()
}

// CanHaveParent reports whether nodes at this level may be rolled into
// a summary at the next level up. Monthly nodes never get a parent,
// which makes cycles structurally impossible: a parent always points
// to a strictly coarser level.
func (l MemoryLevel) CanHaveParent() bool {
	_, ok := l.Next()
	return ok
}

// Coarser reports whether l is strictly coarser than other
func (l MemoryLevel) Coarser(other MemoryLevel) bool {
	return levelRank[l] > levelRank[other]
}
