package config

import "time"

// Level names are duplicated here rather than imported from
// valueobjects to keep domain/config dependency-free (valueobjects
// imports this package for content validation).
const (
	levelAtomic  = "atomic"
	levelDaily   = "daily"
	levelWeekly  = "weekly"
	levelMonthly = "monthly"
)

// DomainConfig holds all configurable business rules and constraints.
// Rollup thresholds and per-level TTLs are tunables, not contract
// values.
type DomainConfig struct {
	// Per-level time-to-live. Atomic nodes are short-lived, monthly
	// summaries long-lived.
	AtomicTTL  time.Duration
	DailyTTL   time.Duration
	WeeklyTTL  time.Duration
	MonthlyTTL time.Duration

	// Rollup thresholds: how many un-rolled-up nodes at a level
	// trigger a rollup into the next level.
	AtomicRollupThreshold int
	DailyRollupThreshold  int
	WeeklyRollupThreshold int

	// Node constraints
	MaxContentLength int
	MaxTagsPerNode   int

	// Search defaults
	MaxSearchResults      int
	DefaultMinSearchScore float64

	// Maintenance
	SummarizerTimeout  time.Duration
	MaintenanceLockTTL time.Duration

	// Cross-office link nodes
	OfficeLinkTTL time.Duration
}

// DefaultDomainConfig returns the default business configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		AtomicTTL:  24 * time.Hour,
		DailyTTL:   7 * 24 * time.Hour,
		WeeklyTTL:  30 * 24 * time.Hour,
		MonthlyTTL: 365 * 24 * time.Hour,

		AtomicRollupThreshold: 100,
		DailyRollupThreshold:  7,
		WeeklyRollupThreshold: 4,

		MaxContentLength: 50000,
		MaxTagsPerNode:   10,

		MaxSearchResults:      100,
		DefaultMinSearchScore: 0.0,

		SummarizerTimeout:  30 * time.Second,
		MaintenanceLockTTL: 2 * time.Minute,

		OfficeLinkTTL: 7 * 24 * time.Hour,
	}
}

// TTLForLevel returns the default TTL for nodes created at a level
func (c *DomainConfig) TTLForLevel(level string) time.Duration {
	switch level {
	case levelAtomic:
		return c.AtomicTTL
	case levelDaily:
		return c.DailyTTL
	case levelWeekly:
		return c.WeeklyTTL
	case levelMonthly:
		return c.MonthlyTTL
	default:
		return c.AtomicTTL
	}
}

// RollupThreshold returns the trigger threshold for a level. ok is
// false for monthly, which is never rolled up further.
func (c *DomainConfig) RollupThreshold(level string) (int, bool) {
	switch level {
	case levelAtomic:
		return c.AtomicRollupThreshold, true
	case levelDaily:
		return c.DailyRollupThreshold, true
	case levelWeekly:
		return c.WeeklyRollupThreshold, true
	default:
		return 0, false
	}
}
