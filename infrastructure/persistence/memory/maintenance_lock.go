package memory

import (
	"context"
	"sync"
	"time"

	"memgraph/application/ports"
	pkgerrors "memgraph/pkg/errors"
)

// MaintenanceLock is an in-process ports.MaintenanceLock. Locks carry
// a TTL so a crashed holder cannot wedge a tuple forever.
type MaintenanceLock struct {
	mu   sync.Mutex
	held map[string]lockEntry
	now  func() time.Time
}

type lockEntry struct {
	holder    string
	expiresAt time.Time
}

// NewMaintenanceLock creates an empty lock table
func NewMaintenanceLock() *MaintenanceLock {
	return &MaintenanceLock{
		held: make(map[string]lockEntry),
		now:  time.Now,
	}
}

var _ ports.MaintenanceLock = (*MaintenanceLock)(nil)

// Acquire takes the named lock, failing with CONFLICT if another
// holder has it and its TTL has not lapsed
func (l *MaintenanceLock) Acquire(ctx context.Context, key, holder string, ttl time.Duration) (ports.ReleaseFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key == "" || holder == "" {
		return nil, pkgerrors.NewValidationError("lock key and holder cannot be empty")
	}
	if ttl <= 0 {
		return nil, pkgerrors.NewValidationError("lock ttl must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if entry, ok := l.held[key]; ok && now.Before(entry.expiresAt) {
		return nil, pkgerrors.NewConflictError("lock already held by " + entry.holder)
	}

	l.held[key] = lockEntry{holder: holder, expiresAt: now.Add(ttl)}

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if entry, ok := l.held[key]; ok && entry.holder == holder {
			delete(l.held, key)
		}
	}

	return release, nil
}
