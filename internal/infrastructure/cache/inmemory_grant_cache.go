package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opsmatrix/governance/internal/domain/matrix"
)

type grantEntry struct {
	grant     matrix.AccessGrant
	expiresAt time.Time
}

// InMemoryGrantCache is a process-local grant cache for tests and
// single-instance deployments
type InMemoryGrantCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]grantEntry
	ttl     time.Duration
}

// NewInMemoryGrantCache creates an in-memory grant cache
func NewInMemoryGrantCache(ttl time.Duration) *InMemoryGrantCache {
	return &InMemoryGrantCache{
		entries: make(map[uuid.UUID]grantEntry),
		ttl:     ttl,
	}
}

// Get returns the cached grant for the principal, (zero, false, nil) on miss
func (c *InMemoryGrantCache) Get(ctx context.Context, principalID uuid.UUID) (matrix.AccessGrant, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[principalID]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return matrix.AccessGrant{}, false, nil
	}
	return entry.grant, true, nil
}

// Set stores the grant under the principal's key
func (c *InMemoryGrantCache) Set(ctx context.Context, grant matrix.AccessGrant) error {
	c.mu.Lock()
	c.entries[grant.PrincipalID] = grantEntry{
		grant:     grant,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
	return nil
}

// Invalidate drops the principal's cached grant
func (c *InMemoryGrantCache) Invalidate(ctx context.Context, principalID uuid.UUID) error {
	c.mu.Lock()
	delete(c.entries, principalID)
	c.mu.Unlock()
	return nil
}
