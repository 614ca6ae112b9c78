package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/lotledger/internal/domain/trade"
	"github.com/google/uuid"
)

type entry struct {
	saleID    uuid.UUID
	expiresAt time.Time // zero means never
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// InMemorySaleReplayCache implements trade.SaleReplayCache in process memory.
// It serves single-instance deployments and tests; entries do not survive a restart.
type InMemorySaleReplayCache struct {
	mu        sync.RWMutex
	entries   map[string]entry
	ttl       time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemorySaleReplayCache creates the cache and starts its sweeper.
// ttl <= 0 keeps entries until Close.
func NewInMemorySaleReplayCache(ttl time.Duration) *InMemorySaleReplayCache {
	c := &InMemorySaleReplayCache{
		entries:  make(map[string]entry),
		ttl:      ttl,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	c.wg.Add(1)
	go c.cleanupLoop(5 * time.Minute)
	return c
}

// Get returns the sale id remembered for key
func (c *InMemorySaleReplayCache) Get(ctx context.Context, key trade.SaleKey) (uuid.UUID, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key.String()]
	if !ok || e.expired(c.now()) {
		return uuid.Nil, false, nil
	}
	return e.saleID, true, nil
}

// Remember stores key -> saleID unless a live entry exists
func (c *InMemorySaleReplayCache) Remember(ctx context.Context, key trade.SaleKey, saleID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	k := key.String()
	if e, ok := c.entries[k]; ok && !e.expired(now) {
		return nil
	}
	e := entry{saleID: saleID}
	if c.ttl > 0 {
		e.expiresAt = now.Add(c.ttl)
	}
	c.entries[k] = e
	return nil
}

// Close stops the sweeper; safe to call more than once
func (c *InMemorySaleReplayCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

// Size returns the number of stored entries, expired ones included until swept
func (c *InMemorySaleReplayCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *InMemorySaleReplayCache) cleanupLoop(every time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *InMemorySaleReplayCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
		}
	}
}

var _ trade.SaleReplayCache = (*InMemorySaleReplayCache)(nil)
