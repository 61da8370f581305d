// Package budget persists checkpoint budget counters as expiring
// integer keys, one per scope and period. Keys carry a TTL so stale
// windows clean themselves up without a sweeper.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/tunex/internal/db"
)

// Counters outlive their window so a process restarted near a boundary
// can still load the running total.
const (
	dailyTTL = 48 * time.Hour
	monthTTL = 62 * 24 * time.Hour
)

// store is the consumer interface for budget counters (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store implements training.BudgetStore on top of DB (INCRBY + GET with TTL).
type Store struct {
	store store
}

// New creates a budget store.
func New(s store) *Store {
	return &Store{store: s}
}

// IncrBy atomically increments the counter and arms its TTL.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if err := s.store.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("budget INCRBY %s: %w", key, err)
	}

	// Set TTL only if the key has no expiry yet (NX — not reset on repeat).
	if err := s.store.Expire(ctx, key, ttlForKey(key), true); err != nil {
		return fmt.Errorf("budget EXPIRE %s: %w", key, err)
	}

	return nil
}

// Get returns the current counter value. A missing key reads as 0: the
// window has not seen an increment yet.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("budget GET %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget GET %s parse: %w", key, err)
	}
	return val, nil
}

// ttlForKey picks retention by period. Keys follow the pattern
// tunex:budget:{scope}:daily:... or :monthly:...
func ttlForKey(key string) time.Duration {
	if strings.Contains(key, ":daily:") {
		return dailyTTL
	}
	return monthTTL
}
