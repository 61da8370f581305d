package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	HashStore
	JSONStore
	CounterStore
	ZSetStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore provides hash-based key-value operations. Studies and
// trials are stored as flat hashes; list endpoints hydrate pages with
// the pipelined multi-read.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// JSONStore stores whole JSON documents, one per key. Trial histories
// are written and replaced atomically, so no sub-path operations are
// exposed.
type JSONStore interface {
	JSONSetDoc(ctx context.Context, key string, doc []byte) error
	JSONGetDoc(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// CounterStore provides the plain-keyspace integer counters that
// budget windows are built on. Values are decimal strings; callers
// parse them. Expire with nx anchors a window to its first increment
// instead of sliding it on every write.
type CounterStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// ZMember is one sorted-set entry.
type ZMember struct {
	Member string
	Score  float64
}

// ZSetStore provides sorted-set operations, used for leaderboards and
// ordinal-ordered trial indexes.
type ZSetStore interface {
	ZAdd(ctx context.Context, key, member string, score float64) error
	// ZRange returns members by rank. start and stop follow Redis
	// semantics (inclusive, negatives count from the end); rev walks
	// from the highest score down.
	ZRange(ctx context.Context, key string, start, stop int64, rev bool) ([]ZMember, error)
	ZCard(ctx context.Context, key string) (int64, error)
}
