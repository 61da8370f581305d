// Package memory implements db.Store on process-local maps. It backs
// the SDK's zero-configuration mode and tests; semantics follow the
// Redis driver closely enough that repositories cannot tell them
// apart, down to rank-based sorted set ranges and EXPIRE NX counter
// windows.
package memory

import (
	"context"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/kailas-cloud/tunex/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

type counterEntry struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

// Store is an in-memory db.Store. All operations are safe for
// concurrent use.
type Store struct {
	mu       sync.RWMutex
	hashes   map[string]map[string]string
	counters map[string]counterEntry
	json     map[string][]byte
	zsets    map[string]map[string]float64
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		hashes:   make(map[string]map[string]string),
		counters: make(map[string]counterEntry),
		json:     make(map[string][]byte),
		zsets:    make(map[string]map[string]float64),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close releases nothing; it exists to satisfy db.Store.
func (s *Store) Close() {}

// WaitForReady returns immediately; the store is always ready.
func (s *Store) WaitForReady(context.Context, time.Duration) error { return nil }

// --- hash operations ---

// HSet sets hash fields.
func (s *Store) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

// HGetAll returns a copy of all fields of a hash. Missing keys yield
// an empty map, mirroring Redis.
func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.hashes[key]))
	for k, v := range s.hashes[key] {
		out[k] = v
	}
	return out, nil
}

// HGetAllMulti fetches all fields for multiple hashes.
func (s *Store) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	out := make([]map[string]string, len(keys))
	for i, key := range keys {
		m, err := s.HGetAll(ctx, key)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// Del deletes a key from every keyspace.
func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.hashes, key)
	delete(s.counters, key)
	delete(s.json, key)
	delete(s.zsets, key)
	return nil
}

// Exists checks if a key exists in any keyspace.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.existsLocked(key), nil
}

func (s *Store) existsLocked(key string) bool {
	if _, ok := s.hashes[key]; ok {
		return true
	}
	if e, ok := s.counters[key]; ok && !expired(e) {
		return true
	}
	if _, ok := s.json[key]; ok {
		return true
	}
	if _, ok := s.zsets[key]; ok {
		return true
	}
	return false
}

// Scan returns all live keys matching a glob pattern, sorted for
// deterministic iteration.
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	collect := func(key string) {
		if seen[key] {
			return
		}
		if ok, _ := path.Match(pattern, key); ok {
			seen[key] = true
		}
	}
	for k := range s.hashes {
		collect(k)
	}
	for k, e := range s.counters {
		if !expired(e) {
			collect(k)
		}
	}
	for k := range s.json {
		collect(k)
	}
	for k := range s.zsets {
		collect(k)
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// --- counter operations ---

// Get retrieves a raw counter value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.counters[key]
	if !ok || expired(e) {
		return nil, db.ErrKeyNotFound
	}
	out := make([]byte, len(e.data))
	copy(out, e.data)
	return out, nil
}

// IncrBy atomically increments a counter. Missing or expired keys
// count from zero, like Redis INCRBY.
func (s *Store) IncrBy(_ context.Context, key string, val int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	e, ok := s.counters[key]
	if ok && !expired(e) {
		parsed, err := strconv.ParseInt(string(e.data), 10, 64)
		if err != nil {
			return &db.Error{Op: db.OpIncrBy, Err: err}
		}
		current = parsed
	} else {
		e = counterEntry{}
	}
	e.data = []byte(strconv.FormatInt(current+val, 10))
	s.counters[key] = e
	return nil
}

// Expire sets TTL on a counter. When nx=true, sets TTL only if the key
// has no expiry yet (EXPIRE NX).
func (s *Store) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.counters[key]
	if !ok || expired(e) {
		return nil
	}
	if nx && !e.expiresAt.IsZero() {
		return nil
	}
	e.expiresAt = time.Now().Add(ttl)
	s.counters[key] = e
	return nil
}

// --- json operations ---

// JSONSetDoc stores a whole JSON document at the given key.
func (s *Store) JSONSetDoc(_ context.Context, key string, doc []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(doc))
	copy(cp, doc)
	s.json[key] = cp
	return nil
}

// JSONGetDoc retrieves the whole document stored at key.
func (s *Store) JSONGetDoc(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.json[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

// --- zset operations ---

// ZAdd adds or updates a member with the given score.
func (s *Store) ZAdd(_ context.Context, key, member string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	z, ok := s.zsets[key]
	if !ok {
		z = make(map[string]float64)
		s.zsets[key] = z
	}
	z[member] = score
	return nil
}

// ZRange returns members by rank, with scores.
func (s *Store) ZRange(_ context.Context, key string, start, stop int64, rev bool) ([]db.ZMember, error) {
	s.mu.RLock()
	members := make([]db.ZMember, 0, len(s.zsets[key]))
	for m, score := range s.zsets[key] {
		members = append(members, db.ZMember{Member: m, Score: score})
	}
	s.mu.RUnlock()

	sort.Slice(members, func(i, j int) bool {
		if members[i].Score != members[j].Score {
			return members[i].Score < members[j].Score
		}
		return members[i].Member < members[j].Member
	})
	if rev {
		for i, j := 0, len(members)-1; i < j; i, j = i+1, j-1 {
			members[i], members[j] = members[j], members[i]
		}
	}

	n := int64(len(members))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if start >= n || stop < start {
		return []db.ZMember{}, nil
	}
	if stop >= n {
		stop = n - 1
	}
	return members[start : stop+1], nil
}

// ZCard returns the cardinality of a sorted set.
func (s *Store) ZCard(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.zsets[key])), nil
}

func expired(e counterEntry) bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}
