package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/tunex/internal/db"
)

// JSONSetDoc stores a whole JSON document at the key's root.
func (s *Store) JSONSetDoc(ctx context.Context, key string, doc []byte) error {
	cmd := s.b().Arbitrary("JSON.SET").Keys(key).Args("$", string(doc)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpJSONSet, Err: err}
	}
	return nil
}

// JSONGetDoc retrieves the whole document stored at key. Reading
// without a path keeps the reply bare instead of array-wrapped.
func (s *Store) JSONGetDoc(ctx context.Context, key string) ([]byte, error) {
	cmd := s.b().Arbitrary("JSON.GET").Keys(key).Build()
	raw, err := s.do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpJSONGet, Err: err}
	}
	if raw == "" {
		return nil, db.ErrKeyNotFound
	}
	return []byte(raw), nil
}
