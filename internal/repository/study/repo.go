// Package study persists study definitions as hashes keyed by name.
package study

import (
	"context"
	"fmt"
	"sort"

	"github.com/kailas-cloud/tunex/internal/domain"
	domstudy "github.com/kailas-cloud/tunex/internal/domain/study"
)

// store is the consumer interface for study metadata (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase/study.Repository.
type Repo struct {
	store store
}

// New creates a study repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Create stores a study definition. Fails if a study with the same
// name already exists.
func (r *Repo) Create(ctx context.Context, st domstudy.Study) error {
	name := st.Name()
	key := metaKey(name)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return domain.ErrStudyExists
	}

	hashData, err := studyToHash(st)
	if err != nil {
		return err
	}
	if err := r.store.HSet(ctx, key, hashData); err != nil {
		return fmt.Errorf("hset study %s: %w", name, err)
	}
	return nil
}

// Get retrieves a study by name.
func (r *Repo) Get(ctx context.Context, name string) (domstudy.Study, error) {
	m, err := r.store.HGetAll(ctx, metaKey(name))
	if err != nil {
		return domstudy.Study{}, fmt.Errorf("hgetall study %s: %w", name, err)
	}
	if len(m) == 0 {
		return domstudy.Study{}, domain.ErrStudyNotFound
	}
	return studyFromHash(m)
}

// List returns all studies sorted by CreatedAt.
func (r *Repo) List(ctx context.Context) ([]domstudy.Study, error) {
	keys, err := r.store.Scan(ctx, metaKey("*"))
	if err != nil {
		return nil, fmt.Errorf("scan studies: %w", err)
	}
	if len(keys) == 0 {
		return []domstudy.Study{}, nil
	}

	results, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi studies: %w", err)
	}

	studies := make([]domstudy.Study, 0, len(results))
	for i, m := range results {
		if len(m) == 0 {
			continue
		}
		st, err := studyFromHash(m)
		if err != nil {
			return nil, fmt.Errorf("parse study %s: %w", keys[i], err)
		}
		studies = append(studies, st)
	}

	sort.Slice(studies, func(i, j int) bool {
		return studies[i].CreatedAt() < studies[j].CreatedAt()
	})

	return studies, nil
}

// Delete removes a study definition. Trial records are cleaned up
// separately by the trial repository.
func (r *Repo) Delete(ctx context.Context, name string) error {
	key := metaKey(name)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrStudyNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del study %s: %w", name, err)
	}
	return nil
}

// Valkey key pattern: tunex:study:{name}:meta

func metaKey(name string) string {
	return fmt.Sprintf("%sstudy:%s:meta", domain.KeyPrefix, name)
}
