package study

import (
	"context"
	"testing"

	"github.com/kailas-cloud/tunex/internal/domain/space"
	"github.com/kailas-cloud/tunex/internal/domain/space/param"
	"github.com/kailas-cloud/tunex/internal/domain/stopping"
	domstudy "github.com/kailas-cloud/tunex/internal/domain/study"
	"github.com/kailas-cloud/tunex/internal/domain/sweep"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn         func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	delFn          func(ctx context.Context, key string) error
	existsFn       func(ctx context.Context, key string) (bool, error)
	scanFn         func(ctx context.Context, pattern string) ([]string, error)
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return nil, nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms)
	return repo, ms
}

func testStudy(t *testing.T) domstudy.Study {
	t.Helper()
	lr, err := param.NewLogUniform("lr", 0.0001, 0.1)
	if err != nil {
		t.Fatalf("NewLogUniform() error = %v", err)
	}
	layers, err := param.NewInt("layers", 2, 8, 2)
	if err != nil {
		t.Fatalf("NewInt() error = %v", err)
	}
	opt, err := param.NewChoice("optimizer", []param.Value{
		param.String("adam"), param.String("sgd"),
	})
	if err != nil {
		t.Fatalf("NewChoice() error = %v", err)
	}
	sp := space.Reconstruct("mnist-tune", []param.Param{lr, layers, opt})
	obj := sweep.ReconstructObjective("accuracy", sweep.GoalMaximize)
	pol := stopping.Reconstruct("accuracy", 3, 5, 0.001, true)
	return domstudy.Reconstruct(sp, obj, pol, 1700000000000, 1)
}
