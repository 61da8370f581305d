package trial

import (
	"context"
	"testing"

	"github.com/kailas-cloud/tunex/internal/db"
	"github.com/kailas-cloud/tunex/internal/domain/candidate"
	"github.com/kailas-cloud/tunex/internal/domain/space/param"
	domtrial "github.com/kailas-cloud/tunex/internal/domain/trial"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn         func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	delFn          func(ctx context.Context, key string) error
	jsonSetFn      func(ctx context.Context, key string, doc []byte) error
	jsonGetFn      func(ctx context.Context, key string) ([]byte, error)
	zaddFn         func(ctx context.Context, key, member string, score float64) error
	zrangeFn       func(ctx context.Context, key string, start, stop int64, rev bool) ([]db.ZMember, error)
	zcardFn        func(ctx context.Context, key string) (int64, error)
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

func (m *mockStore) JSONSetDoc(ctx context.Context, key string, doc []byte) error {
	if m.jsonSetFn != nil {
		return m.jsonSetFn(ctx, key, doc)
	}
	return nil
}

func (m *mockStore) JSONGetDoc(ctx context.Context, key string) ([]byte, error) {
	if m.jsonGetFn != nil {
		return m.jsonGetFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) ZAdd(ctx context.Context, key, member string, score float64) error {
	if m.zaddFn != nil {
		return m.zaddFn(ctx, key, member, score)
	}
	return nil
}

func (m *mockStore) ZRange(ctx context.Context, key string, start, stop int64, rev bool) ([]db.ZMember, error) {
	if m.zrangeFn != nil {
		return m.zrangeFn(ctx, key, start, stop, rev)
	}
	return nil, nil
}

func (m *mockStore) ZCard(ctx context.Context, key string) (int64, error) {
	if m.zcardFn != nil {
		return m.zcardFn(ctx, key)
	}
	return 0, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms)
	return repo, ms
}

func testCandidate() candidate.Candidate {
	return candidate.New(7, map[string]param.Value{
		"lr":     param.Float(0.01),
		"layers": param.Int(4),
	})
}

func testTrial(t *testing.T, status domtrial.Status) domtrial.Trial {
	t.Helper()
	return domtrial.Reconstruct(
		"trial-1", "mnist-tune", testCandidate(), status,
		0.93, 3, []float64{0.80, 0.90, 0.93},
		1700000000000, 1700000060000, "", 3,
	)
}
