package tunex

import (
	"context"
	"fmt"
)

// TypedStudy is a generic, schema-first study handle backed by a tunex
// Client. The search space is inferred from T's struct tags at
// construction time.
type TypedStudy[T any] struct {
	name   string
	client *Client
	meta   *spaceMeta
	opts   []StudyOption // metric, goal, stopping; applied after the tag-derived space
}

// NewStudy creates a typed study handle for the given study name.
// T must be a struct with tunex tags. The space is parsed once and
// cached. Options can still set the metric, goal and early stopping;
// the parameters come from the tags.
func NewStudy[T any](client *Client, name string, opts ...StudyOption) (*TypedStudy[T], error) {
	meta, err := parseSpace[T]()
	if err != nil {
		return nil, fmt.Errorf("new study %q: %w", name, err)
	}
	return &TypedStudy[T]{name: name, client: client, meta: meta, opts: opts}, nil
}

// Ensure creates the study if it does not exist (idempotent).
func (ts *TypedStudy[T]) Ensure(ctx context.Context) error {
	_, err := ts.client.Studies().Ensure(ctx, ts.name, ts.studyOptions()...)
	if err != nil {
		return fmt.Errorf("ensure %q: %w", ts.name, err)
	}
	return nil
}

// Delete removes the study and its trials.
func (ts *TypedStudy[T]) Delete(ctx context.Context) error {
	return ts.client.Studies().Delete(ctx, ts.name)
}

// Decode converts trial parameters back into a T.
func (ts *TypedStudy[T]) Decode(params Params) (T, error) {
	item, ok := ts.meta.fromParams(params).(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("decode: type assertion failed")
	}
	return item, nil
}

// TopEntry is a leaderboard row decoded into the study's config type.
type TopEntry[T any] struct {
	Rank    int
	Config  T
	Score   float64
	TrialID string
}

// Top returns the study leaderboard decoded into T.
func (ts *TypedStudy[T]) Top(ctx context.Context, limit int) ([]TopEntry[T], error) {
	entries, err := ts.client.Trials(ts.name).Leaderboard(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top %q: %w", ts.name, err)
	}
	top := make([]TopEntry[T], 0, len(entries))
	for _, e := range entries {
		cfg, err := ts.Decode(e.Params)
		if err != nil {
			return nil, fmt.Errorf("top %q: trial %s: %w", ts.name, e.TrialID, err)
		}
		top = append(top, TopEntry[T]{
			Rank:    e.Rank,
			Config:  cfg,
			Score:   e.Score,
			TrialID: e.TrialID,
		})
	}
	return top, nil
}

// Best returns the leaderboard winner decoded into T. ok is false when
// the study has no scored trials yet.
func (ts *TypedStudy[T]) Best(ctx context.Context) (T, bool, error) {
	var zero T
	top, err := ts.Top(ctx, 1)
	if err != nil {
		return zero, false, err
	}
	if len(top) == 0 {
		return zero, false, nil
	}
	return top[0].Config, true, nil
}

// Trials returns the untyped trial service for this study.
func (ts *TypedStudy[T]) Trials() *TrialService {
	return ts.client.Trials(ts.name)
}

// Sweep returns a fluent sweep builder for this study.
func (ts *TypedStudy[T]) Sweep() *SweepBuilder[T] {
	return &SweepBuilder[T]{study: ts}
}

func (ts *TypedStudy[T]) studyOptions() []StudyOption {
	return append(ts.meta.studyOptions(), ts.opts...)
}
