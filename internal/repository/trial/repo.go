// Package trial persists trial records. Each trial is a hash keyed by
// id, its checkpoint history a JSON document next to it. Two sorted
// sets per study index the trials: one by candidate ordinal for
// ordered listing, one by score for the leaderboard.
package trial

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/tunex/internal/db"
	"github.com/kailas-cloud/tunex/internal/domain"
	domtrial "github.com/kailas-cloud/tunex/internal/domain/trial"
)

// store is the consumer interface for trial records (ISP).
//
//nolint:interfacebloat // trial repo needs hash + json + sorted set operations
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	JSONSetDoc(ctx context.Context, key string, doc []byte) error
	JSONGetDoc(ctx context.Context, key string) ([]byte, error)
	ZAdd(ctx context.Context, key, member string, score float64) error
	ZRange(ctx context.Context, key string, start, stop int64, rev bool) ([]db.ZMember, error)
	ZCard(ctx context.Context, key string) (int64, error)
}

// Repo implements usecase/trial.Repository.
type Repo struct {
	store store
}

// New creates a trial repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Create stores a fresh trial and indexes it by candidate ordinal.
func (r *Repo) Create(ctx context.Context, t domtrial.Trial) error {
	hashData, err := trialToHash(t)
	if err != nil {
		return err
	}
	if err := r.store.HSet(ctx, trialKey(t.ID()), hashData); err != nil {
		return fmt.Errorf("hset trial %s: %w", t.ID(), err)
	}
	if err := r.store.ZAdd(ctx, trialsKey(t.Study()), t.ID(), float64(t.Candidate().Ordinal())); err != nil {
		return fmt.Errorf("zadd trial index %s: %w", t.ID(), err)
	}
	return nil
}

// Update persists a trial transition, guarded by the revision counter.
// Scored trials are published to the study leaderboard; the checkpoint
// history is written as a JSON document once it is non-empty.
func (r *Repo) Update(ctx context.Context, t domtrial.Trial) error {
	current, err := r.store.HGetAll(ctx, trialKey(t.ID()))
	if err != nil {
		return fmt.Errorf("hgetall trial %s: %w", t.ID(), err)
	}
	if len(current) == 0 {
		return domain.ErrTrialNotFound
	}
	if stored, err := strconv.Atoi(current["revision"]); err == nil && stored >= t.Revision() {
		return domain.NewRevisionConflict(stored)
	}

	hashData, err := trialToHash(t)
	if err != nil {
		return err
	}
	if err := r.store.HSet(ctx, trialKey(t.ID()), hashData); err != nil {
		return fmt.Errorf("hset trial %s: %w", t.ID(), err)
	}

	if history := t.History(); len(history) > 0 {
		data, err := json.Marshal(history)
		if err != nil {
			return fmt.Errorf("marshal history: %w", err)
		}
		if err := r.store.JSONSetDoc(ctx, historyKey(t.ID()), data); err != nil {
			return fmt.Errorf("json.set history %s: %w", t.ID(), err)
		}
	}

	if t.Status() == domtrial.StatusScored {
		if err := r.store.ZAdd(ctx, leaderboardKey(t.Study()), t.ID(), t.Score()); err != nil {
			return fmt.Errorf("zadd leaderboard %s: %w", t.ID(), err)
		}
	}
	return nil
}

// Get retrieves a trial by id, including its checkpoint history.
func (r *Repo) Get(ctx context.Context, id string) (domtrial.Trial, error) {
	m, err := r.store.HGetAll(ctx, trialKey(id))
	if err != nil {
		return domtrial.Trial{}, fmt.Errorf("hgetall trial %s: %w", id, err)
	}
	if len(m) == 0 {
		return domtrial.Trial{}, domain.ErrTrialNotFound
	}

	history, err := r.loadHistory(ctx, id)
	if err != nil {
		return domtrial.Trial{}, err
	}
	return trialFromHash(m, history)
}

// loadHistory reads the checkpoint history document. A missing key is
// an empty history, not an error: pending trials have none yet.
func (r *Repo) loadHistory(ctx context.Context, id string) ([]float64, error) {
	raw, err := r.store.JSONGetDoc(ctx, historyKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("json.get history %s: %w", id, err)
	}

	var history []float64
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("unmarshal history %s: %w", id, err)
	}
	return history, nil
}

// ListByStudy returns trials in candidate order with cursor-based
// pagination. Histories are not loaded; Get fetches them on demand.
func (r *Repo) ListByStudy(ctx context.Context, study, cursor string, limit int) (
	[]domtrial.Trial, string, error,
) {
	if limit <= 0 {
		limit = 20
	}

	offset := int64(0)
	if cursor != "" {
		parsed, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, "", fmt.Errorf("cursor %q: %w: %w", cursor, domain.ErrInvalidCursor, err)
		}
		if parsed < 0 {
			return nil, "", fmt.Errorf("cursor %q: %w: negative offset", cursor, domain.ErrInvalidCursor)
		}
		offset = parsed
	}

	fetchCount := int64(limit) + 1
	members, err := r.store.ZRange(ctx, trialsKey(study), offset, offset+fetchCount-1, false)
	if err != nil {
		return nil, "", fmt.Errorf("zrange trials %s: %w", study, err)
	}
	if len(members) == 0 {
		return nil, "", nil
	}

	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = trialKey(m.Member)
	}
	results, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, "", fmt.Errorf("hgetall multi trials %s: %w", study, err)
	}

	trials := make([]domtrial.Trial, 0, limit)
	for i, m := range results {
		if i >= limit {
			break
		}
		if len(m) == 0 {
			continue
		}
		t, err := trialFromHash(m, nil)
		if err != nil {
			return nil, "", fmt.Errorf("parse trial %s: %w", keys[i], err)
		}
		trials = append(trials, t)
	}

	var nextCursor string
	if len(members) > limit {
		nextCursor = strconv.FormatInt(offset+int64(limit), 10)
	}
	return trials, nextCursor, nil
}

// Leaderboard returns the top scored trials. With rev=true the highest
// scores come first (maximize); otherwise the lowest (minimize).
func (r *Repo) Leaderboard(ctx context.Context, study string, rev bool, limit int) ([]domtrial.Trial, error) {
	if limit <= 0 {
		limit = 10
	}

	members, err := r.store.ZRange(ctx, leaderboardKey(study), 0, int64(limit)-1, rev)
	if err != nil {
		return nil, fmt.Errorf("zrange leaderboard %s: %w", study, err)
	}
	if len(members) == 0 {
		return []domtrial.Trial{}, nil
	}

	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = trialKey(m.Member)
	}
	results, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi leaderboard %s: %w", study, err)
	}

	trials := make([]domtrial.Trial, 0, len(results))
	for i, m := range results {
		if len(m) == 0 {
			continue
		}
		t, err := trialFromHash(m, nil)
		if err != nil {
			return nil, fmt.Errorf("parse trial %s: %w", keys[i], err)
		}
		trials = append(trials, t)
	}
	return trials, nil
}

// CountByStudy returns the number of trials recorded for a study.
func (r *Repo) CountByStudy(ctx context.Context, study string) (int, error) {
	n, err := r.store.ZCard(ctx, trialsKey(study))
	if err != nil {
		return 0, fmt.Errorf("zcard trials %s: %w", study, err)
	}
	return int(n), nil
}

// DeleteByStudy removes every trial of a study along with both
// indexes. Individual delete failures are joined so one broken key
// does not leave the rest behind.
func (r *Repo) DeleteByStudy(ctx context.Context, study string) (int, error) {
	members, err := r.store.ZRange(ctx, trialsKey(study), 0, -1, false)
	if err != nil {
		return 0, fmt.Errorf("zrange trials %s: %w", study, err)
	}

	var errs []error
	deleted := 0
	for _, m := range members {
		if err := r.store.Del(ctx, trialKey(m.Member)); err != nil {
			errs = append(errs, fmt.Errorf("del trial %s: %w", m.Member, err))
			continue
		}
		if err := r.store.Del(ctx, historyKey(m.Member)); err != nil {
			errs = append(errs, fmt.Errorf("del history %s: %w", m.Member, err))
			continue
		}
		deleted++
	}

	if err := r.store.Del(ctx, trialsKey(study)); err != nil {
		errs = append(errs, fmt.Errorf("del trial index %s: %w", study, err))
	}
	if err := r.store.Del(ctx, leaderboardKey(study)); err != nil {
		errs = append(errs, fmt.Errorf("del leaderboard %s: %w", study, err))
	}
	return deleted, errors.Join(errs...)
}

// Valkey key patterns: tunex:trial:{id}, tunex:trial:{id}:history,
// tunex:study:{name}:trials, tunex:study:{name}:leaderboard

func trialKey(id string) string {
	return fmt.Sprintf("%strial:%s", domain.KeyPrefix, id)
}

func historyKey(id string) string {
	return fmt.Sprintf("%strial:%s:history", domain.KeyPrefix, id)
}

func trialsKey(study string) string {
	return fmt.Sprintf("%sstudy:%s:trials", domain.KeyPrefix, study)
}

func leaderboardKey(study string) string {
	return fmt.Sprintf("%sstudy:%s:leaderboard", domain.KeyPrefix, study)
}
