package redis

import (
	"context"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/tunex/internal/db"
)

// ZAdd adds or updates a member with the given score.
func (s *Store) ZAdd(ctx context.Context, key, member string, score float64) error {
	cmd := s.b().Zadd().Key(key).ScoreMember().ScoreMember(score, member).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZAdd, Err: err}
	}
	return nil
}

// ZRange returns members by rank, with scores. rev walks from the
// highest score down.
func (s *Store) ZRange(ctx context.Context, key string, start, stop int64, rev bool) ([]db.ZMember, error) {
	base := s.b().Zrange().Key(key).
		Min(strconv.FormatInt(start, 10)).
		Max(strconv.FormatInt(stop, 10))

	var cmd rueidis.Completed
	if rev {
		cmd = base.Rev().Withscores().Build()
	} else {
		cmd = base.Withscores().Build()
	}

	scores, err := s.do(ctx, cmd).AsZScores()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRange, Err: err}
	}

	out := make([]db.ZMember, len(scores))
	for i, z := range scores {
		out[i] = db.ZMember{Member: z.Member, Score: z.Score}
	}
	return out, nil
}

// ZCard returns the cardinality of a sorted set.
func (s *Store) ZCard(ctx context.Context, key string) (int64, error) {
	cmd := s.b().Zcard().Key(key).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpZCard, Err: err}
	}
	return n, nil
}
