package space

import (
	"math/rand"
	"time"

	"github.com/kailas-cloud/tunex/internal/domain/candidate"
	"github.com/kailas-cloud/tunex/internal/domain/space/param"
)

// Sampler draws independent random candidates from a space. Each
// sampler owns its generator, so runs never touch global rand state
// and a fixed seed reproduces the exact draw sequence.
//
// A Sampler is not safe for concurrent use.
type Sampler struct {
	space Space
	rng   *rand.Rand
	seed  int64
	next  uint64
}

func newSampler(s Space, seed int64) *Sampler {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Sampler{
		space: s,
		rng:   rand.New(rand.NewSource(seed)), //nolint:gosec // non-cryptographic sampling
		seed:  seed,
	}
}

// Seed returns the effective seed, useful for logging reproducible runs.
func (s *Sampler) Seed() int64 { return s.seed }

// Next draws one candidate. Ordinals count draws from zero.
func (s *Sampler) Next() candidate.Candidate {
	values := make(map[string]param.Value, len(s.space.params))
	for _, p := range s.space.params {
		values[p.Name()] = p.Sample(s.rng)
	}
	cand := candidate.New(s.next, values)
	s.next++
	return cand
}

// Draw returns n independent candidates.
func (s *Sampler) Draw(n int) []candidate.Candidate {
	out := make([]candidate.Candidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.Next())
	}
	return out
}
