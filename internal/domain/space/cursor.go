package space

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/tunex/internal/domain/candidate"
	"github.com/kailas-cloud/tunex/internal/domain/space/param"
)

const maxTotal = math.MaxUint64

// Cursor lazily enumerates the cartesian product of an enumerable
// space as a mixed-radix counter over parameter value indexes. The
// last parameter varies fastest. Candidates are materialized one at a
// time, so the full grid is never held in memory.
//
// A Cursor is not safe for concurrent use.
type Cursor struct {
	space Space
	sizes []uint64
	total uint64
	next  uint64
}

// Total returns the exact number of candidates in the grid.
func (c *Cursor) Total() uint64 { return c.total }

// Remaining returns how many candidates have not been produced yet.
func (c *Cursor) Remaining() uint64 { return c.total - c.next }

// Next produces the candidate at the current position and advances.
// It returns false once the grid is exhausted.
func (c *Cursor) Next() (candidate.Candidate, bool) {
	if c.next >= c.total {
		return candidate.Candidate{}, false
	}
	cand := c.at(c.next)
	c.next++
	return cand, true
}

// Seek positions the cursor so the next produced candidate has the
// given ordinal. Seeking to Total() parks the cursor at exhaustion,
// which supports resuming a finished run.
func (c *Cursor) Seek(ordinal uint64) error {
	if ordinal > c.total {
		return fmt.Errorf("ordinal %d out of range [0, %d]", ordinal, c.total)
	}
	c.next = ordinal
	return nil
}

// Reset rewinds the cursor to the first candidate.
func (c *Cursor) Reset() { c.next = 0 }

// at decodes an ordinal into a full assignment. Digits are extracted
// from the least significant position, which belongs to the last
// parameter.
func (c *Cursor) at(ordinal uint64) candidate.Candidate {
	values := make(map[string]param.Value, len(c.sizes))
	rem := ordinal
	for i := len(c.sizes) - 1; i >= 0; i-- {
		idx := rem % c.sizes[i]
		rem /= c.sizes[i]
		p := c.space.params[i]
		values[p.Name()] = p.ValueAt(idx)
	}
	return candidate.New(ordinal, values)
}
