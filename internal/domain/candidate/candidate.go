// Package candidate defines a single hyperparameter assignment drawn
// from a search space.
package candidate

import (
	"sort"
	"strings"

	"github.com/kailas-cloud/tunex/internal/domain/space/param"
)

// Candidate is an immutable assignment of one concrete value per
// parameter, tagged with the ordinal of its position in the generation
// sequence (grid index or draw number).
type Candidate struct {
	ordinal uint64
	values  map[string]param.Value
}

// New creates a candidate. The value map is cloned so later mutation
// of the caller's map cannot leak in.
func New(ordinal uint64, values map[string]param.Value) Candidate {
	cp := make(map[string]param.Value, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return Candidate{ordinal: ordinal, values: cp}
}

// Ordinal returns the candidate's position in its generation sequence.
func (c Candidate) Ordinal() uint64 { return c.ordinal }

// Value returns the assignment for one parameter.
func (c Candidate) Value(name string) (param.Value, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Values returns a copy of the full assignment.
func (c Candidate) Values() map[string]param.Value {
	cp := make(map[string]param.Value, len(c.values))
	for k, v := range c.values {
		cp[k] = v
	}
	return cp
}

// Names returns the parameter names in lexicographic order.
func (c Candidate) Names() []string {
	names := make([]string, 0, len(c.values))
	for k := range c.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of assigned parameters.
func (c Candidate) Len() int { return len(c.values) }

// Fingerprint renders the assignment as "name=value" pairs joined by
// commas, names sorted. Two candidates with equal assignments produce
// the same fingerprint regardless of ordinal, which makes it usable as
// a deduplication and diagnostics key.
func (c Candidate) Fingerprint() string {
	var b strings.Builder
	for i, name := range c.Names() {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(c.values[name].String())
	}
	return b.String()
}
