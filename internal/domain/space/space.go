// Package space defines the hyperparameter search space aggregate:
// an ordered, named set of parameter definitions plus the candidate
// generators (exhaustive grid cursor and seeded random sampler) that
// enumerate assignments over it.
package space

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/kailas-cloud/tunex/internal/domain/space/param"
)

// Validation limits.
const (
	MaxNameLength = 64
	MaxParams     = 64
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// reservedNames would collide with the storage key layout.
var reservedNames = map[string]bool{
	"study":  true,
	"trial":  true,
	"budget": true,
	"usage":  true,
	"sweep":  true,
}

// Space is an immutable, ordered collection of parameter definitions.
// Order is significant: grid enumeration varies the last parameter
// fastest, and candidate ordinals are defined relative to it.
type Space struct {
	name   string
	params []param.Param
}

// New validates the name and parameter set and creates a Space.
func New(name string, params []param.Param) (Space, error) {
	if name == "" {
		return Space{}, errors.New("space name is required")
	}
	if len(name) > MaxNameLength {
		return Space{}, fmt.Errorf("space name exceeds %d characters", MaxNameLength)
	}
	if !nameRegex.MatchString(name) {
		return Space{}, errors.New("space name must contain only letters, digits, underscores and hyphens")
	}
	if reservedNames[name] {
		return Space{}, fmt.Errorf("space name %q is reserved", name)
	}
	if len(params) == 0 {
		return Space{}, errors.New("space requires at least one parameter")
	}
	if len(params) > MaxParams {
		return Space{}, fmt.Errorf("space exceeds %d parameters", MaxParams)
	}

	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if seen[p.Name()] {
			return Space{}, fmt.Errorf("duplicate parameter name %q", p.Name())
		}
		seen[p.Name()] = true
	}

	cp := make([]param.Param, len(params))
	copy(cp, params)

	return Space{name: name, params: cp}, nil
}

// Reconstruct restores a Space from storage without validation.
func Reconstruct(name string, params []param.Param) Space {
	cp := make([]param.Param, len(params))
	copy(cp, params)
	return Space{name: name, params: cp}
}

// Name returns the space name.
func (s Space) Name() string { return s.name }

// Params returns a copy of the ordered parameter definitions.
func (s Space) Params() []param.Param {
	cp := make([]param.Param, len(s.params))
	copy(cp, s.params)
	return cp
}

// Len returns the number of parameters.
func (s Space) Len() int { return len(s.params) }

// Param returns the parameter with the given name.
func (s Space) Param(name string) (param.Param, bool) {
	for _, p := range s.params {
		if p.Name() == name {
			return p, true
		}
	}
	return param.Param{}, false
}

// Enumerable reports whether every parameter has a finite set of
// values, i.e. whether the space supports grid enumeration.
func (s Space) Enumerable() bool {
	for _, p := range s.params {
		if !p.Enumerable() {
			return false
		}
	}
	return true
}

// Grid returns a cursor over the full cartesian product of the space.
// It fails when any parameter is continuous or when the product size
// overflows uint64.
func (s Space) Grid() (*Cursor, error) {
	sizes := make([]uint64, len(s.params))
	total := uint64(1)
	for i, p := range s.params {
		n, ok := p.GridSize()
		if !ok {
			return nil, fmt.Errorf("parameter %q is continuous and cannot be enumerated", p.Name())
		}
		if n == 0 {
			return nil, fmt.Errorf("parameter %q has no values", p.Name())
		}
		if total > maxTotal/n {
			return nil, errors.New("grid size overflows uint64")
		}
		total *= n
		sizes[i] = n
	}
	return &Cursor{space: s, sizes: sizes, total: total}, nil
}

// NewSampler returns a random sampler over the space. A zero seed
// derives one from the clock; any other value makes draws reproducible.
func (s Space) NewSampler(seed int64) *Sampler {
	return newSampler(s, seed)
}
