package param

import (
	"fmt"
	"math"
	"math/rand"
	"regexp"
)

// Kind is the sampling domain of a parameter.
type Kind string

// Parameter kind constants.
const (
	// Choice is an explicit ordered list of values.
	Choice Kind = "choice"
	// Uniform is a continuous range sampled uniformly.
	Uniform Kind = "uniform"
	// LogUniform is a continuous range sampled uniformly in log space.
	LogUniform Kind = "log_uniform"
	// IntRange is an integer range with a fixed step.
	IntRange Kind = "int"
)

// Parameter limits.
const (
	MaxNameLength   = 64
	MaxChoiceValues = 4096
)

var (
	nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// Reserved for trial metadata fields in exports and result tables.
	reservedNames = map[string]bool{
		"id": true, "study": true, "score": true, "status": true,
	}
)

// Param is an immutable value object describing one hyperparameter:
// its name, kind, and valid domain. Validation happens here, at
// construction time, never during training.
type Param struct {
	name   string
	kind   Kind
	values []Value // choice
	min    float64 // uniform / log_uniform
	max    float64
	low    int64 // int range
	high   int64
	step   int64
}

// NewChoice validates and creates a choice parameter.
// Values must be non-empty, at most MaxChoiceValues, and share one kind.
// A single value is a legal constant.
func NewChoice(name string, values []Value) (Param, error) {
	if err := validateName(name); err != nil {
		return Param{}, err
	}
	if len(values) == 0 {
		return Param{}, fmt.Errorf("parameter %q: choice requires at least one value", name)
	}
	if len(values) > MaxChoiceValues {
		return Param{}, fmt.Errorf("parameter %q: too many choice values (max %d)", name, MaxChoiceValues)
	}
	kind := values[0].Kind()
	for i, v := range values {
		if v.Kind() != kind {
			return Param{}, fmt.Errorf(
				"parameter %q: mixed value kinds (%s at 0, %s at %d)", name, kind, v.Kind(), i,
			)
		}
	}
	vals := make([]Value, len(values))
	copy(vals, values)
	return Param{name: name, kind: Choice, values: vals}, nil
}

// NewUniform validates and creates a continuous uniform parameter.
func NewUniform(name string, min, max float64) (Param, error) {
	if err := validateName(name); err != nil {
		return Param{}, err
	}
	if err := validateRange(name, min, max); err != nil {
		return Param{}, err
	}
	return Param{name: name, kind: Uniform, min: min, max: max}, nil
}

// NewLogUniform validates and creates a log-uniform parameter.
// Both bounds must be positive.
func NewLogUniform(name string, min, max float64) (Param, error) {
	if err := validateName(name); err != nil {
		return Param{}, err
	}
	if err := validateRange(name, min, max); err != nil {
		return Param{}, err
	}
	if min <= 0 {
		return Param{}, fmt.Errorf("parameter %q: log_uniform requires min > 0, got %g", name, min)
	}
	return Param{name: name, kind: LogUniform, min: min, max: max}, nil
}

// NewInt validates and creates an integer range parameter.
// step must be >= 1; pass 1 for a dense range.
func NewInt(name string, low, high, step int64) (Param, error) {
	if err := validateName(name); err != nil {
		return Param{}, err
	}
	if low > high {
		return Param{}, fmt.Errorf("parameter %q: int range low %d > high %d", name, low, high)
	}
	if step < 1 {
		return Param{}, fmt.Errorf("parameter %q: int range step must be >= 1, got %d", name, step)
	}
	return Param{name: name, kind: IntRange, low: low, high: high, step: step}, nil
}

// Reconstruct creates a Param without validation (storage hydration).
func Reconstruct(name string, kind Kind, values []Value, min, max float64, low, high, step int64) Param {
	return Param{
		name: name, kind: kind, values: values,
		min: min, max: max, low: low, high: high, step: step,
	}
}

// Name returns the parameter name.
func (p Param) Name() string { return p.name }

// Kind returns the parameter kind.
func (p Param) Kind() Kind { return p.kind }

// Values returns a copy of the choice value list (nil for other kinds).
func (p Param) Values() []Value {
	if p.values == nil {
		return nil
	}
	vals := make([]Value, len(p.values))
	copy(vals, p.values)
	return vals
}

// Bounds returns the continuous range bounds (uniform and log_uniform).
func (p Param) Bounds() (min, max float64) { return p.min, p.max }

// IntBounds returns the integer range bounds and step.
func (p Param) IntBounds() (low, high, step int64) { return p.low, p.high, p.step }

// Enumerable reports whether the parameter has a finite grid of values.
func (p Param) Enumerable() bool {
	return p.kind == Choice || p.kind == IntRange
}

// GridSize returns the number of grid values and whether the parameter
// is enumerable at all.
func (p Param) GridSize() (uint64, bool) {
	switch p.kind {
	case Choice:
		return uint64(len(p.values)), true
	case IntRange:
		return uint64((p.high-p.low)/p.step) + 1, true
	default:
		return 0, false
	}
}

// ValueAt returns the i-th grid value without materializing the grid.
// Only valid for enumerable parameters with i < GridSize().
func (p Param) ValueAt(i uint64) Value {
	switch p.kind {
	case Choice:
		return p.values[i]
	case IntRange:
		return Int(p.low + int64(i)*p.step)
	default:
		return Value{}
	}
}

// Sample draws one value from the parameter's domain using the given source.
func (p Param) Sample(rng *rand.Rand) Value {
	switch p.kind {
	case Choice:
		return p.values[rng.Intn(len(p.values))]
	case Uniform:
		return Float(p.min + rng.Float64()*(p.max-p.min))
	case LogUniform:
		lo, hi := math.Log(p.min), math.Log(p.max)
		return Float(math.Exp(lo + rng.Float64()*(hi-lo)))
	case IntRange:
		steps := (p.high-p.low)/p.step + 1
		return Int(p.low + rng.Int63n(steps)*p.step)
	default:
		return Value{}
	}
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("parameter name is required")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("parameter name %q too long (max %d)", name, MaxNameLength)
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("parameter name %q must be alphanumeric with underscores and hyphens", name)
	}
	if reservedNames[name] {
		return fmt.Errorf("parameter name %q is reserved", name)
	}
	return nil
}

func validateRange(name string, min, max float64) error {
	if math.IsNaN(min) || math.IsInf(min, 0) || math.IsNaN(max) || math.IsInf(max, 0) {
		return fmt.Errorf("parameter %q: range bounds must be finite", name)
	}
	if min > max {
		return fmt.Errorf("parameter %q: range min %g > max %g", name, min, max)
	}
	return nil
}
