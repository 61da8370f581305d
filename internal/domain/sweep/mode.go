// Package sweep defines search-run value objects: the candidate
// generation mode, the optimization objective, and the aggregated
// result of a finished run.
package sweep

// Mode selects how candidates are generated.
type Mode string

// Search modes.
const (
	ModeGrid   Mode = "grid"   // exhaustive cartesian product
	ModeRandom Mode = "random" // fixed number of seeded random draws
)

// IsValid reports whether the mode is supported.
func (m Mode) IsValid() bool {
	return m == ModeGrid || m == ModeRandom
}

// Goal is the optimization direction.
type Goal string

// Optimization directions.
const (
	GoalMaximize Goal = "maximize"
	GoalMinimize Goal = "minimize"
)

// IsValid reports whether the goal is supported.
func (g Goal) IsValid() bool {
	return g == GoalMaximize || g == GoalMinimize
}
