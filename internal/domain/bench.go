package domain

import (
	"context"
	"fmt"
	"math"

	"github.com/kailas-cloud/tunex/internal/domain/candidate"
)

// Surface is a scalar objective over a point in R^n. Benchmark
// surfaces are minimized: smaller is better.
type Surface func(p []float64) float64

// Sphere is sum(x_i^2), minimum 0 at the origin.
func Sphere(p []float64) float64 {
	var s float64
	for _, x := range p {
		s += x * x
	}
	return s
}

// Rosenbrock is the banana valley sum(100(x_{i+1}-x_i^2)^2 + (1-x_i)^2),
// minimum 0 at (1, ..., 1).
func Rosenbrock(p []float64) float64 {
	var s float64
	for i := 0; i+1 < len(p); i++ {
		a := p[i+1] - p[i]*p[i]
		b := 1 - p[i]
		s += 100*a*a + b*b
	}
	return s
}

// Rastrigin is 10n + sum(x_i^2 - 10cos(2*pi*x_i)), a highly multimodal
// surface with minimum 0 at the origin.
func Rastrigin(p []float64) float64 {
	s := 10 * float64(len(p))
	for _, x := range p {
		s += x*x - 10*math.Cos(2*math.Pi*x)
	}
	return s
}

// SurfaceByName resolves a benchmark surface from configuration.
func SurfaceByName(name string) (Surface, bool) {
	switch name {
	case "sphere":
		return Sphere, true
	case "rosenbrock":
		return Rosenbrock, true
	case "rastrigin":
		return Rastrigin, true
	}
	return nil, false
}

// Descent dynamics. Gradients are estimated by central differences and
// normalized, so step length is controlled entirely by the learning
// rate and the dynamics stay bounded for any surface.
const (
	descentInnerIters = 25
	descentGradEps    = 1e-6
	descentStart      = 2.0
)

// Candidate parameters read by the descent trainer.
const (
	ParamLearningRate = "lr"
	ParamMomentum     = "momentum"
)

// DescentTrainer simulates training on a benchmark surface with
// normalized gradient descent. The candidate's learning rate and
// momentum drive the dynamics, so sweeps over them produce the usual
// too-small/too-large score curves. Runs are fully deterministic.
//
// DescentTrainer implements both Trainer and Evaluator: the score of a
// checkpoint is the surface value at the current point (minimize).
type DescentTrainer struct {
	surface     Surface
	dims        int
	checkpoints int
}

// NewDescentTrainer creates a trainer over a surface. dims is the
// search dimensionality, checkpoints the model's iteration budget.
func NewDescentTrainer(surface Surface, dims, checkpoints int) (*DescentTrainer, error) {
	if surface == nil {
		return nil, fmt.Errorf("surface is required")
	}
	if dims < 1 {
		return nil, fmt.Errorf("dims must be positive, got %d", dims)
	}
	if checkpoints < 1 {
		return nil, fmt.Errorf("checkpoints must be positive, got %d", checkpoints)
	}
	return &DescentTrainer{surface: surface, dims: dims, checkpoints: checkpoints}, nil
}

// Fit reads the learning rate and momentum from the candidate and
// positions the model at the deterministic start point.
func (t *DescentTrainer) Fit(_ context.Context, cand candidate.Candidate) (Model, error) {
	lr := 0.1
	if v, ok := cand.Value(ParamLearningRate); ok {
		lr = v.Float()
	}
	if lr <= 0 || math.IsNaN(lr) || math.IsInf(lr, 0) {
		return nil, fmt.Errorf("learning rate must be a positive finite number, got %v", lr)
	}

	var momentum float64
	if v, ok := cand.Value(ParamMomentum); ok {
		momentum = v.Float()
	}
	if momentum < 0 || momentum >= 1 {
		return nil, fmt.Errorf("momentum must be in [0, 1), got %v", momentum)
	}

	point := make([]float64, t.dims)
	for i := range point {
		point[i] = descentStart
	}
	return &descentModel{
		surface:  t.surface,
		point:    point,
		velocity: make([]float64, t.dims),
		lr:       lr,
		momentum: momentum,
		budget:   t.checkpoints,
	}, nil
}

// Score returns the surface value at the model's current point.
func (t *DescentTrainer) Score(_ context.Context, m Model) (float64, error) {
	dm, ok := m.(*descentModel)
	if !ok {
		return 0, fmt.Errorf("model was not produced by this trainer")
	}
	return dm.surface(dm.point), nil
}

type descentModel struct {
	surface  Surface
	point    []float64
	velocity []float64
	lr       float64
	momentum float64
	budget   int
	step     int
}

func (m *descentModel) Step(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	for i := 0; i < descentInnerIters; i++ {
		m.descend()
	}
	m.step++
	return m.step >= m.budget, nil
}

func (m *descentModel) descend() {
	grad := make([]float64, len(m.point))
	var norm float64
	for i := range m.point {
		orig := m.point[i]
		m.point[i] = orig + descentGradEps
		hi := m.surface(m.point)
		m.point[i] = orig - descentGradEps
		lo := m.surface(m.point)
		m.point[i] = orig
		grad[i] = (hi - lo) / (2 * descentGradEps)
		norm += grad[i] * grad[i]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return
	}
	for i := range m.point {
		m.velocity[i] = m.momentum*m.velocity[i] - m.lr*grad[i]/norm
		m.point[i] += m.velocity[i]
	}
}
