package tunex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/tunex/internal/domain"
	"github.com/kailas-cloud/tunex/internal/domain/space/param"
	domstudy "github.com/kailas-cloud/tunex/internal/domain/study"
	domsweep "github.com/kailas-cloud/tunex/internal/domain/sweep"
	studyuc "github.com/kailas-cloud/tunex/internal/usecase/study"
)

// StudyService manages studies.
type StudyService struct {
	svc studyUseCase
	obs *observer
}

// Create declares a new study: a named search space plus an objective
// and an optional stopping policy.
func (s *StudyService) Create(
	ctx context.Context, name string, opts ...StudyOption,
) (_ StudyInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("study.create", start, err) }()

	cfg := &studyConfig{goal: GoalMaximize}
	for _, o := range opts {
		o(cfg)
	}

	params, err := toInternalParams(cfg.params)
	if err != nil {
		return StudyInfo{}, fmt.Errorf("create study: %w", err)
	}

	st, err := s.svc.Create(ctx, name, params, cfg.metric, domsweep.Goal(cfg.goal), toStoppingSpec(cfg.stopping))
	if err != nil {
		return StudyInfo{}, fmt.Errorf("create study: %w", err)
	}
	return fromInternalStudy(st), nil
}

// Ensure creates a study if it does not exist.
// If it already exists, returns its info.
func (s *StudyService) Ensure(
	ctx context.Context, name string, opts ...StudyOption,
) (_ StudyInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("study.ensure", start, err) }()

	cfg := &studyConfig{goal: GoalMaximize}
	for _, o := range opts {
		o(cfg)
	}

	params, err := toInternalParams(cfg.params)
	if err != nil {
		return StudyInfo{}, fmt.Errorf("ensure study: %w", err)
	}

	st, err := s.svc.Create(ctx, name, params, cfg.metric, domsweep.Goal(cfg.goal), toStoppingSpec(cfg.stopping))
	if err == nil {
		return fromInternalStudy(st), nil
	}
	if !errors.Is(err, domain.ErrStudyExists) {
		return StudyInfo{}, fmt.Errorf("ensure study: %w", err)
	}

	existing, err := s.svc.Get(ctx, name)
	if err != nil {
		return StudyInfo{}, fmt.Errorf("ensure study: %w", err)
	}
	return fromInternalStudy(existing), nil
}

// Get retrieves study metadata by name.
func (s *StudyService) Get(
	ctx context.Context, name string,
) (_ StudyInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("study.get", start, err) }()

	st, err := s.svc.Get(ctx, name)
	if err != nil {
		return StudyInfo{}, fmt.Errorf("get study: %w", err)
	}
	return fromInternalStudy(st), nil
}

// List returns studies ordered by creation time. Cursor is the opaque
// token from a previous page (empty for the first); limit 0 uses the
// service default.
func (s *StudyService) List(
	ctx context.Context, cursor string, limit int,
) (_ StudyListResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("study.list", start, err) }()

	studies, next, err := s.svc.List(ctx, cursor, limit)
	if err != nil {
		return StudyListResult{}, fmt.Errorf("list studies: %w", err)
	}

	infos := make([]StudyInfo, len(studies))
	for i, st := range studies {
		infos[i] = fromInternalStudy(st)
	}
	return StudyListResult{
		Studies:    infos,
		NextCursor: next,
		HasMore:    next != "",
	}, nil
}

// Delete removes a study along with its trials and leaderboard.
func (s *StudyService) Delete(
	ctx context.Context, name string,
) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("study.delete", start, err) }()

	if err = s.svc.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete study: %w", err)
	}
	return nil
}

func toInternalParams(specs []paramSpec) ([]param.Param, error) {
	out := make([]param.Param, len(specs))
	for i, spec := range specs {
		var err error
		out[i], err = toInternalParam(spec)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func toInternalParam(spec paramSpec) (param.Param, error) {
	switch spec.kind {
	case ParamChoice:
		values := make([]param.Value, len(spec.values))
		for i, raw := range spec.values {
			v, err := toValue(raw)
			if err != nil {
				return param.Param{}, fmt.Errorf("parameter %q: %w", spec.name, err)
			}
			values[i] = v
		}
		return param.NewChoice(spec.name, values)
	case ParamUniform:
		return param.NewUniform(spec.name, spec.min, spec.max)
	case ParamLogUniform:
		return param.NewLogUniform(spec.name, spec.min, spec.max)
	case ParamInt:
		return param.NewInt(spec.name, spec.low, spec.high, spec.step)
	default:
		return param.Param{}, fmt.Errorf("parameter %q: unknown kind %q", spec.name, spec.kind)
	}
}

func toStoppingSpec(p *StoppingPolicy) studyuc.StoppingSpec {
	if p == nil {
		return studyuc.StoppingSpec{}
	}
	return studyuc.StoppingSpec{
		Enabled:  true,
		Metric:   p.Metric,
		Window:   p.Window,
		Patience: p.Patience,
		MinDelta: p.MinDelta,
	}
}

func fromInternalStudy(st domstudy.Study) StudyInfo {
	domParams := st.Space().Params()
	params := make([]ParamInfo, len(domParams))
	for i, p := range domParams {
		params[i] = fromInternalParam(p)
	}

	info := StudyInfo{
		Name:      st.Name(),
		Params:    params,
		Metric:    st.Objective().Metric(),
		Goal:      Goal(st.Objective().Goal()),
		Revision:  st.Revision(),
		CreatedAt: st.CreatedAt(),
	}
	if pol := st.Policy(); pol.Enabled() {
		info.Stopping = &StoppingPolicy{
			Metric:   pol.Metric(),
			Window:   pol.Window(),
			Patience: pol.Patience(),
			MinDelta: pol.MinDelta(),
		}
	}
	return info
}

func fromInternalParam(p param.Param) ParamInfo {
	info := ParamInfo{
		Name: p.Name(),
		Kind: ParamKind(p.Kind()),
	}
	switch p.Kind() {
	case param.Choice:
		values := p.Values()
		info.Values = make([]any, len(values))
		for i, v := range values {
			info.Values[i] = fromValue(v)
		}
	case param.Uniform, param.LogUniform:
		info.Min, info.Max = p.Bounds()
	case param.IntRange:
		info.Low, info.High, info.Step = p.IntBounds()
	}
	return info
}
