package study

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/tunex/internal/domain/space"
	"github.com/kailas-cloud/tunex/internal/domain/space/param"
	"github.com/kailas-cloud/tunex/internal/domain/stopping"
	domstudy "github.com/kailas-cloud/tunex/internal/domain/study"
	"github.com/kailas-cloud/tunex/internal/domain/sweep"
)

// paramRow is the JSON-serializable representation of a parameter for HSET.
// Choice values are stored as canonical strings plus their value kind so
// hydration restores the native type.
type paramRow struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	ValueKind string   `json:"value_kind,omitempty"`
	Values    []string `json:"values,omitempty"`
	Min       float64  `json:"min,omitempty"`
	Max       float64  `json:"max,omitempty"`
	Low       int64    `json:"low,omitempty"`
	High      int64    `json:"high,omitempty"`
	Step      int64    `json:"step,omitempty"`
}

// studyToHash converts a domain Study to a map for HSET.
func studyToHash(st domstudy.Study) (map[string]string, error) {
	params := st.Space().Params()
	rows := make([]paramRow, len(params))
	for i, p := range params {
		row := paramRow{Name: p.Name(), Kind: string(p.Kind())}
		switch p.Kind() {
		case param.Choice:
			vals := p.Values()
			row.ValueKind = string(vals[0].Kind())
			row.Values = make([]string, len(vals))
			for j, v := range vals {
				row.Values[j] = v.String()
			}
		case param.Uniform, param.LogUniform:
			row.Min, row.Max = p.Bounds()
		case param.IntRange:
			row.Low, row.High, row.Step = p.IntBounds()
		}
		rows[i] = row
	}
	paramsJSON, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	pol := st.Policy()
	return map[string]string{
		"name":           st.Name(),
		"params_json":    string(paramsJSON),
		"metric":         st.Objective().Metric(),
		"goal":           string(st.Objective().Goal()),
		"stop_metric":    pol.Metric(),
		"stop_window":    strconv.Itoa(pol.Window()),
		"stop_patience":  strconv.Itoa(pol.Patience()),
		"stop_min_delta": strconv.FormatFloat(pol.MinDelta(), 'g', -1, 64),
		"stop_enabled":   strconv.FormatBool(pol.Enabled()),
		"created_at":     strconv.FormatInt(st.CreatedAt(), 10),
		"revision":       strconv.Itoa(st.Revision()),
	}, nil
}

// studyFromHash hydrates a domain Study from an HGETALL result map.
func studyFromHash(m map[string]string) (domstudy.Study, error) {
	name := m["name"]

	createdAt, err := strconv.ParseInt(m["created_at"], 10, 64)
	if err != nil {
		return domstudy.Study{}, fmt.Errorf("invalid created_at: %w", err)
	}

	var rows []paramRow
	if pj := m["params_json"]; pj != "" {
		if err := json.Unmarshal([]byte(pj), &rows); err != nil {
			return domstudy.Study{}, fmt.Errorf("unmarshal params: %w", err)
		}
	}

	params := make([]param.Param, len(rows))
	for i, row := range rows {
		p, err := paramFromRow(row)
		if err != nil {
			return domstudy.Study{}, err
		}
		params[i] = p
	}

	revision := 1
	if revStr, ok := m["revision"]; ok && revStr != "" {
		if parsed, err := strconv.Atoi(revStr); err == nil {
			revision = parsed
		}
	}

	obj := sweep.ReconstructObjective(m["metric"], sweep.Goal(m["goal"]))
	pol, err := policyFromHash(m)
	if err != nil {
		return domstudy.Study{}, err
	}

	sp := space.Reconstruct(name, params)
	return domstudy.Reconstruct(sp, obj, pol, createdAt, revision), nil
}

func paramFromRow(row paramRow) (param.Param, error) {
	var values []param.Value
	if param.Kind(row.Kind) == param.Choice {
		values = make([]param.Value, len(row.Values))
		for i, s := range row.Values {
			v, err := param.Parse(param.ValueKind(row.ValueKind), s)
			if err != nil {
				return param.Param{}, fmt.Errorf("parameter %q: %w", row.Name, err)
			}
			values[i] = v
		}
	}
	return param.Reconstruct(
		row.Name, param.Kind(row.Kind), values,
		row.Min, row.Max, row.Low, row.High, row.Step,
	), nil
}

func policyFromHash(m map[string]string) (stopping.Policy, error) {
	enabled, _ := strconv.ParseBool(m["stop_enabled"])
	if !enabled {
		return stopping.Disabled(), nil
	}

	window, err := strconv.Atoi(m["stop_window"])
	if err != nil {
		return stopping.Policy{}, fmt.Errorf("invalid stop_window: %w", err)
	}
	patience, err := strconv.Atoi(m["stop_patience"])
	if err != nil {
		return stopping.Policy{}, fmt.Errorf("invalid stop_patience: %w", err)
	}
	minDelta, err := strconv.ParseFloat(m["stop_min_delta"], 64)
	if err != nil {
		return stopping.Policy{}, fmt.Errorf("invalid stop_min_delta: %w", err)
	}
	return stopping.Reconstruct(m["stop_metric"], window, patience, minDelta, true), nil
}
