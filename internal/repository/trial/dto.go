package trial

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/tunex/internal/domain/candidate"
	"github.com/kailas-cloud/tunex/internal/domain/space/param"
	domtrial "github.com/kailas-cloud/tunex/internal/domain/trial"
)

// valueRow is the JSON-serializable representation of one candidate
// assignment: the canonical string plus the value kind for hydration.
type valueRow struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// trialToHash converts a domain Trial to a map for HSET. The checkpoint
// history is stored separately as a JSON document.
func trialToHash(t domtrial.Trial) (map[string]string, error) {
	values := t.Candidate().Values()
	rows := make([]valueRow, 0, len(values))
	for _, name := range t.Candidate().Names() {
		v := values[name]
		rows = append(rows, valueRow{Name: name, Kind: string(v.Kind()), Value: v.String()})
	}
	valuesJSON, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("marshal candidate values: %w", err)
	}

	return map[string]string{
		"id":          t.ID(),
		"study":       t.Study(),
		"ordinal":     strconv.FormatUint(t.Candidate().Ordinal(), 10),
		"values_json": string(valuesJSON),
		"status":      string(t.Status()),
		"score":       strconv.FormatFloat(t.Score(), 'g', -1, 64),
		"checkpoints": strconv.Itoa(t.Checkpoints()),
		"started_at":  strconv.FormatInt(t.StartedAt(), 10),
		"finished_at": strconv.FormatInt(t.FinishedAt(), 10),
		"failure":     t.Failure(),
		"revision":    strconv.Itoa(t.Revision()),
	}, nil
}

// trialFromHash hydrates a domain Trial from an HGETALL result map.
// The history slice is attached by the caller when it was requested.
func trialFromHash(m map[string]string, history []float64) (domtrial.Trial, error) {
	ordinal, err := strconv.ParseUint(m["ordinal"], 10, 64)
	if err != nil {
		return domtrial.Trial{}, fmt.Errorf("invalid ordinal: %w", err)
	}

	var rows []valueRow
	if vj := m["values_json"]; vj != "" {
		if err := json.Unmarshal([]byte(vj), &rows); err != nil {
			return domtrial.Trial{}, fmt.Errorf("unmarshal candidate values: %w", err)
		}
	}
	values := make(map[string]param.Value, len(rows))
	for _, row := range rows {
		v, err := param.Parse(param.ValueKind(row.Kind), row.Value)
		if err != nil {
			return domtrial.Trial{}, fmt.Errorf("candidate value %q: %w", row.Name, err)
		}
		values[row.Name] = v
	}

	score, err := strconv.ParseFloat(m["score"], 64)
	if err != nil {
		return domtrial.Trial{}, fmt.Errorf("invalid score: %w", err)
	}
	checkpoints, err := strconv.Atoi(m["checkpoints"])
	if err != nil {
		return domtrial.Trial{}, fmt.Errorf("invalid checkpoints: %w", err)
	}
	startedAt, err := strconv.ParseInt(m["started_at"], 10, 64)
	if err != nil {
		return domtrial.Trial{}, fmt.Errorf("invalid started_at: %w", err)
	}
	finishedAt, err := strconv.ParseInt(m["finished_at"], 10, 64)
	if err != nil {
		return domtrial.Trial{}, fmt.Errorf("invalid finished_at: %w", err)
	}

	revision := 1
	if revStr, ok := m["revision"]; ok && revStr != "" {
		if parsed, err := strconv.Atoi(revStr); err == nil {
			revision = parsed
		}
	}

	return domtrial.Reconstruct(
		m["id"], m["study"],
		candidate.New(ordinal, values),
		domtrial.Status(m["status"]),
		score, checkpoints, history,
		startedAt, finishedAt,
		m["failure"], revision,
	), nil
}
