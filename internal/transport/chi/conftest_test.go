package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tunex/internal/db/memory"
	"github.com/kailas-cloud/tunex/internal/domain"
	"github.com/kailas-cloud/tunex/internal/domain/candidate"
	studyrepo "github.com/kailas-cloud/tunex/internal/repository/study"
	trialrepo "github.com/kailas-cloud/tunex/internal/repository/trial"
	healthuc "github.com/kailas-cloud/tunex/internal/usecase/health"
	studyuc "github.com/kailas-cloud/tunex/internal/usecase/study"
	sweepuc "github.com/kailas-cloud/tunex/internal/usecase/sweep"
	trialuc "github.com/kailas-cloud/tunex/internal/usecase/trial"
	usageuc "github.com/kailas-cloud/tunex/internal/usecase/usage"
)

const testTrainer = "bench:sphere"

// testAPI wires the full service stack over the in-memory store.
// Requests go through the real chi router, so URL params, routing and
// status codes behave exactly as in production.
type testAPI struct {
	handler http.Handler
	server  *Server
}

// newTestAPI builds the stack with a 2-dimensional sphere descent
// trainer (4 checkpoints) registered under testTrainer as the default.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := zap.NewNop()
	store := memory.NewStore()

	studyRepo := studyrepo.New(store)
	trialRepo := trialrepo.New(store)

	studies := studyuc.New(studyRepo, trialRepo, logger)
	trials := trialuc.NewService(trialRepo, studyRepo)
	usage := usageuc.New(nil)
	runner := trialuc.NewRunner(trialRepo, logger).WithRecorder(usage)
	driver := sweepuc.New(studyRepo, runner, logger)
	manager := sweepuc.NewManager(driver, studyRepo, logger)
	health := healthuc.New(store, nil)

	descent, err := domain.NewDescentTrainer(domain.Sphere, 2, 4)
	if err != nil {
		t.Fatalf("NewDescentTrainer: %v", err)
	}

	server := NewServer(studies, trials, manager, usage, health, logger).
		WithTrainers(map[string]domain.TrainerRef{
			testTrainer: {Trainer: descent, Evaluator: descent},
		}, testTrainer).
		WithStoppingDefaults(5, 3, 0)

	r := gochi.NewRouter()
	server.Mount(r)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = manager.Shutdown(ctx)
	})

	return &testAPI{handler: r, server: server}
}

// registerTrainer adds a named trainer without touching the default.
func (a *testAPI) registerTrainer(name string, ref domain.TrainerRef) {
	a.server.WithTrainers(map[string]domain.TrainerRef{name: ref}, testTrainer)
}

// do sends a request through the router. A non-nil body is marshalled
// to JSON; a raw string body is sent verbatim for malformed-JSON tests.
func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		rd = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// wantError asserts an ErrorResponse with the given status and code.
func wantError(t *testing.T, rec *httptest.ResponseRecorder, status int, code ErrorCode) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	if resp.Code != code {
		t.Errorf("code = %q, want %q (message %q)", resp.Code, code, resp.Message)
	}
	if resp.Message == "" {
		t.Error("error message is empty")
	}
}

// raws converts literal JSON scalars into choice values.
func raws(vals ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(vals))
	for i, v := range vals {
		out[i] = json.RawMessage(v)
	}
	return out
}

// descentStudyBody is a 2x2 grid over the knobs the descent trainer
// reads, minimizing "loss".
func descentStudyBody(name string) CreateStudyRequest {
	return CreateStudyRequest{
		Name: name,
		Params: []ParamDef{
			{Name: "lr", Kind: "choice", Values: raws("0.05", "0.2")},
			{Name: "momentum", Kind: "choice", Values: raws("0.0", "0.5")},
		},
		Metric: "loss",
		Goal:   "minimize",
	}
}

// createStudy POSTs the body and fails the test on anything but 201.
func (a *testAPI) createStudy(t *testing.T, body CreateStudyRequest) StudyResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/studies", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create study %q: status %d, body %s", body.Name, rec.Code, rec.Body.String())
	}
	var resp StudyResponse
	decodeBody(t, rec, &resp)
	return resp
}

// startSweep POSTs the sweep and fails the test on anything but 202.
func (a *testAPI) startSweep(t *testing.T, study string, body StartSweepRequest) SweepResponse {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/studies/"+study+"/sweeps", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start sweep on %q: status %d, body %s", study, rec.Code, rec.Body.String())
	}
	var resp SweepResponse
	decodeBody(t, rec, &resp)
	return resp
}

// waitSweepState polls the sweep endpoint until the wanted state.
func (a *testAPI) waitSweepState(t *testing.T, study, id, want string) SweepResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := a.do(t, http.MethodGet, "/api/v1/studies/"+study+"/sweeps/"+id, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("get sweep %s: status %d, body %s", id, rec.Code, rec.Body.String())
		}
		var resp SweepResponse
		decodeBody(t, rec, &resp)
		if resp.State == want {
			return resp
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("sweep %s did not reach state %q", id, want)
	return SweepResponse{}
}

// blockingTrainerRef builds a single-checkpoint trainer that parks every
// evaluation until release is closed, for sweep-in-flight tests.
func blockingTrainerRef(release <-chan struct{}) domain.TrainerRef {
	ft := domain.NewFuncTrainer(func(ctx context.Context, _ candidate.Candidate) (float64, error) {
		select {
		case <-release:
			return 1, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})
	return domain.TrainerRef{Trainer: ft, Evaluator: ft}
}
