// Package chi is the HTTP transport: a chi router over the study,
// trial, sweep, usage and health services. Handlers validate request
// shape inline and map domain sentinels onto status codes through the
// error handler chain.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	gochi "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tunex/internal/domain"
	domsweep "github.com/kailas-cloud/tunex/internal/domain/sweep"
	domtrial "github.com/kailas-cloud/tunex/internal/domain/trial"
	domusage "github.com/kailas-cloud/tunex/internal/domain/usage"
	"github.com/kailas-cloud/tunex/internal/logger"
	healthuc "github.com/kailas-cloud/tunex/internal/usecase/health"
	studyuc "github.com/kailas-cloud/tunex/internal/usecase/study"
	sweepuc "github.com/kailas-cloud/tunex/internal/usecase/sweep"
	trialuc "github.com/kailas-cloud/tunex/internal/usecase/trial"
	usageuc "github.com/kailas-cloud/tunex/internal/usecase/usage"
	"github.com/kailas-cloud/tunex/internal/version"
)

// Pagination fallbacks when the server is built without WithPagination.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server hosts the HTTP API handlers.
type Server struct {
	studies  *studyuc.Service
	trials   *trialuc.Service
	sweeps   *sweepuc.Manager
	usage    *usageuc.Service
	health   *healthuc.Service
	trainers map[string]domain.TrainerRef
	logger   *zap.Logger

	defaultTrainer string
	defaultLimit   int
	maxLimit       int
	defaultWorkers int
	stopDefaults   StoppingDef
	errorHandlers  []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	studies *studyuc.Service,
	trials *trialuc.Service,
	sweeps *sweepuc.Manager,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		studies:      studies,
		trials:       trials,
		sweeps:       sweeps,
		usage:        usage,
		health:       health,
		trainers:     make(map[string]domain.TrainerRef),
		logger:       logger,
		defaultLimit: defaultPageSize,
		maxLimit:     maxPageSize,
	}
	s.errorHandlers = []errorHandler{
		revisionConflictHandler,
		sentinelHandler(domain.ErrStudyNotFound, http.StatusNotFound, CodeStudyNotFound),
		sentinelHandler(domain.ErrTrialNotFound, http.StatusNotFound, CodeTrialNotFound),
		sentinelHandler(domain.ErrSweepNotFound, http.StatusNotFound, CodeSweepNotFound),
		sentinelHandler(domain.ErrTrainerNotFound, http.StatusNotFound, CodeTrainerNotFound),
		sentinelHandler(domain.ErrStudyExists, http.StatusConflict, CodeStudyExists),
		sentinelHandler(domain.ErrSweepRunning, http.StatusConflict, CodeSweepRunning),
		sentinelHandler(domain.ErrInvalidSpace, http.StatusBadRequest, CodeInvalidSpace),
		sentinelHandler(domain.ErrInvalidPolicy, http.StatusBadRequest, CodeInvalidPolicy),
		sentinelHandler(domain.ErrInvalidCursor, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrSearchExhausted, http.StatusUnprocessableEntity, CodeSearchExhausted),
		sentinelHandler(domain.ErrBudgetExceeded, http.StatusTooManyRequests, CodeBudgetExceeded),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrTrainerProviderError, http.StatusBadGateway, CodeTrainerProvider),
	}
	return s
}

// WithTrainers registers the named trainers a sweep request can pick;
// defaultName is used when the request names none.
func (s *Server) WithTrainers(trainers map[string]domain.TrainerRef, defaultName string) *Server {
	for name, ref := range trainers {
		s.trainers[name] = ref
	}
	s.defaultTrainer = defaultName
	return s
}

// WithPagination overrides the default and maximum page sizes.
func (s *Server) WithPagination(def, max int) *Server {
	if def > 0 {
		s.defaultLimit = def
	}
	if max > 0 {
		s.maxLimit = max
	}
	return s
}

// WithStoppingDefaults fills early-stopping knobs a create-study
// request leaves at zero.
func (s *Server) WithStoppingDefaults(window, patience int, minDelta float64) *Server {
	s.stopDefaults = StoppingDef{Window: window, Patience: patience, MinDelta: minDelta}
	return s
}

// WithSweepDefaults sets the worker count used when a sweep request
// does not ask for one.
func (s *Server) WithSweepDefaults(workers int) *Server {
	if workers > 0 {
		s.defaultWorkers = workers
	}
	return s
}

// Mount registers the API routes on the router.
func (s *Server) Mount(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api/v1", func(r gochi.Router) {
		r.Route("/studies", func(r gochi.Router) {
			r.Post("/", s.CreateStudy)
			r.Get("/", s.ListStudies)
			r.Route("/{study}", func(r gochi.Router) {
				r.Get("/", s.GetStudy)
				r.Delete("/", s.DeleteStudy)
				r.Get("/leaderboard", s.Leaderboard)
				r.Route("/sweeps", func(r gochi.Router) {
					r.Post("/", s.StartSweep)
					r.Get("/", s.ListSweeps)
					r.Get("/{sweep}", s.GetSweep)
					r.Delete("/{sweep}", s.CancelSweep)
				})
				r.Route("/trials", func(r gochi.Router) {
					r.Get("/", s.ListTrials)
					r.Get("/{trial}", s.GetTrial)
				})
			})
		})
		r.Get("/usage", s.GetUsage)
	})
}

// CreateStudy handles POST /api/v1/studies.
func (s *Server) CreateStudy(w http.ResponseWriter, r *http.Request) {
	var req CreateStudyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "Study name is required")
		return
	}
	if len(req.Params) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "At least one parameter is required")
		return
	}

	params, err := paramsFromDefs(req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	st, err := s.studies.Create(
		r.Context(), req.Name, params, req.Metric, domsweep.Goal(req.Goal), s.stoppingSpec(req.Stopping),
	)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/studies/"+st.Name())
	writeJSON(w, http.StatusCreated, studyToResponse(st))
}

// ListStudies handles GET /api/v1/studies.
func (s *Server) ListStudies(w http.ResponseWriter, r *http.Request) {
	var cursor *string
	var limit *int
	if !bindQuery(w, r, "cursor", &cursor) || !bindQuery(w, r, "limit", &limit) {
		return
	}

	studies, next, err := s.studies.List(r.Context(), derefStr(cursor), s.pageLimit(limit))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]StudyResponse, len(studies))
	for i, st := range studies {
		items[i] = studyToResponse(st)
	}

	resp := StudyCursorListResponse{Items: items, HasMore: next != ""}
	if next != "" {
		resp.NextCursor = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetStudy handles GET /api/v1/studies/{study}.
func (s *Server) GetStudy(w http.ResponseWriter, r *http.Request) {
	name := gochi.URLParam(r, "study")

	st, err := s.studies.Get(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := studyToResponse(st)
	if count, err := s.trials.Count(r.Context(), name); err == nil {
		resp.TrialCount = &count
	}

	w.Header().Set("ETag", strconv.Quote(strconv.Itoa(st.Revision())))
	writeJSON(w, http.StatusOK, resp)
}

// DeleteStudy handles DELETE /api/v1/studies/{study}.
func (s *Server) DeleteStudy(w http.ResponseWriter, r *http.Request) {
	if err := s.studies.Delete(r.Context(), gochi.URLParam(r, "study")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StartSweep handles POST /api/v1/studies/{study}/sweeps.
func (s *Server) StartSweep(w http.ResponseWriter, r *http.Request) {
	study := gochi.URLParam(r, "study")

	var req StartSweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	name := req.Trainer
	if name == "" {
		name = s.defaultTrainer
	}
	ref, ok := s.trainers[name]
	if !ok {
		s.handleDomainError(w, r, fmt.Errorf("%w: %q", domain.ErrTrainerNotFound, name))
		return
	}

	workers := req.Workers
	if workers == 0 {
		workers = s.defaultWorkers
	}

	ucReq := sweepuc.Request{
		Study:     study,
		Mode:      domsweep.Mode(req.Mode),
		Samples:   req.Samples,
		Seed:      req.Seed,
		Workers:   workers,
		MaxTrials: req.MaxTrials,
	}
	if err := ucReq.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	snap, err := s.sweeps.Start(r.Context(), ucReq, ref.Trainer, ref.Evaluator)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/studies/%s/sweeps/%s", study, snap.ID))
	writeJSON(w, http.StatusAccepted, sweepToResponse(snap))
}

// ListSweeps handles GET /api/v1/studies/{study}/sweeps.
func (s *Server) ListSweeps(w http.ResponseWriter, r *http.Request) {
	study := gochi.URLParam(r, "study")

	if _, err := s.studies.Get(r.Context(), study); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	snaps := s.sweeps.List(r.Context(), study)
	items := make([]SweepResponse, len(snaps))
	for i, snap := range snaps {
		items[i] = sweepToResponse(snap)
	}
	writeJSON(w, http.StatusOK, SweepListResponse{Items: items})
}

// GetSweep handles GET /api/v1/studies/{study}/sweeps/{sweep}.
func (s *Server) GetSweep(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sweeps.Get(r.Context(), gochi.URLParam(r, "study"), gochi.URLParam(r, "sweep"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sweepToResponse(snap))
}

// CancelSweep handles DELETE /api/v1/studies/{study}/sweeps/{sweep}.
// Cancellation is cooperative: the response reports the state at the
// moment of the request, usually still running.
func (s *Server) CancelSweep(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sweeps.Cancel(r.Context(), gochi.URLParam(r, "study"), gochi.URLParam(r, "sweep"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, sweepToResponse(snap))
}

// ListTrials handles GET /api/v1/studies/{study}/trials.
func (s *Server) ListTrials(w http.ResponseWriter, r *http.Request) {
	study := gochi.URLParam(r, "study")

	var cursor, status *string
	var limit *int
	if !bindQuery(w, r, "cursor", &cursor) || !bindQuery(w, r, "limit", &limit) ||
		!bindQuery(w, r, "status", &status) {
		return
	}

	st := domtrial.Status(derefStr(status))
	if st != "" && !st.IsValid() {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, fmt.Sprintf("unknown trial status %q", st))
		return
	}

	trials, next, err := s.trials.List(r.Context(), study, derefStr(cursor), s.pageLimit(limit), st)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]TrialResponse, len(trials))
	for i, t := range trials {
		items[i] = trialToResponse(t, false)
	}

	resp := TrialCursorListResponse{Items: items, HasMore: next != ""}
	if next != "" {
		resp.NextCursor = &next
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetTrial handles GET /api/v1/studies/{study}/trials/{trial}. The
// response includes the full checkpoint history.
func (s *Server) GetTrial(w http.ResponseWriter, r *http.Request) {
	study := gochi.URLParam(r, "study")
	id := gochi.URLParam(r, "trial")

	t, err := s.trials.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if t.Study() != study {
		s.handleDomainError(w, r, fmt.Errorf("%w: %s", domain.ErrTrialNotFound, id))
		return
	}

	w.Header().Set("ETag", strconv.Quote(strconv.Itoa(t.Revision())))
	writeJSON(w, http.StatusOK, trialToResponse(t, true))
}

// Leaderboard handles GET /api/v1/studies/{study}/leaderboard.
func (s *Server) Leaderboard(w http.ResponseWriter, r *http.Request) {
	study := gochi.URLParam(r, "study")

	var limit *int
	if !bindQuery(w, r, "limit", &limit) {
		return
	}

	st, err := s.studies.Get(r.Context(), study)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	trials, err := s.trials.Leaderboard(r.Context(), study, s.pageLimit(limit))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	entries := make([]LeaderboardEntry, len(trials))
	for i, t := range trials {
		entries[i] = LeaderboardEntry{
			Rank:    i + 1,
			TrialID: t.ID(),
			Ordinal: t.Candidate().Ordinal(),
			Params:  t.Candidate().Values(),
			Score:   t.Score(),
		}
	}
	writeJSON(w, http.StatusOK, LeaderboardResponse{
		Study:   study,
		Metric:  st.Objective().Metric(),
		Goal:    string(st.Objective().Goal()),
		Entries: entries,
	})
}

// GetUsage handles GET /api/v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	var periodParam *string
	if !bindQuery(w, r, "period", &periodParam) {
		return
	}

	period := domusage.PeriodMonth
	if periodParam != nil {
		switch domusage.Period(*periodParam) {
		case domusage.PeriodDay, domusage.PeriodMonth, domusage.PeriodTotal:
			period = domusage.Period(*periodParam)
		default:
			writeError(w, http.StatusBadRequest, CodeValidationFailed,
				fmt.Sprintf("period must be day, month or total, got %q", *periodParam))
			return
		}
	}

	report := s.usage.GetReport(r.Context(), period)
	writeJSON(w, http.StatusOK, usageToResponse(&report))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	// Degraded still serves: the store works and local trainers run.
	// Only a dead store takes the instance out of rotation.
	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Version: version.String(),
		Checks:  checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// stoppingSpec maps the request's stopping block, filling zero knobs
// with the server defaults. A missing block disables stopping.
func (s *Server) stoppingSpec(def *StoppingDef) studyuc.StoppingSpec {
	if def == nil {
		return studyuc.StoppingSpec{}
	}
	spec := studyuc.StoppingSpec{
		Enabled:  true,
		Metric:   def.Metric,
		Window:   def.Window,
		Patience: def.Patience,
		MinDelta: def.MinDelta,
	}
	if spec.Window == 0 {
		spec.Window = s.stopDefaults.Window
	}
	if spec.Patience == 0 {
		spec.Patience = s.stopDefaults.Patience
	}
	if spec.MinDelta == 0 {
		spec.MinDelta = s.stopDefaults.MinDelta
	}
	return spec
}

// pageLimit clamps a requested page size into [1, maxLimit].
func (s *Server) pageLimit(p *int) int {
	limit := s.defaultLimit
	if p != nil {
		limit = *p
	}
	if limit < 1 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	return limit
}

// bindQuery binds an optional query parameter, answering 400 on
// malformed input. Returns false when the response is already written.
func bindQuery(w http.ResponseWriter, r *http.Request, name string, dest any) bool {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest,
			fmt.Sprintf("Invalid query parameter %q: %v", name, err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrStudyNotFound,
		domain.ErrTrialNotFound,
		domain.ErrSweepNotFound,
		domain.ErrTrainerNotFound,
		domain.ErrStudyExists,
		domain.ErrSweepRunning,
		domain.ErrRevisionConflict,
		domain.ErrInvalidSpace,
		domain.ErrInvalidPolicy,
		domain.ErrInvalidCursor,
		domain.ErrSearchExhausted,
		domain.ErrBudgetExceeded,
		domain.ErrRateLimited,
		domain.ErrTrainerProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// revisionConflictHandler handles ErrRevisionConflict with ETag header and extra fields.
func revisionConflictHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrRevisionConflict) {
		return false
	}
	var rce *domain.RevisionConflictError
	if errors.As(err, &rce) {
		w.Header().Set("ETag", strconv.Quote(strconv.Itoa(rce.CurrentRevision)))
		writeJSON(w, http.StatusConflict, map[string]any{
			"code":             CodeRevisionConflict,
			"message":          msg,
			"current_revision": rce.CurrentRevision,
		})
		return true
	}
	writeError(w, http.StatusConflict, CodeRevisionConflict, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	// Prefer the request-scoped logger so request_id lands on error lines.
	log := logger.FromContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
