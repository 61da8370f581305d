package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tunex/internal/config"
	"github.com/kailas-cloud/tunex/internal/db"
	dbMemory "github.com/kailas-cloud/tunex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/tunex/internal/db/redis"
	"github.com/kailas-cloud/tunex/internal/domain"
	logpkg "github.com/kailas-cloud/tunex/internal/logger"
	"github.com/kailas-cloud/tunex/internal/metrics"
	budgetrepo "github.com/kailas-cloud/tunex/internal/repository/budget"
	studyrepo "github.com/kailas-cloud/tunex/internal/repository/study"
	trialrepo "github.com/kailas-cloud/tunex/internal/repository/trial"
	chiTransport "github.com/kailas-cloud/tunex/internal/transport/chi"
	openaiTrainer "github.com/kailas-cloud/tunex/internal/transport/openai"
	healthuc "github.com/kailas-cloud/tunex/internal/usecase/health"
	studyuc "github.com/kailas-cloud/tunex/internal/usecase/study"
	sweepuc "github.com/kailas-cloud/tunex/internal/usecase/sweep"
	"github.com/kailas-cloud/tunex/internal/usecase/training"
	trialuc "github.com/kailas-cloud/tunex/internal/usecase/trial"
	usageuc "github.com/kailas-cloud/tunex/internal/usecase/usage"
	"github.com/kailas-cloud/tunex/internal/version"
)

// budgetScope labels the service's budget keys and metrics.
const budgetScope = "service"

// defaultTrainer is used when a sweep request names no trainer.
const defaultTrainer = "bench:sphere"

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting tunex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("store_driver", cfg.Store.Driver),
		zap.Strings("store_addrs", cfg.Store.Addrs),
	)

	// Create trial store based on driver
	var store db.Store
	switch cfg.Store.Driver {
	case "memory":
		store = dbMemory.NewStore()
	case "redis", "valkey":
		// rueidis speaks RESP3 to Redis 7+ and Valkey alike.
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Store.Addrs,
			Password: cfg.Store.Password,
		})
	default:
		logger.Fatal("Unknown store driver", zap.String("driver", cfg.Store.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create trial store", zap.Error(err))
	}
	defer store.Close()

	// Wait for the store to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Store.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Trial store not ready", zap.Error(err))
	}
	logger.Info("Connected to trial store")

	// Register metrics explicitly (no init())
	metrics.RegisterSweepMetrics()
	metrics.RegisterTrainerMetrics()

	// Repositories (domain-native, no adapters)
	studyRepo := studyrepo.New(store)
	trialRepo := trialrepo.New(store)

	// Single BudgetTracker shared between the dispatch gate, every
	// trainer and the usage service.
	var budget *training.BudgetTracker
	if cfg.Budget.DailyCheckpoints > 0 || cfg.Budget.MonthlyCheckpoints > 0 {
		action := training.BudgetActionWarn
		if cfg.Budget.Action == "reject" {
			action = training.BudgetActionReject
		}
		budget = training.NewBudgetTracker(
			budgetScope, cfg.Budget.DailyCheckpoints, cfg.Budget.MonthlyCheckpoints, action, logger,
		)
		// Connect persistence — loads current counters from the store.
		budget.WithStore(ctx, budgetrepo.New(store))
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*BudgetTracker)(nil) wrapped in BudgetChecker != nil.
	var budgetChecker training.BudgetChecker
	if budget != nil {
		budgetChecker = budget
	}

	// Usage service — reads from the shared BudgetTracker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetReader = budget
	}
	usageSvc := usageuc.New(budgetReader)

	// Trainer registry — every sweep picks one of these by name.
	trainers, healthChecker := buildTrainers(cfg.Trainers, budgetChecker, logger)
	names := make([]string, 0, len(trainers))
	for name := range trainers {
		names = append(names, name)
	}
	sort.Strings(names)
	logger.Info("Trainers registered",
		zap.Strings("trainers", names),
		zap.String("default", defaultTrainer),
	)

	// Use case services
	studySvc := studyuc.New(studyRepo, trialRepo, logger)
	trialSvc := trialuc.NewService(trialRepo, studyRepo)

	runner := trialuc.NewRunner(trialRepo, logger).WithRecorder(usageSvc)
	if cfg.Sweep.MaxCheckpoints > 0 {
		runner = runner.WithMaxCheckpoints(cfg.Sweep.MaxCheckpoints)
	}

	driver := sweepuc.New(studyRepo, runner, logger)
	if budget != nil {
		driver = driver.WithBudget(budget)
	}
	if cfg.Sweep.DispatchRate > 0 {
		driver = driver.WithDispatchRate(cfg.Sweep.DispatchRate)
	}
	if cfg.Sweep.QueueDepth > 0 {
		driver = driver.WithQueueDepth(cfg.Sweep.QueueDepth)
	}
	driver = driver.WithDrainOnCancel(cfg.Sweep.DrainOnCancel)

	manager := sweepuc.NewManager(driver, studyRepo, logger)

	// Health service
	healthSvc := healthuc.New(store, healthChecker)

	// Create chi server
	server := chiTransport.NewServer(studySvc, trialSvc, manager, usageSvc, healthSvc, logger).
		WithTrainers(trainers, defaultTrainer).
		WithPagination(cfg.Sweep.DefaultPageSize, cfg.Sweep.MaxPageSize).
		WithStoppingDefaults(cfg.Stopping.Window, cfg.Stopping.Patience, cfg.Stopping.MinDelta).
		WithSweepDefaults(cfg.Sweep.Workers)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Mount(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	// Stop the listener first so no new sweeps start, then let the
	// running ones finish or record their cancellation.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during HTTP shutdown", zap.Error(err))
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during sweep shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildTrainers assembles the trainer registry: deterministic benchmark
// surfaces plus the chat sampling trainer when configured. Every entry
// is wrapped with budget instrumentation. The returned checker probes
// the remote provider for /health, nil when only local trainers exist.
func buildTrainers(
	cfg config.TrainersConfig,
	budget training.BudgetChecker,
	logger *zap.Logger,
) (map[string]domain.TrainerRef, healthuc.TrainerChecker) {
	trainers := make(map[string]domain.TrainerRef)

	for _, name := range []string{"sphere", "rosenbrock", "rastrigin"} {
		surface, _ := domain.SurfaceByName(name)
		dt, err := domain.NewDescentTrainer(surface, cfg.Bench.Dims, cfg.Bench.Checkpoints)
		if err != nil {
			logger.Fatal("Failed to create bench trainer",
				zap.String("surface", name), zap.Error(err))
		}
		trainers["bench:"+name] = instrument(dt, dt, "bench:"+name, budget, logger)
	}

	var checker healthuc.TrainerChecker
	if oa := cfg.OpenAI; oa != nil {
		prompts := make([]openaiTrainer.PromptCase, len(oa.Prompts))
		for i, pc := range oa.Prompts {
			prompts[i] = openaiTrainer.PromptCase{Prompt: pc.Prompt, Expect: pc.Expect}
		}
		st := openaiTrainer.NewSamplingTrainer(&openaiTrainer.Config{
			APIKey:    oa.APIKey,
			BaseURL:   oa.BaseURL,
			Model:     oa.Model,
			Provider:  oa.Provider,
			Prompts:   prompts,
			ShardSize: oa.ShardSize,
			Logger:    logger,
		})
		trainers["openai"] = instrument(st, st, "openai", budget, logger)
		checker = st
		logger.Info("Sampling trainer created",
			zap.String("provider", oa.Provider),
			zap.String("model", oa.Model),
			zap.Int("prompts", len(oa.Prompts)),
		)
	}

	return trainers, checker
}

// instrument wraps a trainer/evaluator pair with budget metering. The
// wrapper implements both interfaces, so the ref points at it twice.
func instrument(
	tr domain.Trainer, ev domain.Evaluator, name string,
	budget training.BudgetChecker, logger *zap.Logger,
) domain.TrainerRef {
	it := training.NewInstrumentedTrainer(tr, ev, name, budget, logger)
	return domain.TrainerRef{Trainer: it, Evaluator: it}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
