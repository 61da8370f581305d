package tunex

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// Store drivers.
const (
	driverMemory = "memory"
	driverValkey = "valkey"
	driverRedis  = "redis"
)

type clientConfig struct {
	driver   string // "" defaults to memory
	addrs    []string
	password string

	dailyBudget   int64
	monthlyBudget int64

	dispatchRate   float64
	queueDepth     int
	drainOnCancel  bool
	maxCheckpoints int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithMemory runs the client on an embedded in-process store. Studies
// and trials vanish when the client does. This is the default.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverMemory
		c.addrs = nil
		c.password = ""
	})
}

// WithValkey configures the client to persist on a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverValkey
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to persist on a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithBudget caps checkpoint spend per day and per month; sweeps stop
// with ErrBudgetExceeded once a cap is hit. Zero means unlimited. On a
// persistent store the counters survive restarts.
func WithBudget(daily, monthly int64) Option {
	return optionFunc(func(c *clientConfig) {
		c.dailyBudget = daily
		c.monthlyBudget = monthly
	})
}

// WithDispatchRate throttles candidate dispatch to n per second across
// every sweep this client runs. Zero disables the throttle (default).
func WithDispatchRate(perSecond float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.dispatchRate = perSecond
	})
}

// WithQueueDepth overrides the sweep work queue capacity. Deeper
// queues keep slow trainers fed at the cost of more cancelled-in-queue
// candidates on abort.
func WithQueueDepth(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.queueDepth = n
	})
}

// WithDrainOnCancel lets evaluations that already started finish after
// a sweep is cancelled. Queued candidates are still dropped.
func WithDrainOnCancel() Option {
	return optionFunc(func(c *clientConfig) {
		c.drainOnCancel = true
	})
}

// WithMaxCheckpoints caps how many checkpoints a single trial may run,
// regardless of what the trainer reports. Zero means no cap (default).
func WithMaxCheckpoints(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxCheckpoints = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
