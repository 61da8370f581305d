package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the tunex API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Store    StoreConfig    `yaml:"store"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Stopping StoppingConfig `yaml:"stopping"`
	Budget   BudgetConfig   `yaml:"budget"`
	Trainers TrainersConfig `yaml:"trainers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// StoreConfig holds trial store connection settings.
type StoreConfig struct {
	Driver           string   `yaml:"driver"` // memory, redis, valkey (default: memory)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SweepConfig holds search driver and pagination settings.
type SweepConfig struct {
	Workers         int     `yaml:"workers"`
	QueueDepth      int     `yaml:"queue_depth"`     // 0 = sized from workers
	DispatchRate    float64 `yaml:"dispatch_rate"`   // dispatches/sec, 0 = unthrottled
	DrainOnCancel   bool    `yaml:"drain_on_cancel"` // finish in-flight trials after cancel
	MaxCheckpoints  int     `yaml:"max_checkpoints"` // per-trial cap, 0 = runner default
	DefaultPageSize int     `yaml:"default_page_size"`
	MaxPageSize     int     `yaml:"max_page_size"`
}

// StoppingConfig holds early-stopping defaults used when a study enables
// stopping without spelling out every knob.
type StoppingConfig struct {
	Window   int     `yaml:"window"`
	Patience int     `yaml:"patience"`
	MinDelta float64 `yaml:"min_delta"`
}

// BudgetConfig holds checkpoint budget settings.
type BudgetConfig struct {
	DailyCheckpoints   int64  `yaml:"daily_checkpoints"`   // 0 = unlimited
	MonthlyCheckpoints int64  `yaml:"monthly_checkpoints"` // 0 = unlimited
	Action             string `yaml:"action"`              // "reject" | "warn" (default)
}

// TrainersConfig holds the built-in trainer settings.
type TrainersConfig struct {
	Bench  BenchConfig   `yaml:"bench"`
	OpenAI *OpenAIConfig `yaml:"openai"` // nil = not configured
}

// BenchConfig holds the benchmark-surface trainer settings.
type BenchConfig struct {
	Dims        int `yaml:"dims"`
	Checkpoints int `yaml:"checkpoints"`
}

// OpenAIConfig holds the chat sampling trainer settings.
type OpenAIConfig struct {
	APIKey    string       `yaml:"api_key"`
	BaseURL   string       `yaml:"base_url"`
	Model     string       `yaml:"model"`
	Provider  string       `yaml:"provider"`
	ShardSize int          `yaml:"shard_size"`
	Prompts   []PromptCase `yaml:"prompts"`
}

// PromptCase is one prompt-suite entry for the sampling trainer.
type PromptCase struct {
	Prompt string `yaml:"prompt"`
	Expect string `yaml:"expect"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the TUNEX_ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("TUNEX_ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Store.ReadinessTimeout <= 0 {
		c.Store.ReadinessTimeout = 10
	}
	if c.Sweep.Workers <= 0 {
		c.Sweep.Workers = 4
	}
	if c.Sweep.DefaultPageSize <= 0 {
		c.Sweep.DefaultPageSize = 20
	}
	if c.Sweep.MaxPageSize <= 0 {
		c.Sweep.MaxPageSize = 100
	}
	if c.Stopping.Window <= 0 {
		c.Stopping.Window = 5
	}
	if c.Stopping.Patience <= 0 {
		c.Stopping.Patience = 3
	}
	if c.Trainers.Bench.Dims <= 0 {
		c.Trainers.Bench.Dims = 2
	}
	if c.Trainers.Bench.Checkpoints <= 0 {
		c.Trainers.Bench.Checkpoints = 40
	}
	if c.Trainers.OpenAI != nil && c.Trainers.OpenAI.Provider == "" {
		c.Trainers.OpenAI.Provider = "openai"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Store.Driver {
	case "memory":
		// no address needed
	case "redis", "valkey":
		if len(c.Store.Addrs) == 0 {
			return fmt.Errorf("store.addrs is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("store.driver must be \"memory\", \"redis\" or \"valkey\", got %q", c.Store.Driver)
	}
	if c.Sweep.DispatchRate < 0 {
		return fmt.Errorf("sweep.dispatch_rate must not be negative, got %v", c.Sweep.DispatchRate)
	}
	if c.Stopping.MinDelta < 0 {
		return fmt.Errorf("stopping.min_delta must not be negative, got %v", c.Stopping.MinDelta)
	}
	switch c.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf("budget.action must be \"warn\" or \"reject\", got %q", c.Budget.Action)
	}
	if oa := c.Trainers.OpenAI; oa != nil {
		if oa.Model == "" {
			return fmt.Errorf("trainers.openai.model is required")
		}
		if len(oa.Prompts) == 0 {
			return fmt.Errorf("trainers.openai.prompts must not be empty")
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
