package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Workspace   WorkspaceConfig `toml:"workspace"`
	Jobs        JobsConfig      `toml:"jobs"`
	Builder     BuilderConfig   `toml:"builder"`
	Validator   ValidatorConfig `toml:"validator"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"` // Bind address, e.g. "127.0.0.1:3004"
}

// WorkspaceConfig contains credentials and limits for the workspace API
type WorkspaceConfig struct {
	Token             string        `toml:"token"`               // Bearer token (required)
	APIVersion        string        `toml:"api_version"`         // Sent as the workspace versioning header
	BaseURL           string        `toml:"base_url"`            // Workspace API base URL
	RequestsPerSecond float64       `toml:"requests_per_second"` // Global rate limit (default 3)
	MaxRetries        int           `toml:"max_retries"`         // Retry attempts for transient failures (default 5)
	MaxConnections    int           `toml:"max_connections"`     // Connection pool size (default 32)
	AttemptTimeout    time.Duration `toml:"attempt_timeout"`     // Per-attempt HTTP timeout (default 60s)
	OperationTimeout  time.Duration `toml:"operation_timeout"`   // Per-operation timeout including retries (default 120s)
}

// JobsConfig contains limits for upload job execution
type JobsConfig struct {
	MaxConcurrent  int           `toml:"max_concurrent"`  // Worker pool cap (default 8)
	JobParallelism int           `toml:"job_parallelism"` // Per-job I/O semaphore (default 4)
	RegistryTTL    time.Duration `toml:"registry_ttl"`    // Terminal job eviction TTL (default 10m)
	StrictSweep    bool          `toml:"strict_sweep"`    // Residual markers fail the job
	PurgeAttempts  int           `toml:"purge_attempts"`  // List-delete-verify cycles before PurgeIncomplete (default 3)
}

// BuilderConfig contains limits for HTML to block-tree conversion
type BuilderConfig struct {
	MaxDocumentSize int `toml:"max_document_size"` // Max source HTML bytes (default 16 MiB)
	MaxTableRows    int `toml:"max_table_rows"`    // Max table rows per submission (default 100)
	DataURILimit    int `toml:"data_uri_limit"`    // Max inline data-URI image bytes (default 8 KiB)
}

// ValidatorConfig contains thresholds for content fidelity checks
type ValidatorConfig struct {
	CoverageThreshold float64        `toml:"coverage_threshold"` // Pass threshold (default 0.97)
	MaxMissingSpans   int            `toml:"max_missing_spans"`  // Max missing spans permitted (default 0)
	GroupMax          int            `toml:"group_max"`          // Max fuzzy group size (default 8)
	LevRatio          float64        `toml:"lev_ratio"`          // Levenshtein ratio threshold (default 0.88)
	TokenOverlap      float64        `toml:"token_overlap"`      // Jaccard token overlap threshold (default 0.65)
	FuzzyThreshold    float64        `toml:"fuzzy_threshold"`    // Confidence for adjusted coverage (default 0.85)
	InversionWarn     int            `toml:"inversion_warn"`     // Max order inversions before warning (default 3)
	ElementTolerances map[string]int `toml:"element_tolerances"` // Allowed count deltas per element class
}

// SchedulerConfig contains the optional periodic revalidation schedule
type SchedulerConfig struct {
	Schedule string   `toml:"schedule"` // Cron schedule; empty disables revalidation
	PageIDs  []string `toml:"page_ids"` // Pages to revalidate on each tick
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "trace", "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

var (
	configSnapshot *Config
	configMutex    sync.RWMutex
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:3004",
		},
		Workspace: WorkspaceConfig{
			APIVersion:        "2022-06-28",
			BaseURL:           "https://api.notion.com/v1",
			RequestsPerSecond: 3,
			MaxRetries:        5,
			MaxConnections:    32,
			AttemptTimeout:    60 * time.Second,
			OperationTimeout:  120 * time.Second,
		},
		Jobs: JobsConfig{
			MaxConcurrent:  8,
			JobParallelism: 4,
			RegistryTTL:    10 * time.Minute,
			PurgeAttempts:  3,
		},
		Builder: BuilderConfig{
			MaxDocumentSize: 16 * 1024 * 1024,
			MaxTableRows:    100,
			DataURILimit:    8 * 1024,
		},
		Validator: ValidatorConfig{
			CoverageThreshold: 0.97,
			MaxMissingSpans:   0,
			GroupMax:          8,
			LevRatio:          0.88,
			TokenOverlap:      0.65,
			FuzzyThreshold:    0.85,
			InversionWarn:     3,
			ElementTolerances: map[string]int{
				"tables":      0,
				"images":      0,
				"lists":       1,
				"callouts":    1,
				"code_blocks": 0,
				"headings":    1,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
	}
}

// LoadFromFile loads configuration from a TOML file with env overrides applied.
// Order: defaults -> file -> environment variables.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	SetSnapshot(config)
	return config, nil
}

// Validate checks required configuration values
func (c *Config) Validate() error {
	if c.Workspace.Token == "" {
		return fmt.Errorf("workspace token is required (set WORKSPACE_TOKEN or workspace.token)")
	}
	if c.Workspace.RequestsPerSecond <= 0 {
		return fmt.Errorf("workspace.requests_per_second must be positive")
	}
	if c.Jobs.MaxConcurrent < 1 {
		return fmt.Errorf("jobs.max_concurrent must be at least 1")
	}
	if c.Validator.CoverageThreshold < 0 || c.Validator.CoverageThreshold > 1 {
		return fmt.Errorf("validator.coverage_threshold must be in [0,1]")
	}
	return nil
}

// SetSnapshot stores the process-wide configuration snapshot
func SetSnapshot(config *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	configSnapshot = config
}

// GetSnapshot returns the current configuration snapshot.
// Callers get a shallow copy so a concurrent reload cannot tear reads.
func GetSnapshot() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	if configSnapshot == nil {
		return DefaultConfig()
	}
	snapshot := *configSnapshot
	return &snapshot
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if token := os.Getenv("WORKSPACE_TOKEN"); token != "" {
		config.Workspace.Token = token
	}
	if version := os.Getenv("WORKSPACE_API_VERSION"); version != "" {
		config.Workspace.APIVersion = version
	}
	if baseURL := os.Getenv("WORKSPACE_BASE_URL"); baseURL != "" {
		config.Workspace.BaseURL = baseURL
	}
	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		config.Server.ListenAddr = addr
	}
	if maxJobs := os.Getenv("MAX_CONCURRENT_JOBS"); maxJobs != "" {
		if v, err := strconv.Atoi(maxJobs); err == nil && v > 0 {
			config.Jobs.MaxConcurrent = v
		}
	}
	if rps := os.Getenv("REQ_PER_SEC"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil && v > 0 {
			config.Workspace.RequestsPerSecond = v
		}
	}
	if threshold := os.Getenv("COVERAGE_THRESHOLD"); threshold != "" {
		if v, err := strconv.ParseFloat(threshold, 64); err == nil {
			config.Validator.CoverageThreshold = v
		}
	}
	if spans := os.Getenv("MAX_MISSING_SPANS"); spans != "" {
		if v, err := strconv.Atoi(spans); err == nil && v >= 0 {
			config.Validator.MaxMissingSpans = v
		}
	}
	if groupMax := os.Getenv("GROUP_MAX"); groupMax != "" {
		if v, err := strconv.Atoi(groupMax); err == nil && v > 0 {
			config.Validator.GroupMax = v
		}
	}
	if levRatio := os.Getenv("LEV_RATIO"); levRatio != "" {
		if v, err := strconv.ParseFloat(levRatio, 64); err == nil {
			config.Validator.LevRatio = v
		}
	}
	if overlap := os.Getenv("TOKEN_OVERLAP"); overlap != "" {
		if v, err := strconv.ParseFloat(overlap, 64); err == nil {
			config.Validator.TokenOverlap = v
		}
	}
	if fuzzy := os.Getenv("FUZZY_THRESHOLD"); fuzzy != "" {
		if v, err := strconv.ParseFloat(fuzzy, 64); err == nil {
			config.Validator.FuzzyThreshold = v
		}
	}
	if strict := os.Getenv("STRICT_MARKER_SWEEP"); strict != "" {
		config.Jobs.StrictSweep = parseBool(strict)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, listenAddr string) {
	if listenAddr != "" {
		config.Server.ListenAddr = listenAddr
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
