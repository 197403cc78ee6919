// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as logging, database path, lifecycle windows, sweep pacing, refund
// policy, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "goaguide-core")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// RefundConfig parameterizes the time-windowed refund policy.
type RefundConfig struct {
	FullWindow     time.Duration // full refund when cancelling at least this far before trip start
	PartialWindow  time.Duration // partial refund inside this window
	PartialPercent int           // percentage refunded inside the partial window
}

// SweepConfig paces the background expiry job.
type SweepConfig struct {
	Interval time.Duration // pause between passes
	Batch    int           // max rows of each kind per pass
	RPS      float64       // expiry transactions per second
}

// Config holds all configuration values for the application.
type Config struct {
	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// App
	DBPath string // SQLite path

	// Lifecycle windows
	HoldTTL           time.Duration // how long a booking hold stays reservable
	RFPTTL            time.Duration // default bid window for published RFPs
	ConsentDefaultTTL time.Duration // applied when a grant carries no explicit ttl

	// Photo verification
	PhotoReviewThreshold float64 // confidence below this goes to manual review

	// Refund policy
	Refund RefundConfig

	// Background sweep
	Sweep SweepConfig

	// Metrics endpoint (sweeper binary)
	MetricsPort string // just the number

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// App
		DBPath: getenv("DB_PATH", "goaguide.db"),

		// Lifecycle windows
		HoldTTL:           getdur("HOLD_TTL", 15*time.Minute),
		RFPTTL:            getdur("RFP_TTL", 72*time.Hour),
		ConsentDefaultTTL: getdur("CONSENT_DEFAULT_TTL", 30*24*time.Hour),

		// Photo verification
		PhotoReviewThreshold: getfloat("PHOTO_REVIEW_THRESHOLD", 0.80),

		// Refund policy
		Refund: RefundConfig{
			FullWindow:     getdur("REFUND_FULL_WINDOW", 7*24*time.Hour),
			PartialWindow:  getdur("REFUND_PARTIAL_WINDOW", 24*time.Hour),
			PartialPercent: getint("REFUND_PARTIAL_PERCENT", 50),
		},

		// Background sweep
		Sweep: SweepConfig{
			Interval: getdur("SWEEP_INTERVAL", time.Minute),
			Batch:    getint("SWEEP_BATCH", 100),
			RPS:      getfloat("SWEEP_RPS", 50),
		},

		// Metrics
		MetricsPort: getenv("METRICS_PORT", "9090"),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "goaguide-core"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.HoldTTL <= 0 {
		return cfg, errors.New("HOLD_TTL must be > 0")
	}
	if cfg.RFPTTL <= 0 {
		return cfg, errors.New("RFP_TTL must be > 0")
	}
	if cfg.ConsentDefaultTTL <= 0 {
		return cfg, errors.New("CONSENT_DEFAULT_TTL must be > 0")
	}
	if cfg.PhotoReviewThreshold < 0 || cfg.PhotoReviewThreshold > 1 {
		return cfg, errors.New("PHOTO_REVIEW_THRESHOLD must be between 0 and 1")
	}
	if cfg.Refund.PartialPercent < 0 || cfg.Refund.PartialPercent > 100 {
		return cfg, errors.New("REFUND_PARTIAL_PERCENT must be between 0 and 100")
	}
	if cfg.Refund.FullWindow < cfg.Refund.PartialWindow {
		return cfg, errors.New("REFUND_FULL_WINDOW must not be shorter than REFUND_PARTIAL_WINDOW")
	}
	if cfg.Sweep.Interval <= 0 {
		return cfg, errors.New("SWEEP_INTERVAL must be > 0")
	}
	if cfg.Sweep.Batch < 1 {
		return cfg, errors.New("SWEEP_BATCH must be >= 1")
	}
	if cfg.Sweep.RPS <= 0 {
		return cfg, errors.New("SWEEP_RPS must be > 0")
	}
	if strings.TrimSpace(cfg.MetricsPort) == "" {
		return cfg, errors.New("METRICS_PORT must not be empty")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
