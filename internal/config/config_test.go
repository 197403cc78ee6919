package config

import (
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every key Load reads so host environments cannot leak in.
// t.Setenv isolates per test and restores afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"LOG_LEVEL", "LOG_PRETTY", "DB_PATH",
		"HOLD_TTL", "RFP_TTL", "CONSENT_DEFAULT_TTL",
		"PHOTO_REVIEW_THRESHOLD",
		"REFUND_FULL_WINDOW", "REFUND_PARTIAL_WINDOW", "REFUND_PARTIAL_PERCENT",
		"SWEEP_INTERVAL", "SWEEP_BATCH", "SWEEP_RPS",
		"METRICS_PORT",
		"OTEL_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE",
		"OTEL_SERVICE_NAME", "OTEL_TRACES_SAMPLER_ARG",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

// --- MustLoad ---

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "verbose") // invalid -> Load() error
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

// --- Load defaults ---

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.DBPath != "goaguide.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.HoldTTL != 15*time.Minute {
		t.Errorf("HoldTTL = %v", cfg.HoldTTL)
	}
	if cfg.RFPTTL != 72*time.Hour {
		t.Errorf("RFPTTL = %v", cfg.RFPTTL)
	}
	if cfg.ConsentDefaultTTL != 30*24*time.Hour {
		t.Errorf("ConsentDefaultTTL = %v", cfg.ConsentDefaultTTL)
	}
	if cfg.PhotoReviewThreshold != 0.80 {
		t.Errorf("PhotoReviewThreshold = %v", cfg.PhotoReviewThreshold)
	}
	if cfg.Refund.FullWindow != 7*24*time.Hour || cfg.Refund.PartialWindow != 24*time.Hour || cfg.Refund.PartialPercent != 50 {
		t.Errorf("Refund = %+v", cfg.Refund)
	}
	if cfg.Sweep.Interval != time.Minute || cfg.Sweep.Batch != 100 || cfg.Sweep.RPS != 50 {
		t.Errorf("Sweep = %+v", cfg.Sweep)
	}
	if cfg.MetricsPort != "9090" {
		t.Errorf("MetricsPort = %q", cfg.MetricsPort)
	}
	if cfg.OTEL.Enabled {
		t.Error("OTEL should default to disabled")
	}
	if cfg.OTEL.ServiceName != "goaguide-core" {
		t.Errorf("OTEL.ServiceName = %q", cfg.OTEL.ServiceName)
	}
}

// --- Load overrides + normalization + parsing ---

func TestLoad_OverridesAndNormalization(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "warning") // will normalize to "warn"
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("DB_PATH", "/tmp/goaguide-test.db")
	t.Setenv("HOLD_TTL", "5m")
	t.Setenv("RFP_TTL", "48h")
	t.Setenv("PHOTO_REVIEW_THRESHOLD", "0.9")
	t.Setenv("REFUND_PARTIAL_PERCENT", "25")
	t.Setenv("SWEEP_RPS", "12.5")
	t.Setenv("METRICS_PORT", "9191")
	t.Setenv("OTEL_ENABLED", "on")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if !cfg.LogPretty {
		t.Error("LogPretty should parse truthy strings")
	}
	if cfg.DBPath != "/tmp/goaguide-test.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.HoldTTL != 5*time.Minute || cfg.RFPTTL != 48*time.Hour {
		t.Errorf("windows not applied: hold=%v rfp=%v", cfg.HoldTTL, cfg.RFPTTL)
	}
	if cfg.PhotoReviewThreshold != 0.9 {
		t.Errorf("PhotoReviewThreshold = %v", cfg.PhotoReviewThreshold)
	}
	if cfg.Refund.PartialPercent != 25 {
		t.Errorf("Refund.PartialPercent = %d", cfg.Refund.PartialPercent)
	}
	if cfg.Sweep.RPS != 12.5 {
		t.Errorf("Sweep.RPS = %v", cfg.Sweep.RPS)
	}
	if cfg.MetricsPort != "9191" {
		t.Errorf("MetricsPort = %q", cfg.MetricsPort)
	}
	if !cfg.OTEL.Enabled || cfg.OTEL.SampleRatio != 0.25 {
		t.Errorf("OTEL = %+v", cfg.OTEL)
	}
}

func TestLoad_UnparsableValuesFallBackToDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOLD_TTL", "soon")     // -> default 15m
	t.Setenv("SWEEP_BATCH", "many")  // -> default 100
	t.Setenv("SWEEP_RPS", "x")       // -> default 50
	t.Setenv("LOG_PRETTY", "kinda")  // -> default false

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HoldTTL != 15*time.Minute {
		t.Errorf("HoldTTL = %v", cfg.HoldTTL)
	}
	if cfg.Sweep.Batch != 100 || cfg.Sweep.RPS != 50 {
		t.Errorf("Sweep = %+v", cfg.Sweep)
	}
	if cfg.LogPretty {
		t.Error("unparsable LOG_PRETTY should stay false")
	}
}

// --- Load validation failures ---

func TestLoad_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"negative hold ttl", map[string]string{"HOLD_TTL": "-1m"}, "HOLD_TTL"},
		{"negative rfp ttl", map[string]string{"RFP_TTL": "-1h"}, "RFP_TTL"},
		{"negative consent ttl", map[string]string{"CONSENT_DEFAULT_TTL": "-1h"}, "CONSENT_DEFAULT_TTL"},
		{"threshold above one", map[string]string{"PHOTO_REVIEW_THRESHOLD": "1.5"}, "PHOTO_REVIEW_THRESHOLD"},
		{"percent above hundred", map[string]string{"REFUND_PARTIAL_PERCENT": "120"}, "REFUND_PARTIAL_PERCENT"},
		{"inverted refund windows", map[string]string{"REFUND_FULL_WINDOW": "1h", "REFUND_PARTIAL_WINDOW": "24h"}, "REFUND_FULL_WINDOW"},
		{"zero sweep interval", map[string]string{"SWEEP_INTERVAL": "-1s"}, "SWEEP_INTERVAL"},
		{"zero sweep batch", map[string]string{"SWEEP_BATCH": "0"}, "SWEEP_BATCH"},
		{"negative sweep rps", map[string]string{"SWEEP_RPS": "-1"}, "SWEEP_RPS"},
		{"bad sampler ratio", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "2"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}
