package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: SLICER_[SECTION]_[KEY] (e.g., SLICER_DOCKER_BASE_IMAGE).
func ApplyEnvOverrides(cfg *Config) {
	// Output
	setEnvString(&cfg.Output.Dir, "SLICER_OUTPUT_DIR")
	setEnvInt(&cfg.Output.Indent, "SLICER_OUTPUT_INDENT")
	setEnvString(&cfg.Output.ComposeVersion, "SLICER_OUTPUT_COMPOSE_VERSION")

	// Docker
	setEnvString(&cfg.Docker.BaseImage, "SLICER_DOCKER_BASE_IMAGE")
	setEnvString(&cfg.Docker.Interpreter, "SLICER_DOCKER_INTERPRETER")

	// Slicing
	setEnvString(&cfg.Slicing.Cycles, "SLICER_SLICING_CYCLES")
	setEnvInt(&cfg.Slicing.Parallelism, "SLICER_SLICING_PARALLELISM")

	// History
	setEnvBool(&cfg.History.Enabled, "SLICER_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "SLICER_HISTORY_PATH")
	setEnvDuration(&cfg.History.BusyTimeout, "SLICER_HISTORY_BUSY_TIMEOUT")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "SLICER_WATCH_DEBOUNCE")

	// Server
	setEnvFloat64(&cfg.Server.RateLimit, "SLICER_SERVER_RATE_LIMIT")
	setEnvInt(&cfg.Server.Burst, "SLICER_SERVER_BURST")
	setEnvDuration(&cfg.Server.RequestTimeout, "SLICER_SERVER_REQUEST_TIMEOUT")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "SLICER_OBSERVABILITY_ENABLED")
	setEnvInt(&cfg.Observability.Port, "SLICER_OBSERVABILITY_PORT")
	setEnvString(&cfg.Observability.OTLPEndpoint, "SLICER_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "SLICER_OBSERVABILITY_ENABLE_TRACING")
	setEnvBool(&cfg.Observability.EnableMetrics, "SLICER_OBSERVABILITY_ENABLE_METRICS")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("Applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("Applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("Applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("Applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("Applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
