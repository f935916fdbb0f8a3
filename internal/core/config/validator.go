package config

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Validate checks every section of an already defaulted configuration.
func Validate(cfg *Config) error {
	validators := []func(*Config) error{
		validateVersion,
		validateOutput,
		validateDocker,
		validateSlicing,
		validateHistory,
		validateWatch,
		validateServer,
		validateObservability,
	}
	for _, validate := range validators {
		if err := validate(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateOutput(cfg *Config) error {
	if cfg.Output.Indent > 16 {
		return fmt.Errorf("output.indent must be between 1 and 16, got %d", cfg.Output.Indent)
	}
	if !strings.HasPrefix(cfg.Output.SourceExt, ".") {
		return fmt.Errorf("output.source_ext must start with a dot, got %q", cfg.Output.SourceExt)
	}
	if strings.ContainsAny(cfg.Output.ComposeFile, `/\`) {
		return fmt.Errorf("output.compose_file must be a file name, got %q", cfg.Output.ComposeFile)
	}
	return nil
}

func validateDocker(cfg *Config) error {
	if strings.ContainsAny(cfg.Docker.BaseImage, " \t\n") {
		return fmt.Errorf("docker.base_image must not contain whitespace, got %q", cfg.Docker.BaseImage)
	}
	if strings.TrimSpace(cfg.Docker.Interpreter) != cfg.Docker.Interpreter {
		return fmt.Errorf("docker.interpreter must not have surrounding whitespace")
	}
	return nil
}

func validateSlicing(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Slicing.Cycles)) {
	case "accept", "reject":
	default:
		return fmt.Errorf("slicing.cycles must be one of: accept, reject")
	}
	if cfg.Slicing.Parallelism < 0 {
		return fmt.Errorf("slicing.parallelism must be >= 0, got %d", cfg.Slicing.Parallelism)
	}
	return nil
}

func validateHistory(cfg *Config) error {
	if cfg.History.Enabled && strings.TrimSpace(cfg.History.Path) == "" {
		return fmt.Errorf("history.path must not be empty when history is enabled")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	for _, pattern := range cfg.Watch.Exclude {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("watch.exclude pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func validateServer(cfg *Config) error {
	if cfg.Server.Burst < 1 {
		return fmt.Errorf("server.burst must be >= 1")
	}
	if cfg.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	for _, op := range cfg.Server.Operations {
		if strings.TrimSpace(op) == "" {
			return fmt.Errorf("server.operations must not contain empty entries")
		}
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.Port < 1 || cfg.Observability.Port > 65535 {
		return fmt.Errorf("observability.port must be between 1 and 65535, got %d", cfg.Observability.Port)
	}
	if cfg.Observability.EnableTracing && strings.TrimSpace(cfg.Observability.OTLPEndpoint) == "" {
		return fmt.Errorf("observability.otlp_endpoint is required when tracing is enabled")
	}
	return nil
}
