package config

import (
	"strings"
	"time"
)

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if cfg.Output.Indent <= 0 {
		cfg.Output.Indent = 2
	}
	if strings.TrimSpace(cfg.Output.SourceExt) == "" {
		cfg.Output.SourceExt = ".ol"
	}
	if strings.TrimSpace(cfg.Output.ComposeFile) == "" {
		cfg.Output.ComposeFile = "docker-compose.yml"
	}
	if strings.TrimSpace(cfg.Output.ComposeVersion) == "" {
		cfg.Output.ComposeVersion = "3.9"
	}

	if strings.TrimSpace(cfg.Docker.BaseImage) == "" {
		cfg.Docker.BaseImage = "jolielang/jolie"
	}
	if strings.TrimSpace(cfg.Docker.Interpreter) == "" {
		cfg.Docker.Interpreter = "jolie"
	}

	// Recursive types are legal, so cycles are accepted unless asked otherwise.
	if strings.TrimSpace(cfg.Slicing.Cycles) == "" {
		cfg.Slicing.Cycles = "accept"
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = "slicer-history.db"
	}
	if cfg.History.BusyTimeout <= 0 {
		cfg.History.BusyTimeout = 5 * time.Second
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.Exclude == nil {
		cfg.Watch.Exclude = []string{"*.swp", "*~", ".#*"}
	}

	if cfg.Server.RateLimit <= 0 {
		cfg.Server.RateLimit = 5
	}
	if cfg.Server.Burst <= 0 {
		cfg.Server.Burst = 10
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}

	if cfg.Observability.Port == 0 {
		cfg.Observability.Port = 9464
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "slicer"
	}
}
