package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultFile is looked up in the working directory when no settings file
// is given.
const DefaultFile = "slicer.toml"

type Config struct {
	Version       int           `toml:"version"`
	Output        Output        `toml:"output"`
	Docker        Docker        `toml:"docker"`
	Slicing       Slicing       `toml:"slicing"`
	History       History       `toml:"history"`
	Watch         Watch         `toml:"watch"`
	Server        Server        `toml:"server"`
	Observability Observability `toml:"observability"`
}

type Output struct {
	Dir            string `toml:"dir"`
	Indent         int    `toml:"indent"`
	SourceExt      string `toml:"source_ext"`
	ComposeFile    string `toml:"compose_file"`
	ComposeVersion string `toml:"compose_version"`
}

type Docker struct {
	BaseImage   string `toml:"base_image"`
	Interpreter string `toml:"interpreter"`
}

type Slicing struct {
	Cycles      string `toml:"cycles"`
	Parallelism int    `toml:"parallelism"`
}

type History struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	Exclude  []string      `toml:"exclude"`
}

type Server struct {
	RateLimit      float64       `toml:"rate_limit"`
	Burst          int           `toml:"burst"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	// Operations restricts the remote operations exposed; empty exposes all.
	Operations []string `toml:"operations"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	Port          int    `toml:"port"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
	EnableMetrics bool   `toml:"enable_metrics"`
	ServiceName   string `toml:"service_name"`
}

// DefaultConfig is the configuration used when no settings file exists.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load decodes a TOML settings file, fills defaults and validates every
// section.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

func Parse(data string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path, or DefaultFile when path is empty. A missing
// DefaultFile yields DefaultConfig; a missing explicit path is an error.
func LoadOrDefault(path string) (*Config, string, error) {
	if path != "" {
		cfg, err := Load(path)
		return cfg, path, err
	}
	if _, err := os.Stat(DefaultFile); err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), "", nil
		}
		return nil, "", err
	}
	cfg, err := Load(DefaultFile)
	return cfg, DefaultFile, err
}
