package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	content := `
version = 1

[output]
dir = "build/slices"
indent = 4
compose_version = "3.8"

[docker]
base_image = "jolielang/jolie:1.12"

[slicing]
cycles = "reject"
parallelism = 2

[history]
enabled = true
path = "runs.db"

[watch]
debounce = "1s"
exclude = ["*.tmp"]

[server]
rate_limit = 2.5
burst = 3
`
	path := filepath.Join(t.TempDir(), "slicer.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Output.Dir != "build/slices" || cfg.Output.Indent != 4 {
		t.Errorf("unexpected output section: %+v", cfg.Output)
	}
	if cfg.Output.ComposeVersion != "3.8" {
		t.Errorf("expected compose version 3.8, got %s", cfg.Output.ComposeVersion)
	}
	if cfg.Output.ComposeFile != "docker-compose.yml" {
		t.Errorf("expected default compose file, got %s", cfg.Output.ComposeFile)
	}
	if cfg.Docker.BaseImage != "jolielang/jolie:1.12" || cfg.Docker.Interpreter != "jolie" {
		t.Errorf("unexpected docker section: %+v", cfg.Docker)
	}
	if cfg.Slicing.Cycles != "reject" || cfg.Slicing.Parallelism != 2 {
		t.Errorf("unexpected slicing section: %+v", cfg.Slicing)
	}
	if !cfg.History.Enabled || cfg.History.Path != "runs.db" || cfg.History.BusyTimeout != 5*time.Second {
		t.Errorf("unexpected history section: %+v", cfg.History)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("expected 1s debounce, got %v", cfg.Watch.Debounce)
	}
	if len(cfg.Watch.Exclude) != 1 || cfg.Watch.Exclude[0] != "*.tmp" {
		t.Errorf("expected explicit excludes to replace defaults, got %v", cfg.Watch.Exclude)
	}
	if cfg.Server.RateLimit != 2.5 || cfg.Server.Burst != 3 || cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("unexpected server section: %+v", cfg.Server)
	}
	if cfg.Observability.Port != 9464 || cfg.Observability.ServiceName != "slicer" {
		t.Errorf("unexpected observability defaults: %+v", cfg.Observability)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Slicing.Cycles != "accept" {
		t.Errorf("expected cycles to be accepted by default, got %s", cfg.Slicing.Cycles)
	}
	if cfg.Docker.BaseImage != "jolielang/jolie" {
		t.Errorf("unexpected base image %s", cfg.Docker.BaseImage)
	}
	if cfg.Output.Indent != 2 || cfg.Output.SourceExt != ".ol" {
		t.Errorf("unexpected output defaults: %+v", cfg.Output)
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"version", "version = 3", "unsupported config version"},
		{"cycles", "[slicing]\ncycles = \"ignore\"", "slicing.cycles"},
		{"parallelism", "[slicing]\nparallelism = -1", "slicing.parallelism"},
		{"indent", "[output]\nindent = 40", "output.indent"},
		{"source ext", "[output]\nsource_ext = \"ol\"", "output.source_ext"},
		{"compose file", "[output]\ncompose_file = \"a/b.yml\"", "output.compose_file"},
		{"base image", "[docker]\nbase_image = \"jolie lang\"", "docker.base_image"},
		{"exclude", "[watch]\nexclude = [\"[\"]", "watch.exclude"},
		{"port", "[observability]\nport = 70000", "observability.port"},
		{"tracing", "[observability]\nenable_tracing = true", "otlp_endpoint"},
		{"toml", "[output\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.content)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in %v", tt.want, err)
			}
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, used, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("missing default file must not fail: %v", err)
	}
	if used != "" || cfg.Version != 1 {
		t.Errorf("expected built-in defaults, got %q %+v", used, cfg)
	}

	if err := os.WriteFile(filepath.Join(dir, DefaultFile), []byte("[output]\nindent = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, used, err = LoadOrDefault("")
	if err != nil {
		t.Fatal(err)
	}
	if used != DefaultFile || cfg.Output.Indent != 3 {
		t.Errorf("expected %s to be loaded, got %q indent=%d", DefaultFile, used, cfg.Output.Indent)
	}

	if _, _, err := LoadOrDefault(filepath.Join(dir, "absent.toml")); !os.IsNotExist(err) {
		t.Errorf("explicit missing file must fail with not-exist, got %v", err)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SLICER_DOCKER_BASE_IMAGE", "custom/jolie")
	t.Setenv("SLICER_SLICING_PARALLELISM", "7")
	t.Setenv("SLICER_HISTORY_ENABLED", "TRUE")
	t.Setenv("SLICER_WATCH_DEBOUNCE", "250ms")
	t.Setenv("SLICER_SERVER_RATE_LIMIT", "0.5")
	t.Setenv("SLICER_OBSERVABILITY_PORT", "not-a-number")

	cfg := DefaultConfig()
	ApplyEnvOverrides(cfg)

	if cfg.Docker.BaseImage != "custom/jolie" {
		t.Errorf("base image override not applied: %s", cfg.Docker.BaseImage)
	}
	if cfg.Slicing.Parallelism != 7 {
		t.Errorf("parallelism override not applied: %d", cfg.Slicing.Parallelism)
	}
	if !cfg.History.Enabled {
		t.Error("history override not applied")
	}
	if cfg.Watch.Debounce != 250*time.Millisecond {
		t.Errorf("debounce override not applied: %v", cfg.Watch.Debounce)
	}
	if cfg.Server.RateLimit != 0.5 {
		t.Errorf("rate limit override not applied: %v", cfg.Server.RateLimit)
	}
	if cfg.Observability.Port != 9464 {
		t.Errorf("malformed overrides must be ignored, got port %d", cfg.Observability.Port)
	}
}

func TestResolvePaths(t *testing.T) {
	cfg := DefaultConfig()
	cwd := filepath.FromSlash("/work")

	got, err := ResolvePaths(cfg, cwd, "src/shop.ol.json", "config.json", "")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.FromSlash("/work/src/shop.ol.json"); got.Program != want {
		t.Errorf("program = %s, want %s", got.Program, want)
	}
	if want := filepath.FromSlash("/work/src/shop"); got.OutputDir != want {
		t.Errorf("output = %s, want %s", got.OutputDir, want)
	}
	if want := filepath.FromSlash("/work/config.json"); got.Selection != want {
		t.Errorf("selection = %s, want %s", got.Selection, want)
	}
	if want := filepath.FromSlash("/work/slicer-history.db"); got.HistoryDB != want {
		t.Errorf("history = %s, want %s", got.HistoryDB, want)
	}

	cfg.Output.Dir = "out"
	got, _ = ResolvePaths(cfg, cwd, "shop.ol", "", "")
	if want := filepath.FromSlash("/work/out"); got.OutputDir != want {
		t.Errorf("configured output = %s, want %s", got.OutputDir, want)
	}
	got, _ = ResolvePaths(cfg, cwd, "shop.ol", "", "/tmp/explicit")
	if want := filepath.FromSlash("/tmp/explicit"); got.OutputDir != want {
		t.Errorf("explicit output = %s, want %s", got.OutputDir, want)
	}

	if _, err := ResolvePaths(cfg, "", "shop.ol", "", ""); err == nil {
		t.Error("expected an error for an empty cwd")
	}
}

func TestDefaultOutputDir(t *testing.T) {
	tests := map[string]string{
		"/a/shop.ol":      "/a/shop",
		"/a/shop.ol.json": "/a/shop",
		"/a/shop.json":    "/a/shop",
		"/a/shop":         "/a/shop",
		"/a/.ol":          "/a/slices",
	}
	for in, want := range tests {
		if got := DefaultOutputDir(filepath.FromSlash(in)); got != filepath.FromSlash(want) {
			t.Errorf("DefaultOutputDir(%s) = %s, want %s", in, got, want)
		}
	}
}
