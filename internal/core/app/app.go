package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"slicer/internal/core/config"
	"slicer/internal/core/ports"
	"slicer/internal/data/artifacts"
	"slicer/internal/engine/graph"
)

// App holds what every slicing run shares: settings, the artifact writer
// and the optional run history.
type App struct {
	Config *config.Config

	cwd     string
	policy  graph.CyclePolicy
	writer  *artifacts.Writer
	history ports.HistoryStore
	stdout  io.Writer

	watchMu sync.Mutex
	watch   *watchService
}

type Option func(*App)

// WithHistory records every run in store.
func WithHistory(store ports.HistoryStore) Option {
	return func(a *App) { a.history = store }
}

// WithStdout redirects dry-run output, os.Stdout by default.
func WithStdout(w io.Writer) Option {
	return func(a *App) { a.stdout = w }
}

// WithWorkingDir sets the directory relative paths are resolved against,
// the process working directory by default.
func WithWorkingDir(dir string) Option {
	return func(a *App) { a.cwd = dir }
}

func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	policy, err := graph.ParseCyclePolicy(cfg.Slicing.Cycles)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		policy: policy,
		writer: artifacts.NewWriter(artifacts.OptionsFromConfig(cfg)),
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.cwd == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("detect working directory: %w", err)
		}
		a.cwd = cwd
	}
	return a, nil
}

// Close stops an active watcher. The history store belongs to the caller.
func (a *App) Close(_ context.Context) error {
	a.watchMu.Lock()
	w := a.watch
	a.watch = nil
	a.watchMu.Unlock()
	if w == nil {
		return nil
	}
	return w.Stop()
}
