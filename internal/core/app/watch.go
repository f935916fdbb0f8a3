package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"slicer/internal/core/config"
	"slicer/internal/core/errors"
	"slicer/internal/core/ports"
	"slicer/internal/core/watcher"
)

type watchService struct {
	app *App

	mu      sync.Mutex
	active  *watcher.Watcher
	pending context.CancelFunc
}

var _ ports.WatchService = (*watchService)(nil)

// WatchService returns the app's single watch service.
func (a *App) WatchService() ports.WatchService {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()
	if a.watch == nil {
		a.watch = &watchService{app: a}
	}
	return a.watch
}

// Start watches the program and selection files of req and slices again
// after every debounced batch of changes. The first run is left to the
// caller. onResult receives every rerun's outcome.
func (w *watchService) Start(ctx context.Context, req ports.SliceRequest, onResult func(ports.SliceResult, error)) error {
	if onResult == nil {
		return fmt.Errorf("result callback is required")
	}
	cfg := w.app.Config
	targets := []string{config.ResolveRelative(w.app.cwd, req.Program)}
	if req.Selection != "" {
		targets = append(targets, config.ResolveRelative(w.app.cwd, req.Selection))
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.active != nil {
		return errors.New(errors.CodeValidationError, "watcher already running")
	}

	service := w.app.SlicingService()
	fsw, err := watcher.NewWatcher(cfg.Watch.Debounce, cfg.Watch.Exclude, func(changed []string) {
		runCtx, cancel := context.WithCancel(ctx)
		w.mu.Lock()
		w.pending = cancel
		w.mu.Unlock()
		defer cancel()

		slog.Info("Inputs changed, slicing again", "files", changed)
		result, err := service.Slice(runCtx, req)
		onResult(result, err)
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "create watcher")
	}
	if err := fsw.Watch(targets); err != nil {
		_ = fsw.Close()
		return errors.AddContext(err, errors.CtxOperation, "watch")
	}
	w.active = fsw
	slog.Info("Watching for changes", "files", targets, "debounce", cfg.Watch.Debounce)
	return nil
}

func (w *watchService) running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active != nil
}

// Stop cancels a rerun in flight and releases the file watcher.
func (w *watchService) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending()
		w.pending = nil
	}
	if w.active == nil {
		return nil
	}
	err := w.active.Close()
	w.active = nil
	return err
}
