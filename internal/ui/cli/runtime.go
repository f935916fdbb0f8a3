package cli

import (
	"context"
	stdErrors "errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	coreapp "slicer/internal/core/app"
	"slicer/internal/core/config"
	"slicer/internal/core/errors"
	"slicer/internal/core/ports"
	"slicer/internal/data/history"
	mcpruntime "slicer/internal/mcp/runtime"
	"slicer/internal/shared/observability"
)

type environment struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cwd    string
}

func Run(args []string) int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "slicer: detect working directory: %v\n", err)
		return 1
	}
	return run(args, environment{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr, cwd: cwd})
}

func run(args []string, env environment) int {
	opts, err := parseOptions(args, env.stderr)
	if err != nil {
		if stdErrors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(env.stderr, "slicer: %v\n", err)
		return 2
	}
	if opts.version {
		fmt.Fprintf(env.stdout, "slicer v%s\n", versionString)
		return 0
	}
	if err := validateModeCompatibility(opts); err != nil {
		fmt.Fprintf(env.stderr, "slicer: %v\n", err)
		return 2
	}

	cleanupLogs := configureLogging(env.stderr, opts.ui, opts.verbose)
	defer cleanupLogs()

	cfg, cfgPath, err := loadSettings(opts.settings, env.cwd)
	if err != nil {
		slog.Error("failed to load settings", "path", cfgPath, "error", err)
		return 1
	}
	applyModeOptions(opts, cfg)
	if err := config.Validate(cfg); err != nil {
		slog.Error("invalid settings", "path", cfgPath, "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Observability.EnableTracing {
		shutdown, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint, cfg.Observability.ServiceName)
		if err != nil {
			slog.Error("failed to initialize tracing", "error", err)
			return 1
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				slog.Warn("failed to flush traces", "error", err)
			}
		}()
	}

	store, err := openHistoryStoreIfEnabled(cfg, env.cwd)
	if err != nil {
		slog.Error("history setup failed", "error", err)
		return 1
	}
	if store != nil {
		defer store.Close()
		slog.Debug("recording run history", "path", store.Path())
	}

	appOpts := []coreapp.Option{coreapp.WithWorkingDir(env.cwd), coreapp.WithStdout(env.stdout)}
	if store != nil {
		appOpts = append(appOpts, coreapp.WithHistory(store))
	}
	app, err := coreapp.New(cfg, appOpts...)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	defer app.Close(context.Background())
	service := app.SlicingService()

	if addr := metricsAddress(opts, cfg); addr != "" {
		obs := NewObservabilityServer(addr, coreapp.NewHealthService(app))
		if err := obs.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "error", err)
			return 1
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = obs.Stop(shutdownCtx)
		}()
	}

	if opts.historyList > 0 {
		return printHistory(ctx, env, service, opts.historyList)
	}
	if opts.serve {
		return serve(ctx, cfg, service, env)
	}

	req := ports.SliceRequest{
		Program:   opts.program,
		Selection: opts.selection,
		OutputDir: opts.output,
		Services:  opts.services,
		DryRun:    opts.dryRun,
	}
	result, sliceErr := service.Slice(ctx, req)
	if sliceErr != nil {
		reportError(env.stderr, sliceErr)
	} else if !opts.dryRun && !opts.ui {
		printSummary(env.stdout, result)
	}

	switch {
	case opts.ui:
		if err := runUI(ctx, service, app.WatchService(), req, cfg.Output.SourceExt, opts.watch, result, sliceErr); err != nil {
			slog.Error("failed to run UI", "error", err)
			return 1
		}
		return 0
	case opts.watch:
		return watch(ctx, app.WatchService(), req, env, opts.dryRun)
	case sliceErr != nil:
		return 1
	}
	return 0
}

func watch(ctx context.Context, svc ports.WatchService, req ports.SliceRequest, env environment, dryRun bool) int {
	err := svc.Start(ctx, req, func(result ports.SliceResult, err error) {
		if err != nil {
			reportError(env.stderr, err)
			return
		}
		if !dryRun {
			printSummary(env.stdout, result)
		}
	})
	if err != nil {
		slog.Error("failed to start watcher", "error", err)
		return 1
	}
	<-ctx.Done()
	if err := svc.Stop(); err != nil {
		slog.Warn("failed to stop watcher", "error", err)
	}
	return 0
}

func serve(ctx context.Context, cfg *config.Config, service ports.SlicingService, env environment) int {
	server, err := mcpruntime.Build(cfg, mcpruntime.Dependencies{
		Slicing: service,
		Logger:  slog.Default(),
	}, env.stdin, env.stdout)
	if err != nil {
		slog.Error("failed to build remote tool", "error", err)
		return 1
	}
	if err := server.Start(ctx); err != nil && !stdErrors.Is(err, context.Canceled) {
		slog.Error("remote tool stopped", "error", err)
		return 1
	}
	return 0
}

// loadSettings reads path, or slicer.toml in cwd when path is empty.
func loadSettings(path, cwd string) (*config.Config, string, error) {
	if strings.TrimSpace(path) == "" {
		candidate := filepath.Join(cwd, config.DefaultFile)
		if _, err := os.Stat(candidate); err != nil {
			if os.IsNotExist(err) {
				cfg := config.DefaultConfig()
				config.ApplyEnvOverrides(cfg)
				return cfg, "", nil
			}
			return nil, candidate, err
		}
		path = candidate
	}
	path = config.ResolveRelative(cwd, path)
	cfg, path, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, path, err
	}
	config.ApplyEnvOverrides(cfg)
	return cfg, path, nil
}

func applyModeOptions(opts cliOptions, cfg *config.Config) {
	if opts.history || opts.historyList > 0 {
		cfg.History.Enabled = true
	}
	if opts.metricsAddr != "" {
		cfg.Observability.Enabled = true
	}
}

func metricsAddress(opts cliOptions, cfg *config.Config) string {
	if opts.metricsAddr != "" {
		return opts.metricsAddr
	}
	if cfg.Observability.Enabled && cfg.Observability.EnableMetrics {
		return fmt.Sprintf(":%d", cfg.Observability.Port)
	}
	return ""
}

func openHistoryStoreIfEnabled(cfg *config.Config, cwd string) (*history.Store, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	path := config.ResolveRelative(cwd, cfg.History.Path)
	store, err := history.Open(path, cfg.History.BusyTimeout)
	if err != nil {
		return nil, fmt.Errorf("open history store %s: %w", path, err)
	}
	return store, nil
}

func printHistory(ctx context.Context, env environment, service ports.SlicingService, limit int) int {
	out := env.stdout
	runs, err := service.History(ctx, limit)
	if err != nil {
		reportError(env.stderr, err)
		return 1
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No recorded runs.")
		return 0
	}
	for _, run := range runs {
		status := run.Status
		if run.ErrorCode != "" {
			status += " " + run.ErrorCode
		}
		services := make([]string, 0, len(run.Slices))
		for _, s := range run.Slices {
			services = append(services, s.Service)
		}
		fmt.Fprintf(out, "%s  %s  %-6s  %s  %s\n",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.ID,
			status,
			run.Program,
			strings.Join(services, ","))
	}
	return 0
}

func printSummary(out io.Writer, result ports.SliceResult) {
	fmt.Fprintf(out, "Sliced %d services into %s in %v\n", len(result.Services), result.OutputDir, result.Duration.Round(time.Millisecond))
	for _, svc := range result.Services {
		fmt.Fprintf(out, "  %-24s %2d declarations  %s\n", svc.Name, len(svc.Declarations), svc.Dir)
	}
	for _, cycle := range result.Cycles {
		fmt.Fprintf(out, "  cycle: %s\n", strings.Join(cycle, " -> "))
	}
}

// reportError prints one line per member of a joined error.
func reportError(out io.Writer, err error) {
	for _, line := range strings.Split(errors.Summary(err), "\n") {
		fmt.Fprintf(out, "slicer: %s\n", line)
	}
}

func configureLogging(stderr io.Writer, uiMode, verbose bool) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	// stdout carries slices and protocol messages, so logs never go there.
	output := stderr
	closeFn := func() {}
	if uiMode {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
			fmt.Fprintf(stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		} else {
			f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
			if err == nil {
				output = f
				closeFn = func() { _ = f.Close() }
			} else {
				fmt.Fprintf(stderr, "warning: failed to open log file %s: %v\n", logPath, err)
			}
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel})))
	return closeFn
}

func resolveLogPath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "slicer", "slicer.log")
	}
	return filepath.Join(os.TempDir(), "slicer.log")
}
