package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"slicer/internal/core/config"
	"slicer/internal/core/errors"
	"slicer/internal/core/ports"
	"slicer/internal/core/selection"
	"slicer/internal/data/artifacts"
	"slicer/internal/data/history"
	"slicer/internal/engine/ast"
	"slicer/internal/engine/graph"
	"slicer/internal/engine/render"
	"slicer/internal/engine/slicer"
	"slicer/internal/shared/observability"
	"slicer/internal/shared/util"
)

type slicingService struct {
	app *App
}

var _ ports.SlicingService = (*slicingService)(nil)

func NewSlicingService(app *App) ports.SlicingService {
	return &slicingService{app: app}
}

func (a *App) SlicingService() ports.SlicingService {
	return NewSlicingService(a)
}

// Slice runs the whole pipeline: load and narrow the selection, decode the
// program, validate, slice, render, then write artifacts or print them.
// Every run, failed or not, is recorded when a history store is configured.
func (s *slicingService) Slice(ctx context.Context, req ports.SliceRequest) (ports.SliceResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "slicingService.Slice", trace.WithAttributes(
		attribute.String("slicer.program", req.Program),
		attribute.Bool("slicer.dry_run", req.DryRun),
	))
	defer span.End()

	if s.app == nil {
		return ports.SliceResult{}, fmt.Errorf("app is required")
	}

	started := time.Now()
	result, err := s.run(ctx, req)
	result.Duration = time.Since(started)

	status := history.StatusOK
	if err != nil {
		status = history.StatusFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, string(errors.CodeOf(err)))
	}
	observability.RunsTotal.WithLabelValues(status).Inc()
	observability.RunDuration.Observe(result.Duration.Seconds())
	result.RunID = s.record(started, req, result, err)

	if err != nil {
		slog.Debug("Slicing run failed", "program", req.Program, "error", err)
		return ports.SliceResult{RunID: result.RunID}, err
	}
	slog.Debug("Slicing run finished",
		"program", result.Program,
		"services", len(result.Services),
		"duration", result.Duration,
		"heap_mb", util.HeapAllocMB())
	return result, nil
}

func (s *slicingService) run(ctx context.Context, req ports.SliceRequest) (ports.SliceResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.SliceResult{}, err
	}
	cfg := s.app.Config

	paths, err := config.ResolvePaths(cfg, s.app.cwd, req.Program, req.Selection, req.OutputDir)
	if err != nil {
		return ports.SliceResult{Program: req.Program}, errors.Wrap(err, errors.CodeValidationError, "resolve paths")
	}
	result := ports.SliceResult{Program: paths.Program, Selection: paths.Selection}
	if !req.DryRun {
		result.OutputDir = paths.OutputDir
	}
	if paths.Selection == "" {
		return result, errors.New(errors.CodeValidationError, "a service configuration file is required")
	}

	var sel *selection.Selection
	err = stage(ctx, "selection", func(context.Context) error {
		sel, err = selection.Load(paths.Selection)
		return err
	})
	if err != nil {
		return result, err
	}

	var program *ast.Program
	err = stage(ctx, "decode", func(context.Context) error {
		program, err = loadProgram(paths.Program)
		return err
	})
	if err != nil {
		return result, err
	}

	// Every configured key is checked, including those --service filters out.
	err = stage(ctx, "validate", func(context.Context) error {
		if err := selection.Validate(sel, graph.Classify(program).Services()); err != nil {
			return err
		}
		sel, err = sel.Narrow(req.Services)
		return err
	})
	if err != nil {
		return result, err
	}

	var sl *slicer.Slicer
	err = stage(ctx, "graph", func(context.Context) error {
		sl, err = slicer.New(program,
			slicer.WithCyclePolicy(s.app.policy),
			slicer.WithParallelism(cfg.Slicing.Parallelism))
		return err
	})
	if err != nil {
		return result, err
	}
	table := sl.Builder().Table()
	cycles := sl.Builder().Cycles()
	observability.GraphDeclarations.Set(float64(table.Len()))
	observability.GraphCycles.Set(float64(len(cycles)))
	for _, cycle := range cycles {
		names := make([]string, 0, len(cycle))
		for _, id := range cycle {
			names = append(names, table.Name(id))
		}
		result.Cycles = append(result.Cycles, names)
	}

	var slices map[string]*ast.Program
	err = stage(ctx, "slice", func(ctx context.Context) error {
		slices, err = sl.Slice(ctx, sel.Names())
		return err
	})
	if err != nil {
		return result, err
	}

	err = stage(ctx, "render", func(context.Context) error {
		result.Services, err = renderSlices(table, slices, cfg.Output.Indent)
		return err
	})
	if err != nil {
		return result, err
	}

	err = stage(ctx, "write", func(context.Context) error {
		if req.DryRun {
			return s.print(result.Services)
		}
		return s.write(paths, sel, &result)
	})
	return result, err
}

// stage runs one pipeline step inside its own span and times it. Domain
// errors are tagged with the stage; anything else is returned unchanged.
func stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := observability.Tracer.Start(ctx, "slicing."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	observability.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err == nil {
		return nil
	}
	span.RecordError(err)
	if len(errors.Codes(err)) > 0 {
		err = errors.AddContext(err, errors.CtxOperation, name)
	}
	return err
}

// loadProgram reads a program tree. I/O errors are returned as is; a
// document that does not decode is INVALID_PROGRAM.
func loadProgram(path string) (*ast.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	program, err := ast.DecodeBytes(data)
	if err != nil {
		de := &errors.DomainError{Code: errors.CodeInvalidProgram, Message: "program tree cannot be decoded", Err: err}
		return nil, de.WithContext(errors.CtxPath, path)
	}
	return program, nil
}

func renderSlices(table *graph.Table, slices map[string]*ast.Program, indent int) ([]ports.SlicedService, error) {
	names := util.SortedStringKeys(slices)
	out := make([]ports.SlicedService, 0, len(names))
	for _, name := range names {
		program := slices[name]
		source, err := render.Program(program, indent)
		if err != nil {
			return nil, errors.AddContext(err, errors.CtxService, name)
		}
		decls := make([]string, 0, len(program.Children))
		for _, child := range program.Children {
			if id, ok := table.Lookup(child); ok {
				decls = append(decls, table.Name(id))
			}
		}
		observability.SlicesTotal.Inc()
		observability.SliceDeclarations.Observe(float64(len(decls)))
		out = append(out, ports.SlicedService{Name: name, Declarations: decls, Source: source})
	}
	return out, nil
}

func (s *slicingService) print(services []ports.SlicedService) error {
	for i, svc := range services {
		if i > 0 {
			if _, err := fmt.Fprintln(s.app.stdout); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(s.app.stdout, "// ---- %s ----\n%s", svc.Name, svc.Source); err != nil {
			return err
		}
	}
	return nil
}

func (s *slicingService) write(paths config.ResolvedPaths, sel *selection.Selection, result *ports.SliceResult) error {
	bundle := artifacts.Bundle{
		ConfigName: filepath.Base(paths.Selection),
		Config:     sel.Raw,
		Slices:     make([]artifacts.Slice, 0, len(result.Services)),
	}
	for _, svc := range result.Services {
		bundle.Slices = append(bundle.Slices, artifacts.Slice{Service: svc.Name, Source: svc.Source})
	}
	written, err := s.app.writer.Write(paths.OutputDir, bundle)
	if err != nil {
		return err
	}
	result.Files = written.Files
	for i := range result.Services {
		result.Services[i].Dir = filepath.Join(written.Dir, artifacts.DirName(result.Services[i].Name))
	}
	return nil
}

// record stores the run and returns its id, or "" when history is off or
// the store failed. A failing store never fails the run itself.
func (s *slicingService) record(started time.Time, req ports.SliceRequest, result ports.SliceResult, runErr error) string {
	if s.app.history == nil {
		return ""
	}
	run := history.Run{
		StartedAt: started.UTC(),
		Duration:  time.Since(started),
		Program:   result.Program,
		Selection: result.Selection,
		OutputDir: result.OutputDir,
		DryRun:    req.DryRun,
		Status:    history.StatusOK,
	}
	if run.Program == "" {
		run.Program = req.Program
	}
	if runErr != nil {
		run.Status = history.StatusFailed
		run.ErrorCode = string(errors.CodeOf(runErr))
		run.ErrorMessage = runErr.Error()
	} else {
		for _, svc := range result.Services {
			run.Slices = append(run.Slices, history.SliceRecord{
				Service:      svc.Name,
				Declarations: len(svc.Declarations),
				Bytes:        len(svc.Source),
			})
		}
	}

	id, err := s.app.history.SaveRun(run)
	if err != nil {
		slog.Warn("Failed to record slicing run", "program", run.Program, "error", err)
		return ""
	}
	return id
}

// Services lists the services a program declares, in source order.
func (s *slicingService) Services(ctx context.Context, program string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.app == nil {
		return nil, fmt.Errorf("app is required")
	}
	path := config.ResolveRelative(s.app.cwd, program)
	tree, err := loadProgram(path)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var names []string
	for _, svc := range tree.Services() {
		if !seen[svc.Name] {
			seen[svc.Name] = true
			names = append(names, svc.Name)
		}
	}
	return names, nil
}

func (s *slicingService) History(ctx context.Context, limit int) ([]history.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.app == nil || s.app.history == nil {
		return nil, errors.New(errors.CodeNotSupported, "run history is disabled")
	}
	runs, err := s.app.history.ListRuns(limit)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxOperation, "list_runs")
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })
	return runs, nil
}
