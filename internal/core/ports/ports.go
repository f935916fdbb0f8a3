package ports

import (
	"context"
	"time"

	"slicer/internal/data/history"
)

// HistoryStore abstracts run persistence for the --history workflows.
type HistoryStore interface {
	SaveRun(run history.Run) (string, error)
	ListRuns(limit int) ([]history.Run, error)
}

// SliceRequest defines one slicing run for driving adapters. Relative paths
// are resolved against the service working directory.
type SliceRequest struct {
	Program   string
	Selection string
	OutputDir string
	// Services narrows the selection to the names matching these globs.
	Services []string
	DryRun   bool
}

// SlicedService is one service of a completed run.
type SlicedService struct {
	Name         string
	Declarations []string
	Source       string
	Dir          string
}

// SliceResult summarizes a completed slicing run.
type SliceResult struct {
	RunID     string
	Program   string
	Selection string
	OutputDir string
	Services  []SlicedService
	Files     []string
	Cycles    [][]string
	Duration  time.Duration
}

// SlicingService is the driving port used by the CLI, the watcher, the slice
// browser and the remote tool.
type SlicingService interface {
	Slice(ctx context.Context, req SliceRequest) (SliceResult, error)
	// Services lists the services declared by a program, in source order.
	Services(ctx context.Context, program string) ([]string, error)
	History(ctx context.Context, limit int) ([]history.Run, error)
}

// WatchService re-runs a slicing request whenever its inputs change.
type WatchService interface {
	Start(ctx context.Context, req SliceRequest, onResult func(SliceResult, error)) error
	Stop() error
}
