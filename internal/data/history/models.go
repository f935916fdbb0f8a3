package history

import "time"

const SchemaVersion = 1

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one slicing run as recorded in the history database.
type Run struct {
	ID            string
	SchemaVersion int
	StartedAt     time.Time
	Duration      time.Duration
	Program       string
	Selection     string
	OutputDir     string
	DryRun        bool
	Status        string
	ErrorCode     string
	ErrorMessage  string
	Slices        []SliceRecord
}

// SliceRecord summarizes one service slice of a run.
type SliceRecord struct {
	Service      string
	Declarations int
	Bytes        int
}
