package app

import (
	"context"
	"fmt"
	"time"
)

type HealthStatus struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components"`
}

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

// Check reports "up", or "degraded" when a configured component fails.
func (s *HealthService) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	status.Components["slicing"] = fmt.Sprintf("ok (cycles=%s)", s.app.policy)

	switch {
	case s.app.history != nil:
		if err := ctx.Err(); err != nil {
			status.Status = "degraded"
			status.Components["history"] = err.Error()
		} else if _, err := s.app.history.ListRuns(1); err != nil {
			status.Status = "degraded"
			status.Components["history"] = fmt.Sprintf("error: %v", err)
		} else {
			status.Components["history"] = "ok"
		}
	case s.app.Config.History.Enabled:
		status.Status = "degraded"
		status.Components["history"] = "missing but enabled in config"
	default:
		status.Components["history"] = "disabled"
	}

	s.app.watchMu.Lock()
	w := s.app.watch
	s.app.watchMu.Unlock()
	if w != nil && w.running() {
		status.Components["watcher"] = "watching"
	} else {
		status.Components["watcher"] = "idle"
	}

	return status
}
