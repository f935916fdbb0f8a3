package cli

import (
	"context"
	"errors"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"slicer/internal/core/ports"
)

// runUI shows the first run's result and, with watch set, every rerun.
func runUI(ctx context.Context, service ports.SlicingService, watch ports.WatchService, req ports.SliceRequest, sourceExt string, watchEnabled bool, first ports.SliceResult, firstErr error) error {
	rerun := func() tea.Msg {
		result, err := service.Slice(ctx, req)
		return resultMsg{result: result, err: err}
	}
	m := initialModel(rerun, sourceExt)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if watchEnabled {
		err := watch.Start(ctx, req, func(result ports.SliceResult, err error) {
			p.Send(resultMsg{result: result, err: err})
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := watch.Stop(); err != nil {
				slog.Warn("failed to stop watcher", "error", err)
			}
		}()
	}

	go p.Send(resultMsg{result: first, err: firstErr})

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
