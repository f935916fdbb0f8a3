package runtime

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"slicer/internal/core/config"
	"slicer/internal/core/errors"
	"slicer/internal/core/ports"
	"slicer/internal/data/history"
	"slicer/internal/mcp/contracts"
	"slicer/internal/mcp/registry"
	"slicer/internal/mcp/transport"
	"slicer/internal/mcp/validate"
	"slicer/internal/shared/observability"
)

type Dependencies struct {
	Slicing ports.SlicingService
	Logger  *slog.Logger
}

// Server answers remote tool calls with the slicing service.
type Server struct {
	cfg       *config.Config
	deps      Dependencies
	registry  *registry.Registry
	transport transport.Adapter
	validator *validate.Validator

	mu      sync.Mutex
	running bool
}

func New(cfg *config.Config, deps Dependencies, reg *registry.Registry, adapter transport.Adapter, validator *validate.Validator) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Slicing == nil {
		return nil, fmt.Errorf("slicing service dependency is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if reg == nil {
		reg = registry.New()
	}
	if adapter == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if validator == nil {
		return nil, fmt.Errorf("validator is required")
	}

	s := &Server{
		cfg:       cfg,
		deps:      deps,
		registry:  reg,
		transport: adapter,
		validator: validator,
	}
	if err := s.registerOperations(); err != nil {
		return nil, err
	}
	return s, nil
}

// Start serves until the transport ends or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}
	s.running = true
	s.mu.Unlock()

	s.deps.Logger.Info("remote tool active", "tool", contracts.ToolNameSlicer, "operations", s.registry.Operations())
	err := s.transport.Start(ctx, s.handleToolCall)

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return err
}

func (s *Server) Stop() error {
	return s.transport.Stop()
}

func (s *Server) registerOperations() error {
	handlers := map[contracts.OperationID]registry.Handler{
		contracts.OperationSlice:        s.handleSlice,
		contracts.OperationServicesList: s.handleServicesList,
		contracts.OperationHistoryList:  s.handleHistoryList,
	}
	for id, handler := range handlers {
		if !s.validator.Allows(id) {
			continue
		}
		if err := s.registry.Register(id, handler); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleToolCall(ctx context.Context, tool string, raw map[string]any) (any, error) {
	timeout := s.cfg.Server.RequestTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := s.dispatch(ctx, tool, raw)
	if err != nil {
		observability.RemoteRequestsTotal.WithLabelValues("fault").Inc()
		toolErr := toToolError(err)
		s.deps.Logger.Debug("remote call failed", "tool", tool, "code", toolErr.Code, "error", err)
		return nil, toolErr
	}
	observability.RemoteRequestsTotal.WithLabelValues("ok").Inc()
	return out, nil
}

func (s *Server) dispatch(ctx context.Context, tool string, raw map[string]any) (any, error) {
	operation, input, err := s.validator.ParseToolArgs(tool, raw)
	if err != nil {
		return nil, err
	}
	handler, ok := s.registry.HandlerFor(operation)
	if !ok {
		return nil, contracts.ToolError{Code: contracts.ErrorUnavailable, Message: fmt.Sprintf("operation not registered: %s", operation)}
	}
	out, err := handler(ctx, input)
	if err != nil {
		return nil, err
	}
	return wrapToolResult(operation, out), nil
}

// handleSlice writes the artifacts of every configured service. Success
// carries no data.
func (s *Server) handleSlice(ctx context.Context, input any) (any, error) {
	in := input.(contracts.SliceInput)
	_, err := s.deps.Slicing.Slice(ctx, ports.SliceRequest{
		Program:   in.Program,
		Selection: in.Config,
		OutputDir: in.OutputDirectory,
		Services:  in.Services,
	})
	if err != nil {
		return nil, err
	}
	return contracts.SliceOutput{}, nil
}

func (s *Server) handleServicesList(ctx context.Context, input any) (any, error) {
	in := input.(contracts.ServicesListInput)
	names, err := s.deps.Slicing.Services(ctx, in.Program)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return contracts.ServicesListOutput{Services: names}, nil
}

func (s *Server) handleHistoryList(ctx context.Context, input any) (any, error) {
	in := input.(contracts.HistoryListInput)
	runs, err := s.deps.Slicing.History(ctx, in.Limit)
	if err != nil {
		return nil, err
	}
	out := contracts.HistoryListOutput{Runs: make([]contracts.RunSummary, 0, len(runs))}
	for _, run := range runs {
		out.Runs = append(out.Runs, toRunSummary(run))
	}
	return out, nil
}

func toRunSummary(run history.Run) contracts.RunSummary {
	summary := contracts.RunSummary{
		ID:        run.ID,
		StartedAt: run.StartedAt.UTC().Format(time.RFC3339),
		Program:   run.Program,
		OutputDir: run.OutputDir,
		Status:    run.Status,
		ErrorCode: run.ErrorCode,
	}
	for _, slice := range run.Slices {
		summary.Services = append(summary.Services, slice.Service)
	}
	return summary
}

func wrapToolResult(operation contracts.OperationID, payload any) any {
	return map[string]any{
		"version":   contracts.ContractVersion,
		"operation": operation,
		"result":    payload,
	}
}

// toToolError turns err into the fault a remote caller sees. Domain errors
// keep their code; every code of a joined error is listed in the details.
func toToolError(err error) contracts.ToolError {
	var toolErr contracts.ToolError
	if stdErrors.As(err, &toolErr) {
		return toolErr
	}
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return contracts.ToolError{Code: contracts.ErrorUnavailable, Message: "request timed out"}
	}
	if codes := errors.Codes(err); len(codes) > 0 {
		names := make([]string, 0, len(codes))
		for _, code := range codes {
			names = append(names, string(code))
		}
		return contracts.ToolError{
			Code:    string(errors.CodeOf(err)),
			Message: errors.Summary(err),
			Details: map[string]any{"codes": names},
		}
	}
	var pathErr *fs.PathError
	if stdErrors.As(err, &pathErr) {
		return contracts.ToolError{
			Code:    contracts.ErrorIO,
			Message: err.Error(),
			Details: map[string]any{"path": pathErr.Path},
		}
	}
	return contracts.ToolError{Code: contracts.ErrorInternal, Message: err.Error()}
}
