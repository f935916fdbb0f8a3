package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"slicer/internal/core/config"
	"slicer/internal/mcp/contracts"
	"slicer/internal/mcp/schema"
	"slicer/internal/shared/observability"
	"slicer/internal/shared/util"
)

const protocolVersion = "2025-06-18"

type Handler func(ctx context.Context, tool string, raw map[string]any) (any, error)

type Adapter interface {
	Start(ctx context.Context, handler Handler) error
	Stop() error
}

// Stdio serves newline separated JSON-RPC 2.0 messages, plus the bare
// {"tool", "args"} form, over a reader/writer pair.
type Stdio struct {
	in      io.Reader
	out     io.Writer
	tools   []schema.ToolDefinition
	limiter *util.Limiter

	mu      sync.Mutex
	running bool
}

func NewStdio(in io.Reader, out io.Writer, cfg config.Server, tools []schema.ToolDefinition) (*Stdio, error) {
	if in == nil || out == nil {
		return nil, fmt.Errorf("stdio transport needs both streams")
	}
	s := &Stdio{in: in, out: out, tools: tools}
	if cfg.RateLimit > 0 {
		s.limiter = util.NewLimiter(cfg.RateLimit, cfg.Burst)
	}
	return s, nil
}

// Start serves until the input ends or ctx is cancelled. End of input is a
// clean shutdown.
func (s *Stdio) Start(ctx context.Context, handler Handler) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("stdio transport already running")
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	err := s.serve(ctx, handler)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Stdio) Stop() error {
	return nil
}

// message is any inbound line. JSON-RPC messages carry Method; the bare
// form carries Tool and Args.
type message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	Tool    string          `json:"tool"`
	Args    map[string]any  `json:"args"`
}

func (m message) isRPC() bool {
	return m.JSONRPC != "" && m.Method != ""
}

type toolResponse struct {
	ID     any                  `json:"id,omitempty"`
	OK     bool                 `json:"ok"`
	Result any                  `json:"result,omitempty"`
	Error  *contracts.ToolError `json:"error,omitempty"`
}

type rpcResponse struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id,omitempty"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcRateLimited    = -32005
)

type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// rpcMethod produces the result of one JSON-RPC method.
type rpcMethod func(ctx context.Context, handler Handler, params json.RawMessage) any

func (s *Stdio) methods() map[string]rpcMethod {
	return map[string]rpcMethod{
		"initialize": func(context.Context, Handler, json.RawMessage) any {
			return map[string]any{
				"protocolVersion": protocolVersion,
				"capabilities":    map[string]any{"tools": map[string]any{}},
				"serverInfo": map[string]any{
					"name":    contracts.ToolNameSlicer,
					"version": contracts.ContractVersion,
				},
			}
		},
		"ping": func(context.Context, Handler, json.RawMessage) any {
			return map[string]any{}
		},
		"tools/list": func(context.Context, Handler, json.RawMessage) any {
			tools := make([]map[string]any, len(s.tools))
			for i, def := range s.tools {
				tools[i] = map[string]any{
					"name":        def.Name,
					"description": def.Description,
					"inputSchema": def.InputSchema,
				}
			}
			return map[string]any{"tools": tools}
		},
		"tools/call": callTool,
	}
}

func callTool(ctx context.Context, handler Handler, raw json.RawMessage) any {
	var params callParams
	if len(raw) > 0 {
		// Malformed params reach the handler as an unnamed tool call.
		_ = json.Unmarshal(raw, &params)
	}
	if params.Arguments == nil {
		params.Arguments = map[string]any{}
	}
	result, err := handler(ctx, params.Name, params.Arguments)
	if err != nil {
		toolErr := normalizeToolError(err)
		return toolContent(true, toolErr, fmt.Sprintf("%s: %s", toolErr.Code, toolErr.Message))
	}
	return toolContent(false, result, jsonText(result))
}

func toolContent(isError bool, structured any, text string) map[string]any {
	return map[string]any{
		"isError":           isError,
		"structuredContent": structured,
		"content":           []map[string]any{{"type": "text", "text": text}},
	}
}

func (s *Stdio) serve(ctx context.Context, handler Handler) error {
	if handler == nil {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "stdio handler is required"}
	}

	dec := json.NewDecoder(bufio.NewReader(s.in))
	w := bufio.NewWriter(s.out)
	enc := json.NewEncoder(w)
	send := func(v any) error {
		if err := enc.Encode(v); err != nil {
			return err
		}
		return w.Flush()
	}
	methods := s.methods()

	for ctx.Err() == nil {
		var msg message
		err := dec.Decode(&msg)
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.As(err, &typeErr):
			if err := send(rpcFault(nil, rpcInvalidRequest, "Invalid Request", nil)); err != nil {
				return err
			}
			continue
		case err != nil:
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				// The stream cannot be resynchronised after a syntax error.
				_ = send(rpcFault(nil, rpcParseError, "Parse error", nil))
			}
			return err
		}

		reply := s.dispatch(ctx, handler, methods, msg)
		if reply == nil {
			continue
		}
		if err := send(reply); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// dispatch answers one message; nil means no reply is due.
func (s *Stdio) dispatch(ctx context.Context, handler Handler, methods map[string]rpcMethod, msg message) any {
	if s.limiter != nil && !s.limiter.Allow(1) {
		observability.RemoteRequestsTotal.WithLabelValues("rate_limited").Inc()
		return rpcFault(msg.ID, rpcRateLimited, "Rate limit exceeded", map[string]any{"code": contracts.ErrorRateLimited})
	}

	if !msg.isRPC() {
		if msg.Args == nil {
			msg.Args = map[string]any{}
		}
		result, err := handler(ctx, msg.Tool, msg.Args)
		if err != nil {
			toolErr := normalizeToolError(err)
			return toolResponse{ID: msg.ID, Error: &toolErr}
		}
		return toolResponse{ID: msg.ID, OK: true, Result: result}
	}

	if msg.Method == "notifications/initialized" {
		return nil
	}
	method, ok := methods[msg.Method]
	if !ok {
		return rpcFault(msg.ID, rpcMethodNotFound, "Method not found", nil)
	}
	return rpcResponse{JSONRPC: "2.0", ID: msg.ID, Result: method(ctx, handler, msg.Params)}
}

func rpcFault(id any, code int, text string, data map[string]any) rpcResponse {
	return rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: text, Data: data}}
}

func jsonText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func normalizeToolError(err error) contracts.ToolError {
	var toolErr contracts.ToolError
	if errors.As(err, &toolErr) {
		return toolErr
	}
	return contracts.ToolError{Code: contracts.ErrorInternal, Message: err.Error()}
}
