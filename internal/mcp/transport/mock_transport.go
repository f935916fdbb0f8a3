package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MockAdapter is an in-process Adapter for tests. Call round-trips its
// arguments through JSON so handlers see the same value types a stream
// client would produce.
type MockAdapter struct {
	calls    chan mockCall
	done     chan struct{}
	stopOnce sync.Once
}

type mockCall struct {
	tool  string
	args  map[string]any
	reply chan mockReply
}

type mockReply struct {
	out any
	err error
}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{calls: make(chan mockCall), done: make(chan struct{})}
}

func (m *MockAdapter) Start(ctx context.Context, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("handler is required")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.done:
			return nil
		case c := <-m.calls:
			out, err := handler(ctx, c.tool, c.args)
			c.reply <- mockReply{out: out, err: err}
		}
	}
}

func (m *MockAdapter) Stop() error {
	m.stopOnce.Do(func() { close(m.done) })
	return nil
}

func (m *MockAdapter) Call(ctx context.Context, tool string, args map[string]any) (any, error) {
	wire, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	var decoded map[string]any
	if err := json.Unmarshal(wire, &decoded); err != nil {
		return nil, err
	}

	c := mockCall{tool: tool, args: decoded, reply: make(chan mockReply, 1)}
	select {
	case m.calls <- c:
	case <-m.done:
		return nil, fmt.Errorf("mock adapter stopped")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	r := <-c.reply
	return r.out, r.err
}
