package builtin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	porttool "github.com/alanyang/agent-exec/internal/port/tooldispatch"
)

var ErrUnknownTool = errors.New("unknown tool")

type ToolFunc func(ctx context.Context, params map[string]any) (any, error)

// Dispatcher routes tool calls to registered funcs by name.
type Dispatcher struct {
	mu    sync.RWMutex
	tools map[string]ToolFunc
}

var _ porttool.Dispatcher = (*Dispatcher)(nil)

func NewDispatcher() *Dispatcher {
	return &Dispatcher{tools: make(map[string]ToolFunc)}
}

// Handle registers fn under name, replacing any previous handler.
func (d *Dispatcher) Handle(name string, fn ToolFunc) {
	d.mu.Lock()
	d.tools[name] = fn
	d.mu.Unlock()
}

func (d *Dispatcher) Tools() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.tools))
	for n := range d.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (d *Dispatcher) Dispatch(ctx context.Context, call porttool.Call) (any, error) {
	d.mu.RLock()
	fn, ok := d.tools[call.Tool]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("dispatch %s: %w", call.Tool, ErrUnknownTool)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("dispatch %s: %w", call.Tool, err)
	}
	return fn(ctx, call.Params)
}

// TextTools returns a dispatcher with the echo and upper tools. Both read the
// "text" param.
func TextTools() *Dispatcher {
	d := NewDispatcher()
	d.Handle("echo", func(_ context.Context, params map[string]any) (any, error) {
		return textParam(params)
	})
	d.Handle("upper", func(_ context.Context, params map[string]any) (any, error) {
		s, err := textParam(params)
		if err != nil {
			return nil, err
		}
		return strings.ToUpper(s), nil
	})
	return d
}

func textParam(params map[string]any) (string, error) {
	v, ok := params["text"]
	if !ok {
		return "", errors.New("missing param: text")
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("param text must be a string, got %T", v)
	}
	return s, nil
}
