package agent

import (
	"context"
	"fmt"
	"sort"
)

// ToolFunc is the uniform signature the executor calls tools through.
// Arguments arrive as a decoded JSON object; results are returned the
// same way so they can be persisted and referenced by later steps.
type ToolFunc func(ctx context.Context, args map[string]any) (map[string]any, error)

// ToolAdapter exposes a registry of named tools to the workflow executor.
type ToolAdapter struct {
	tools map[string]ToolFunc
}

// NewToolAdapter wraps a tool registry. The map may be nil.
func NewToolAdapter(tools map[string]ToolFunc) *ToolAdapter {
	if tools == nil {
		tools = map[string]ToolFunc{}
	}
	return &ToolAdapter{tools: tools}
}

// Register adds or replaces a tool.
func (a *ToolAdapter) Register(name string, fn ToolFunc) {
	a.tools[name] = fn
}

// GetTool looks up a tool by name.
func (a *ToolAdapter) GetTool(name string) (ToolFunc, error) {
	fn, ok := a.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool %q not found", name)
	}
	return fn, nil
}

// HasTool reports whether a tool is registered.
func (a *ToolAdapter) HasTool(name string) bool {
	_, ok := a.tools[name]
	return ok
}

// ListTools returns registered tool names in sorted order.
func (a *ToolAdapter) ListTools() []string {
	names := make([]string, 0, len(a.tools))
	for name := range a.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
