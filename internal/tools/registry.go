package tools

import (
	"fmt"
	"sort"
	"sync"
)

// Params is the argument bag passed to a tool handler.
type Params map[string]any

func (p Params) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

func (p Params) Strings(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// ParamSpec declares one parameter of a tool schema.
type ParamSpec struct {
	Type        string // "string", "number", "boolean", "array"
	Required    bool
	Description string
}

type Schema map[string]ParamSpec

// Handler executes a tool with validated parameters.
type Handler func(params Params) (any, error)

// Tool is a registry entry: a named operation with a declared schema.
type Tool struct {
	Name        string
	Description string
	Params      Schema
	Handler     Handler
}

// Registry holds the fixed tool catalog. Registration happens once at
// startup; lookups are read-mostly and safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

func (r *Registry) Register(t *Tool) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("register: tool must have a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke validates params against the tool schema and runs the handler.
// Handler failures come back wrapped as *ToolExecutionError.
func (r *Registry) Invoke(name string, params Params) (any, error) {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	if err := validate(t, params); err != nil {
		return nil, err
	}

	result, err := t.Handler(params)
	if err != nil {
		return nil, &ToolExecutionError{Tool: name, Err: err}
	}
	return result, nil
}

func validate(t *Tool, params Params) error {
	for key, spec := range t.Params {
		v, present := params[key]
		if !present || v == nil {
			if spec.Required {
				return &InvalidParametersError{Tool: t.Name, Reason: fmt.Sprintf("missing required parameter %q", key)}
			}
			continue
		}
		if !typeMatches(spec.Type, v) {
			return &InvalidParametersError{Tool: t.Name, Reason: fmt.Sprintf("parameter %q must be a %s", key, spec.Type)}
		}
	}
	return nil
}

func typeMatches(want string, v any) bool {
	switch want {
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		switch v.(type) {
		case int, int64, float64:
			return true
		}
		return false
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "array":
		switch v.(type) {
		case []any, []string:
			return true
		}
		return false
	}
	return true
}
