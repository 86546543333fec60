// Package tools provides the tool registry and built-in tools.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Class groups tools by the sandbox rules that apply to them.
type Class string

const (
	ClassFilesystem Class = "filesystem"
	ClassShell      Class = "shell"
	ClassGeneral    Class = "general"
)

// Tool is a named capability the model can invoke. Handlers receive
// arguments that have already passed the security gateway and must not
// perform sandboxing of their own.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Class() Class
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// PathArgs is implemented by filesystem tools; it names the arguments that
// hold workspace paths.
type PathArgs interface {
	PathArgs() []string
}

// EmbeddedPaths is implemented by tools whose arguments carry paths inside
// free text, such as diff headers.
type EmbeddedPaths interface {
	EmbeddedPaths(args map[string]interface{}) []string
}

// Commander is implemented by shell tools; it returns the command line the
// call would execute.
type Commander interface {
	Command(args map[string]interface{}) string
}

// Definition describes a tool for the model.
type Definition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Class       Class                  `json:"class"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// Call is a tool invocation proposed by the model.
type Call struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

// Result is the outcome of a call. Error holds a machine-readable code,
// Detail a human-readable explanation.
type Result struct {
	Success bool        `json:"success"`
	Output  interface{} `json:"output,omitempty"`
	Error   string      `json:"error,omitempty"`
	Detail  string      `json:"detail,omitempty"`
}

// Registry maps tool names to tools. It is read-only once the run starts.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = t
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns registered tool names, sorted.
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

// Definitions returns definitions for all tools, sorted by name.
func (r *Registry) Definitions() []Definition {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		defs = append(defs, Definition{
			Name:        t.Name(),
			Description: t.Description(),
			Class:       t.Class(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
