package tools

import (
	"fmt"
	"time"
)

// BuiltinNames lists every built-in tool in display order.
var BuiltinNames = []string{"todo", "fs.read", "fs.write", "shell", "code.search", "fs.patch", "test.run"}

// DefaultNames is the tool set used when an agent spec names none.
var DefaultNames = []string{"todo", "fs", "shell"}

// Options configure built-in tools.
type Options struct {
	Workspace    string        // Absolute workspace root; process tools run here
	ShellTimeout time.Duration // shell tool timeout (default 10s)
}

// New constructs a single built-in tool by name.
func New(name string, opts Options) (Tool, error) {
	timeout := opts.ShellTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	switch name {
	case "todo":
		return &todoTool{}, nil
	case "fs.read":
		return &readTool{maxChars: DefaultMaxReadChars}, nil
	case "fs.write":
		return &writeTool{}, nil
	case "shell":
		return &shellTool{dir: opts.Workspace, timeout: timeout}, nil
	case "code.search":
		return &searchTool{root: opts.Workspace}, nil
	case "fs.patch":
		return &patchTool{root: opts.Workspace}, nil
	case "test.run":
		return &testRunTool{dir: opts.Workspace}, nil
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// BuildFromNames builds a registry from tool names. "fs" expands to fs.read
// and fs.write; repeated names are registered once.
func BuildFromNames(names []string, opts Options) (*Registry, error) {
	reg := NewRegistry()
	for _, n := range names {
		expanded := []string{n}
		if n == "fs" {
			expanded = []string{"fs.read", "fs.write"}
		}
		for _, name := range expanded {
			if _, exists := reg.Get(name); exists {
				continue
			}
			tool, err := New(name, opts)
			if err != nil {
				return nil, err
			}
			if err := reg.Register(tool); err != nil {
				return nil, err
			}
		}
	}
	return reg, nil
}
