// Package gateway vets tool calls against the workspace sandbox and the
// shell allowlist before any handler runs.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vinayprograms/agentmaker/internal/config"
	"github.com/vinayprograms/agentmaker/internal/logging"
	"github.com/vinayprograms/agentmaker/internal/tools"
)

// Result error codes.
const (
	CodeUnknownTool           = "unknown_tool"
	CodeSandboxViolation      = "sandbox_violation"
	CodeCommandNotAllowlisted = "command_not_allowlisted"
	CodeToolFailed            = "tool_failed"
)

var (
	ErrSandboxViolation      = errors.New(CodeSandboxViolation)
	ErrCommandNotAllowlisted = errors.New(CodeCommandNotAllowlisted)
)

// shellOperators may not appear anywhere in a command line.
const shellOperators = "\n\r;&|><`$()"

// Config is the gateway's view of the run configuration.
type Config struct {
	Workspace string
	Allowlist []string // nil selects config.DefaultShellAllowlist
	Logger    *logging.Logger
}

// Gateway is the only path from a proposed tool call to a handler.
type Gateway struct {
	registry *tools.Registry
	root     string
	allow    map[string]bool
	logger   *logging.Logger
}

// New creates a gateway rooted at cfg.Workspace. The root is resolved once,
// symlinks included, and must be an existing directory.
func New(registry *tools.Registry, cfg Config) (*Gateway, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Workspace == "" {
		return nil, fmt.Errorf("workspace is required")
	}
	abs, err := filepath.Abs(cfg.Workspace)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}
	root, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat workspace: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace %s is not a directory", root)
	}

	allowlist := cfg.Allowlist
	if allowlist == nil {
		allowlist = config.DefaultShellAllowlist
	}
	allow := make(map[string]bool, len(allowlist))
	for _, a := range allowlist {
		if a = strings.TrimSpace(a); a != "" {
			allow[a] = true
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Gateway{
		registry: registry,
		root:     root,
		allow:    allow,
		logger:   logger.WithComponent("gateway"),
	}, nil
}

// Root returns the resolved workspace root.
func (g *Gateway) Root() string {
	return g.root
}

// Execute vets call and, if accepted, runs its handler. Rejections and
// handler failures are returned as unsuccessful results, never as errors.
func (g *Gateway) Execute(ctx context.Context, call tools.Call) tools.Result {
	tool, ok := g.registry.Get(call.Name)
	if !ok {
		return g.reject(call.Name, CodeUnknownTool, fmt.Sprintf("tool %q is not registered", call.Name))
	}

	args := make(map[string]interface{}, len(call.Args))
	for k, v := range call.Args {
		args[k] = v
	}

	switch tool.Class() {
	case tools.ClassFilesystem:
		if err := g.checkPaths(tool, args); err != nil {
			return g.reject(call.Name, CodeSandboxViolation, err.Error())
		}
	case tools.ClassShell:
		cmdr, ok := tool.(tools.Commander)
		if !ok {
			return g.reject(call.Name, CodeCommandNotAllowlisted, "tool does not expose its command")
		}
		if err := g.CheckCommand(cmdr.Command(args)); err != nil {
			return g.reject(call.Name, CodeCommandNotAllowlisted, err.Error())
		}
	}

	g.logger.ToolCall(call.Name)
	start := time.Now()
	output, err := tool.Execute(ctx, args)
	if err != nil {
		g.logger.ToolResult(call.Name, time.Since(start), CodeToolFailed)
		return tools.Result{
			Success: false,
			Output:  output,
			Error:   CodeToolFailed,
			Detail:  err.Error(),
		}
	}
	g.logger.ToolResult(call.Name, time.Since(start), "")
	return tools.Result{Success: true, Output: output}
}

// checkPaths validates every path the tool declares. Accepted path arguments
// are rewritten to their resolved absolute form.
func (g *Gateway) checkPaths(tool tools.Tool, args map[string]interface{}) error {
	if pa, ok := tool.(tools.PathArgs); ok {
		for _, key := range pa.PathArgs() {
			raw, ok := args[key].(string)
			if !ok || strings.TrimSpace(raw) == "" {
				continue
			}
			resolved, err := g.ResolvePath(raw)
			if err != nil {
				return err
			}
			args[key] = resolved
		}
	}
	if ep, ok := tool.(tools.EmbeddedPaths); ok {
		for _, raw := range ep.EmbeddedPaths(args) {
			if _, err := g.ResolvePath(raw); err != nil {
				return err
			}
		}
	}
	return nil
}

// ResolvePath resolves raw against the workspace root. Relative paths are
// joined to the root; the longest existing prefix is symlink-resolved. A
// result outside the root yields ErrSandboxViolation.
func (g *Gateway) ResolvePath(raw string) (string, error) {
	candidate := raw
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(g.root, candidate)
	}
	candidate = filepath.Clean(candidate)

	if !within(g.root, candidate) {
		return "", fmt.Errorf("%w: %s escapes the workspace", ErrSandboxViolation, raw)
	}
	resolved, err := resolveExistingPrefix(candidate)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrSandboxViolation, raw, err)
	}
	if !within(g.root, resolved) {
		return "", fmt.Errorf("%w: %s resolves outside the workspace", ErrSandboxViolation, raw)
	}
	return resolved, nil
}

// CheckCommand reports whether a command line may run. The leading token
// must be allowlisted and no shell operators may appear.
func (g *Gateway) CheckCommand(command string) error {
	command = strings.TrimSpace(command)
	if command == "" {
		return fmt.Errorf("%w: empty command", ErrCommandNotAllowlisted)
	}
	if i := strings.IndexAny(command, shellOperators); i >= 0 {
		return fmt.Errorf("%w: operator %q is not permitted", ErrCommandNotAllowlisted, command[i:i+1])
	}
	verb := strings.Fields(command)[0]
	if !g.allow[verb] {
		return fmt.Errorf("%w: command %q is not allowlisted", ErrCommandNotAllowlisted, verb)
	}
	return nil
}

func (g *Gateway) reject(tool, code, detail string) tools.Result {
	g.logger.SecurityDeny(tool, code, detail)
	return tools.Result{Success: false, Error: code, Detail: detail}
}

// maxLinkHops bounds how many dangling links are followed by hand.
const maxLinkHops = 40

// resolveExistingPrefix symlink-resolves the longest existing prefix of path
// and re-attaches the rest. A dangling link is followed to its target so a
// later create through it is judged by where it would land.
func resolveExistingPrefix(path string) (string, error) {
	return resolvePrefix(path, 0)
}

func resolvePrefix(path string, hops int) (string, error) {
	current := path
	for {
		info, err := os.Lstat(current)
		if err != nil {
			if !os.IsNotExist(err) {
				return "", err
			}
			parent := filepath.Dir(current)
			if parent == current {
				return filepath.Clean(path), nil
			}
			current = parent
			continue
		}

		rest, err := filepath.Rel(current, path)
		if err != nil {
			return "", err
		}
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Clean(filepath.Join(resolved, rest)), nil
		}
		if !os.IsNotExist(err) || info.Mode()&os.ModeSymlink == 0 {
			return "", err
		}

		if hops >= maxLinkHops {
			return "", fmt.Errorf("too many levels of symbolic links at %s", current)
		}
		target, err := os.Readlink(current)
		if err != nil {
			return "", err
		}
		if !filepath.IsAbs(target) {
			dir, err := filepath.EvalSymlinks(filepath.Dir(current))
			if err != nil {
				return "", err
			}
			target = filepath.Join(dir, target)
		}
		return resolvePrefix(filepath.Join(target, rest), hops+1)
	}
}

func within(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
