package tools

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const patchTimeout = 15 * time.Second

// patchTool implements fs.patch by piping a unified diff into the system
// patch program. Header paths are validated by the gateway via EmbeddedPaths.
type patchTool struct {
	root string
}

func (t *patchTool) Name() string { return "fs.patch" }

func (t *patchTool) Description() string {
	return "Apply a unified diff to files in the workspace (supports dry_run, strip and reverse)."
}

func (t *patchTool) Class() Class { return ClassFilesystem }

func (t *patchTool) Parameters() map[string]interface{} {
	return object(map[string]interface{}{
		"patch":   prop("string", "Unified diff text"),
		"dry_run": prop("boolean", "Check the patch without changing files"),
		"strip":   prop("integer", "Leading path components to strip (-p), default 0"),
		"reverse": prop("boolean", "Apply the patch in reverse"),
	}, "patch")
}

// EmbeddedPaths returns the file paths patch will open, stripped the same
// way the handler strips them.
func (t *patchTool) EmbeddedPaths(args map[string]interface{}) []string {
	return DiffPaths(optionalString(args, "patch"), intArg(args, "strip", 0))
}

func (t *patchTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	patchText, err := stringArg(args, "patch")
	if err != nil {
		return nil, err
	}
	bin, err := exec.LookPath("patch")
	if err != nil {
		return nil, fmt.Errorf("the 'patch' program is not installed")
	}

	dryRun := boolArg(args, "dry_run")
	strip := intArg(args, "strip", 0)
	if strip < 0 {
		return nil, fmt.Errorf("strip must not be negative")
	}
	cmdArgs := []string{"-p" + strconv.Itoa(strip), "--force"}
	if dryRun {
		cmdArgs = append(cmdArgs, "--dry-run")
	}
	if boolArg(args, "reverse") {
		cmdArgs = append(cmdArgs, "-R")
	}

	runCtx, cancel := context.WithTimeout(ctx, patchTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, bin, cmdArgs...)
	cmd.Dir = t.root
	cmd.Stdin = strings.NewReader(patchText)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	out := map[string]interface{}{
		"stdout":  tailRunes(stdout.String(), shellStdoutTail),
		"stderr":  tailRunes(stderr.String(), shellStderrTail),
		"code":    0,
		"dry_run": dryRun,
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			out["code"] = exitErr.ExitCode()
			return out, fmt.Errorf("patch failed with exit status %d", exitErr.ExitCode())
		}
		return nil, fmt.Errorf("failed to run patch: %w", runErr)
	}
	return out, nil
}

// DiffPaths extracts the paths named in unified (---/+++) and context
// (***/---) diff headers after removing strip leading components, as
// patch -p does. Timestamps and /dev/null entries are dropped. A name with
// too few components is returned whole.
func DiffPaths(diff string, strip int) []string {
	var paths []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(diff, "\n") {
		line = strings.TrimRight(line, "\r")
		if !strings.HasPrefix(line, "+++ ") && !strings.HasPrefix(line, "--- ") && !strings.HasPrefix(line, "*** ") {
			continue
		}
		// context diff hunk ranges: "*** 1,4 ****" and "--- 1,4 ----"
		if strings.HasSuffix(line, " ****") || strings.HasSuffix(line, " ----") {
			continue
		}
		part := strings.TrimSpace(line[4:])
		if i := strings.IndexAny(part, "\t "); i >= 0 {
			part = part[:i]
		}
		if part == "" || part == "/dev/null" {
			continue
		}
		part = stripComponents(part, strip)
		if seen[part] {
			continue
		}
		seen[part] = true
		paths = append(paths, part)
	}
	return paths
}

// stripComponents drops n leading slash-separated components. Runs of
// slashes count as one.
func stripComponents(path string, n int) string {
	rest := path
	for i := 0; i < n; i++ {
		idx := strings.Index(rest, "/")
		if idx < 0 {
			return path
		}
		rest = strings.TrimLeft(rest[idx+1:], "/")
	}
	if rest == "" {
		return path
	}
	return rest
}
