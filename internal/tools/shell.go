package tools

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Output tails kept from a shell command.
const (
	shellStdoutTail = 8000
	shellStderrTail = 2000
)

// ExecResult holds the outcome of a process run.
type ExecResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"code"`
}

// shellTool implements shell. The gateway checks the command against the
// allowlist before Execute runs.
type shellTool struct {
	dir     string
	timeout time.Duration
}

func (t *shellTool) Name() string { return "shell" }

func (t *shellTool) Description() string {
	return "Run an allowlisted shell command in the workspace (default allowlist: echo, ls)."
}

func (t *shellTool) Class() Class { return ClassShell }

func (t *shellTool) Parameters() map[string]interface{} {
	return object(map[string]interface{}{
		"cmd": prop("string", "Command line to execute"),
	}, "cmd")
}

func (t *shellTool) Command(args map[string]interface{}) string {
	return strings.TrimSpace(optionalString(args, "cmd"))
}

func (t *shellTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	command, err := stringArg(args, "cmd")
	if err != nil {
		return nil, err
	}

	res, err := runCommand(ctx, t.dir, command, t.timeout, shellStdoutTail, shellStderrTail)
	if res == nil {
		return nil, err
	}
	return res, err
}

// runCommand runs command through sh with a timeout and trims output to the
// given tails. A non-zero exit is returned as an error alongside the result.
func runCommand(ctx context.Context, dir, command string, timeout time.Duration, stdoutTail, stderrTail int) (*ExecResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = dir

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := &ExecResult{
		Stdout: tailRunes(stdout.String(), stdoutTail),
		Stderr: tailRunes(stderr.String(), stderrTail),
	}

	if runCtx.Err() == context.DeadlineExceeded {
		res.ExitCode = -1
		return res, fmt.Errorf("command timed out after %s", timeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, fmt.Errorf("exit status %d", res.ExitCode)
		}
		return nil, fmt.Errorf("failed to execute command: %w", err)
	}
	return res, nil
}
