package tools

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// DefaultTestCommand is run by test.run when no cmd is given.
const DefaultTestCommand = "go test ./..."

const (
	testStdoutTail   = 12000
	testStderrTail   = 4000
	testMaxFailures  = 20
	defaultTestLimit = 60
)

var (
	testPassRe    = regexp.MustCompile(`(?m)^\s*--- PASS: `)
	testFailRe    = regexp.MustCompile(`(?m)^\s*--- FAIL: (\S+)`)
	testSkipRe    = regexp.MustCompile(`(?m)^\s*--- SKIP: `)
	testPkgOKRe   = regexp.MustCompile(`(?m)^ok[ \t]+\S+`)
	testPkgFailRe = regexp.MustCompile(`(?m)^FAIL[ \t]+\S+`)
)

// TestSummary is parsed from go test output.
type TestSummary struct {
	Passed         int      `json:"passed"`
	Failed         int      `json:"failed"`
	Skipped        int      `json:"skipped"`
	PackagesOK     int      `json:"packages_ok"`
	PackagesFailed int      `json:"packages_failed"`
	Failures       []string `json:"failures,omitempty"`
}

// testRunTool implements test.run. It is shell class: the effective command
// must pass the allowlist.
type testRunTool struct {
	dir string
}

func (t *testRunTool) Name() string { return "test.run" }

func (t *testRunTool) Description() string {
	return "Run the test suite with a timeout and summarize the results (default: go test ./...)."
}

func (t *testRunTool) Class() Class { return ClassShell }

func (t *testRunTool) Parameters() map[string]interface{} {
	return object(map[string]interface{}{
		"cmd":     prop("string", "Custom test command"),
		"timeout": prop("integer", "Timeout in seconds (default 60)"),
	})
}

func (t *testRunTool) Command(args map[string]interface{}) string {
	if c := strings.TrimSpace(optionalString(args, "cmd")); c != "" {
		return c
	}
	return DefaultTestCommand
}

func (t *testRunTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	command := t.Command(args)
	timeout := intArg(args, "timeout", defaultTestLimit)
	if timeout <= 0 {
		timeout = defaultTestLimit
	}

	res, err := runCommand(ctx, t.dir, command, time.Duration(timeout)*time.Second, testStdoutTail, testStderrTail)
	if res == nil {
		return nil, err
	}
	out := map[string]interface{}{
		"cmd":     command,
		"code":    res.ExitCode,
		"stdout":  res.Stdout,
		"stderr":  res.Stderr,
		"summary": ParseTestSummary(res.Stdout + "\n" + res.Stderr),
	}
	return out, err
}

// ParseTestSummary counts test and package outcomes in go test output.
func ParseTestSummary(output string) TestSummary {
	s := TestSummary{
		Passed:         len(testPassRe.FindAllStringIndex(output, -1)),
		Skipped:        len(testSkipRe.FindAllStringIndex(output, -1)),
		PackagesOK:     len(testPkgOKRe.FindAllStringIndex(output, -1)),
		PackagesFailed: len(testPkgFailRe.FindAllStringIndex(output, -1)),
	}
	for _, m := range testFailRe.FindAllStringSubmatch(output, -1) {
		s.Failed++
		if len(s.Failures) < testMaxFailures {
			s.Failures = append(s.Failures, m[1])
		}
	}
	return s
}
