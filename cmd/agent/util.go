package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vinayprograms/agentmaker/internal/agent"
)

// Run prints version information.
func (c *VersionCmd) Run() error {
	fmt.Printf("agent version %s (commit: %s, built: %s)\n", version, commit, buildTime)
	return nil
}

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// printState prints a human summary of a finished run.
func printState(w io.Writer, s *agent.RunState) {
	fmt.Fprintf(w, "run:    %s\n", s.RunID)
	fmt.Fprintf(w, "status: %s (%d/%d steps)\n", s.Status, s.Step, s.MaxSteps)
	if s.TracePath != "" {
		fmt.Fprintf(w, "trace:  %s\n", s.TracePath)
	}
	if len(s.Plan) > 0 {
		fmt.Fprintln(w, "plan:")
		for _, item := range s.Plan {
			fmt.Fprintf(w, "  [%s] %s\n", item.Status, item.Description)
		}
	}
	switch s.Status {
	case agent.StatusCompleted:
		fmt.Fprintf(w, "\n%s\n", s.FinalAnswer)
	case agent.StatusFailed:
		fmt.Fprintf(w, "error:  %s: %s\n", s.ErrorCode, s.Error)
	}
}

// truncate shortens s to n runes on one line.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
