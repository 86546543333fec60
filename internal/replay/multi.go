package replay

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vinayprograms/agentmaker/internal/trace"
)

// MultiReplayer renders several traces one after another.
type MultiReplayer struct {
	output    io.Writer
	verbosity int
}

// NewMulti creates a new MultiReplayer.
func NewMulti(output io.Writer, verbosity int) *MultiReplayer {
	return &MultiReplayer{
		output:    output,
		verbosity: verbosity,
	}
}

// runInfo holds a loaded trace with its source.
type runInfo struct {
	Events  []trace.Event
	Source  string
	RunID   string
	Started time.Time
}

// TracePath accepts a trace file or a run directory.
func TracePath(arg string) string {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		return filepath.Join(arg, trace.FileName)
	}
	return arg
}

// ReplayFiles outputs every trace to the writer.
func (m *MultiReplayer) ReplayFiles(paths []string) error {
	runs, err := m.loadRuns(paths)
	if err != nil {
		return err
	}
	return m.replayAll(m.output, runs)
}

// ReplayFilesInteractive shows every trace in one pager.
func (m *MultiReplayer) ReplayFilesInteractive(paths []string) error {
	runs, err := m.loadRuns(paths)
	if err != nil {
		return err
	}

	var buf strings.Builder
	if err := m.replayAll(&buf, runs); err != nil {
		return err
	}

	title := fmt.Sprintf("%d run(s)", len(runs))
	if len(runs) == 1 {
		title = fmt.Sprintf("Run: %s", runs[0].RunID)
	}
	return NewPager(title).Run(buf.String())
}

// loadRuns loads all traces, oldest first.
func (m *MultiReplayer) loadRuns(paths []string) ([]runInfo, error) {
	var runs []runInfo

	for _, path := range paths {
		path = TracePath(path)
		events, err := trace.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		for i := range events {
			events[i].Payload = capStrings(events[i].Payload, defaultMaxContentSize)
		}

		info := runInfo{
			Events: events,
			Source: path,
			RunID:  runID(events),
		}
		if len(events) > 0 {
			info.Started = events[0].Timestamp
		}
		runs = append(runs, info)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Started.Before(runs[j].Started)
	})
	return runs, nil
}

// replayAll renders all runs.
func (m *MultiReplayer) replayAll(w io.Writer, runs []runInfo) error {
	r := New(w, m.verbosity)

	for i, info := range runs {
		if len(runs) > 1 {
			printRunHeader(w, info, i+1, len(runs))
		}
		if err := r.Replay(info.Events); err != nil {
			return fmt.Errorf("failed to replay %s: %w", info.Source, err)
		}
		if i < len(runs)-1 {
			fmt.Fprintln(w)
		}
	}
	return nil
}

// Run header styles
var (
	runHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("6")) // Cyan background

	runDividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")) // Cyan
)

// printRunHeader prints a distinctive header for each run.
func printRunHeader(w io.Writer, info runInfo, num, total int) {
	shortID := info.RunID
	if len(shortID) > 12 {
		shortID = shortID[:12]
	}

	header := fmt.Sprintf(" [%d/%d] %s │ %s ", num, total, shortID,
		info.Started.Format("2006-01-02 15:04:05"))

	fmt.Fprintln(w)
	fmt.Fprintln(w, runDividerStyle.Render(strings.Repeat("━", 70)))
	fmt.Fprintln(w, runHeaderStyle.Render(header))
	fmt.Fprintln(w, runDividerStyle.Render(strings.Repeat("━", 70)))
}
