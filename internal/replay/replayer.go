// Package replay renders run traces as a readable timeline.
package replay

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vinayprograms/agentmaker/internal/trace"
)

// defaultMaxContentSize caps each payload string at 50KB.
const defaultMaxContentSize = 50 * 1024

// Replayer reads and formats trace events.
type Replayer struct {
	output         io.Writer
	verbosity      int // 0=normal, 1=verbose (-v), 2=very verbose (-vv)
	maxContentSize int // Maximum size of a payload string (0 = unlimited)
}

// ReplayerOption configures a Replayer.
type ReplayerOption func(*Replayer)

// WithMaxContentSize limits payload strings to avoid OOM on large traces.
func WithMaxContentSize(size int) ReplayerOption {
	return func(r *Replayer) {
		r.maxContentSize = size
	}
}

// New creates a new Replayer.
func New(output io.Writer, verbosity int, opts ...ReplayerOption) *Replayer {
	r := &Replayer{
		output:         output,
		verbosity:      verbosity,
		maxContentSize: defaultMaxContentSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReplayFile loads and replays a trace file.
func (r *Replayer) ReplayFile(path string) error {
	events, err := r.load(path)
	if err != nil {
		return err
	}
	return r.Replay(events)
}

// ReplayFileInteractive loads and replays a trace in the pager.
func (r *Replayer) ReplayFileInteractive(path string) error {
	events, err := r.load(path)
	if err != nil {
		return err
	}
	content, err := r.render(events)
	if err != nil {
		return err
	}
	return NewPager(fmt.Sprintf("Run: %s", runID(events))).Run(content)
}

// ReplayFileLive replays a trace in the pager and re-renders it whenever the
// file grows. The trace does not need to exist yet.
func (r *Replayer) ReplayFileLive(path string) error {
	render := func() (string, error) {
		events, err := r.load(path)
		if err != nil {
			return "", err
		}
		return r.render(events)
	}
	return NewPager(fmt.Sprintf("Trace: %s (LIVE)", path)).Follow(path, render)
}

// Replay writes the timeline of events.
func (r *Replayer) Replay(events []trace.Event) error {
	r.printHeader(events)
	r.printTimeline(events)
	r.printSummary(events)
	return nil
}

func (r *Replayer) render(events []trace.Event) (string, error) {
	var buf strings.Builder
	oldOutput := r.output
	r.output = &buf
	defer func() { r.output = oldOutput }()

	if err := r.Replay(events); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (r *Replayer) printHeader(events []trace.Event) {
	fmt.Fprintln(r.output)
	fmt.Fprintf(r.output, "%s %s\n", titleStyle.Render("RUN"), valueStyle.Render(runID(events)))
	fmt.Fprintln(r.output, divider)
	status := runStatus(events)
	fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Status: "), r.statusStyle(status).Render(status))
	if len(events) > 0 {
		fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Started:"), valueStyle.Render(events[0].Timestamp.Format(time.RFC3339)))
		if events[0].Redacted {
			fmt.Fprintf(r.output, "%s %s\n", labelStyle.Render("Privacy:"), valueStyle.Render("redacted"))
		}
	}
	fmt.Fprintln(r.output)
}

func (r *Replayer) printTimeline(events []trace.Event) {
	fmt.Fprintf(r.output, "%s %s\n", titleStyle.Render("TIMELINE"), dimStyle.Render(fmt.Sprintf("(%d events)", len(events))))
	fmt.Fprintln(r.output, divider)

	lastStep := 0
	for i := range events {
		r.formatEvent(i+1, &events[i], &lastStep)
	}
}

func (r *Replayer) printSummary(events []trace.Event) {
	fmt.Fprintln(r.output)
	fmt.Fprintln(r.output, divider)

	end := lastRunEnd(events)
	switch runStatus(events) {
	case "completed":
		fmt.Fprintln(r.output, successStyle.Render("COMPLETED"))
	case "max_steps_reached":
		fmt.Fprintln(r.output, warnStyle.Render("MAX STEPS REACHED"))
	case "failed":
		fmt.Fprintf(r.output, "%s %s\n", errorStyle.Render("FAILED:"), valueStyle.Render(stringField(end, "error")))
	default:
		fmt.Fprintln(r.output, warnStyle.Render("RUNNING"))
	}

	PrintStats(r.output, ComputeStats(events))
}

// runID returns the run id recorded in the trace.
func runID(events []trace.Event) string {
	for _, e := range events {
		if e.RunID != "" {
			return e.RunID
		}
	}
	return "unknown"
}

// runStatus is the status carried by run_end, or "running" without one.
func runStatus(events []trace.Event) string {
	if end := lastRunEnd(events); end != nil {
		if s := stringField(end, "status"); s != "" {
			return s
		}
	}
	return "running"
}

func lastRunEnd(events []trace.Event) map[string]interface{} {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == trace.KindRunEnd {
			return payloadMap(&events[i])
		}
	}
	return nil
}
