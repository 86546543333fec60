package replay

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vinayprograms/agentmaker/internal/trace"
)

// Stats holds aggregate statistics for a trace.
type Stats struct {
	TotalDurationMs int64
	Steps           int

	// Provider
	ProviderCalls   int
	ProviderTotalMs int64 // request to response, summed
	ProviderAvgMs   int64
	Actions         map[string]int

	// Tools
	ToolCalls    map[string]int
	ToolFailures int
	Rejections   map[string]int // by gateway error code

	// Plan
	PlanUpdates int
	PlanErrors  int
}

// ComputeStats calculates aggregate statistics from trace events.
func ComputeStats(events []trace.Event) *Stats {
	stats := &Stats{
		Actions:    make(map[string]int),
		ToolCalls:  make(map[string]int),
		Rejections: make(map[string]int),
	}

	var firstEvent, lastEvent, pendingRequest time.Time

	for i := range events {
		event := &events[i]
		if firstEvent.IsZero() || event.Timestamp.Before(firstEvent) {
			firstEvent = event.Timestamp
		}
		if lastEvent.IsZero() || event.Timestamp.After(lastEvent) {
			lastEvent = event.Timestamp
		}
		if event.Step > stats.Steps {
			stats.Steps = event.Step
		}

		payload := payloadMap(event)
		switch event.Kind {
		case trace.KindProviderRequest:
			pendingRequest = event.Timestamp

		case trace.KindProviderResponse:
			stats.ProviderCalls++
			if !pendingRequest.IsZero() {
				stats.ProviderTotalMs += event.Timestamp.Sub(pendingRequest).Milliseconds()
				pendingRequest = time.Time{}
			}
			if kind := stringField(payload, "kind"); kind != "" {
				stats.Actions[kind]++
			}

		case trace.KindToolCall:
			stats.ToolCalls[event.Tool]++

		case trace.KindToolResult:
			if ok, _ := payload["success"].(bool); ok {
				continue
			}
			switch code := stringField(payload, "error"); code {
			case "unknown_tool", "sandbox_violation", "command_not_allowlisted":
				stats.Rejections[code]++
			default:
				stats.ToolFailures++
			}

		case trace.KindPlanUpdate:
			stats.PlanUpdates++
			stats.PlanErrors += countField(payload, "errors")
		}
	}

	if !firstEvent.IsZero() && !lastEvent.IsZero() {
		stats.TotalDurationMs = lastEvent.Sub(firstEvent).Milliseconds()
	}
	if stats.ProviderCalls > 0 {
		stats.ProviderAvgMs = stats.ProviderTotalMs / int64(stats.ProviderCalls)
	}
	return stats
}

// PrintStats outputs the statistics to the writer.
func PrintStats(w io.Writer, stats *Stats) {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("RUN STATISTICS"))
	fmt.Fprintln(w, divider)

	fmt.Fprintf(w, "%s %s\n",
		labelStyle.Render("Total Duration:"),
		valueStyle.Render(formatDuration(stats.TotalDurationMs)))
	fmt.Fprintf(w, "%s %s\n",
		labelStyle.Render("Steps:"),
		valueStyle.Render(fmt.Sprintf("%d", stats.Steps)))
	fmt.Fprintln(w)

	if stats.ProviderCalls > 0 {
		fmt.Fprintln(w, headerStyle.Render("Provider:"))
		fmt.Fprintf(w, "  %s %s\n",
			labelStyle.Render("Calls:"),
			valueStyle.Render(fmt.Sprintf("%d", stats.ProviderCalls)))
		fmt.Fprintf(w, "  %s %s\n",
			labelStyle.Render("Average:"),
			valueStyle.Render(formatDuration(stats.ProviderAvgMs)))
		printCounts(w, "  ", stats.Actions)
		fmt.Fprintln(w)
	}

	if len(stats.ToolCalls) > 0 {
		fmt.Fprintln(w, headerStyle.Render("Tools:"))
		printCounts(w, "  ", stats.ToolCalls)
		if stats.ToolFailures > 0 {
			fmt.Fprintf(w, "  %s %s\n",
				labelStyle.Render("Failures:"),
				errorStyle.Render(fmt.Sprintf("%d", stats.ToolFailures)))
		}
		fmt.Fprintln(w)
	}

	if len(stats.Rejections) > 0 {
		fmt.Fprintln(w, headerStyle.Render("Gateway Rejections:"))
		printCounts(w, "  ", stats.Rejections)
		fmt.Fprintln(w)
	}

	if stats.PlanUpdates > 0 {
		fmt.Fprintln(w, headerStyle.Render("Plan:"))
		fmt.Fprintf(w, "  %s %s\n",
			labelStyle.Render("Updates:"),
			valueStyle.Render(fmt.Sprintf("%d", stats.PlanUpdates)))
		if stats.PlanErrors > 0 {
			fmt.Fprintf(w, "  %s %s\n",
				labelStyle.Render("Rejected ops:"),
				errorStyle.Render(fmt.Sprintf("%d", stats.PlanErrors)))
		}
		fmt.Fprintln(w)
	}
}

func printCounts(w io.Writer, indent string, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s%s %s\n", indent,
			labelStyle.Render(k+":"),
			valueStyle.Render(fmt.Sprintf("%d", counts[k])))
	}
}

// formatDuration formats milliseconds as human-readable duration.
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	if ms < 60000 {
		return fmt.Sprintf("%.2fs", float64(ms)/1000)
	}
	mins := ms / 60000
	secs := (ms % 60000) / 1000
	return fmt.Sprintf("%dm%ds", mins, secs)
}
