package replay

import (
	"fmt"

	"github.com/vinayprograms/agentmaker/internal/trace"
)

// formatEvent formats a single event for display.
func (r *Replayer) formatEvent(seq int, event *trace.Event, lastStep *int) {
	// Show step transitions
	if event.Step != *lastStep {
		fmt.Fprintln(r.output)
		fmt.Fprintf(r.output, "%s\n", stepStyle.Render(fmt.Sprintf("STEP %d", event.Step)))
		*lastStep = event.Step
	}

	ts := timeStyle.Render(event.Timestamp.Format("15:04:05"))
	seqNum := seqStyle.Render(fmt.Sprintf("%d", seq))
	payload := payloadMap(event)

	switch event.Kind {
	case trace.KindProviderRequest:
		r.fmtProviderRequest(seqNum, ts, payload)
	case trace.KindProviderResponse:
		r.fmtProviderResponse(seqNum, ts, payload)
	case trace.KindToolCall:
		r.fmtToolCall(seqNum, ts, event, payload)
	case trace.KindToolResult:
		r.fmtToolResult(seqNum, ts, event, payload)
	case trace.KindPlanUpdate:
		r.fmtPlanUpdate(seqNum, ts, payload)
	case trace.KindRunEnd:
		r.fmtRunEnd(seqNum, ts, payload)
	default:
		fmt.Fprintf(r.output, "%s │ %s │ %s\n", seqNum, ts, dimStyle.Render(event.Kind))
	}
}

func (r *Replayer) fmtProviderRequest(seqNum, ts string, payload map[string]interface{}) {
	fmt.Fprintf(r.output, "%s │ %s │ %s %s\n", seqNum, ts,
		providerStyle.Render("→ PROVIDER"),
		dimStyle.Render(fmt.Sprintf("(%d messages, %d plan items)", intField(payload, "messages"), countField(payload, "plan"))))
	if r.verbosity >= 2 {
		if last, ok := payload["last_message"].(map[string]interface{}); ok {
			r.printContent(fmt.Sprintf("[%s] %s", stringField(last, "role"), messageBody(last)))
		}
	}
}

// messageBody renders a recorded history message.
func messageBody(m map[string]interface{}) string {
	if text := stringField(m, "text"); text != "" {
		return text
	}
	if result, ok := m["result"]; ok {
		return stringField(m, "name") + " " + formatValue(result)
	}
	return fmt.Sprintf("(%d bytes)", intField(m, "length"))
}

func (r *Replayer) fmtProviderResponse(seqNum, ts string, payload map[string]interface{}) {
	if omitted, _ := payload["omitted"].(bool); omitted {
		fmt.Fprintf(r.output, "%s │ %s │ %s %s\n", seqNum, ts,
			providerStyle.Render("← PROVIDER"),
			dimStyle.Render("(omitted)"))
		return
	}
	fmt.Fprintf(r.output, "%s │ %s │ %s %s\n", seqNum, ts,
		providerStyle.Render("← PROVIDER"),
		valueStyle.Render(stringField(payload, "kind")))
	if r.verbosity >= 1 {
		if raw := stringField(payload, "raw"); raw != "" {
			r.printContent(raw)
		}
	}
}

func (r *Replayer) fmtToolCall(seqNum, ts string, event *trace.Event, payload map[string]interface{}) {
	args, _ := payload["args"].(map[string]interface{})
	class := ""
	if event.Class != "" {
		class = dimStyle.Render(fmt.Sprintf(" (%s)", event.Class))
	}
	fmt.Fprintf(r.output, "%s │ %s │ %s %s%s%s\n", seqNum, ts,
		toolStyle.Render("TOOL"),
		toolStyle.Render(event.Tool),
		class,
		r.argsHint(event.Tool, args))
	if r.verbosity >= 1 && len(args) > 0 {
		r.printArgs(args)
	}
}

func (r *Replayer) fmtToolResult(seqNum, ts string, event *trace.Event, payload map[string]interface{}) {
	if ok, _ := payload["success"].(bool); ok {
		fmt.Fprintf(r.output, "%s │ %s │ %s %s\n", seqNum, ts,
			successStyle.Render("✓"),
			toolStyle.Render(event.Tool))
		if r.verbosity >= 1 {
			if out, exists := payload["output"]; exists {
				r.printContent(formatValue(out))
			}
		}
		return
	}

	code := stringField(payload, "error")
	fmt.Fprintf(r.output, "%s │ %s │ %s %s\n", seqNum, ts,
		r.resultStyle(code).Render(resultLabel(code)),
		toolStyle.Render(event.Tool))
	if detail := stringField(payload, "detail"); detail != "" {
		r.printError(detail)
	}
	if r.verbosity >= 1 {
		if out, exists := payload["output"]; exists {
			r.printContent(formatValue(out))
		}
	}
}

func (r *Replayer) fmtPlanUpdate(seqNum, ts string, payload map[string]interface{}) {
	fmt.Fprintf(r.output, "%s │ %s │ %s %s\n", seqNum, ts,
		planStyle.Render("PLAN"),
		dimStyle.Render(fmt.Sprintf("(%d applied, %d items)", countField(payload, "applied"), countField(payload, "plan"))))

	if failures, ok := payload["errors"].([]interface{}); ok {
		for _, f := range failures {
			if m, ok := f.(map[string]interface{}); ok {
				r.printError(fmt.Sprintf("%s %s: %s", stringField(m, "op"), stringField(m, "id"), stringField(m, "error")))
			}
		}
	}

	if r.verbosity >= 1 {
		items, _ := payload["plan"].([]interface{})
		for _, it := range items {
			if m, ok := it.(map[string]interface{}); ok {
				fmt.Fprintf(r.output, "      │          │   %s %s\n",
					planDimStyle.Render(fmt.Sprintf("[%s]", stringField(m, "status"))),
					valueStyle.Render(stringField(m, "description")))
			}
		}
	}
}

func (r *Replayer) fmtRunEnd(seqNum, ts string, payload map[string]interface{}) {
	status := stringField(payload, "status")
	fmt.Fprintf(r.output, "%s │ %s │ %s %s %s\n", seqNum, ts,
		providerStyle.Render("RUN END"),
		r.statusStyle(status).Render(status),
		dimStyle.Render(fmt.Sprintf("(%d steps)", intField(payload, "steps"))))
	if code := stringField(payload, "error_code"); code != "" {
		r.printError(fmt.Sprintf("%s: %s", code, stringField(payload, "error")))
	}
}
