package replay

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vinayprograms/agentmaker/internal/trace"
)

// printContent prints verbose content with timeline indentation.
func (r *Replayer) printContent(content string) {
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(r.output, "      │          │   %s\n", line)
	}
}

// printArgs prints tool arguments in key order.
func (r *Replayer) printArgs(args map[string]interface{}) {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(r.output, "      │          │   %s: %s\n",
			labelStyle.Render(k), formatValue(args[k]))
	}
}

// printError prints an error.
func (r *Replayer) printError(err string) {
	fmt.Fprintf(r.output, "      │          │   %s\n", errorStyle.Render(err))
}

// statusStyle returns the style for a run status.
func (r *Replayer) statusStyle(status string) lipgloss.Style {
	switch status {
	case "completed":
		return successStyle
	case "failed":
		return errorStyle
	default:
		return warnStyle
	}
}

// resultStyle returns the style for a tool error code.
func (r *Replayer) resultStyle(code string) lipgloss.Style {
	switch code {
	case "unknown_tool", "sandbox_violation", "command_not_allowlisted":
		return denyStyle
	default:
		return errorStyle
	}
}

func resultLabel(code string) string {
	switch code {
	case "unknown_tool", "sandbox_violation", "command_not_allowlisted":
		return "DENIED " + code
	case "":
		return "✗"
	default:
		return "✗ " + code
	}
}

// argsHint returns the most telling argument of a call.
func (r *Replayer) argsHint(toolName string, args map[string]interface{}) string {
	if args == nil {
		return ""
	}

	var hint string
	switch toolName {
	case "fs.read", "fs.write":
		hint = stringField(args, "path")
	case "shell", "test.run":
		hint = stringField(args, "cmd")
	case "code.search":
		hint = stringField(args, "query")
	case "todo":
		hint = stringField(args, "op")
	case "fs.patch":
		if dry, _ := args["dry_run"].(bool); dry {
			hint = "dry run"
		}
	}

	if hint == "" {
		return ""
	}
	return dimStyle.Render(fmt.Sprintf(" [%s]", truncateHint(hint, 60)))
}

// truncateHint shortens a string to maxLen runes, adding ... if needed.
func truncateHint(s string, maxLen int) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// payloadMap returns an event payload as a map. Payloads loaded from disk
// are always objects; anything else yields nil.
func payloadMap(e *trace.Event) map[string]interface{} {
	switch p := e.Payload.(type) {
	case map[string]interface{}:
		return p
	case nil:
		return nil
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return nil
		}
		var m map[string]interface{}
		if json.Unmarshal(data, &m) != nil {
			return nil
		}
		return m
	}
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func intField(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}

func countField(m map[string]interface{}, key string) int {
	if list, ok := m[key].([]interface{}); ok {
		return len(list)
	}
	return 0
}

// formatValue renders a payload value: strings as is, the rest as JSON.
func formatValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
