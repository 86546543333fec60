package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vinayprograms/agentmaker/internal/tools"
)

// DefaultPreamble opens the system prompt when the agent defines none.
const DefaultPreamble = "You are a careful agent that completes tasks by planning and calling tools inside a sandboxed workspace."

const protocol = `Respond with exactly one JSON object and nothing else. Choose one form:
  {"tool": {"name": "<tool>", "args": {...}}}   call a tool
  {"plan": ["step", ...]}                       add plan items
  {"plan": {"op": "update_status", "id": "<id>", "status": "done"}}
                                                change a plan item (ops: add, update_status, remove)
  {"final": "<answer>"}                         finish with an answer
You may include "thought": "<short reasoning>" alongside any form.
Paths are relative to the workspace. Tool results come back as messages from the tool role.`

// SystemPrompt describes the available tools and the action protocol.
func SystemPrompt(preamble string, defs []tools.Definition) string {
	if strings.TrimSpace(preamble) == "" {
		preamble = DefaultPreamble
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(preamble))
	b.WriteString("\n\n## Tools\n")
	if len(defs) == 0 {
		b.WriteString("(none)\n")
	}
	for _, d := range defs {
		fmt.Fprintf(&b, "- %s [%s]: %s\n", d.Name, d.Class, d.Description)
		if props, ok := d.Parameters["properties"]; ok {
			if data, err := json.Marshal(props); err == nil {
				fmt.Fprintf(&b, "  args: %s\n", data)
			}
		}
	}
	b.WriteString("\n## Protocol\n")
	b.WriteString(protocol)
	return b.String()
}

// renderPlan formats plan items for text-only models.
func renderPlan(req Request) string {
	if len(req.Plan) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Current plan:\n")
	for _, item := range req.Plan {
		fmt.Fprintf(&b, "- [%s] %s (id %s)\n", item.Status, item.Description, item.ID)
	}
	return b.String()
}
