// Package trace records redacted run events as JSON lines.
package trace

import (
	"path/filepath"
	"time"
)

// Event kinds. Within a step they are emitted in this order.
const (
	KindProviderRequest  = "provider_request"
	KindProviderResponse = "provider_response"
	KindToolCall         = "tool_call"
	KindToolResult       = "tool_result"
	KindPlanUpdate       = "plan_update"
	KindRunEnd           = "run_end"
)

// FileName is the trace file inside a run directory.
const FileName = "trace.jsonl"

// Event is one trace record.
type Event struct {
	RunID     string      `json:"run_id"`
	Step      int         `json:"step"`
	Kind      string      `json:"kind"`
	Timestamp time.Time   `json:"ts"`
	Tool      string      `json:"tool,omitempty"`
	Class     string      `json:"class,omitempty"` // class of the tool whose output the payload carries
	Payload   interface{} `json:"payload,omitempty"`
	Redacted  bool        `json:"redacted"`
}

// Path returns the trace path of a run.
func Path(runsDir, runID string) string {
	return filepath.Join(runsDir, runID, FileName)
}
