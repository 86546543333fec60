package replay

import (
	"fmt"
	"os"

	"github.com/vinayprograms/agentmaker/internal/trace"
)

// load reads a trace, capping oversized payload strings. A trace that does
// not exist yet loads as empty.
func (r *Replayer) load(path string) ([]trace.Event, error) {
	events, err := trace.Load(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load trace: %w", err)
	}
	if r.maxContentSize > 0 {
		for i := range events {
			events[i].Payload = capStrings(events[i].Payload, r.maxContentSize)
		}
	}
	return events, nil
}

func capStrings(v interface{}, limit int) interface{} {
	switch t := v.(type) {
	case string:
		if len(t) > limit {
			return t[:limit] + fmt.Sprintf("\n... [truncated, %d bytes total]", len(t))
		}
		return t
	case map[string]interface{}:
		for k, child := range t {
			t[k] = capStrings(child, limit)
		}
		return t
	case []interface{}:
		for i, child := range t {
			t[i] = capStrings(child, limit)
		}
		return t
	default:
		return v
	}
}
