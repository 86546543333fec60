package provider

import (
	"context"
	"encoding/json"
	"strings"
)

// Dummy is an offline provider. It proposes a short plan on the first turn
// and then answers with the task text.
type Dummy struct{}

// NewDummy creates the offline provider.
func NewDummy() *Dummy {
	return &Dummy{}
}

func (d *Dummy) Next(ctx context.Context, req Request) (Action, error) {
	if err := ctx.Err(); err != nil {
		return Action{}, err
	}

	var obj map[string]interface{}
	if len(req.Plan) == 0 {
		obj = map[string]interface{}{
			"thought": "Outline the work before answering.",
			"plan":    []string{"Clarify the goal", "Use tools if needed", "Return the result"},
		}
	} else {
		task := []rune(strings.TrimSpace(firstUser(req.Messages)))
		if len(task) > 200 {
			task = task[:200]
		}
		obj = map[string]interface{}{"final": string(task)}
		if len(task) == 0 {
			obj["final"] = "done"
		}
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return Action{}, err
	}
	return ParseAction(string(data))
}

func firstUser(msgs []Message) string {
	for _, m := range msgs {
		if m.Role == RoleUser {
			return m.Content
		}
	}
	return lastUser(msgs)
}
