package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vinayprograms/agentmaker/internal/plan"
	"github.com/vinayprograms/agentmaker/internal/tools"
)

// wireAction is the JSON protocol text models answer with.
type wireAction struct {
	Tool *struct {
		Name string                 `json:"name"`
		Args map[string]interface{} `json:"args"`
	} `json:"tool"`
	Plan    json.RawMessage `json:"plan"`
	Final   json.RawMessage `json:"final"`
	Thought string          `json:"thought"`
}

type wirePlanOp struct {
	Op          string `json:"op"`
	ID          string `json:"id"`
	Status      string `json:"status"`
	Description string `json:"description"`
	Text        string `json:"text"`
}

// ParseAction decodes model output. The whole text may be JSON, fenced JSON,
// or prose followed by a trailing JSON object. When several keys are present
// tool wins over plan, and plan over final.
func ParseAction(raw string) (Action, error) {
	obj, ok := extractJSON(raw)
	if !ok {
		return Action{}, fmt.Errorf("%w: no JSON object in model output", ErrMalformedAction)
	}

	var w wireAction
	if err := json.Unmarshal(obj, &w); err != nil {
		return Action{}, fmt.Errorf("%w: %v", ErrMalformedAction, err)
	}
	action := Action{Raw: raw, Thought: strings.TrimSpace(w.Thought)}

	if w.Tool != nil && strings.TrimSpace(w.Tool.Name) != "" {
		args := w.Tool.Args
		if args == nil {
			args = map[string]interface{}{}
		}
		action.Kind = ActionToolCall
		action.ToolCall = &tools.Call{Name: strings.TrimSpace(w.Tool.Name), Args: args}
		return action, nil
	}

	if isPresent(w.Plan) {
		updates, err := parsePlan(w.Plan)
		if err != nil {
			return Action{}, err
		}
		if len(updates) > 0 {
			action.Kind = ActionPlanUpdate
			action.PlanUpdates = updates
			return action, nil
		}
	}

	if isPresent(w.Final) {
		var s string
		if err := json.Unmarshal(w.Final, &s); err != nil {
			s = string(w.Final)
		}
		if s = strings.TrimSpace(s); s != "" {
			action.Kind = ActionFinalAnswer
			action.FinalAnswer = s
			return action, nil
		}
	}

	return Action{}, fmt.Errorf("%w: expected a tool, plan or final key", ErrMalformedAction)
}

// parsePlan accepts ["step", ...], a single op object, or a list mixing both.
func parsePlan(data json.RawMessage) ([]plan.Update, error) {
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err != nil {
		list = []json.RawMessage{data}
	}

	var updates []plan.Update
	for _, entry := range list {
		var s string
		if err := json.Unmarshal(entry, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				updates = append(updates, plan.Update{Op: plan.OpAdd, Description: s})
			}
			continue
		}
		var op wirePlanOp
		if err := json.Unmarshal(entry, &op); err != nil {
			return nil, fmt.Errorf("%w: invalid plan entry: %v", ErrMalformedAction, err)
		}
		u := plan.Update{
			Op:          strings.TrimSpace(op.Op),
			ID:          op.ID,
			Status:      plan.Status(op.Status),
			Description: op.Description,
		}
		if u.Description == "" {
			u.Description = op.Text
		}
		if u.Op == "" {
			u.Op = plan.OpAdd
		}
		updates = append(updates, u)
	}
	return updates, nil
}

func isPresent(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}

// extractJSON finds the action object in model output.
func extractJSON(raw string) ([]byte, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, false
	}
	text = stripFence(text)
	if strings.HasPrefix(text, "{") && json.Valid([]byte(text)) {
		return []byte(text), true
	}

	end := strings.LastIndex(text, "}")
	if end < 0 {
		return nil, false
	}
	for i := strings.LastIndex(text[:end], "{"); i >= 0; i = strings.LastIndex(text[:i], "{") {
		candidate := []byte(text[i : end+1])
		if json.Valid(candidate) {
			return candidate, true
		}
	}
	return nil, false
}

// stripFence removes a surrounding ``` or ```json fence.
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") || !strings.HasSuffix(text, "```") || len(text) < 6 {
		return text
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(text, "```"), "```")
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 && !strings.Contains(inner[:nl], "{") {
		inner = inner[nl+1:]
	}
	return strings.TrimSpace(inner)
}
