package tools

import (
	"context"
	"fmt"

	"github.com/vinayprograms/agentmaker/internal/plan"
)

// todoTool manages the active run's plan. The plan travels in the context.
type todoTool struct{}

func (t *todoTool) Name() string { return "todo" }

func (t *todoTool) Description() string {
	return "Manage the plan: add an item, mark an item done, or list the plan."
}

func (t *todoTool) Class() Class { return ClassGeneral }

func (t *todoTool) Parameters() map[string]interface{} {
	return object(map[string]interface{}{
		"op": map[string]interface{}{
			"type": "string",
			"enum": []string{"add", "done", "list"},
		},
		"text": prop("string", "Item description (add)"),
		"id":   prop("string", "Item id (done)"),
	}, "op")
}

func (t *todoTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	p, ok := plan.FromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("no active plan")
	}

	op, err := stringArg(args, "op")
	if err != nil {
		return nil, err
	}

	switch op {
	case "add":
		text, err := stringArg(args, "text")
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"item": p.Add(text)}, nil
	case "done":
		id, err := stringArg(args, "id")
		if err != nil {
			return nil, err
		}
		item, err := p.UpdateStatus(id, plan.StatusDone)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"item": item}, nil
	case "list":
		return map[string]interface{}{"plan": p.Items()}, nil
	default:
		return nil, fmt.Errorf("unsupported op %q", op)
	}
}
