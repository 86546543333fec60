// Package provider turns conversation state into the model's next action.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/vinayprograms/agentmaker/internal/config"
	"github.com/vinayprograms/agentmaker/internal/plan"
	"github.com/vinayprograms/agentmaker/internal/tools"
)

// ErrMalformedAction is returned when model output is not a known action.
var ErrMalformedAction = errors.New("malformed_action")

// Action kinds.
const (
	ActionToolCall    = "tool_call"
	ActionPlanUpdate  = "plan_update"
	ActionFinalAnswer = "final_answer"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one conversation entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"` // tool name for tool messages
}

// Request is what a provider sees on each turn.
type Request struct {
	Messages []Message
	Plan     []plan.Item
	Tools    []tools.Definition
}

// Action is the model's decision for one turn.
type Action struct {
	Kind        string        `json:"kind"`
	ToolCall    *tools.Call   `json:"tool_call,omitempty"`
	PlanUpdates []plan.Update `json:"plan_updates,omitempty"`
	FinalAnswer string        `json:"final_answer,omitempty"`
	Thought     string        `json:"thought,omitempty"`
	Raw         string        `json:"raw,omitempty"` // model text the action was parsed from
}

// Provider returns the next action. Retries, if any, happen inside the
// provider; the loop treats every error as fatal.
type Provider interface {
	Next(ctx context.Context, req Request) (Action, error)
}

// New creates the provider named in cfg. apiKey is ignored by providers that
// need none.
func New(cfg config.LLMConfig, apiKey string) (Provider, error) {
	switch cfg.Provider {
	case "", "dummy":
		return NewDummy(), nil
	case "openai":
		return NewOpenAI(cfg, apiKey)
	case "anthropic":
		return NewAnthropic(cfg, apiKey)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// lastUser returns the content of the most recent user message.
func lastUser(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}
