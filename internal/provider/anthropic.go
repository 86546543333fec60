package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/vinayprograms/agentmaker/internal/config"
)

// Anthropic drives the Anthropic messages API.
type Anthropic struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewAnthropic creates an Anthropic provider.
func NewAnthropic(cfg config.LLMConfig, apiKey string) (*Anthropic, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("anthropic: model is required")
	}
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Anthropic{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (p *Anthropic) Next(ctx context.Context, req Request) (Action, error) {
	system, messages := p.buildMessages(req)
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		Messages:    messages,
		MaxTokens:   p.maxTokens,
		Temperature: anthropic.Float(p.temperature),
	}
	if len(system) > 0 {
		params.System = system
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return Action{}, fmt.Errorf("anthropic api error: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}
	return ParseAction(text.String())
}

// buildMessages splits out system text and merges consecutive user-side
// messages, since the API requires alternating roles.
func (p *Anthropic) buildMessages(req Request) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var (
		system   []anthropic.TextBlockParam
		messages []anthropic.MessageParam
		pending  []string
	)
	flush := func() {
		if len(pending) > 0 {
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(strings.Join(pending, "\n\n"))))
			pending = nil
		}
	}

	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			flush()
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		case RoleTool:
			pending = append(pending, toolText(m))
		default:
			pending = append(pending, m.Content)
		}
	}
	if planText := renderPlan(req); planText != "" {
		pending = append(pending, planText)
	}
	flush()
	return system, messages
}
