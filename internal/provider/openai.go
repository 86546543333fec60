package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/vinayprograms/agentmaker/internal/config"
)

// OpenAI drives any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(cfg config.LLMConfig, apiKey string) (*OpenAI, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai: model is required")
	}
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
	}, nil
}

func (p *OpenAI) Next(ctx context.Context, req Request) (Action, error) {
	params := openai.ChatCompletionNewParams{
		Messages:    p.buildMessages(req),
		Model:       openai.ChatModel(p.model),
		Temperature: openai.Float(p.temperature),
	}
	if p.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(p.maxTokens)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Action{}, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Action{}, fmt.Errorf("openai: no choices returned")
	}
	return ParseAction(resp.Choices[0].Message.Content)
}

func (p *OpenAI) buildMessages(req Request) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		case RoleTool:
			// The JSON protocol has no native tool-call ids.
			messages = append(messages, openai.UserMessage(toolText(m)))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	if planText := renderPlan(req); planText != "" {
		messages = append(messages, openai.UserMessage(planText))
	}
	return messages
}

func toolText(m Message) string {
	return fmt.Sprintf("Tool result (%s): %s", m.Name, m.Content)
}
