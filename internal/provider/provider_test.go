package provider

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vinayprograms/agentmaker/internal/config"
	"github.com/vinayprograms/agentmaker/internal/plan"
	"github.com/vinayprograms/agentmaker/internal/tools"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		kind  string
		check func(t *testing.T, a Action)
	}{
		{
			name: "tool call",
			raw:  `{"tool":{"name":"fs.write","args":{"path":"out.txt","content":"hello"}}}`,
			kind: ActionToolCall,
			check: func(t *testing.T, a Action) {
				if a.ToolCall.Name != "fs.write" || a.ToolCall.Args["content"] != "hello" {
					t.Errorf("unexpected call %+v", a.ToolCall)
				}
			},
		},
		{
			name: "tool without args",
			raw:  `{"tool":{"name":"todo"}}`,
			kind: ActionToolCall,
			check: func(t *testing.T, a Action) {
				if a.ToolCall.Args == nil {
					t.Error("expected empty args map")
				}
			},
		},
		{
			name: "plan strings",
			raw:  `{"plan":["write file","check"]}`,
			kind: ActionPlanUpdate,
			check: func(t *testing.T, a Action) {
				if len(a.PlanUpdates) != 2 || a.PlanUpdates[0].Op != plan.OpAdd || a.PlanUpdates[0].Description != "write file" {
					t.Errorf("unexpected updates %+v", a.PlanUpdates)
				}
			},
		},
		{
			name: "plan op object",
			raw:  `{"plan":{"op":"update_status","id":"abc","status":"done"}}`,
			kind: ActionPlanUpdate,
			check: func(t *testing.T, a Action) {
				u := a.PlanUpdates[0]
				if u.Op != plan.OpUpdateStatus || u.ID != "abc" || u.Status != plan.StatusDone {
					t.Errorf("unexpected update %+v", u)
				}
			},
		},
		{
			name: "plan mixed list",
			raw:  `{"plan":["first",{"op":"remove","id":"x"},{"text":"second"}]}`,
			kind: ActionPlanUpdate,
			check: func(t *testing.T, a Action) {
				if len(a.PlanUpdates) != 3 || a.PlanUpdates[1].Op != plan.OpRemove || a.PlanUpdates[2].Description != "second" {
					t.Errorf("unexpected updates %+v", a.PlanUpdates)
				}
			},
		},
		{
			name: "final",
			raw:  `{"final":"all done","thought":"easy"}`,
			kind: ActionFinalAnswer,
			check: func(t *testing.T, a Action) {
				if a.FinalAnswer != "all done" || a.Thought != "easy" {
					t.Errorf("unexpected action %+v", a)
				}
			},
		},
		{
			name: "non-string final",
			raw:  `{"final":{"answer":42}}`,
			kind: ActionFinalAnswer,
			check: func(t *testing.T, a Action) {
				if a.FinalAnswer != `{"answer":42}` {
					t.Errorf("unexpected final %q", a.FinalAnswer)
				}
			},
		},
		{
			name: "tool wins over plan and final",
			raw:  `{"final":"x","plan":["y"],"tool":{"name":"todo","args":{"op":"list"}}}`,
			kind: ActionToolCall,
		},
		{
			name: "plan wins over final",
			raw:  `{"final":"x","plan":["y"]}`,
			kind: ActionPlanUpdate,
		},
		{
			name: "trailing json after prose",
			raw:  "Let me write the file.\n{\"tool\":{\"name\":\"fs.write\",\"args\":{\"path\":\"a\"}}}",
			kind: ActionToolCall,
		},
		{
			name: "fenced json",
			raw:  "```json\n{\"final\":\"ok\"}\n```",
			kind: ActionFinalAnswer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseAction(tt.raw)
			if err != nil {
				t.Fatalf("ParseAction error: %v", err)
			}
			if a.Kind != tt.kind {
				t.Fatalf("expected %s, got %s", tt.kind, a.Kind)
			}
			if a.Raw != tt.raw {
				t.Error("expected raw text to be kept")
			}
			if tt.check != nil {
				tt.check(t, a)
			}
		})
	}
}

func TestParseAction_Malformed(t *testing.T) {
	inputs := []string{
		"",
		"I am done, thanks!",
		`{"thought":"hmm"}`,
		`{"final":""}`,
		`{"plan":[]}`,
		`{"plan":[1,2]}`,
		`{"tool":{"name":""}}`,
		`{"final": "unterminated`,
	}
	for _, in := range inputs {
		if _, err := ParseAction(in); !errors.Is(err, ErrMalformedAction) {
			t.Errorf("%q: expected ErrMalformedAction, got %v", in, err)
		}
	}
}

func TestSystemPrompt(t *testing.T) {
	reg, err := tools.BuildFromNames([]string{"todo", "fs"}, tools.Options{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("BuildFromNames error: %v", err)
	}
	prompt := SystemPrompt("", reg.Definitions())

	for _, want := range []string{DefaultPreamble, "fs.read [filesystem]", "fs.write", "todo [general]", `"final"`} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if got := SystemPrompt("Custom agent.", nil); !strings.HasPrefix(got, "Custom agent.") || !strings.Contains(got, "(none)") {
		t.Errorf("unexpected prompt %q", got)
	}
}

func TestDummy_PlansThenAnswers(t *testing.T) {
	d := NewDummy()
	ctx := context.Background()
	msgs := []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "say hi"}}

	a, err := d.Next(ctx, Request{Messages: msgs})
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if a.Kind != ActionPlanUpdate || len(a.PlanUpdates) != 3 {
		t.Fatalf("expected plan update, got %+v", a)
	}

	a, err = d.Next(ctx, Request{Messages: msgs, Plan: []plan.Item{{ID: "1", Description: "x"}}})
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if a.Kind != ActionFinalAnswer || a.FinalAnswer != "say hi" {
		t.Errorf("expected final answer, got %+v", a)
	}
}

func TestScripted(t *testing.T) {
	s := NewScripted(`{"final":"one"}`, "garbage")
	ctx := context.Background()

	if a, err := s.Next(ctx, Request{}); err != nil || a.FinalAnswer != "one" {
		t.Errorf("unexpected first action %+v (%v)", a, err)
	}
	if _, err := s.Next(ctx, Request{}); !errors.Is(err, ErrMalformedAction) {
		t.Errorf("expected malformed action, got %v", err)
	}
	if _, err := s.Next(ctx, Request{}); err == nil {
		t.Error("expected error when script is exhausted")
	}
	if len(s.Requests()) != 3 {
		t.Errorf("expected 3 recorded requests, got %d", len(s.Requests()))
	}

	boom := errors.New("boom")
	if _, err := NewScripted().FailWith(boom).Next(ctx, Request{}); !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestNew(t *testing.T) {
	p, err := New(config.LLMConfig{Provider: "dummy"}, "")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if _, ok := p.(*Dummy); !ok {
		t.Errorf("expected dummy provider, got %T", p)
	}
	if _, err := New(config.LLMConfig{Provider: "carrier-pigeon"}, ""); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := New(config.LLMConfig{Provider: "openai"}, "key"); err == nil {
		t.Error("expected error for missing model")
	}
	if _, err := New(config.LLMConfig{Provider: "anthropic", Model: "claude-sonnet-4-5"}, "key"); err != nil {
		t.Errorf("anthropic New error: %v", err)
	}
}

func TestAnthropicBuildMessages_MergesUserSide(t *testing.T) {
	p, err := NewAnthropic(config.LLMConfig{Model: "claude-sonnet-4-5"}, "key")
	if err != nil {
		t.Fatalf("NewAnthropic error: %v", err)
	}
	system, messages := p.buildMessages(Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "task"},
			{Role: RoleAssistant, Content: `{"tool":{"name":"fs.read"}}`},
			{Role: RoleTool, Name: "fs.read", Content: `{"success":true}`},
		},
		Plan: []plan.Item{{ID: "1", Description: "read", Status: plan.StatusPending}},
	})
	if len(system) != 1 {
		t.Errorf("expected 1 system block, got %d", len(system))
	}
	if len(messages) != 3 {
		t.Errorf("expected user, assistant, user messages; got %d", len(messages))
	}
}

func TestOpenAIBuildMessages(t *testing.T) {
	p, err := NewOpenAI(config.LLMConfig{Model: "gpt-4o-mini", BaseURL: "http://localhost:1"}, "key")
	if err != nil {
		t.Fatalf("NewOpenAI error: %v", err)
	}
	messages := p.buildMessages(Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleUser, Content: "task"},
			{Role: RoleTool, Name: "fs.read", Content: "{}"},
		},
	})
	if len(messages) != 3 {
		t.Errorf("expected 3 messages, got %d", len(messages))
	}
}
