// Package agent runs the bounded observe-decide-act loop.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vinayprograms/agentmaker/internal/checkpoint"
	"github.com/vinayprograms/agentmaker/internal/config"
	"github.com/vinayprograms/agentmaker/internal/gateway"
	"github.com/vinayprograms/agentmaker/internal/logging"
	"github.com/vinayprograms/agentmaker/internal/plan"
	"github.com/vinayprograms/agentmaker/internal/provider"
	"github.com/vinayprograms/agentmaker/internal/tools"
	"github.com/vinayprograms/agentmaker/internal/trace"
)

// Loop drives runs for one configuration, provider and tool set.
type Loop struct {
	cfg          *config.Config
	provider     provider.Provider
	registry     *tools.Registry
	gateway      *gateway.Gateway
	logger       *logging.Logger
	systemPrompt string
	sinks        []trace.Sink
	newID        func() string

	// Callbacks
	OnTurn func(state RunState, action provider.Action)
}

// New creates a loop. The configuration is read here and at run start only.
func New(cfg *config.Config, p provider.Provider, registry *tools.Registry, logger *logging.Logger) (*Loop, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if p == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	gw, err := gateway.New(registry, gateway.Config{
		Workspace: cfg.Agent.Workspace,
		Allowlist: cfg.Shell.Allowlist,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return &Loop{
		cfg:          cfg,
		provider:     p,
		registry:     registry,
		gateway:      gw,
		logger:       logger.WithComponent("agent"),
		systemPrompt: provider.SystemPrompt(cfg.Agent.SystemPrompt, registry.Definitions()),
		newID:        uuid.NewString,
	}, nil
}

// SetSinks adds trace sinks that receive every redacted event. The loop
// never closes them.
func (l *Loop) SetSinks(sinks ...trace.Sink) {
	l.sinks = append(l.sinks, sinks...)
}

// Gateway returns the loop's security gateway.
func (l *Loop) Gateway() *gateway.Gateway {
	return l.gateway
}

// run holds per-run state.
type run struct {
	loop        *Loop
	state       *RunState
	plans       *plan.Manager
	recorder    *trace.Recorder
	checkpoints *checkpoint.Store
	logger      *logging.Logger
	history     []provider.Message
	defs        []tools.Definition
}

// StartRun executes a task until it completes, fails or hits the step
// ceiling. An error is returned only when the run could not be set up; run
// failures are reported through the returned state.
func (l *Loop) StartRun(ctx context.Context, task string) (*RunState, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return nil, fmt.Errorf("task is required")
	}

	maxSteps := l.cfg.Run.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	runID := l.newID()

	recorder, err := trace.Open(trace.Options{
		RunsDir: l.cfg.Run.RunsDir,
		RunID:   runID,
		Enabled: l.cfg.Trace.Enabled,
		Policy:  trace.NewPolicy(l.cfg.Trace),
		Sinks:   l.sinks,
		Logger:  l.logger,
	})
	if err != nil {
		return nil, err
	}
	defer recorder.Close()

	var store *checkpoint.Store
	if l.cfg.Run.Checkpoints {
		store, err = checkpoint.NewStore(checkpoint.Dir(l.cfg.Run.RunsDir, runID))
		if err != nil {
			return nil, err
		}
	}

	r := &run{
		loop: l,
		state: &RunState{
			RunID:     runID,
			Task:      task,
			MaxSteps:  maxSteps,
			Status:    StatusRunning,
			Plan:      []plan.Item{},
			TracePath: recorder.Path(),
			StartedAt: time.Now().UTC(),
		},
		plans:       plan.New(task),
		recorder:    recorder,
		checkpoints: store,
		logger:      l.logger.WithTraceID(runID),
		history: []provider.Message{
			{Role: provider.RoleSystem, Content: l.systemPrompt},
			{Role: provider.RoleUser, Content: task},
		},
		defs: l.registry.Definitions(),
	}

	ctx = plan.NewContext(ctx, r.plans)
	ctx, span := startRunSpan(ctx, runID, maxSteps)
	r.logger.RunStart(runID, maxSteps)

	turn := 0
	for r.state.Status == StatusRunning && r.state.Step < maxSteps {
		turn = r.state.Step + 1
		if err := r.turn(ctx, turn); err != nil {
			r.fail(err)
		}
	}
	if r.state.Status == StatusRunning {
		r.state.Status = StatusMaxStepsReached
	}
	r.state.EndedAt = time.Now().UTC()

	end := map[string]interface{}{
		"status": r.state.Status,
		"steps":  r.state.Step,
	}
	if r.state.Status == StatusFailed {
		end["error_code"] = r.state.ErrorCode
		end["error"] = r.state.Error
	}
	r.record(ctx, trace.Event{Step: turn, Kind: trace.KindRunEnd, Payload: end})

	endRunSpan(span, r.state)
	r.logger.RunComplete(runID, r.state.EndedAt.Sub(r.state.StartedAt), r.state.Status, r.state.Step)
	return r.state, nil
}

// turn runs one provider call and dispatches its action. A returned error
// ends the run as failed.
func (r *run) turn(ctx context.Context, n int) error {
	ctx, span := startTurnSpan(ctx, n)
	defer span.End()

	last, class := r.describeMessage(r.history[len(r.history)-1])
	r.record(ctx, trace.Event{Step: n, Kind: trace.KindProviderRequest, Class: class, Payload: map[string]interface{}{
		"messages":     len(r.history),
		"last_message": last,
		"plan":         r.plans.Items(),
		"tools":        toolNames(r.defs),
	}})

	req := provider.Request{
		Messages: append([]provider.Message(nil), r.history...),
		Plan:     r.plans.Items(),
		Tools:    r.defs,
	}
	action, err := r.loop.provider.Next(ctx, req)
	if err != nil {
		return err
	}

	r.record(ctx, trace.Event{Step: n, Kind: trace.KindProviderResponse, Payload: map[string]interface{}{
		"kind": action.Kind,
		"raw":  action.Raw,
	}})
	if action.Raw != "" {
		r.history = append(r.history, provider.Message{Role: provider.RoleAssistant, Content: action.Raw})
	}

	cp := &checkpoint.Checkpoint{RunID: r.state.RunID, Action: action.Kind}

	switch action.Kind {
	case provider.ActionToolCall:
		if action.ToolCall == nil {
			return fmt.Errorf("%w: tool call without a tool", provider.ErrMalformedAction)
		}
		result := r.callTool(ctx, n, *action.ToolCall)
		cp.Tool = action.ToolCall.Name
		cp.ToolError = result.Error
	case provider.ActionPlanUpdate:
		r.applyPlan(ctx, n, action.PlanUpdates)
	case provider.ActionFinalAnswer:
		r.state.Status = StatusCompleted
		r.state.FinalAnswer = action.FinalAnswer
	default:
		return fmt.Errorf("%w: unknown action kind %q", provider.ErrMalformedAction, action.Kind)
	}

	r.state.Step++
	r.state.Plan = r.plans.Items()
	r.logger.Debug("turn complete", map[string]interface{}{
		"step":   r.state.Step,
		"action": action.Kind,
	})

	if r.checkpoints != nil {
		cp.Step = r.state.Step
		cp.Status = r.state.Status
		cp.Plan = r.state.Plan
		if err := r.checkpoints.Save(cp); err != nil {
			r.logger.Warn("checkpoint save failed", map[string]interface{}{"error": err.Error()})
		}
	}
	if r.loop.OnTurn != nil {
		r.loop.OnTurn(*r.state, action)
	}
	return nil
}

// callTool routes a call through the gateway and feeds the result back.
func (r *run) callTool(ctx context.Context, n int, call tools.Call) tools.Result {
	class := ""
	if t, ok := r.loop.registry.Get(call.Name); ok {
		class = string(t.Class())
	}

	r.record(ctx, trace.Event{Step: n, Kind: trace.KindToolCall, Tool: call.Name, Class: class, Payload: map[string]interface{}{
		"name": call.Name,
		"args": call.Args,
	}})

	toolCtx, span := startToolSpan(ctx, call.Name)
	result := r.loop.gateway.Execute(toolCtx, call)
	endToolSpan(span, result)

	r.record(ctx, trace.Event{Step: n, Kind: trace.KindToolResult, Tool: call.Name, Class: class, Payload: result})
	r.history = append(r.history, provider.Message{
		Role:    provider.RoleTool,
		Name:    call.Name,
		Content: encode(result),
	})
	return result
}

// applyPlan applies provider-issued plan updates. Failed updates are
// reported back to the model and do not end the run.
func (r *run) applyPlan(ctx context.Context, n int, updates []plan.Update) {
	applied := []plan.Item{}
	var failures []map[string]interface{}
	for _, u := range updates {
		item, err := r.plans.Apply(u)
		if err != nil {
			failures = append(failures, map[string]interface{}{
				"op":    u.Op,
				"id":    u.ID,
				"error": err.Error(),
			})
			continue
		}
		applied = append(applied, item)
	}

	payload := map[string]interface{}{
		"applied": applied,
		"plan":    r.plans.Items(),
	}
	if len(failures) > 0 {
		payload["errors"] = failures
	}
	r.record(ctx, trace.Event{Step: n, Kind: trace.KindPlanUpdate, Payload: payload})
	r.history = append(r.history, provider.Message{
		Role:    provider.RoleTool,
		Name:    "plan",
		Content: encode(payload),
	})
}

func (r *run) fail(err error) {
	code := ErrCodeProviderFailure
	if errors.Is(err, provider.ErrMalformedAction) {
		code = ErrCodeMalformedAction
	}
	r.state.Status = StatusFailed
	r.state.ErrorCode = code
	r.state.Error = err.Error()
	r.logger.Error("run failed", map[string]interface{}{
		"code":  code,
		"error": err.Error(),
	})
}

// record writes a trace event. Trace failures are logged and never change
// the run's outcome.
func (r *run) record(ctx context.Context, e trace.Event) {
	if err := r.recorder.Record(ctx, e); err != nil {
		r.logger.Warn("trace write failed", map[string]interface{}{
			"kind":  e.Kind,
			"error": err.Error(),
		})
	}
}

// describeMessage returns the trace form of a history message and the class
// of the tool that produced it. Tool and plan results are decoded so
// redaction walks their structure; model text is recorded by length only.
func (r *run) describeMessage(m provider.Message) (map[string]interface{}, string) {
	switch m.Role {
	case provider.RoleTool:
		out := map[string]interface{}{"role": m.Role, "name": m.Name}
		var result interface{}
		if err := json.Unmarshal([]byte(m.Content), &result); err != nil {
			out["length"] = len(m.Content)
			return out, ""
		}
		out["result"] = result
		class := ""
		if t, ok := r.loop.registry.Get(m.Name); ok {
			class = string(t.Class())
		}
		return out, class
	case provider.RoleUser:
		return map[string]interface{}{"role": m.Role, "text": m.Content}, ""
	default:
		return map[string]interface{}{"role": m.Role, "length": len(m.Content)}, ""
	}
}

func toolNames(defs []tools.Definition) []string {
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

func encode(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
