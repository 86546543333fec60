package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/vinayprograms/agentmaker/internal/checkpoint"
	"github.com/vinayprograms/agentmaker/internal/config"
	"github.com/vinayprograms/agentmaker/internal/gateway"
	"github.com/vinayprograms/agentmaker/internal/plan"
	"github.com/vinayprograms/agentmaker/internal/provider"
	"github.com/vinayprograms/agentmaker/internal/tools"
	"github.com/vinayprograms/agentmaker/internal/trace"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.Agent.Workspace = t.TempDir()
	cfg.Run.RunsDir = t.TempDir()
	return cfg
}

func newLoop(t *testing.T, cfg *config.Config, p provider.Provider) *Loop {
	t.Helper()
	reg, err := tools.BuildFromNames(tools.DefaultNames, tools.Options{Workspace: cfg.Agent.Workspace})
	if err != nil {
		t.Fatalf("BuildFromNames error: %v", err)
	}
	loop, err := New(cfg, p, reg, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return loop
}

func kinds(events []trace.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func TestStartRun_PlanWriteFinal(t *testing.T) {
	cfg := testConfig(t)
	p := provider.NewScripted(
		`{"plan":["write file"]}`,
		`{"tool":{"name":"fs.write","args":{"path":"out.txt","content":"hello"}}}`,
		`{"final":"wrote out.txt"}`,
	)
	loop := newLoop(t, cfg, p)
	sink := trace.NewMemorySink()
	loop.SetSinks(sink)

	state, err := loop.StartRun(context.Background(), "create a plan item named 'write file' and write 'hello' to out.txt")
	if err != nil {
		t.Fatalf("StartRun error: %v", err)
	}

	if state.Status != StatusCompleted || !IsTerminal(state) {
		t.Fatalf("expected completed, got %s (%s)", state.Status, state.Error)
	}
	if state.Step != 3 {
		t.Errorf("expected 3 steps, got %d", state.Step)
	}
	if state.FinalAnswer != "wrote out.txt" {
		t.Errorf("unexpected final answer %q", state.FinalAnswer)
	}
	if len(state.Plan) != 1 || state.Plan[0].Description != "write file" || state.Plan[0].Status != plan.StatusPending {
		t.Errorf("unexpected plan %+v", state.Plan)
	}

	data, err := os.ReadFile(filepath.Join(cfg.Agent.Workspace, "out.txt"))
	if err != nil || string(data) != "hello" {
		t.Errorf("expected out.txt to contain hello, got %q (%v)", data, err)
	}

	events, err := trace.Load(state.TracePath)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	want := []string{
		trace.KindProviderRequest, trace.KindProviderResponse, trace.KindPlanUpdate,
		trace.KindProviderRequest, trace.KindProviderResponse, trace.KindToolCall, trace.KindToolResult,
		trace.KindProviderRequest, trace.KindProviderResponse,
		trace.KindRunEnd,
	}
	if got := kinds(events); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected event order\ngot:  %v\nwant: %v", got, want)
	}
	wantSteps := []int{1, 1, 1, 2, 2, 2, 2, 3, 3, 3}
	for i, e := range events {
		if e.Step != wantSteps[i] {
			t.Errorf("event %d (%s): expected step %d, got %d", i, e.Kind, wantSteps[i], e.Step)
		}
		if e.RunID != state.RunID {
			t.Errorf("event %d has run id %q", i, e.RunID)
		}
	}
	if events[5].Tool != "fs.write" || events[5].Class != "filesystem" {
		t.Errorf("expected tool metadata on tool_call, got %+v", events[5])
	}
	end := events[len(events)-1].Payload.(map[string]interface{})
	if end["status"] != StatusCompleted {
		t.Errorf("unexpected run_end payload %v", end)
	}

	if len(sink.Events()) != len(events) {
		t.Errorf("sink saw %d events, file has %d", len(sink.Events()), len(events))
	}
}

func TestStartRun_MaxStepsReached(t *testing.T) {
	cfg := testConfig(t)
	cfg.Run.MaxSteps = 3
	list := `{"tool":{"name":"todo","args":{"op":"list"}}}`
	p := provider.NewScripted(list, list, list, list, list)
	loop := newLoop(t, cfg, p)

	turns := 0
	loop.OnTurn = func(state RunState, action provider.Action) { turns++ }

	state, err := loop.StartRun(context.Background(), "keep listing")
	if err != nil {
		t.Fatalf("StartRun error: %v", err)
	}
	if state.Status != StatusMaxStepsReached {
		t.Fatalf("expected max_steps_reached, got %s", state.Status)
	}
	if state.Step != 3 || turns != 3 || len(p.Requests()) != 3 {
		t.Errorf("expected exactly 3 turns, got step=%d turns=%d requests=%d", state.Step, turns, len(p.Requests()))
	}

	events, _ := trace.Load(state.TracePath)
	requests := 0
	for _, e := range events {
		if e.Kind == trace.KindProviderRequest {
			requests++
		}
	}
	if requests != 3 {
		t.Errorf("expected 3 provider requests in trace, got %d", requests)
	}
	last := events[len(events)-1]
	if last.Kind != trace.KindRunEnd || last.Step != 3 {
		t.Errorf("expected run_end at step 3, got %+v", last)
	}
}

func TestStartRun_DefaultCeiling(t *testing.T) {
	cfg := testConfig(t)
	cfg.Run.MaxSteps = 0
	list := `{"tool":{"name":"todo","args":{"op":"list"}}}`
	outputs := make([]string, 10)
	for i := range outputs {
		outputs[i] = list
	}
	state, err := newLoop(t, cfg, provider.NewScripted(outputs...)).StartRun(context.Background(), "loop")
	if err != nil {
		t.Fatalf("StartRun error: %v", err)
	}
	if state.MaxSteps != DefaultMaxSteps || state.Step != DefaultMaxSteps {
		t.Errorf("expected default ceiling %d, got max=%d step=%d", DefaultMaxSteps, state.MaxSteps, state.Step)
	}
}

func TestStartRun_ProviderFailure(t *testing.T) {
	cfg := testConfig(t)
	p := provider.NewScripted(`{"plan":["a"]}`).FailWith(errors.New("rate limited"))
	state, err := newLoop(t, cfg, p).StartRun(context.Background(), "task")
	if err != nil {
		t.Fatalf("StartRun error: %v", err)
	}
	if state.Status != StatusFailed || state.ErrorCode != ErrCodeProviderFailure {
		t.Fatalf("expected provider_failure, got %s/%s", state.Status, state.ErrorCode)
	}
	if state.Step != 1 {
		t.Errorf("expected the failed turn not to count, got step %d", state.Step)
	}
	if len(p.Requests()) != 2 {
		t.Errorf("provider errors must not be retried, got %d requests", len(p.Requests()))
	}

	events, _ := trace.Load(state.TracePath)
	runEnds := 0
	for _, e := range events {
		if e.Kind == trace.KindRunEnd {
			runEnds++
			payload := e.Payload.(map[string]interface{})
			if !strings.Contains(payload["error"].(string), "rate limited") {
				t.Errorf("expected error detail, got %v", payload)
			}
			if e.Step != 2 {
				t.Errorf("expected run_end at the failed turn, got step %d", e.Step)
			}
		}
	}
	if runEnds != 1 {
		t.Errorf("expected exactly one run_end, got %d", runEnds)
	}
}

func TestStartRun_MalformedAction(t *testing.T) {
	cfg := testConfig(t)
	state, err := newLoop(t, cfg, provider.NewScripted("I refuse to answer in JSON")).StartRun(context.Background(), "task")
	if err != nil {
		t.Fatalf("StartRun error: %v", err)
	}
	if state.Status != StatusFailed || state.ErrorCode != ErrCodeMalformedAction {
		t.Errorf("expected malformed_action, got %s/%s", state.Status, state.ErrorCode)
	}
	if !IsTerminal(state) {
		t.Error("failed runs are terminal")
	}
}

func TestStartRun_CancelledContext(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	loop := newLoop(t, cfg, provider.NewScripted(`{"final":"x"}`))
	sink := trace.NewMemorySink()
	loop.SetSinks(sink)
	state, err := loop.StartRun(ctx, "task")
	if err != nil {
		t.Fatalf("StartRun error: %v", err)
	}
	if state.Status != StatusFailed || state.ErrorCode != ErrCodeProviderFailure {
		t.Errorf("expected provider_failure, got %s/%s", state.Status, state.ErrorCode)
	}
	events := sink.Events()
	if len(events) == 0 || events[len(events)-1].Kind != trace.KindRunEnd {
		t.Errorf("expected run_end to reach sinks after cancel, got %v", kinds(events))
	}
}

func TestStartRun_ReusedLoopKeepsSinks(t *testing.T) {
	cfg := testConfig(t)
	loop := newLoop(t, cfg, provider.NewScripted(`{"final":"one"}`, `{"final":"two"}`))
	sink := trace.NewMemorySink()
	loop.SetSinks(sink)

	for _, task := range []string{"first", "second"} {
		if _, err := loop.StartRun(context.Background(), task); err != nil {
			t.Fatalf("StartRun(%s) error: %v", task, err)
		}
	}
	ends := 0
	for _, e := range sink.Events() {
		if e.Kind == trace.KindRunEnd {
			ends++
		}
	}
	if ends != 2 {
		t.Errorf("expected run_end from both runs, got %d", ends)
	}
}

func TestStartRun_RejectionsAreNotFatal(t *testing.T) {
	cfg := testConfig(t)
	p := provider.NewScripted(
		`{"tool":{"name":"shell","args":{"cmd":"rm -rf /"}}}`,
		`{"tool":{"name":"fs.read","args":{"path":"../../etc/passwd"}}}`,
		`{"tool":{"name":"teleport","args":{}}}`,
		`{"plan":{"op":"update_status","id":"ghost","status":"done"}}`,
		`{"final":"gave up"}`,
	)
	state, err := newLoop(t, cfg, p).StartRun(context.Background(), "try things")
	if err != nil {
		t.Fatalf("StartRun error: %v", err)
	}
	if state.Status != StatusCompleted || state.Step != 5 {
		t.Fatalf("expected completed after 5 turns, got %s at %d", state.Status, state.Step)
	}

	reqs := p.Requests()
	wantCodes := []string{gateway.CodeCommandNotAllowlisted, gateway.CodeSandboxViolation, gateway.CodeUnknownTool, "not_found"}
	for i, code := range wantCodes {
		msgs := reqs[i+1].Messages
		last := msgs[len(msgs)-1]
		if last.Role != provider.RoleTool || !strings.Contains(last.Content, code) {
			t.Errorf("turn %d: expected %s fed back to the model, got %+v", i+1, code, last)
		}
	}
}

func TestStartRun_StrictTrace(t *testing.T) {
	cfg := testConfig(t)
	cfg.Trace.Privacy = config.PrivacyStrict
	p := provider.NewScripted(
		`{"tool":{"name":"fs.write","args":{"path":"notes.txt","content":"private notes","api_key":"sk-secret-1"}}}`,
		`{"final":"model prose that must not be stored"}`,
	)
	state, err := newLoop(t, cfg, p).StartRun(context.Background(), "store notes")
	if err != nil {
		t.Fatalf("StartRun error: %v", err)
	}
	if state.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", state.Status)
	}

	data, err := os.ReadFile(state.TracePath)
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	for _, leaked := range []string{"sk-secret-1", "private notes", "model prose"} {
		if strings.Contains(string(data), leaked) {
			t.Errorf("strict trace contains %q", leaked)
		}
	}

	events, _ := trace.Load(state.TracePath)
	for _, e := range events {
		if e.Kind != trace.KindProviderResponse {
			continue
		}
		if !reflect.DeepEqual(e.Payload, map[string]interface{}{"omitted": true}) || !e.Redacted {
			t.Errorf("expected omitted provider response, got %+v", e)
		}
	}
}

func TestStartRun_StrictTraceKeepsReadContentOut(t *testing.T) {
	cfg := testConfig(t)
	cfg.Trace.Privacy = config.PrivacyStrict
	body := `TOP-SECRET-FILE-BODY {"api_key":"sk-live-123"}`
	if err := os.WriteFile(filepath.Join(cfg.Agent.Workspace, "secret.txt"), []byte(body), 0600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	p := provider.NewScripted(
		`{"tool":{"name":"fs.read","args":{"path":"secret.txt"}}}`,
		`{"final":"done"}`,
	)
	state, err := newLoop(t, cfg, p).StartRun(context.Background(), "read the secret")
	if err != nil {
		t.Fatalf("StartRun error: %v", err)
	}
	if state.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", state.Status)
	}
	if msgs := p.Requests()[1].Messages; !strings.Contains(msgs[len(msgs)-1].Content, "TOP-SECRET-FILE-BODY") {
		t.Error("the model still receives the file body")
	}

	data, err := os.ReadFile(state.TracePath)
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	for _, leaked := range []string{"TOP-SECRET-FILE-BODY", "sk-live-123"} {
		if strings.Contains(string(data), leaked) {
			t.Errorf("strict trace contains %q", leaked)
		}
	}

	events, _ := trace.Load(state.TracePath)
	var req *trace.Event
	for i := range events {
		if events[i].Kind == trace.KindProviderRequest && events[i].Step == 2 {
			req = &events[i]
		}
	}
	if req == nil {
		t.Fatal("expected a provider_request for step 2")
	}
	if !req.Redacted || req.Class != string(tools.ClassFilesystem) {
		t.Errorf("expected a redacted filesystem request, got redacted=%v class=%q", req.Redacted, req.Class)
	}
}

// tokenTool returns output carrying a credential-named key.
type tokenTool struct{}

func (tokenTool) Name() string                       { return "auth.whoami" }
func (tokenTool) Description() string                { return "returns a session" }
func (tokenTool) Parameters() map[string]interface{} { return map[string]interface{}{} }
func (tokenTool) Class() tools.Class                 { return tools.ClassGeneral }
func (tokenTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{"user": "bob", "session_token": "tok-abc-123"}, nil
}

func TestStartRun_RequestMasksSensitiveToolOutput(t *testing.T) {
	cfg := testConfig(t)
	reg := tools.NewRegistry()
	if err := reg.Register(tokenTool{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	p := provider.NewScripted(`{"tool":{"name":"auth.whoami","args":{}}}`, `{"final":"bob"}`)
	loop, err := New(cfg, p, reg, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	state, err := loop.StartRun(context.Background(), "who am i")
	if err != nil {
		t.Fatalf("StartRun error: %v", err)
	}

	data, err := os.ReadFile(state.TracePath)
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	if strings.Contains(string(data), "tok-abc-123") {
		t.Error("standard trace contains the session token")
	}
	if !strings.Contains(string(data), `"user":"bob"`) {
		t.Error("expected non-sensitive tool output to be kept")
	}
}

func TestStartRun_TracingDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Trace.Enabled = false
	state, err := newLoop(t, cfg, provider.NewScripted(`{"plan":["a"]}`, `{"final":"ok"}`)).StartRun(context.Background(), "task")
	if err != nil {
		t.Fatalf("StartRun error: %v", err)
	}
	if state.Status != StatusCompleted || state.Step != 2 {
		t.Errorf("tracing must not affect the run, got %s at %d", state.Status, state.Step)
	}
	if state.TracePath != "" {
		t.Errorf("expected no trace path, got %s", state.TracePath)
	}
	entries, _ := os.ReadDir(cfg.Run.RunsDir)
	if len(entries) != 0 {
		t.Errorf("expected no files in runs dir, got %d entries", len(entries))
	}
}

func TestStartRun_Checkpoints(t *testing.T) {
	cfg := testConfig(t)
	cfg.Run.Checkpoints = true
	p := provider.NewScripted(
		`{"plan":["one","two"]}`,
		`{"tool":{"name":"shell","args":{"cmd":"echo hi"}}}`,
		`{"final":"ok"}`,
	)
	state, err := newLoop(t, cfg, p).StartRun(context.Background(), "task")
	if err != nil {
		t.Fatalf("StartRun error: %v", err)
	}

	store, err := checkpoint.NewStore(checkpoint.Dir(cfg.Run.RunsDir, state.RunID))
	if err != nil {
		t.Fatalf("NewStore error: %v", err)
	}
	if err := store.Load(); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	trail := store.Trail()
	if len(trail) != 3 {
		t.Fatalf("expected 3 checkpoints, got %d", len(trail))
	}
	if trail[0].Action != provider.ActionPlanUpdate || len(trail[0].Plan) != 2 {
		t.Errorf("unexpected first checkpoint %+v", trail[0])
	}
	if trail[1].Tool != "shell" {
		t.Errorf("expected shell in second checkpoint, got %+v", trail[1])
	}
	if trail[2].Status != StatusCompleted {
		t.Errorf("expected completed in last checkpoint, got %s", trail[2].Status)
	}
}

func TestStartRun_TodoToolSharesPlan(t *testing.T) {
	cfg := testConfig(t)
	p := provider.NewScripted(
		`{"tool":{"name":"todo","args":{"op":"add","text":"from tool"}}}`,
		`{"final":"ok"}`,
	)
	state, err := newLoop(t, cfg, p).StartRun(context.Background(), "task")
	if err != nil {
		t.Fatalf("StartRun error: %v", err)
	}
	if len(state.Plan) != 1 || state.Plan[0].Description != "from tool" {
		t.Errorf("expected todo item in run plan, got %+v", state.Plan)
	}
}

func TestStartRun_RequiresTask(t *testing.T) {
	cfg := testConfig(t)
	if _, err := newLoop(t, cfg, provider.NewDummy()).StartRun(context.Background(), "  "); err == nil {
		t.Error("expected error for empty task")
	}
}

func TestDummyProviderRun(t *testing.T) {
	cfg := testConfig(t)
	state, err := newLoop(t, cfg, provider.NewDummy()).StartRun(context.Background(), "say hello")
	if err != nil {
		t.Fatalf("StartRun error: %v", err)
	}
	if state.Status != StatusCompleted || state.FinalAnswer != "say hello" || len(state.Plan) != 3 {
		t.Errorf("unexpected dummy run %+v", state)
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(nil) || IsTerminal(&RunState{Status: StatusRunning}) {
		t.Error("running state is not terminal")
	}
	for _, s := range []string{StatusCompleted, StatusMaxStepsReached, StatusFailed} {
		if !IsTerminal(&RunState{Status: s}) {
			t.Errorf("%s should be terminal", s)
		}
	}
}
