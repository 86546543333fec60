package main

import (
	"context"
	"time"

	"github.com/vinayprograms/agentmaker/internal/agent"
	"github.com/vinayprograms/agentmaker/internal/agentspec"
	"github.com/vinayprograms/agentmaker/internal/config"
	"github.com/vinayprograms/agentmaker/internal/logging"
	"github.com/vinayprograms/agentmaker/internal/provider"
	"github.com/vinayprograms/agentmaker/internal/runindex"
	"github.com/vinayprograms/agentmaker/internal/tools"
	"github.com/vinayprograms/agentmaker/internal/trace"
)

// runtime handles the execution phase of a run.
type runtime struct {
	cfg    *config.Config
	spec   *agentspec.Spec
	logger *logging.Logger

	// Components
	provider provider.Provider
	registry *tools.Registry
	loop     *agent.Loop
	index    *runindex.Index

	// Cleanup
	closers []func()
}

// newRuntime creates a runtime from a loaded workflow.
func newRuntime(w *workflow, logger *logging.Logger) *runtime {
	return &runtime{
		cfg:    w.cfg,
		spec:   w.spec,
		logger: logger,
	}
}

// setup initializes all runtime components.
func (rt *runtime) setup() error {
	if err := rt.setupRegistry(); err != nil {
		return err
	}
	if err := rt.createProvider(); err != nil {
		return err
	}
	if err := rt.createLoop(); err != nil {
		return err
	}
	rt.setupSinks()
	rt.setupIndex()
	return nil
}

func (rt *runtime) setupRegistry() error {
	reg, err := buildRegistry(rt.spec.ToolNames(), rt.cfg)
	if err != nil {
		return err
	}
	rt.registry = reg
	return nil
}

func (rt *runtime) createProvider() error {
	p, err := provider.New(rt.cfg.LLM, rt.cfg.GetAPIKey())
	if err != nil {
		return err
	}
	rt.provider = p
	return nil
}

func (rt *runtime) createLoop() error {
	loop, err := agent.New(rt.cfg, rt.provider, rt.registry, rt.logger)
	if err != nil {
		return err
	}
	rt.loop = loop
	return nil
}

// setupSinks connects the optional NATS fan-out. A broker that cannot be
// reached does not stop the run.
func (rt *runtime) setupSinks() {
	if rt.cfg.Trace.NATSURL == "" || !rt.cfg.Trace.Enabled {
		return
	}
	sink, err := trace.NewNATSSink(rt.cfg.Trace.NATSURL, rt.cfg.Trace.NATSSubject)
	if err != nil {
		rt.logger.Warn("trace fan-out disabled", map[string]interface{}{"error": err.Error()})
		return
	}
	rt.loop.SetSinks(sink)
	rt.closers = append(rt.closers, func() { sink.Close() })
}

// setupIndex opens the run index. Index problems only cost the listing.
func (rt *runtime) setupIndex() {
	if rt.cfg.Run.Index == "" {
		return
	}
	idx, err := runindex.Open(rt.cfg.Run.Index)
	if err != nil {
		rt.logger.Warn("run index unavailable", map[string]interface{}{"error": err.Error()})
		return
	}
	rt.index = idx
	rt.closers = append(rt.closers, func() { idx.Close() })
}

// run executes the task and indexes the outcome.
func (rt *runtime) run(ctx context.Context, task string) (*agent.RunState, error) {
	state, err := rt.loop.StartRun(ctx, task)
	if err != nil {
		return nil, err
	}
	if rt.index != nil {
		entry := runindex.Entry{
			RunID:       state.RunID,
			Agent:       rt.cfg.Agent.Name,
			Task:        state.Task,
			Status:      state.Status,
			Steps:       state.Step,
			ErrorCode:   state.ErrorCode,
			FinalAnswer: state.FinalAnswer,
			TracePath:   state.TracePath,
			StartedAt:   state.StartedAt,
			EndedAt:     state.EndedAt,
		}
		if err := rt.index.Record(entry); err != nil {
			rt.logger.Warn("run not indexed", map[string]interface{}{"error": err.Error()})
		}
	}
	return state, nil
}

// cleanup releases runtime resources in reverse order.
func (rt *runtime) cleanup() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// buildRegistry builds the tool registry for a run.
func buildRegistry(names []string, cfg *config.Config) (*tools.Registry, error) {
	return tools.BuildFromNames(names, tools.Options{
		Workspace:    cfg.Agent.Workspace,
		ShellTimeout: time.Duration(cfg.Shell.Timeout) * time.Second,
	})
}
