package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/vinayprograms/agentmaker/internal/agentspec"
	"github.com/vinayprograms/agentmaker/internal/config"
)

// workflow handles the configuration phase of a run.
type workflow struct {
	// Parsed from CLI
	configPath string
	agentPath  string
	overrides  RunCmd

	// Loaded artifacts
	cfg  *config.Config
	spec *agentspec.Spec
}

// load builds the run configuration. Later layers win: config file,
// AGENT_MAKER_* environment, agent spec, command-line flags.
func (w *workflow) load() error {
	if err := w.loadConfig(); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := w.loadSpec(); err != nil {
		return fmt.Errorf("loading agent spec: %w", err)
	}
	w.spec.Apply(w.cfg)
	w.applyOverrides()

	if err := w.cfg.Validate(); err != nil {
		return err
	}
	return w.cfg.ResolveWorkspace()
}

// loadConfig loads the config file and applies the environment.
func (w *workflow) loadConfig() error {
	cfg, err := loadConfig(w.configPath)
	if err != nil {
		return err
	}
	w.cfg = cfg
	return nil
}

// loadSpec loads the agent spec, or the default one.
func (w *workflow) loadSpec() error {
	if w.agentPath == "" {
		w.spec = agentspec.Default()
		return nil
	}
	spec, err := agentspec.Load(w.agentPath)
	if err != nil {
		return err
	}
	w.spec = spec
	return nil
}

func (w *workflow) applyOverrides() {
	o := w.overrides
	if o.Workspace != "" {
		w.cfg.Agent.Workspace = o.Workspace
	}
	if o.Provider != "" {
		w.cfg.LLM.Provider = o.Provider
	}
	if o.Model != "" {
		w.cfg.LLM.Model = o.Model
	}
	if o.MaxSteps > 0 {
		w.cfg.Run.MaxSteps = o.MaxSteps
	}
	if o.Privacy != "" {
		w.cfg.Trace.Privacy = strings.ToLower(o.Privacy)
	}
	if o.NoTrace {
		w.cfg.Trace.Enabled = false
	}
	if o.Checkpoints {
		w.cfg.Run.Checkpoints = true
	}
	if o.Debug {
		w.cfg.Log.Level = "debug"
	}
}

// loadConfig reads path, or ./agent.toml when path is empty, then overlays
// the environment.
func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}
