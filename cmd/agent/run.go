package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vinayprograms/agentmaker/internal/agent"
	"github.com/vinayprograms/agentmaker/internal/logging"
)

// Run executes the task.
func (c *RunCmd) Run() error {
	w := &workflow{
		configPath: c.Config,
		agentPath:  c.Agent,
		overrides:  *c,
	}
	if err := w.load(); err != nil {
		return err
	}

	logger := logging.New()
	logger.SetLevel(logging.ParseLevel(w.cfg.Log.Level))

	rt := newRuntime(w, logger)
	defer rt.cleanup()
	if err := rt.setup(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, err := rt.run(ctx, c.Task)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(state); err != nil {
			return err
		}
	} else {
		printState(os.Stdout, state)
	}

	if state.Status == agent.StatusFailed {
		return fmt.Errorf("run failed (%s): %s", state.ErrorCode, state.Error)
	}
	return nil
}
