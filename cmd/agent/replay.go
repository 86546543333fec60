package main

import (
	"fmt"
	"os"

	"github.com/vinayprograms/agentmaker/internal/replay"
)

// Run replays traces.
func (c *ReplayCmd) Run() error {
	paths := make([]string, len(c.Trace))
	for i, p := range c.Trace {
		paths[i] = replay.TracePath(p)
	}

	interactive := !c.NoPager && isTerminal(os.Stdout)

	if c.Follow {
		if len(paths) != 1 {
			return fmt.Errorf("--follow takes exactly one trace")
		}
		if !interactive {
			return fmt.Errorf("--follow needs a terminal")
		}
		return replay.New(os.Stdout, c.Verbose).ReplayFileLive(paths[0])
	}

	if len(paths) > 1 {
		m := replay.NewMulti(os.Stdout, c.Verbose)
		if interactive {
			return m.ReplayFilesInteractive(paths)
		}
		return m.ReplayFiles(paths)
	}

	r := replay.New(os.Stdout, c.Verbose)
	if interactive {
		return r.ReplayFileInteractive(paths[0])
	}
	return r.ReplayFile(paths[0])
}
