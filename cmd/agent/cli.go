package main

import "github.com/alecthomas/kong"

// CLI defines the command-line interface.
type CLI struct {
	Tools   ToolsCmd   `cmd:"" help:"List available tools"`
	Run     RunCmd     `cmd:"" help:"Run a task"`
	Replay  ReplayCmd  `cmd:"" help:"Replay a run trace"`
	Runs    RunsCmd    `cmd:"" help:"List recorded runs"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

// ToolsCmd lists the tools an agent spec enables.
type ToolsCmd struct {
	Agent string `short:"a" help:"Agent spec file (YAML or JSON)" type:"path"`
	All   bool   `help:"List every built-in tool"`
	JSON  bool   `name:"json" help:"Print tool definitions as JSON"`
}

// RunCmd executes one task.
type RunCmd struct {
	Task        string `arg:"" help:"Task for the agent"`
	Agent       string `short:"a" help:"Agent spec file (YAML or JSON)" type:"path"`
	Config      string `short:"c" help:"Config file path (default: ./agent.toml)" type:"path"`
	Workspace   string `short:"w" help:"Workspace directory (sandbox root)"`
	Provider    string `short:"p" help:"LLM provider: dummy, openai, anthropic"`
	Model       string `short:"m" help:"Model name"`
	MaxSteps    int    `help:"Step ceiling (overrides config)"`
	Privacy     string `help:"Trace privacy mode: off, standard, strict"`
	NoTrace     bool   `help:"Disable trace recording"`
	Checkpoints bool   `help:"Write a checkpoint after every turn"`
	Debug       bool   `help:"Enable debug logging"`
	JSON        bool   `name:"json" help:"Print the final run state as JSON"`
}

// ReplayCmd replays one or more traces.
type ReplayCmd struct {
	Trace   []string `arg:"" help:"Trace file(s) or run directories"`
	Verbose int      `short:"v" type:"counter" help:"Verbosity level (-v, -vv)"`
	NoPager bool     `help:"Disable pager for output"`
	Follow  bool     `short:"f" help:"Follow a trace while its run is in progress"`
}

// RunsCmd lists runs from the index.
type RunsCmd struct {
	Limit  int    `short:"n" default:"20" help:"Number of runs to show (0 for all)"`
	Index  string `help:"Run index path (default from config)"`
	Config string `short:"c" help:"Config file path (default: ./agent.toml)" type:"path"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

// kongVars returns variables for kong (version info).
func kongVars() kong.Vars {
	return kong.Vars{
		"version": version,
	}
}
