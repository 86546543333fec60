// Package main is the entry point for the agent CLI.
package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func init() {
	// Existing variables win; a missing file is not an error.
	path := os.Getenv("AGENT_MAKER_DOTENV")
	if path == "" {
		path = ".env"
	}
	_ = godotenv.Load(path)
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("agent"),
		kong.Description("Run a bounded, sandboxed LLM agent and inspect its traces."),
		kong.UsageOnError(),
		kongVars(),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
