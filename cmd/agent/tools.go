package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vinayprograms/agentmaker/internal/agentspec"
	"github.com/vinayprograms/agentmaker/internal/config"
	"github.com/vinayprograms/agentmaker/internal/tools"
)

// Run lists tools.
func (c *ToolsCmd) Run() error {
	spec := agentspec.Default()
	if c.Agent != "" {
		var err error
		if spec, err = agentspec.Load(c.Agent); err != nil {
			return err
		}
	}

	names := spec.ToolNames()
	if c.All {
		names = tools.BuiltinNames
	}

	cfg := config.New()
	if err := cfg.ResolveWorkspace(); err != nil {
		return err
	}
	reg, err := buildRegistry(names, cfg)
	if err != nil {
		return err
	}
	defs := reg.Definitions()

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(defs)
	}

	fmt.Println(toolTable(defs))
	return nil
}

// toolTable renders tool definitions as a table.
func toolTable(defs []tools.Definition) string {
	rows := make([][]string, 0, len(defs))
	for _, d := range defs {
		rows = append(rows, []string{d.Name, string(d.Class), d.Description})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TOOL", "CLASS", "DESCRIPTION").
		Rows(rows...).
		String()
}
