package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vinayprograms/agentmaker/internal/runindex"
)

// Run lists indexed runs, newest first.
func (c *RunsCmd) Run() error {
	path := c.Index
	if path == "" {
		cfg, err := loadConfig(c.Config)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		path = cfg.Run.Index
	}
	if path == "" {
		return fmt.Errorf("run index is disabled (set run.index or pass --index)")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	idx, err := runindex.Open(path)
	if err != nil {
		return err
	}
	defer idx.Close()

	entries, err := idx.List(c.Limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}
	fmt.Println(runsTable(entries))
	return nil
}

// runsTable renders index entries as a table.
func runsTable(entries []runindex.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.StartedAt.Local().Format("2006-01-02 15:04:05"),
			e.RunID,
			e.Agent,
			e.Status,
			fmt.Sprintf("%d", e.Steps),
			truncate(e.Task, 40),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("STARTED", "RUN", "AGENT", "STATUS", "STEPS", "TASK").
		Rows(rows...).
		String()
}
