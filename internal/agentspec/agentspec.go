// Package agentspec loads agent spec files.
package agentspec

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vinayprograms/agentmaker/internal/config"
	"github.com/vinayprograms/agentmaker/internal/tools"
)

// Spec describes an agent: its name, the tools it may use and optional
// prompt and ceiling overrides.
type Spec struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description,omitempty"`
	Tools        []string `yaml:"tools,omitempty"`
	SystemPrompt string   `yaml:"system_prompt,omitempty"`
	MaxSteps     int      `yaml:"max_steps,omitempty"`
}

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// Default returns the spec used when no file is given.
func Default() *Spec {
	return &Spec{
		Name:  "agent",
		Tools: append([]string(nil), tools.DefaultNames...),
	}
}

// Load reads a spec file. JSON files parse too.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent spec: %w", err)
	}
	spec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// Parse decodes and validates a spec.
func Parse(data []byte) (*Spec, error) {
	spec := &Spec{}
	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("invalid agent spec: %w", err)
	}
	if spec.Name == "" {
		spec.Name = "agent"
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Validate checks the name, the tool names and the ceiling.
func (s *Spec) Validate() error {
	if !namePattern.MatchString(s.Name) {
		return fmt.Errorf("invalid agent name %q", s.Name)
	}
	if s.MaxSteps < 0 {
		return fmt.Errorf("max_steps must not be negative, got %d", s.MaxSteps)
	}
	for _, name := range s.Tools {
		if !known(name) {
			return fmt.Errorf("unknown tool %q (available: fs, %s)", name, strings.Join(tools.BuiltinNames, ", "))
		}
	}
	return nil
}

// ToolNames returns the declared tools, or the default set when none are
// declared.
func (s *Spec) ToolNames() []string {
	if len(s.Tools) == 0 {
		return append([]string(nil), tools.DefaultNames...)
	}
	return append([]string(nil), s.Tools...)
}

// Apply overlays the spec onto a configuration.
func (s *Spec) Apply(cfg *config.Config) {
	if s.Name != "" {
		cfg.Agent.Name = s.Name
	}
	if s.SystemPrompt != "" {
		cfg.Agent.SystemPrompt = s.SystemPrompt
	}
	if s.MaxSteps > 0 {
		cfg.Run.MaxSteps = s.MaxSteps
	}
}

func known(name string) bool {
	if name == "fs" {
		return true
	}
	for _, n := range tools.BuiltinNames {
		if n == name {
			return true
		}
	}
	return false
}
