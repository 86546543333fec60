// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Privacy modes for trace redaction.
const (
	PrivacyOff      = "off"
	PrivacyStandard = "standard"
	PrivacyStrict   = "strict"
)

// DefaultSensitiveKeys are the key-name fragments redacted in traces.
var DefaultSensitiveKeys = []string{
	"api_key",
	"authorization",
	"token",
	"password",
	"secret",
	"openid",
	"sessionid",
	"cookie",
	"openai_api_key",
}

// DefaultShellAllowlist is the minimal set of commands the shell tool may run.
var DefaultShellAllowlist = []string{"echo", "ls"}

// Config represents the agent configuration.
type Config struct {
	Agent AgentConfig `toml:"agent"`
	Run   RunConfig   `toml:"run"`
	LLM   LLMConfig   `toml:"llm"`
	Trace TraceConfig `toml:"trace"`
	Shell ShellConfig `toml:"shell"`
	Log   LogConfig   `toml:"log"`
}

// AgentConfig contains agent identification settings.
type AgentConfig struct {
	Name         string `toml:"name"`
	Workspace    string `toml:"workspace"`     // Sandbox root for filesystem tools
	SystemPrompt string `toml:"system_prompt"` // Overrides the built-in prompt preamble
}

// RunConfig bounds and places a run.
type RunConfig struct {
	MaxSteps    int    `toml:"max_steps"`   // Step ceiling (default 6)
	RunsDir     string `toml:"runs_dir"`    // Trace root: <runs_dir>/<run_id>/trace.jsonl
	Checkpoints bool   `toml:"checkpoints"` // Write per-turn RunState snapshots
	Index       string `toml:"index"`       // SQLite run index path ("" disables)
}

// LLMConfig contains LLM provider settings.
type LLMConfig struct {
	Provider    string  `toml:"provider"` // dummy | openai | anthropic
	Model       string  `toml:"model"`
	APIKeyEnv   string  `toml:"api_key_env"`
	MaxTokens   int     `toml:"max_tokens"`
	BaseURL     string  `toml:"base_url"` // Custom API endpoint (OpenRouter, LiteLLM, Ollama)
	Temperature float64 `toml:"temperature"`
}

// TraceConfig controls trace recording and redaction.
type TraceConfig struct {
	Enabled        bool     `toml:"enabled"`
	Privacy        string   `toml:"privacy"` // off | standard | strict
	Placeholder    string   `toml:"placeholder"`
	MaxValueLength int      `toml:"max_value_length"` // standard mode truncation limit
	SensitiveKeys  []string `toml:"sensitive_keys"`
	NATSURL        string   `toml:"nats_url"` // Optional: publish redacted events
	NATSSubject    string   `toml:"nats_subject"`
}

// ShellConfig configures shell-class tools.
type ShellConfig struct {
	Allowlist []string `toml:"allowlist"`
	Timeout   int      `toml:"timeout"` // seconds
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level string `toml:"level"`
}

// New creates a new config with defaults.
func New() *Config {
	return &Config{
		Agent: AgentConfig{
			Name: "agent",
		},
		Run: RunConfig{
			MaxSteps: 6,
			RunsDir:  "runs",
			Index:    filepath.Join("runs", "index.db"),
		},
		LLM: LLMConfig{
			Provider:    "dummy",
			MaxTokens:   4096,
			Temperature: 0.2,
		},
		Trace: TraceConfig{
			Enabled:        true,
			Privacy:        PrivacyStandard,
			Placeholder:    "***",
			MaxValueLength: 2000,
			SensitiveKeys:  append([]string(nil), DefaultSensitiveKeys...),
			NATSSubject:    "agentmaker.trace",
		},
		Shell: ShellConfig{
			Allowlist: append([]string(nil), DefaultShellAllowlist...),
			Timeout:   10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Default returns a default configuration.
func Default() *Config {
	return New()
}

// LoadFile loads configuration from a TOML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadDefault loads configuration from agent.toml in the current directory.
// A missing file yields the defaults.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	path := filepath.Join(cwd, "agent.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(), nil
	}
	return LoadFile(path)
}

// ApplyEnv overlays AGENT_MAKER_* variables using lookup (os.LookupEnv in
// production). Unset variables leave the current value alone.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("AGENT_MAKER_PRIVACY"); ok && strings.TrimSpace(v) != "" {
		c.Trace.Privacy = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := lookup("AGENT_MAKER_TRACE_ENABLED"); ok {
		c.Trace.Enabled = parseBool(v)
	}
	if v, ok := lookup("AGENT_MAKER_REDACT_PLACEHOLDER"); ok {
		c.Trace.Placeholder = v
	}
	if v, ok := lookup("AGENT_MAKER_MAX_VALUE_LEN"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("AGENT_MAKER_MAX_VALUE_LEN: %w", err)
		}
		c.Trace.MaxValueLength = n
	}
	if v, ok := lookup("AGENT_MAKER_SENSITIVE_KEYS"); ok {
		c.Trace.SensitiveKeys = splitList(v)
	}
	if v, ok := lookup("AGENT_MAKER_NATS_URL"); ok {
		c.Trace.NATSURL = strings.TrimSpace(v)
	}
	if v, ok := lookup("AGENT_MAKER_SHELL_ALLOWLIST"); ok {
		c.Shell.Allowlist = splitList(v)
	}
	if v, ok := lookup("AGENT_MAKER_WORKSPACE"); ok && strings.TrimSpace(v) != "" {
		c.Agent.Workspace = strings.TrimSpace(v)
	}
	if v, ok := lookup("AGENT_MAKER_MAX_STEPS"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("AGENT_MAKER_MAX_STEPS: %w", err)
		}
		c.Run.MaxSteps = n
	}
	if v, ok := lookup("AGENT_MAKER_PROVIDER"); ok && strings.TrimSpace(v) != "" {
		c.LLM.Provider = strings.TrimSpace(v)
	}
	if v, ok := lookup("AGENT_MAKER_MODEL"); ok && strings.TrimSpace(v) != "" {
		c.LLM.Model = strings.TrimSpace(v)
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	switch c.Trace.Privacy {
	case PrivacyOff, PrivacyStandard, PrivacyStrict:
	default:
		return fmt.Errorf("invalid trace privacy %q (want off, standard or strict)", c.Trace.Privacy)
	}
	if c.Trace.MaxValueLength < 1 {
		return fmt.Errorf("trace max_value_length must be positive, got %d", c.Trace.MaxValueLength)
	}
	if c.Run.MaxSteps < 1 {
		return fmt.Errorf("run max_steps must be positive, got %d", c.Run.MaxSteps)
	}
	if c.Shell.Timeout < 1 {
		return fmt.Errorf("shell timeout must be positive, got %d", c.Shell.Timeout)
	}
	return nil
}

// ResolveWorkspace makes the workspace absolute, defaulting to the current
// directory.
func (c *Config) ResolveWorkspace() error {
	if c.Agent.Workspace == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		c.Agent.Workspace = cwd
	}
	abs, err := filepath.Abs(c.Agent.Workspace)
	if err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}
	c.Agent.Workspace = abs
	return nil
}

// GetAPIKey returns the API key from the configured environment variable.
// If api_key_env is not set, uses the default env var for the provider.
func (c *Config) GetAPIKey() string {
	envVar := c.LLM.APIKeyEnv
	if envVar == "" {
		envVar = DefaultAPIKeyEnv(c.LLM.Provider)
	}
	if envVar == "" {
		return ""
	}
	return os.Getenv(envVar)
}

// DefaultAPIKeyEnv returns the default environment variable name for a provider.
func DefaultAPIKeyEnv(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
