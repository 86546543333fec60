package agent

import (
	"time"

	"github.com/vinayprograms/agentmaker/internal/plan"
)

// Run statuses.
const (
	StatusRunning         = "running"
	StatusCompleted       = "completed"
	StatusMaxStepsReached = "max_steps_reached"
	StatusFailed          = "failed"
)

// Error codes for failed runs.
const (
	ErrCodeProviderFailure = "provider_failure"
	ErrCodeMalformedAction = "malformed_action"
)

// DefaultMaxSteps is used when the configured ceiling is not positive.
const DefaultMaxSteps = 6

// RunState is the observable state of one run.
type RunState struct {
	RunID       string      `json:"run_id"`
	Task        string      `json:"task"`
	Step        int         `json:"step"` // completed turns
	MaxSteps    int         `json:"max_steps"`
	Status      string      `json:"status"`
	Plan        []plan.Item `json:"plan"`
	FinalAnswer string      `json:"final_answer,omitempty"`
	ErrorCode   string      `json:"error_code,omitempty"`
	Error       string      `json:"error,omitempty"`
	TracePath   string      `json:"trace_path,omitempty"`
	StartedAt   time.Time   `json:"started_at"`
	EndedAt     time.Time   `json:"ended_at,omitempty"`
}

// IsTerminal reports whether no further turns will run.
func IsTerminal(s *RunState) bool {
	if s == nil {
		return false
	}
	switch s.Status {
	case StatusCompleted, StatusMaxStepsReached, StatusFailed:
		return true
	}
	return false
}
