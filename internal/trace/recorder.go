package trace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vinayprograms/agentmaker/internal/logging"
)

// ErrStepRegression is returned when an event's step is lower than the
// previous event's.
var ErrStepRegression = errors.New("trace step regression")

// Sink receives events after redaction.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// Options configure a recorder.
type Options struct {
	RunsDir string
	RunID   string
	Enabled bool
	Policy  Policy
	Sinks   []Sink
	Logger  *logging.Logger
}

// Recorder appends redacted events to a run's trace file. A disabled
// recorder accepts events and writes nothing.
type Recorder struct {
	mu       sync.Mutex
	runID    string
	path     string
	file     *os.File
	policy   Policy
	sinks    []Sink
	logger   *logging.Logger
	lastStep int
	count    int
}

// Open creates the run directory and opens its trace for appending. When
// tracing is disabled nothing is created.
func Open(opts Options) (*Recorder, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	r := &Recorder{
		runID:  opts.RunID,
		policy: opts.Policy,
		logger: logger.WithComponent("trace"),
	}
	if !opts.Enabled {
		return r, nil
	}

	if opts.RunID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	path := Path(opts.RunsDir, opts.RunID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open trace: %w", err)
	}
	r.path = path
	r.file = f
	r.sinks = opts.Sinks
	return r, nil
}

// Disabled returns a recorder that records nothing.
func Disabled() *Recorder {
	return &Recorder{logger: logging.Discard()}
}

// Enabled reports whether events are persisted.
func (r *Recorder) Enabled() bool {
	return r.file != nil
}

// Path returns the trace file path, or "" when disabled.
func (r *Recorder) Path() string {
	return r.path
}

// Count returns the number of events written.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Record redacts e and appends it as one line. Steps must not decrease.
func (r *Recorder) Record(ctx context.Context, e Event) error {
	if r.file == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e.Step < r.lastStep {
		return fmt.Errorf("%w: step %d after %d", ErrStepRegression, e.Step, r.lastStep)
	}
	if e.RunID == "" {
		e.RunID = r.runID
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	e = r.policy.Apply(e)

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	data = append(data, '\n')
	if _, err := r.file.Write(data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	r.lastStep = e.Step
	r.count++

	for _, s := range r.sinks {
		if err := s.Publish(ctx, e); err != nil {
			r.logger.Warn("sink publish failed", map[string]interface{}{
				"kind":  e.Kind,
				"error": err.Error(),
			})
		}
	}
	return nil
}

// Close closes the trace file. Sinks belong to the caller and stay open.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sinks = nil
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
