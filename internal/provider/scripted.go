package provider

import (
	"context"
	"fmt"
	"sync"
)

// Scripted replays a fixed list of model outputs, one per turn. Each output
// is parsed like real model text.
type Scripted struct {
	mu       sync.Mutex
	outputs  []string
	requests []Request
	err      error
}

// NewScripted creates a provider that answers with outputs in order.
func NewScripted(outputs ...string) *Scripted {
	return &Scripted{outputs: outputs}
}

// FailWith makes every call after the script runs out return err.
func (s *Scripted) FailWith(err error) *Scripted {
	s.err = err
	return s
}

func (s *Scripted) Next(ctx context.Context, req Request) (Action, error) {
	if err := ctx.Err(); err != nil {
		return Action{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, req)
	if len(s.outputs) == 0 {
		if s.err != nil {
			return Action{}, s.err
		}
		return Action{}, fmt.Errorf("script exhausted")
	}
	out := s.outputs[0]
	s.outputs = s.outputs[1:]
	return ParseAction(out)
}

// Requests returns the requests seen so far.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}
