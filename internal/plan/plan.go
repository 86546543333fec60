// Package plan holds the ordered task list an agent maintains during a run.
package plan

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Status of a plan item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusDone, StatusCancelled:
		return true
	}
	return false
}

var (
	// ErrNotFound is returned when an item id is not in the plan.
	ErrNotFound = errors.New("not_found")
	// ErrInvalidStatus is returned for a status outside the known set.
	ErrInvalidStatus = errors.New("invalid_status")
	// ErrInvalidUpdate is returned for a malformed Update.
	ErrInvalidUpdate = errors.New("invalid_update")
)

// Item is one plan entry. Items are never deleted; removal is a transition
// to cancelled.
type Item struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Status      Status `json:"status"`
	Index       int    `json:"index"`
}

// Update operations accepted from a provider.
const (
	OpAdd          = "add"
	OpUpdateStatus = "update_status"
	OpRemove       = "remove"
)

// Update is a single provider-issued plan change.
type Update struct {
	Op          string `json:"op"`
	ID          string `json:"id,omitempty"`
	Description string `json:"description,omitempty"`
	Status      Status `json:"status,omitempty"`
}

// Manager owns the plan for one run. It is not safe for concurrent use; the
// agent loop calls it from a single goroutine.
type Manager struct {
	goal  string
	items []Item
	byID  map[string]int
}

// New creates an empty plan for the given goal (the run's task).
func New(goal string) *Manager {
	return &Manager{
		goal: goal,
		byID: make(map[string]int),
	}
}

// Goal returns the task the plan was seeded with.
func (m *Manager) Goal() string {
	return m.goal
}

// Add appends a pending item.
func (m *Manager) Add(description string) Item {
	item := Item{
		ID:          uuid.New().String(),
		Description: description,
		Status:      StatusPending,
		Index:       len(m.items),
	}
	m.byID[item.ID] = len(m.items)
	m.items = append(m.items, item)
	return item
}

// UpdateStatus changes the status of an existing item.
func (m *Manager) UpdateStatus(id string, status Status) (Item, error) {
	if !status.Valid() {
		return Item{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	i, ok := m.byID[id]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	m.items[i].Status = status
	return m.items[i], nil
}

// Remove cancels an item. The item stays in the sequence.
func (m *Manager) Remove(id string) (Item, error) {
	return m.UpdateStatus(id, StatusCancelled)
}

// Get returns the item with the given id.
func (m *Manager) Get(id string) (Item, bool) {
	i, ok := m.byID[id]
	if !ok {
		return Item{}, false
	}
	return m.items[i], true
}

// Items returns a copy of the plan in insertion order.
func (m *Manager) Items() []Item {
	out := make([]Item, len(m.items))
	copy(out, m.items)
	return out
}

// Len returns the number of items, cancelled ones included.
func (m *Manager) Len() int {
	return len(m.items)
}

// Apply executes a provider-issued update.
func (m *Manager) Apply(u Update) (Item, error) {
	switch u.Op {
	case OpAdd:
		if u.Description == "" {
			return Item{}, fmt.Errorf("%w: add requires a description", ErrInvalidUpdate)
		}
		return m.Add(u.Description), nil
	case OpUpdateStatus:
		return m.UpdateStatus(u.ID, u.Status)
	case OpRemove:
		return m.Remove(u.ID)
	default:
		return Item{}, fmt.Errorf("%w: unknown op %q", ErrInvalidUpdate, u.Op)
	}
}

type ctxKey struct{}

// NewContext returns a context carrying the run's plan.
func NewContext(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, ctxKey{}, m)
}

// FromContext returns the plan carried by ctx, if any.
func FromContext(ctx context.Context) (*Manager, bool) {
	m, ok := ctx.Value(ctxKey{}).(*Manager)
	return m, ok && m != nil
}
