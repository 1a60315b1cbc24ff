package slr

import (
	"fmt"
	"sync"
	"time"
)

// Status is the lifecycle state of one work unit.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// UnitState is the tracker's view of one work unit.
type UnitState struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      Mode      `json:"kind"`
	Status    Status    `json:"status"`
	Rows      int       `json:"rows"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Tracker owns per-unit status and the completed-of-total counter.
// Status only moves forward: queued → processing → completed | error.
type Tracker struct {
	mu        sync.RWMutex
	units     []UnitState
	index     map[string]int
	completed int
}

// NewTracker registers units as queued.
func NewTracker(units []WorkUnit) *Tracker {
	t := &Tracker{
		units: make([]UnitState, len(units)),
		index: make(map[string]int, len(units)),
	}
	now := time.Now().UTC()
	for i, u := range units {
		t.units[i] = UnitState{ID: u.ID, Name: u.Label(), Kind: u.Kind, Status: StatusQueued, UpdatedAt: now}
		t.index[u.ID] = i
	}
	return t
}

func validTransition(from, to Status) bool {
	switch from {
	case StatusQueued:
		return to == StatusProcessing
	case StatusProcessing:
		return to == StatusCompleted || to == StatusError
	}
	return false
}

// Processing marks a unit as dispatched.
func (t *Tracker) Processing(id string) error {
	return t.transition(id, StatusProcessing, func(*UnitState) {})
}

// Completed marks a unit done and records how many rows it contributed.
func (t *Tracker) Completed(id string, rows int) error {
	return t.transition(id, StatusCompleted, func(s *UnitState) { s.Rows = rows })
}

// Failed marks a unit as errored with cause.
func (t *Tracker) Failed(id string, cause error) error {
	return t.transition(id, StatusError, func(s *UnitState) {
		if cause != nil {
			s.Error = cause.Error()
		}
	})
}

func (t *Tracker) transition(id string, to Status, apply func(*UnitState)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUnit, id)
	}
	s := &t.units[i]
	if !validTransition(s.Status, to) {
		return fmt.Errorf("%w: %s %s → %s", ErrInvalidTransition, id, s.Status, to)
	}
	s.Status = to
	s.UpdatedAt = time.Now().UTC()
	apply(s)
	if to == StatusCompleted {
		t.completed++
	}
	return nil
}

// Counts returns (completed, total).
func (t *Tracker) Counts() (int, int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.completed, len(t.units)
}

// Status returns the current status of unit id.
func (t *Tracker) Status(id string) (Status, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.index[id]
	if !ok {
		return "", false
	}
	return t.units[i].Status, true
}

// Units returns a copy of all unit states in submission order.
func (t *Tracker) Units() []UnitState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]UnitState(nil), t.units...)
}
