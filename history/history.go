// Package history keeps bounded undo/redo stacks of encoded snapshots.
package history

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 100

// Manager records snapshots of T as JSON. The newest recorded state is the
// present; undo walks back through the past and redo forward through the
// future. Recording after an undo discards the future.
type Manager[T any] struct {
	states    [][]byte // encoded states, oldest first
	current   int      // index of the present state, -1 when empty
	capacity  int
	replaying bool
}

// New creates a manager holding at most capacity states.
func New[T any](capacity int) *Manager[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager[T]{
		states:   make([][]byte, 0, capacity),
		current:  -1,
		capacity: capacity,
	}
}

// Record saves state as the new present. It is a no-op while replaying and
// reports whether a checkpoint was stored.
func (m *Manager[T]) Record(state T) (bool, error) {
	if m.replaying {
		return false, nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return false, fmt.Errorf("encode history state: %w", err)
	}

	// Drop the future.
	if m.current < len(m.states)-1 {
		clear(m.states[m.current+1:])
		m.states = m.states[:m.current+1]
	}

	m.states = append(m.states, data)
	if len(m.states) > m.capacity {
		m.states[0] = nil
		m.states = m.states[1:]
	}
	m.current = len(m.states) - 1
	return true, nil
}

// CanUndo reports whether there is a past state.
func (m *Manager[T]) CanUndo() bool {
	return m.current > 0
}

// CanRedo reports whether there is a future state.
func (m *Manager[T]) CanRedo() bool {
	return m.current < len(m.states)-1
}

// Undo steps back one state. ok is false when the past is empty.
func (m *Manager[T]) Undo() (state T, ok bool, err error) {
	if !m.CanUndo() {
		return state, false, nil
	}
	m.current--
	state, err = m.load(m.current)
	return state, err == nil, err
}

// Redo steps forward one state. ok is false when the future is empty.
func (m *Manager[T]) Redo() (state T, ok bool, err error) {
	if !m.CanRedo() {
		return state, false, nil
	}
	m.current++
	state, err = m.load(m.current)
	return state, err == nil, err
}

// Current decodes the present state.
func (m *Manager[T]) Current() (state T, ok bool, err error) {
	if m.current < 0 {
		return state, false, nil
	}
	state, err = m.load(m.current)
	return state, err == nil, err
}

func (m *Manager[T]) load(i int) (T, error) {
	var state T
	if err := json.Unmarshal(m.states[i], &state); err != nil {
		return state, fmt.Errorf("decode history state %d: %w", i, err)
	}
	return state, nil
}

// Replay runs fn with recording suppressed, so that applying an undone or
// redone state does not record it again.
func (m *Manager[T]) Replay(fn func()) {
	prev := m.replaying
	m.replaying = true
	defer func() { m.replaying = prev }()
	fn()
}

// Replaying reports whether recording is suppressed.
func (m *Manager[T]) Replaying() bool { return m.replaying }

// Clear drops every state.
func (m *Manager[T]) Clear() {
	clear(m.states)
	m.states = m.states[:0]
	m.current = -1
}

// Stats returns the 1-based position of the present and the number of states.
func (m *Manager[T]) Stats() (current, total int) {
	return m.current + 1, len(m.states)
}

// Past returns how many states undo can reach.
func (m *Manager[T]) Past() int { return max(m.current, 0) }

// Future returns how many states redo can reach.
func (m *Manager[T]) Future() int { return len(m.states) - 1 - m.current }

// Capacity returns the maximum number of states kept.
func (m *Manager[T]) Capacity() int { return m.capacity }
