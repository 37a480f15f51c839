package room

import (
	"sync"
	"time"

	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/model"
)

// State is the volatile, per-process side of a room: its serialization lock
// and its redo stack. Every room-mutating handler runs with the lock held.
type State struct {
	ID string

	mu   sync.Mutex
	redo []model.DrawingOp

	// guarded by Manager.mu
	refs     int
	lastUsed time.Time
}

// PushRedo records an op removed by undo.
func (s *State) PushRedo(op model.DrawingOp) {
	s.redo = append(s.redo, op)
}

// PopRedo removes and returns the most recently undone op.
func (s *State) PopRedo() (model.DrawingOp, bool) {
	if len(s.redo) == 0 {
		return model.DrawingOp{}, false
	}
	op := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	return op, true
}

// ClearRedo empties the redo stack. New drawing activity invalidates it.
func (s *State) ClearRedo() {
	s.redo = nil
}

func (s *State) RedoLen() int {
	return len(s.redo)
}

// Manager hands out per-room states.
type Manager struct {
	mu     sync.Mutex
	states map[string]*State
	now    func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		states: make(map[string]*State),
		now:    time.Now,
	}
}

// Lock returns the room's state with its lock held. Callers must Unlock it.
func (m *Manager) Lock(roomID string) *State {
	m.mu.Lock()
	s, ok := m.states[roomID]
	if !ok {
		s = &State{ID: roomID}
		m.states[roomID] = s
	}
	s.refs++
	m.mu.Unlock()

	s.mu.Lock()
	return s
}

func (m *Manager) Unlock(s *State) {
	s.mu.Unlock()

	m.mu.Lock()
	s.refs--
	s.lastUsed = m.now()
	m.mu.Unlock()
}

// Count is the number of room states held in memory.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}

// Sweep drops states that have been idle for longer than idleAfter and whose
// room has no live subscribers. Their redo stacks are lost.
func (m *Manager) Sweep(idleAfter time.Duration, isActive func(roomID string) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-idleAfter)
	evicted := 0
	for id, s := range m.states {
		if s.refs > 0 || s.lastUsed.After(cutoff) {
			continue
		}
		if isActive != nil && isActive(id) {
			continue
		}
		delete(m.states, id)
		evicted++
	}
	return evicted
}
