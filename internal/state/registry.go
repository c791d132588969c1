// Package state holds the process-lifetime session registry and the
// per-session event bus.
package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/user/widgetsmith/internal/types"
	"github.com/user/widgetsmith/internal/workspace"
)

// Session is one caller-keyed conversational context: an append-only
// history, an exclusively-owned workspace directory, and the event bus its
// subscribers attach to. Workspace and bus are created with the session
// and stay stable for the life of the process.
type Session struct {
	ID        types.SessionID
	CreatedAt time.Time
	Workspace *workspace.Workspace
	Bus       *Bus

	mu      sync.Mutex
	history []types.Turn
}

// History returns a copy of the persisted turn history in conversational
// order.
func (s *Session) History() []types.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Append commits turns to the history. Turn execution calls this exactly
// once per successful turn, with the user and assistant entries together,
// so a failed turn leaves no partial state behind.
func (s *Session) Append(turns ...types.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, turns...)
}

// Len returns the number of persisted turns.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// Registry maps session ids to live sessions. Sessions are created on
// first use and never evicted; the registry grows for the life of the
// process.
type Registry struct {
	mu         sync.Mutex
	sessions   map[types.SessionID]*Session
	workspaces *workspace.Manager
}

// NewRegistry creates a Registry whose sessions get workspaces from m.
func NewRegistry(m *workspace.Manager) *Registry {
	return &Registry{
		sessions:   make(map[types.SessionID]*Session),
		workspaces: m,
	}
}

// Resolve returns the session for id, constructing it atomically on first
// use. Concurrent calls for the same unseen id observe a single
// construction: the registry lock is held across workspace creation, so
// two callers can never race into two workspace directories.
func (r *Registry) Resolve(id types.SessionID) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("empty session id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		return s, nil
	}

	ws, err := r.workspaces.Create(id)
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		Workspace: ws,
		Bus:       NewBus(),
	}
	r.sessions[id] = s
	return s, nil
}

// Lookup returns the session for id without creating one.
func (r *Registry) Lookup(id types.SessionID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// List returns all live sessions.
func (r *Registry) List() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
