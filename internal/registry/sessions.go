package registry

import (
	"sync"

	"github.com/jwren/castellan/internal/model"
)

// SessionRegistry is the single source of truth for which game sessions
// exist. It guards the id to session map; mutation of an individual
// session is serialized by the session itself.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[model.SessionID]*model.Session
}

// NewSessionRegistry creates an empty registry
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[model.SessionID]*model.Session),
	}
}

// Insert adds or replaces a session. Reconciliation may replace an
// existing record with one rebuilt from a node report.
func (r *SessionRegistry) Insert(s *model.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
}

// Get returns the session with the given id
func (r *SessionRegistry) Get(id model.SessionID) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return s, nil
}

// Remove deletes the session with the given id. Removing a missing id is
// a no-op.
func (r *SessionRegistry) Remove(id model.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// All returns a point-in-time snapshot of every session. Callers iterate
// the snapshot; concurrent removals do not affect it.
func (r *SessionRegistry) All() []*model.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*model.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	return all
}

// Len returns the number of registered sessions
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// FindForUser returns the session in which the user holds a non-left
// player slot or a spectator slot, or nil. A user can hold at most one
// such slot across the registry; callers check this before seating.
func (r *SessionRegistry) FindForUser(username model.Username) *model.Session {
	for _, s := range r.All() {
		if s.HasActiveUser(username) {
			return s
		}
	}
	return nil
}
