package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// Registry maps user IDs to their live sessions. State is process-local and
// lost on restart; clients re-register on reconnect.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]map[string]*Session),
	}
}

// Add registers the session under its user and reports whether the user
// went from zero sessions to one. Re-adding the same session is a no-op.
func (r *Registry) Add(s *Session) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[s.UserID]
	if !ok {
		set = make(map[string]*Session)
		r.sessions[s.UserID] = set
	}
	first = len(set) == 0
	set[s.ID] = s
	return first
}

// Remove drops the session and reports whether the user went from one
// session to zero. The user key is deleted when its set empties, so an
// unknown user and a fully disconnected user look the same.
func (r *Registry) Remove(userID uuid.UUID, sessionID string) (last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sessions[userID]
	if !ok {
		return false
	}
	if _, ok := set[sessionID]; !ok {
		return false
	}

	delete(set, sessionID)
	if len(set) == 0 {
		delete(r.sessions, userID)
		return true
	}
	return false
}

// SessionsOf returns a snapshot of the user's live sessions, empty for
// unknown users.
func (r *Registry) SessionsOf(userID uuid.UUID) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.sessions[userID]
	out := make([]*Session, 0, len(set))
	for _, s := range set {
		out = append(out, s)
	}
	return out
}

func (r *Registry) IsOnline(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[userID]) > 0
}

func (r *Registry) ActiveSessionCount(userID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[userID])
}

// All returns a snapshot of every live session across all users.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Session
	for _, set := range r.sessions {
		for _, s := range set {
			out = append(out, s)
		}
	}
	return out
}
