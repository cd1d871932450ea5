package relay

import (
	"sync"

	"github.com/agendalink/server/internal/model/user"
)

// Registry tracks the live session for each authenticated identity. It is
// the single shared table behind routing decisions: at most one entry per
// identity id exists at any time, and a later registration replaces the
// earlier one. The registry is owned by the server instance and injected
// where needed, never a package global.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register inserts the session under its identity id, replacing any earlier
// entry. The superseded session, if any, is returned so the caller can close
// it. Registering an unauthenticated session is a no-op.
func (r *Registry) Register(s *Session) *Session {
	identity, ok := s.Identity()
	if !ok {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.sessions[identity.ID]
	if prev == s {
		prev = nil
	}
	r.sessions[identity.ID] = s
	return prev
}

// Unregister removes the session's entry. It is a no-op when the identity is
// absent or when the entry has already been replaced by a newer session, so
// a superseded connection closing late cannot evict its successor.
func (r *Registry) Unregister(s *Session) {
	identity, ok := s.Identity()
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[identity.ID] == s {
		delete(r.sessions, identity.ID)
	}
}

// Get looks up the live session for an identity id. Absence is not an error;
// it means the user is offline.
func (r *Registry) Get(identityID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[identityID]
	return s, ok
}

// ForEachAdmin invokes fn for every registered administrator session.
// Iteration order is unspecified. The snapshot is taken before fn runs, so
// an admin registering mid-fan-out may miss that broadcast.
func (r *Registry) ForEachAdmin(fn func(*Session)) {
	r.mu.RLock()
	admins := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		if identity, ok := s.Identity(); ok && identity.Role == user.RoleAdmin {
			admins = append(admins, s)
		}
	}
	r.mu.RUnlock()

	for _, s := range admins {
		fn(s)
	}
}

// ForEach invokes fn for every registered session, in unspecified order.
func (r *Registry) ForEach(fn func(*Session)) {
	r.mu.RLock()
	all := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.RUnlock()

	for _, s := range all {
		fn(s)
	}
}
