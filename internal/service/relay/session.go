package relay

import (
	"github.com/agendalink/server/internal/model/chat"
	"github.com/agendalink/server/internal/model/user"
)

// Sender delivers envelopes to one connected client. Implementations must be
// safe for concurrent use: fan-out delivers to the same connection from
// several read loops.
type Sender interface {
	Send(chat.Envelope) error
	Close() error
}

type sessionState int

const (
	stateUnauthenticated sessionState = iota
	stateAuthenticated
	stateClosed
)

// Session is one live connection plus its authentication state. It starts
// unauthenticated and holds no identity until the auth step succeeds; there
// is no transition back from authenticated.
type Session struct {
	conn     Sender
	state    sessionState
	identity user.Identity
}

// NewSession wraps a connection that has not authenticated yet.
func NewSession(conn Sender) *Session {
	return &Session{conn: conn}
}

// Identity returns the bound identity and whether the session is authenticated.
func (s *Session) Identity() (user.Identity, bool) {
	if s.state != stateAuthenticated {
		return user.Identity{}, false
	}
	return s.identity, true
}
