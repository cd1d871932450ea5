package relay

import (
	"fmt"
	"log"
	"time"

	"github.com/agendalink/server/internal/model/chat"
	"github.com/agendalink/server/internal/model/user"
)

const (
	senderSystem = "Sistema"
	senderBot    = "Bot"
)

// DefaultReplyLimit is how many automated replies a user receives before the
// conversation escalates to administrators.
const DefaultReplyLimit = 5

// Verifier turns a presented token into an authenticated identity. It is the
// only external dependency of the engine; everything behind it (credential
// storage, signing keys) is out of scope here.
type Verifier interface {
	Verify(token string) (user.Identity, error)
}

// Engine orchestrates the per-connection state machine: it authenticates
// sessions, classifies inbound messages, and emits envelopes through the
// registry. Decision logic lives in classify; the Engine methods perform the
// lookups and sends.
type Engine struct {
	verifier Verifier
	registry *Registry
	quota    *Tracker
	bot      *Responder
	limit    int
	now      func() time.Time
}

// NewEngine wires the relay engine. A limit below one falls back to
// DefaultReplyLimit.
func NewEngine(verifier Verifier, registry *Registry, quota *Tracker, bot *Responder, limit int) *Engine {
	if limit < 1 {
		limit = DefaultReplyLimit
	}
	return &Engine{
		verifier: verifier,
		registry: registry,
		quota:    quota,
		bot:      bot,
		limit:    limit,
		now:      time.Now,
	}
}

// route is the routing outcome for one authenticated message.
type route int

const (
	routeBotReply route = iota
	routeEscalate
	routeDirectAdminSend
	routeBroadcast
)

// classify decides the routing outcome from the three predicates the policy
// depends on. Pure; the effecting step happens in handleMessage.
func classify(role user.Role, hasRecipient, overQuota bool) route {
	switch {
	case hasRecipient && role == user.RoleAdmin:
		return routeDirectAdminSend
	case !hasRecipient && overQuota:
		return routeEscalate
	case !hasRecipient:
		return routeBotReply
	default:
		return routeBroadcast
	}
}

// HandleEvent processes one inbound frame from the session's connection.
// Events from a single connection arrive in order; events from different
// connections are only serialized by the registry and tracker locks.
func (e *Engine) HandleEvent(s *Session, ev chat.Event) {
	switch ev.Type {
	case chat.EventAuth:
		// The auth transition only exists out of the unauthenticated state;
		// a repeated auth on a live session is ignored so the bound identity
		// and its registry entry stay consistent.
		if s.state != stateUnauthenticated {
			return
		}
		e.authenticate(s, ev.Token)
	case chat.EventMessage:
		if s.state != stateAuthenticated {
			return
		}
		e.handleMessage(s, ev)
	}
}

// HandleMalformed reports an unparseable frame. The session keeps its state;
// a bad payload is never fatal to the connection.
func (e *Engine) HandleMalformed(s *Session) {
	e.deliver(s, e.systemEnvelope("Mensagem inválida"))
}

// Disconnect runs the close transition: the identity leaves the registry but
// its quota count stays, so a reconnect does not reset escalation.
func (e *Engine) Disconnect(s *Session) {
	e.registry.Unregister(s)
	s.state = stateClosed
}

// authenticate verifies the token, binds the identity, and registers the
// session. A failed verification sends one error envelope and closes the
// connection; there is no retry. A second authentication for an identity that
// is already online force-closes the superseded connection.
func (e *Engine) authenticate(s *Session, token string) {
	identity, err := e.verifier.Verify(token)
	if err != nil {
		log.Printf("[relay] authentication failed: %v", err)
		e.deliver(s, e.systemEnvelope("Autenticação falhou"))
		s.state = stateClosed
		if cerr := s.conn.Close(); cerr != nil {
			log.Printf("[relay] close after auth failure: %v", cerr)
		}
		return
	}

	s.identity = identity
	s.state = stateAuthenticated

	if prev := e.registry.Register(s); prev != nil {
		log.Printf("[relay] superseding session for user %s", identity.ID)
		if cerr := prev.conn.Close(); cerr != nil {
			log.Printf("[relay] close superseded session: %v", cerr)
		}
	}

	welcome := e.systemEnvelope(fmt.Sprintf("Bem-vindo, %s!", identity.Name))
	welcome.IsBot = true
	e.deliver(s, welcome)
}

func (e *Engine) handleMessage(s *Session, ev chat.Event) {
	identity := s.identity
	hasRecipient := ev.RecipientID != ""
	overQuota := e.quota.Count(identity.ID) >= e.limit

	switch classify(identity.Role, hasRecipient, overQuota) {
	case routeDirectAdminSend:
		e.directSend(s, ev)
	case routeEscalate:
		e.escalate(s, ev)
	case routeBotReply:
		e.botReply(s, ev)
	case routeBroadcast:
		e.broadcast(s, ev)
	}
}

// directSend delivers an admin's message to one user and echoes a copy back
// so the admin's own view reflects it. An offline recipient is reported once,
// not retried.
func (e *Engine) directSend(s *Session, ev chat.Event) {
	recipient, ok := e.registry.Get(ev.RecipientID)
	if !ok {
		e.deliver(s, e.systemEnvelope("Usuário não está online"))
		return
	}

	env := e.envelope(s.identity.Name, ev.Message)
	env.FromUserID = s.identity.ID
	e.deliver(recipient, env)

	echo := e.envelope(s.identity.Name, ev.Message)
	echo.FromUserID = ev.RecipientID
	e.deliver(s, echo)
}

// escalate forwards the raw user message to every registered administrator.
// The quota is already exhausted at this point and is not touched again.
func (e *Engine) escalate(s *Session, ev chat.Event) {
	env := e.envelope(s.identity.Name, ev.Message)
	env.FromUserID = s.identity.ID
	env.NeedsAdmin = true

	e.registry.ForEachAdmin(func(admin *Session) {
		e.deliver(admin, env)
	})
}

// botReply answers with the canned response and spends one unit of quota.
// Reaching the limit triggers, exactly once per identity, a limitReached
// notice to the sender and a broadcast to all registered admins.
func (e *Engine) botReply(s *Session, ev chat.Event) {
	reply := e.bot.Reply(ev.Message)
	count := e.quota.Increment(s.identity.ID)

	env := e.envelope(senderBot, reply)
	env.IsBot = true
	env.FromUserID = s.identity.ID
	e.deliver(s, env)

	if count != e.limit {
		return
	}

	notice := e.systemEnvelope(fmt.Sprintf("Limite de %d respostas automáticas atingido", e.limit))
	notice.Type = chat.TypeLimitReached
	notice.FromUserID = s.identity.ID
	e.deliver(s, notice)

	alert := e.systemEnvelope(fmt.Sprintf("O usuário %s atingiu o limite de %d respostas. Responda diretamente.", s.identity.Name, e.limit))
	alert.FromUserID = s.identity.ID
	alert.NeedsAdmin = true
	e.registry.ForEachAdmin(func(admin *Session) {
		e.deliver(admin, alert)
	})
}

// broadcast delivers a non-admin's addressed message to every other
// registered session, narrowed to the named recipient when one is present.
// No quota or escalation semantics apply.
func (e *Engine) broadcast(s *Session, ev chat.Event) {
	env := e.envelope(s.identity.Name, ev.Message)
	env.FromUserID = s.identity.ID

	e.registry.ForEach(func(other *Session) {
		if other == s {
			return
		}
		if ev.RecipientID != "" {
			if identity, ok := other.Identity(); !ok || identity.ID != ev.RecipientID {
				return
			}
		}
		e.deliver(other, env)
	})
}

func (e *Engine) envelope(sender, message string) chat.Envelope {
	return chat.Envelope{
		Sender:    sender,
		Message:   message,
		Timestamp: e.now().UTC().Format(time.RFC3339),
	}
}

func (e *Engine) systemEnvelope(message string) chat.Envelope {
	return e.envelope(senderSystem, message)
}

// deliver writes one envelope to a session. Send failures are logged and
// swallowed: one connection's trouble must not disturb the others.
func (e *Engine) deliver(s *Session, env chat.Envelope) {
	if err := s.conn.Send(env); err != nil {
		log.Printf("[relay] send failed: %v", err)
	}
}
