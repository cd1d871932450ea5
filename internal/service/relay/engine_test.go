package relay

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/agendalink/server/internal/model/chat"
	"github.com/agendalink/server/internal/model/user"
)

type fakeConn struct {
	mu     sync.Mutex
	sent   []chat.Envelope
	closed bool
}

func (c *fakeConn) Send(env chat.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, env)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) envelopes() []chat.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]chat.Envelope, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = nil
}

type fakeVerifier struct {
	identities map[string]user.Identity
}

func (v *fakeVerifier) Verify(token string) (user.Identity, error) {
	identity, ok := v.identities[token]
	if !ok {
		return user.Identity{}, errors.New("bad token")
	}
	return identity, nil
}

func newTestEngine() *Engine {
	verifier := &fakeVerifier{identities: map[string]user.Identity{
		"user-token":   {ID: "u1", Name: "Maria", Role: user.RoleUser},
		"user2-token":  {ID: "u2", Name: "Pedro", Role: user.RoleUser},
		"admin-token":  {ID: "a1", Name: "Ana", Role: user.RoleAdmin},
		"admin2-token": {ID: "a2", Name: "Bruno", Role: user.RoleAdmin},
	}}
	return NewEngine(verifier, NewRegistry(), NewTracker(), NewResponder(), DefaultReplyLimit)
}

// connect authenticates a fresh connection and discards the welcome frame.
func connect(t *testing.T, e *Engine, token string) (*Session, *fakeConn) {
	t.Helper()
	conn := &fakeConn{}
	s := NewSession(conn)
	e.HandleEvent(s, chat.Event{Type: chat.EventAuth, Token: token})
	if _, ok := s.Identity(); !ok {
		t.Fatalf("authentication with token %q did not succeed", token)
	}
	conn.reset()
	return s, conn
}

func message(text, recipientID string) chat.Event {
	return chat.Event{Type: chat.EventMessage, Message: text, RecipientID: recipientID}
}

func TestAuthFailureSendsErrorAndCloses(t *testing.T) {
	e := newTestEngine()
	conn := &fakeConn{}
	s := NewSession(conn)

	e.HandleEvent(s, chat.Event{Type: chat.EventAuth, Token: "nope"})

	sent := conn.envelopes()
	if len(sent) != 1 {
		t.Fatalf("expected exactly one envelope, got %d", len(sent))
	}
	if sent[0].Sender != senderSystem || sent[0].Message != "Autenticação falhou" {
		t.Fatalf("unexpected envelope: %+v", sent[0])
	}
	if !conn.closed {
		t.Fatalf("expected connection to be closed")
	}
	if _, ok := e.registry.Get("u1"); ok {
		t.Fatalf("failed auth must not register a session")
	}
}

func TestAuthSuccessSendsWelcomeAndRegisters(t *testing.T) {
	e := newTestEngine()
	conn := &fakeConn{}
	s := NewSession(conn)

	e.HandleEvent(s, chat.Event{Type: chat.EventAuth, Token: "user-token"})

	sent := conn.envelopes()
	if len(sent) != 1 {
		t.Fatalf("expected exactly one envelope, got %d", len(sent))
	}
	welcome := sent[0]
	if welcome.Sender != senderSystem || !welcome.IsBot {
		t.Fatalf("unexpected welcome envelope: %+v", welcome)
	}
	if !strings.Contains(welcome.Message, "Maria") {
		t.Fatalf("welcome must contain the display name, got %q", welcome.Message)
	}
	if welcome.Timestamp == "" {
		t.Fatalf("welcome must carry a timestamp")
	}
	if _, ok := e.registry.Get("u1"); !ok {
		t.Fatalf("expected session to be registered")
	}
}

func TestMessageBeforeAuthIsIgnored(t *testing.T) {
	e := newTestEngine()
	conn := &fakeConn{}
	s := NewSession(conn)

	e.HandleEvent(s, message("oi", ""))

	if len(conn.envelopes()) != 0 {
		t.Fatalf("unauthenticated messages must be dropped")
	}
	if e.quota.Count("u1") != 0 {
		t.Fatalf("quota must not move before authentication")
	}
}

func TestQuotaSequence(t *testing.T) {
	e := newTestEngine()
	userSess, userConn := connect(t, e, "user-token")
	_, admin1 := connect(t, e, "admin-token")
	_, admin2 := connect(t, e, "admin2-token")

	for i := 0; i < 5; i++ {
		e.HandleEvent(userSess, message("oi", ""))
	}

	sent := userConn.envelopes()
	if len(sent) != 6 {
		t.Fatalf("expected 5 bot replies + 1 limitReached, got %d envelopes", len(sent))
	}
	for i := 0; i < 5; i++ {
		if sent[i].Sender != senderBot || !sent[i].IsBot || sent[i].FromUserID != "u1" {
			t.Fatalf("envelope %d is not a bot reply: %+v", i, sent[i])
		}
	}
	last := sent[5]
	if last.Type != chat.TypeLimitReached || last.Sender != senderSystem {
		t.Fatalf("expected limitReached notice last, got %+v", last)
	}

	for name, admin := range map[string]*fakeConn{"admin1": admin1, "admin2": admin2} {
		alerts := admin.envelopes()
		if len(alerts) != 1 {
			t.Fatalf("%s: expected exactly one limit alert, got %d", name, len(alerts))
		}
		if !alerts[0].NeedsAdmin || alerts[0].FromUserID != "u1" {
			t.Fatalf("%s: unexpected alert: %+v", name, alerts[0])
		}
	}
}

func TestOverQuotaEscalatesVerbatim(t *testing.T) {
	e := newTestEngine()
	userSess, userConn := connect(t, e, "user-token")
	_, adminConn := connect(t, e, "admin-token")

	for i := 0; i < 5; i++ {
		e.HandleEvent(userSess, message("oi", ""))
	}
	userConn.reset()
	adminConn.reset()

	e.HandleEvent(userSess, message("preciso falar com alguém", ""))

	if len(userConn.envelopes()) != 0 {
		t.Fatalf("bot must stay silent once the quota is exhausted")
	}
	forwarded := adminConn.envelopes()
	if len(forwarded) != 1 {
		t.Fatalf("expected one escalated message, got %d", len(forwarded))
	}
	env := forwarded[0]
	if env.Sender != "Maria" || env.Message != "preciso falar com alguém" {
		t.Fatalf("escalation must carry the raw message under the user's name: %+v", env)
	}
	if !env.NeedsAdmin || env.FromUserID != "u1" || env.IsBot {
		t.Fatalf("unexpected escalation envelope: %+v", env)
	}
	if e.quota.Count("u1") != 5 {
		t.Fatalf("escalation must not touch the quota, got %d", e.quota.Count("u1"))
	}
}

func TestLimitAlertFiresOnlyOnce(t *testing.T) {
	e := newTestEngine()
	userSess, _ := connect(t, e, "user-token")
	_, adminConn := connect(t, e, "admin-token")

	for i := 0; i < 8; i++ {
		e.HandleEvent(userSess, message("oi", ""))
	}

	limitAlerts := 0
	for _, env := range adminConn.envelopes() {
		if env.Sender == senderSystem && env.NeedsAdmin {
			limitAlerts++
		}
	}
	if limitAlerts != 1 {
		t.Fatalf("limit alert must fire exactly once, got %d", limitAlerts)
	}
}

func TestAdminDirectSendWithEcho(t *testing.T) {
	e := newTestEngine()
	_, userConn := connect(t, e, "user-token")
	adminSess, adminConn := connect(t, e, "admin-token")

	e.HandleEvent(adminSess, message("posso ajudar?", "u1"))

	delivered := userConn.envelopes()
	if len(delivered) != 1 {
		t.Fatalf("expected one envelope at the recipient, got %d", len(delivered))
	}
	if delivered[0].Sender != "Ana" || delivered[0].FromUserID != "a1" {
		t.Fatalf("unexpected delivery: %+v", delivered[0])
	}

	echoed := adminConn.envelopes()
	if len(echoed) != 1 {
		t.Fatalf("expected one echo at the admin, got %d", len(echoed))
	}
	if echoed[0].FromUserID != "u1" || echoed[0].Message != "posso ajudar?" {
		t.Fatalf("echo must be tagged with the recipient id: %+v", echoed[0])
	}
	if e.quota.Count("a1") != 0 || e.quota.Count("u1") != 0 {
		t.Fatalf("direct sends must not touch quotas")
	}
}

func TestAdminDirectSendOfflineRecipient(t *testing.T) {
	e := newTestEngine()
	adminSess, adminConn := connect(t, e, "admin-token")
	_, otherAdmin := connect(t, e, "admin2-token")

	e.HandleEvent(adminSess, message("tem alguém aí?", "ghost"))

	sent := adminConn.envelopes()
	if len(sent) != 1 {
		t.Fatalf("expected exactly one offline notice, got %d", len(sent))
	}
	if sent[0].Sender != senderSystem || sent[0].Message != "Usuário não está online" {
		t.Fatalf("unexpected notice: %+v", sent[0])
	}
	if len(otherAdmin.envelopes()) != 0 {
		t.Fatalf("offline notice must not leak to other sessions")
	}
}

func TestUserAddressedMessageReachesOnlyRecipient(t *testing.T) {
	e := newTestEngine()
	userSess, userConn := connect(t, e, "user-token")
	_, user2Conn := connect(t, e, "user2-token")
	_, adminConn := connect(t, e, "admin-token")

	e.HandleEvent(userSess, message("olá pedro", "u2"))

	got := user2Conn.envelopes()
	if len(got) != 1 || got[0].Sender != "Maria" || got[0].FromUserID != "u1" {
		t.Fatalf("expected the addressed recipient to get the message, got %v", got)
	}
	if len(userConn.envelopes()) != 0 {
		t.Fatalf("sender must not receive its own broadcast")
	}
	if len(adminConn.envelopes()) != 0 {
		t.Fatalf("non-recipients must be filtered out")
	}
	if e.quota.Count("u1") != 0 {
		t.Fatalf("addressed sends must not touch the quota")
	}
}

func TestMalformedPayloadKeepsState(t *testing.T) {
	e := newTestEngine()
	userSess, userConn := connect(t, e, "user-token")

	e.HandleMalformed(userSess)

	sent := userConn.envelopes()
	if len(sent) != 1 || sent[0].Message != "Mensagem inválida" {
		t.Fatalf("expected a single invalid-message envelope, got %v", sent)
	}
	if e.quota.Count("u1") != 0 {
		t.Fatalf("malformed input must not move the quota")
	}

	userConn.reset()
	e.HandleEvent(userSess, message("oi", ""))
	if len(userConn.envelopes()) != 1 {
		t.Fatalf("session must keep working after malformed input")
	}
}

func TestReauthenticationForceClosesPreviousConnection(t *testing.T) {
	e := newTestEngine()
	_, firstConn := connect(t, e, "user-token")

	secondConn := &fakeConn{}
	second := NewSession(secondConn)
	e.HandleEvent(second, chat.Event{Type: chat.EventAuth, Token: "user-token"})

	if !firstConn.closed {
		t.Fatalf("superseded connection must be force-closed")
	}
	got, ok := e.registry.Get("u1")
	if !ok || got != second {
		t.Fatalf("registry must point at the new session")
	}
}

func TestAuthOnLiveSessionIsIgnored(t *testing.T) {
	e := newTestEngine()
	userSess, userConn := connect(t, e, "user-token")

	e.HandleEvent(userSess, chat.Event{Type: chat.EventAuth, Token: "user2-token"})

	if identity, _ := userSess.Identity(); identity.ID != "u1" {
		t.Fatalf("identity must stay bound to u1, got %q", identity.ID)
	}
	if len(userConn.envelopes()) != 0 {
		t.Fatalf("a repeated auth must not produce a second welcome")
	}
	if _, ok := e.registry.Get("u2"); ok {
		t.Fatalf("the second token's identity must not be registered")
	}

	e.Disconnect(userSess)
	if _, ok := e.registry.Get("u1"); ok {
		t.Fatalf("disconnect must remove the session's registry entry")
	}
}

func TestDisconnectKeepsQuota(t *testing.T) {
	e := newTestEngine()
	userSess, _ := connect(t, e, "user-token")

	e.HandleEvent(userSess, message("oi", ""))
	e.HandleEvent(userSess, message("oi", ""))
	e.Disconnect(userSess)

	if _, ok := e.registry.Get("u1"); ok {
		t.Fatalf("disconnect must unregister the session")
	}
	if e.quota.Count("u1") != 2 {
		t.Fatalf("quota must survive the disconnect, got %d", e.quota.Count("u1"))
	}

	again, againConn := connect(t, e, "user-token")
	for i := 0; i < 3; i++ {
		e.HandleEvent(again, message("oi", ""))
	}
	sent := againConn.envelopes()
	if len(sent) != 4 {
		t.Fatalf("expected 3 bot replies + limitReached after reconnect, got %d", len(sent))
	}
	if sent[3].Type != chat.TypeLimitReached {
		t.Fatalf("expected limitReached at combined count 5, got %+v", sent[3])
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name         string
		role         user.Role
		hasRecipient bool
		overQuota    bool
		want         route
	}{
		{"admin with recipient", user.RoleAdmin, true, false, routeDirectAdminSend},
		{"admin with recipient over quota", user.RoleAdmin, true, true, routeDirectAdminSend},
		{"user over quota", user.RoleUser, false, true, routeEscalate},
		{"user under quota", user.RoleUser, false, false, routeBotReply},
		{"admin under quota no recipient", user.RoleAdmin, false, false, routeBotReply},
		{"user with recipient", user.RoleUser, true, false, routeBroadcast},
		{"user with recipient over quota", user.RoleUser, true, true, routeBroadcast},
	}

	for _, tc := range cases {
		if got := classify(tc.role, tc.hasRecipient, tc.overQuota); got != tc.want {
			t.Errorf("%s: classify = %d, want %d", tc.name, got, tc.want)
		}
	}
}
