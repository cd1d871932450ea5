package chat

// Event types accepted from clients.
const (
	EventAuth    = "auth"
	EventMessage = "message"
)

// TypeLimitReached marks the notice sent when a user exhausts automated replies.
const TypeLimitReached = "limitReached"

// Event is a single inbound client frame.
type Event struct {
	Type        string `json:"type"`
	Token       string `json:"token,omitempty"`
	Message     string `json:"message,omitempty"`
	RecipientID string `json:"recipientId,omitempty"`
}

// Envelope is a single outbound server frame. Frames are never batched.
type Envelope struct {
	Type       string `json:"type,omitempty"`
	Sender     string `json:"sender"`
	Message    string `json:"message"`
	Timestamp  string `json:"timestamp"`
	IsBot      bool   `json:"isBot,omitempty"`
	FromUserID string `json:"fromUserId,omitempty"`
	NeedsAdmin bool   `json:"needsAdmin,omitempty"`
}
