package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agendalink/server/internal/model/chat"
	"github.com/agendalink/server/internal/service/relay"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Handler upgrades HTTP requests to websocket sessions and pumps their
// frames through the relay engine.
type Handler struct {
	engine   *relay.Engine
	upgrader websocket.Upgrader
}

// New creates the websocket handler.
func New(engine *relay.Engine) *Handler {
	return &Handler{
		engine: engine,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Handle serves one websocket connection. Frames are processed strictly in
// arrival order on this goroutine; the engine serializes access to shared
// state with its own locks.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}

	client := &wsConn{conn: conn}
	session := relay.NewSession(client)
	defer func() {
		h.engine.Disconnect(session)
		_ = client.Close()
	}()

	log.Printf("[websocket] new connection from %s", r.RemoteAddr)

	stopPing := make(chan struct{})
	defer close(stopPing)
	go client.pingLoop(stopPing)

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

		var ev chat.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			h.engine.HandleMalformed(session)
			continue
		}
		h.engine.HandleEvent(session, ev)
	}
}

// wsConn adapts a gorilla connection to the relay's Sender. Writes are
// serialized with a mutex: fan-out delivers to the same connection from
// several read loops, and gorilla allows only one concurrent writer.
type wsConn struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func (c *wsConn) Send(env chat.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(env)
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

func (c *wsConn) pingLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
