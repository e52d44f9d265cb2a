package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/your-org/telegram-auth/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 60 * time.Second
	pongWait       = 70 * time.Second
	maxMessageSize = 1024
	sendBufferSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The session cookie is SameSite=Lax; cross-origin pages never
		// carry it, so origin enforcement adds nothing here.
		return true
	},
}

// Client is one live push channel, bound to a single verified identity
// for its whole lifetime. The transport layer owns the conn; the hub
// only holds the association.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	telegramID int64
	// token is the session token presented at handshake, kept so a
	// validate_session request can re-check it without a new cookie
	// read.
	token  string
	tokens *service.TokenService
	logger *zap.Logger
}

// clientMessage is what the browser sends over the channel.
type clientMessage struct {
	Type string `json:"type"`
}

// Handler upgrades authenticated requests into registered push
// channels.
type Handler struct {
	hub    *Hub
	tokens *service.TokenService
	logger *zap.Logger
}

func NewHandler(hub *Hub, tokens *service.TokenService, logger *zap.Logger) *Handler {
	return &Handler{hub: hub, tokens: tokens, logger: logger}
}

// ServeWS authenticates the handshake via the session cookie and, on
// success, registers the connection. Verification failure closes the
// request before any upgrade happens.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(service.SessionCookieName)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	telegramID, err := h.tokens.Verify(cookie.Value)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:        h.hub,
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
		telegramID: telegramID,
		token:      cookie.Value,
		tokens:     h.tokens,
		logger:     h.logger,
	}

	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump consumes client messages until the connection dies, then
// unregisters. Unregistration runs on every close path, normal or not.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("Websocket read error", zap.Error(err), zap.Int64("telegram_id", c.telegramID))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.logger.Warn("Unparseable websocket message", zap.Error(err))
			continue
		}

		switch msg.Type {
		case "validate_session":
			status := StatusValid
			if _, err := c.tokens.Verify(c.token); err != nil {
				status = StatusInvalid
			}
			c.reply(Event{Type: EventTypeSessionStatus, Status: status})
		}
	}
}

// reply enqueues an event for this client only, dropping it if the
// send buffer is full (the write pump will notice the dead peer).
func (c *Client) reply(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// writePump drains the send channel and keeps the connection alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel on unregister.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
