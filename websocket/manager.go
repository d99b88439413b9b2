// Package websocket delivers live events to connected users. Each socket is
// joined to the room named by its user's id; the Manager goroutine owns the
// room registry.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Frame is the envelope of every message in both directions.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outbound struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// delivery targets a whole room, or a single socket of it when client is set.
type delivery struct {
	room   string
	client *Client
	msg    []byte
}

// Authenticator resolves the token presented on connect to a user id.
type Authenticator func(token string) (string, error)

// TypingFunc relays a typing indicator sent by userID for a conversation.
type TypingFunc func(ctx context.Context, userID, conversationID string, typing bool) error

type Manager struct {
	rooms      map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	deliver    chan delivery
	count      chan chan int
	done       chan struct{}
	typing     TypingFunc
}

type Client struct {
	id      string
	userID  string
	conn    *websocket.Conn
	send    chan []byte
	manager *Manager
}

func NewManager(typing TypingFunc) *Manager {
	return &Manager{
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 256),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		typing:     typing,
	}
}

// Start runs the registry loop until Stop is called.
func (m *Manager) Start() {
	for {
		select {
		case client := <-m.register:
			room := m.rooms[client.userID]
			if room == nil {
				room = make(map[*Client]struct{})
				m.rooms[client.userID] = room
			}
			room[client] = struct{}{}
			zap.S().Debugf("[WebSocket] %s joined room %s (%d sockets)", client.id, client.userID, len(room))

		case client := <-m.unregister:
			m.remove(client)

		case d := <-m.deliver:
			for client := range m.rooms[d.room] {
				if d.client != nil && d.client != client {
					continue
				}
				select {
				case client.send <- d.msg:
				default:
					zap.S().Warnf("[WebSocket] %s is not reading, dropping it", client.id)
					m.remove(client)
				}
			}

		case reply := <-m.count:
			n := 0
			for _, room := range m.rooms {
				n += len(room)
			}
			reply <- n

		case <-m.done:
			for _, room := range m.rooms {
				for client := range room {
					close(client.send)
				}
			}
			m.rooms = map[string]map[*Client]struct{}{}
			return
		}
	}
}

func (m *Manager) remove(client *Client) {
	room, ok := m.rooms[client.userID]
	if !ok {
		return
	}
	if _, ok := room[client]; !ok {
		return
	}
	delete(room, client)
	close(client.send)
	if len(room) == 0 {
		delete(m.rooms, client.userID)
	}
}

// Stop closes every socket and ends the registry loop.
func (m *Manager) Stop() {
	select {
	case <-m.done:
	default:
		close(m.done)
	}
}

// ConnectedClients reports the number of open sockets.
func (m *Manager) ConnectedClients() int {
	reply := make(chan int, 1)
	select {
	case m.count <- reply:
		return <-reply
	case <-m.done:
		return 0
	}
}

// Push sends an event to every socket in the recipient's room. Users without
// an open socket simply miss it.
func (m *Manager) Push(recipient primitive.ObjectID, event string, payload interface{}) {
	m.sendTo(recipient.Hex(), event, payload)
}

func (m *Manager) sendTo(room, event string, payload interface{}) {
	msg, err := json.Marshal(outbound{Type: event, Payload: payload})
	if err != nil {
		zap.S().Errorf("[WebSocket] marshal %s: %v", event, err)
		return
	}
	select {
	case m.deliver <- delivery{room: room, msg: msg}:
	case <-m.done:
	default:
		zap.S().Warnf("[WebSocket] delivery queue full, dropping %s for %s", event, room)
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler upgrades authenticated requests. The token comes from ?token=.
func (m *Manager) Handler(auth Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "Token required", http.StatusUnauthorized)
			return
		}
		userID, err := auth(token)
		if err != nil {
			zap.S().Infof("[WebSocket] connection rejected: %v", err)
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			zap.S().Errorf("[WebSocket] upgrade failed: %v", err)
			return
		}

		client := &Client{
			id:      uuid.NewString(),
			userID:  userID,
			conn:    conn,
			send:    make(chan []byte, sendBuffer),
			manager: m,
		}
		if hello, err := json.Marshal(outbound{Type: "connected", Payload: map[string]interface{}{
			"userId":   userID,
			"clientId": client.id,
			"time":     time.Now().Unix(),
		}}); err == nil {
			client.send <- hello
		}
		select {
		case m.register <- client:
		case <-m.done:
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

// reply queues a frame for this socket only. It goes through the registry
// loop, which owns the send channel.
func (c *Client) reply(event string, payload interface{}) {
	msg, err := json.Marshal(outbound{Type: event, Payload: payload})
	if err != nil {
		return
	}
	select {
	case c.manager.deliver <- delivery{room: c.userID, client: c, msg: msg}:
	case <-c.manager.done:
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.manager.unregister <- c:
		case <-c.manager.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.S().Infof("[WebSocket] read from %s: %v", c.id, err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			zap.S().Debugf("[WebSocket] bad frame from %s: %v", c.id, err)
			continue
		}
		c.handle(frame)
	}
}

func (c *Client) handle(frame Frame) {
	switch frame.Type {
	case "join":
		var p struct {
			UserID string `json:"userId"`
		}
		_ = json.Unmarshal(frame.Payload, &p)
		if p.UserID != c.userID {
			c.reply("error", map[string]string{"message": "You can only join your own room"})
			return
		}
		c.reply("joined", map[string]string{"room": c.userID})

	case "typing_start", "typing_end":
		var p struct {
			ConversationID string `json:"conversationId"`
		}
		if err := json.Unmarshal(frame.Payload, &p); err != nil || p.ConversationID == "" || c.manager.typing == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.manager.typing(ctx, c.userID, p.ConversationID, frame.Type == "typing_start"); err != nil {
			zap.S().Debugf("[WebSocket] typing from %s refused: %v", c.id, err)
		}

	case "ping":
		c.reply("pong", map[string]int64{"time": time.Now().Unix()})
	}
}

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
