package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"newsboard/internal/middleware"
	"newsboard/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

var (
	ErrServerFull   = errors.New("server connection limit reached")
	ErrUserFull     = errors.New("user connection limit reached")
	ErrHubShutdown  = errors.New("hub is shut down")
	errUnknownFrame = errors.New("unknown frame")
)

// Hub tracks live connections by user and delivers board events: feed
// events to everyone, post events to clients watching that post and user
// events to that user's connections.
type Hub struct {
	mu         sync.RWMutex
	conns      map[uint]map[*Client]struct{}
	totalConns int
	closed     bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[uint]map[*Client]struct{})}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "board hub" }

// Register adds a connection for userID, enforcing the connection limits.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubShutdown
	}
	if h.totalConns >= maxTotalConns {
		return nil, ErrServerFull
	}
	m, ok := h.conns[userID]
	if !ok {
		m = make(map[*Client]struct{})
		h.conns[userID] = m
	}
	if len(m) >= maxConnsPerUser {
		return nil, ErrUserFull
	}

	client := NewClient(h, conn, userID)
	client.IncomingHandler = h.handleIncoming
	m[client] = struct{}{}
	h.totalConns++
	observability.WebSocketConnectionsTotal.Inc()

	return client, nil
}

// UnregisterClient removes the client and closes its send channel.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.conns[client.UserID]
	if !ok {
		return
	}
	if _, exists := m[client]; !exists {
		return
	}
	delete(m, client)
	h.totalConns--
	observability.WebSocketConnectionsTotal.Dec()
	close(client.Send)
	if len(m) == 0 {
		delete(h.conns, client.UserID)
	}
}

// Connections returns the number of live connections.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// IsOnline reports whether a user currently has at least one active websocket connection.
func (h *Hub) IsOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID]) > 0
}

// BroadcastAll sends message to every connected websocket client.
func (h *Hub) BroadcastAll(message string) {
	h.each(func(*Client) bool { return true }, message)
}

// BroadcastPost sends message to clients watching postID.
func (h *Hub) BroadcastPost(postID uint, message string) {
	h.each(func(c *Client) bool { return c.Watching(postID) }, message)
}

// Broadcast sends message to all connections for userID
func (h *Hub) Broadcast(userID uint, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for c := range h.conns[userID] {
		c.TrySend(data)
	}
}

func (h *Hub) each(match func(*Client) bool, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for _, clients := range h.conns {
		for c := range clients {
			if match(c) {
				c.TrySend(data)
			}
		}
	}
}

// Dispatch routes a message received on channel to the matching clients.
func (h *Hub) Dispatch(channel, payload string) {
	kind, id, err := ParseChannel(channel)
	if err != nil {
		middleware.Logger.Warn("dropping message on unknown channel", "channel", channel, "error", err)
		return
	}
	switch kind {
	case "feed":
		h.BroadcastAll(payload)
	case "post":
		h.BroadcastPost(id, payload)
	case "user":
		h.Broadcast(id, payload)
	}
}

// StartWiring subscribes the hub to the notifier's channels.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartSubscriber(ctx, h.Dispatch)
}

type clientFrame struct {
	Action string `json:"action"`
	PostID uint   `json:"post_id"`
}

// handleIncoming processes watch and unwatch frames from a client.
func (h *Hub) handleIncoming(c *Client, data []byte) {
	var frame clientFrame
	if err := json.Unmarshal(data, &frame); err != nil || frame.PostID == 0 {
		c.TrySend([]byte(`{"type":"error","payload":{"reason":"invalid_frame"}}`))
		return
	}
	switch frame.Action {
	case "watch":
		c.Watch(frame.PostID)
		c.TrySend([]byte(fmt.Sprintf(`{"type":"watching","post_id":%d}`, frame.PostID)))
	case "unwatch":
		c.Unwatch(frame.PostID)
		c.TrySend([]byte(fmt.Sprintf(`{"type":"unwatched","post_id":%d}`, frame.PostID)))
	default:
		middleware.Logger.Debug("ignoring websocket frame", "user_id", c.UserID, "error", errUnknownFrame, "action", frame.Action)
		c.TrySend([]byte(`{"type":"error","payload":{"reason":"unknown_action"}}`))
	}
}

// Shutdown gracefully closes all websocket connections
func (h *Hub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	for userID, clients := range h.conns {
		for client := range clients {
			if client.Conn != nil {
				if err := client.Conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down"),
					time.Now().Add(writeWait)); err != nil {
					middleware.Logger.Debug("failed to write close message", "user_id", userID, "error", err)
				}
				_ = client.Conn.Close()
			}
			close(client.Send)
		}
	}
	observability.WebSocketConnectionsTotal.Sub(float64(h.totalConns))
	h.conns = make(map[uint]map[*Client]struct{})
	h.totalConns = 0
	return nil
}
