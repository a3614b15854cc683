// Package ws pushes analysis events to browser clients over WebSocket.
package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"nhooyr.io/websocket"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/audit"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/engine"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/state"
)

// HistoryProviderFunc returns the recent analyses sent to new and
// re-syncing clients.
type HistoryProviderFunc func() ([]state.Entry, error)

// Analyst serves the analyze and pending_approvals requests of clients.
// *engine.Engine implements it.
type Analyst interface {
	Analyze(ctx context.Context, req engine.Request) (*engine.Outcome, error)
	PendingApprovals(ctx context.Context, projectID int64, limit int) ([]audit.ApprovalRequest, error)
}

var errNoAnalyst = errors.New("analysis requests are not served here")

// Hub manages WebSocket connections and broadcasts messages to all clients.
type Hub struct {
	clients         map[*Client]bool
	broadcast       chan []byte
	register        chan *Client
	unregister      chan *Client
	done            chan struct{}
	logger          *slog.Logger
	mu              sync.RWMutex
	historyProvider HistoryProviderFunc
	analyst         Analyst
}

// Client represents a single WebSocket connection.
type Client struct {
	hub  *Hub
	send chan []byte
	conn *websocket.Conn
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// SetAnalyst lets clients run analyses and list pending approvals.
func (h *Hub) SetAnalyst(a Analyst) {
	h.analyst = a
}

// SetHistoryProvider sets the function called to get recent analyses for new/reconnecting clients.
func (h *Hub) SetHistoryProvider(fn HistoryProviderFunc) {
	h.historyProvider = fn
}

// Run starts the hub's event loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected")

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-ctx.Done():
			close(h.done)
			return
		}
	}
}

// join registers c, reporting false once the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues a message for all clients. When the queue is full the
// message is dropped so analyses never wait on slow browsers.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping message")
	}
}

func (h *Hub) broadcastMessage(typ MessageType, payload any) {
	msg, err := NewMessage(typ, payload)
	if err != nil {
		h.logger.Error("failed to create broadcast message", "type", typ, "error", err)
		return
	}
	h.Broadcast(msg)
}

// ImpactAnalyzed broadcasts a completed analysis.
func (h *Hub) ImpactAnalyzed(entry state.Entry) {
	h.broadcastMessage(MsgImpactAnalyzed, entry)
}

// ApprovalRequired broadcasts a newly raised approval request.
func (h *Hub) ApprovalRequired(req audit.ApprovalRequest) {
	h.broadcastMessage(MsgApprovalRequired, req)
}

// BroadcastError broadcasts an error to all clients.
func (h *Hub) BroadcastError(errMsg string) {
	h.broadcastMessage(MsgError, map[string]string{"message": errMsg})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// historyMessage renders the provider's entries, or nil without a provider.
func (h *Hub) historyMessage() []byte {
	if h.historyProvider == nil {
		return nil
	}
	entries, err := h.historyProvider()
	if err != nil {
		h.logger.Warn("loading history for websocket client", "error", err)
		return nil
	}
	msg, err := NewMessage(MsgRecentHistory, entries)
	if err != nil {
		return nil
	}
	return msg
}
