package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/engine"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
)

const (
	writeTimeout     = 10 * time.Second
	pingPeriod       = 30 * time.Second
	requestTimeout   = 30 * time.Second
	maxRequestBytes  = 64 << 10
	defaultApprovals = 50
)

// errDropped ends a connection whose send queue the hub closed.
var errDropped = errors.New("client dropped by hub")

// HandleWebSocket upgrades the connection, sends the recent history and then
// serves client requests until either side goes away.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // any origin; the API has no auth
	})
	if err != nil {
		h.logger.Error("websocket accept failed", "error", err)
		return
	}
	conn.SetReadLimit(maxRequestBytes)

	client := &Client{hub: h, send: make(chan []byte, 256), conn: conn}
	// the hub does not know the client yet, so the buffer is ours alone
	if msg := h.historyMessage(); msg != nil {
		client.send <- msg
	}
	if !h.join(client) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error { return client.writeLoop(ctx) })
	g.Go(func() error { return client.readLoop(ctx) })
	err = g.Wait()

	h.leave(client)
	switch {
	case errors.Is(err, errDropped):
		conn.Close(websocket.StatusPolicyViolation, "too slow")
	case websocket.CloseStatus(err) == websocket.StatusNormalClosure:
		h.logger.Debug("websocket client disconnected normally")
	default:
		conn.Close(websocket.StatusNormalClosure, "")
	}
}

// queue hands msg to the write loop without blocking. Nil messages are
// ignored, as are messages for a client the hub has already dropped.
func (c *Client) queue(msg []byte) {
	if msg == nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
		c.hub.logger.Warn("websocket reply dropped, client queue full")
	}
}

func (c *Client) readLoop(ctx context.Context) error {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return err
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.queue(errorMessage("", fmt.Errorf("malformed message: %w", err)))
			continue
		}
		c.queue(c.hub.respond(ctx, msg))
	}
}

func (c *Client) writeLoop(ctx context.Context) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return errDropped
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return err
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// respond answers one client request. Replies carry the request's id.
func (h *Hub) respond(ctx context.Context, msg Message) []byte {
	switch msg.Type {
	case MsgSync:
		return h.historyMessage()

	case MsgPendingApprovals:
		if h.analyst == nil {
			return errorMessage(msg.ID, errNoAnalyst)
		}
		var req ApprovalsRequest
		if err := decodePayload(msg.Payload, &req); err != nil {
			return errorMessage(msg.ID, err)
		}
		if req.Limit <= 0 {
			req.Limit = defaultApprovals
		}
		pending, err := h.analyst.PendingApprovals(ctx, req.ProjectID, req.Limit)
		if err != nil {
			return errorMessage(msg.ID, err)
		}
		return reply(msg.ID, MsgPendingApprovals, pending)

	case MsgAnalyze:
		if h.analyst == nil {
			return errorMessage(msg.ID, errNoAnalyst)
		}
		var req AnalyzeRequest
		if err := decodePayload(msg.Payload, &req); err != nil {
			return errorMessage(msg.ID, err)
		}
		er, err := req.engineRequest()
		if err != nil {
			return errorMessage(msg.ID, err)
		}
		actx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		out, err := h.analyst.Analyze(actx, er)
		if err != nil {
			h.logger.Warn("websocket analysis failed", "root", er.Root.String(), "error", err)
			return errorMessage(msg.ID, err)
		}
		return reply(msg.ID, MsgAnalysisResult, out)

	default:
		return errorMessage(msg.ID, fmt.Errorf("unsupported message type %q", msg.Type))
	}
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("missing payload")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

func reply(id string, typ MessageType, payload any) []byte {
	data, err := newMessage(id, typ, payload)
	if err != nil {
		return errorMessage(id, err)
	}
	return data
}

func errorMessage(id string, err error) []byte {
	data, _ := newMessage(id, MsgError, map[string]string{"message": err.Error()})
	return data
}

// engineRequest validates the tokens of an analyze request.
func (r AnalyzeRequest) engineRequest() (engine.Request, error) {
	entityType, err := impact.ParseEntityType(r.EntityType)
	if err != nil {
		return engine.Request{}, err
	}
	change, err := impact.ParseChangeType(r.ChangeType)
	if err != nil {
		return engine.Request{}, err
	}
	return engine.Request{
		ProjectID: r.ProjectID,
		Root:      impact.EntityRef{Type: entityType, ID: r.EntityID},
		Change:    change,
	}, nil
}
