package ws

import "encoding/json"

// MessageType identifies the kind of WebSocket message.
type MessageType string

// Server events.
const (
	MsgImpactAnalyzed   MessageType = "impact_analyzed"
	MsgApprovalRequired MessageType = "approval_required"
	MsgRecentHistory    MessageType = "recent_history"
	MsgAnalysisResult   MessageType = "analysis_result"
	MsgError            MessageType = "error"
)

// Client requests. A pending_approvals request is answered with a message of
// the same type.
const (
	MsgSync             MessageType = "sync"
	MsgAnalyze          MessageType = "analyze"
	MsgPendingApprovals MessageType = "pending_approvals"
)

// Message is the envelope for all WebSocket messages. ID is set by clients
// on requests and echoed on the reply.
type Message struct {
	Type    MessageType     `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AnalyzeRequest is the payload of an analyze request.
type AnalyzeRequest struct {
	ProjectID  int64  `json:"project_id"`
	EntityType string `json:"entity_type"`
	EntityID   int64  `json:"entity_id"`
	ChangeType string `json:"change_type"`
}

// ApprovalsRequest is the payload of a pending_approvals request.
type ApprovalsRequest struct {
	ProjectID int64 `json:"project_id"`
	Limit     int   `json:"limit,omitempty"`
}

// NewMessage creates a new Message with the given type and payload.
func NewMessage(typ MessageType, payload any) ([]byte, error) {
	return newMessage("", typ, payload)
}

func newMessage(id string, typ MessageType, payload any) ([]byte, error) {
	var p json.RawMessage
	if payload != nil {
		var err error
		p, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Message{Type: typ, ID: id, Payload: p})
}
