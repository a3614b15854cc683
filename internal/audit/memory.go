package audit

import (
	"context"
	"sync"
)

// MemoryRecorder keeps requests in process. It is used when no audit store
// is configured, and as a test double.
type MemoryRecorder struct {
	mu       sync.Mutex
	requests []ApprovalRequest

	// RecordErr, when set, is returned by Record instead of storing.
	RecordErr error
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (m *MemoryRecorder) Record(ctx context.Context, req ApprovalRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.RecordErr != nil {
		return m.RecordErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return nil
}

func (m *MemoryRecorder) Pending(_ context.Context, projectID int64, limit int) ([]ApprovalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]ApprovalRequest, 0)
	for i := len(m.requests) - 1; i >= 0; i-- {
		r := m.requests[i]
		if r.Status != StatusPending || (projectID != 0 && r.ProjectID != projectID) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Requests returns every recorded request in insertion order.
func (m *MemoryRecorder) Requests() []ApprovalRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ApprovalRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MemoryRecorder) Close(context.Context) error {
	return nil
}
