package api

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/audit"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/engine"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/state"
)

var validate = validator.New()

// AnalyzeRequest is the request body for POST /api/impact/analyze.
type AnalyzeRequest struct {
	ProjectID  int64  `json:"project_id" validate:"gt=0"`
	EntityType string `json:"entity_type" validate:"required"`
	EntityID   int64  `json:"entity_id" validate:"gt=0"`
	ChangeType string `json:"change_type" validate:"required"`
}

// BatchEntity names one root entity in a batch request.
type BatchEntity struct {
	EntityType string `json:"entity_type" validate:"required"`
	EntityID   int64  `json:"entity_id" validate:"gt=0"`
}

// BatchRequest is the request body for POST /api/impact/batch.
type BatchRequest struct {
	ProjectID  int64         `json:"project_id" validate:"gt=0"`
	ChangeType string        `json:"change_type" validate:"required"`
	Entities   []BatchEntity `json:"entities" validate:"required,min=1,max=100,dive"`
}

// AnalyzeResponse wraps one analysis outcome.
type AnalyzeResponse struct {
	ID       string                 `json:"id"`
	Result   *impact.ImpactResult   `json:"result"`
	Approval *audit.ApprovalRequest `json:"approval,omitempty"`
}

// BatchResponse returns outcomes in request order.
type BatchResponse struct {
	Results []AnalyzeResponse `json:"results"`
}

// HistoryResponse is the API response for GET /api/impact/history.
type HistoryResponse struct {
	Entries []state.Entry `json:"entries"`
	Total   int           `json:"total"`
}

// ApprovalsResponse is the API response for GET /api/impact/approvals.
type ApprovalsResponse struct {
	Pending []audit.ApprovalRequest `json:"pending"`
}

func (r AnalyzeRequest) toEngineRequest() (engine.Request, error) {
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

func (r BatchRequest) toEngineRequests() ([]engine.Request, error) {
	reqs := make([]engine.Request, 0, len(r.Entities))
	for i, e := range r.Entities {
		req, err := AnalyzeRequest{
			ProjectID:  r.ProjectID,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			ChangeType: r.ChangeType,
		}.toEngineRequest()
		if err != nil {
			return nil, fmt.Errorf("entities[%d]: %w", i, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func toResponse(out *engine.Outcome) AnalyzeResponse {
	return AnalyzeResponse{ID: out.ID, Result: out.Result, Approval: out.Approval}
}

// validationMessage flattens validator errors into one line.
func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
