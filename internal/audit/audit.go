// Package audit records the approval requests raised by high-risk analyses.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
)

// Status is the review state of an approval request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ApprovalRequest is raised for every analysis whose overall summary
// requires approval.
type ApprovalRequest struct {
	ID               string    `bson:"_id" json:"id"`
	ProjectID        int64     `bson:"project_id" json:"project_id"`
	RootType         string    `bson:"root_type" json:"root_type"`
	RootID           int64     `bson:"root_id" json:"root_id"`
	RootName         string    `bson:"root_name,omitempty" json:"root_name,omitempty"`
	ChangeType       string    `bson:"change_type" json:"change_type"`
	Level            string    `bson:"level" json:"level"`
	Score            int       `bson:"score" json:"score"`
	TriggeringPathID string    `bson:"triggering_path_id,omitempty" json:"triggering_path_id,omitempty"`
	PolicyVersion    string    `bson:"policy_version" json:"policy_version"`
	Status           Status    `bson:"status" json:"status"`
	CreatedAt        time.Time `bson:"created_at" json:"created_at"`
}

// NewApprovalRequest builds a pending request from an analysis result.
func NewApprovalRequest(projectID int64, result *impact.ImpactResult, at time.Time) ApprovalRequest {
	return ApprovalRequest{
		ID:               uuid.NewString(),
		ProjectID:        projectID,
		RootType:         result.RootEntity.Type.Token(),
		RootID:           result.RootEntity.ID,
		RootName:         result.RootEntity.Name,
		ChangeType:       result.ChangeType.String(),
		Level:            result.OverallImpact.WorstImpactLevel.String(),
		Score:            result.OverallImpact.WorstRiskScore,
		TriggeringPathID: result.OverallImpact.TriggeringPathID,
		PolicyVersion:    result.PolicyVersion,
		Status:           StatusPending,
		CreatedAt:        at.UTC(),
	}
}

// Recorder persists approval requests.
type Recorder interface {
	Record(ctx context.Context, req ApprovalRequest) error

	// Pending returns pending requests newest first. projectID 0 matches
	// every project; limit 0 means no limit.
	Pending(ctx context.Context, projectID int64, limit int) ([]ApprovalRequest, error)

	Close(ctx context.Context) error
}
