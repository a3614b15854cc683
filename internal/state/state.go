// Package state persists the history of completed analyses.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/config"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
)

const (
	DefaultPath = config.DefaultHistory
	// DefaultLimit caps how many entries a history file keeps.
	DefaultLimit = 200
)

// Entry summarises one analysis.
type Entry struct {
	ID               string    `yaml:"id" json:"id"`
	ProjectID        int64     `yaml:"project_id" json:"project_id"`
	RootType         string    `yaml:"root_type" json:"root_type"`
	RootID           int64     `yaml:"root_id" json:"root_id"`
	RootName         string    `yaml:"root_name,omitempty" json:"root_name,omitempty"`
	ChangeType       string    `yaml:"change_type" json:"change_type"`
	WorstLevel       string    `yaml:"worst_level" json:"worst_level"`
	WorstScore       int       `yaml:"worst_score" json:"worst_score"`
	TotalPaths       int       `yaml:"total_paths" json:"total_paths"`
	TotalEntities    int       `yaml:"total_entities" json:"total_entities"`
	Truncated        bool      `yaml:"truncated,omitempty" json:"truncated"`
	RequiresApproval bool      `yaml:"requires_approval,omitempty" json:"requires_approval"`
	PolicyVersion    string    `yaml:"policy_version" json:"policy_version"`
	AnalyzedAt       time.Time `yaml:"analyzed_at" json:"analyzed_at"`
}

// NewEntry builds an Entry from an analysis result.
func NewEntry(id string, projectID int64, res *impact.ImpactResult, at time.Time) Entry {
	return Entry{
		ID:               id,
		ProjectID:        projectID,
		RootType:         res.RootEntity.Type.Token(),
		RootID:           res.RootEntity.ID,
		RootName:         res.RootEntity.Name,
		ChangeType:       res.ChangeType.String(),
		WorstLevel:       res.OverallImpact.WorstImpactLevel.String(),
		WorstScore:       res.OverallImpact.WorstRiskScore,
		TotalPaths:       res.TotalPaths,
		TotalEntities:    res.TotalEntities,
		Truncated:        res.IsTruncated,
		RequiresApproval: res.OverallImpact.RequiresApproval,
		PolicyVersion:    res.PolicyVersion,
		AnalyzedAt:       at,
	}
}

// History is the on-disk list of analyses, oldest first.
type History struct {
	LastUpdated time.Time `yaml:"last_updated"`
	Entries     []Entry   `yaml:"entries"`
}

// Load reads the history from disk. A missing file yields an empty history.
func Load(path string) (*History, error) {
	if path == "" {
		path = DefaultPath
	}
	path = config.ExpandHome(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &History{}, nil
		}
		return nil, fmt.Errorf("reading history: %w", err)
	}

	h := &History{}
	if err := yaml.Unmarshal(data, h); err != nil {
		return nil, fmt.Errorf("parsing history: %w", err)
	}
	return h, nil
}

// Save writes the history to disk.
func (h *History) Save(path string) error {
	if path == "" {
		path = DefaultPath
	}
	path = config.ExpandHome(path)

	h.LastUpdated = time.Now()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	data, err := yaml.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshaling history: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Append adds e and drops the oldest entries beyond limit.
func (h *History) Append(e Entry, limit int) {
	h.Entries = append(h.Entries, e)
	if limit > 0 && len(h.Entries) > limit {
		h.Entries = append([]Entry(nil), h.Entries[len(h.Entries)-limit:]...)
	}
}

// Recent returns up to n entries, newest first. n <= 0 returns all.
func (h *History) Recent(n int) []Entry {
	if n <= 0 || n > len(h.Entries) {
		n = len(h.Entries)
	}
	out := make([]Entry, 0, n)
	for i := len(h.Entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.Entries[i])
	}
	return out
}

// PendingApprovals counts entries that required approval.
func (h *History) PendingApprovals() int {
	count := 0
	for _, e := range h.Entries {
		if e.RequiresApproval {
			count++
		}
	}
	return count
}
