// Package impact computes the downstream impact of a proposed change to a
// database entity. Rows from a dependency repository are turned into a
// directed graph, walked breadth-first from the changed entity, scored, grouped
// by affected entity and finally run through an approval gate.
package impact

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EntityType identifies the kind of database object.
type EntityType int

const (
	EntityTypeUnknown EntityType = iota
	EntityTypeTable
	EntityTypeView
	EntityTypeSp
	EntityTypeFunction
)

// ParseEntityType resolves an entity-type token. Unrecognised tokens are an
// error: a new entity kind means the upstream data changed shape.
func ParseEntityType(token string) (EntityType, error) {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case "TABLE":
		return EntityTypeTable, nil
	case "VIEW":
		return EntityTypeView, nil
	case "SP", "PROCEDURE", "STORED_PROCEDURE":
		return EntityTypeSp, nil
	case "FUNCTION":
		return EntityTypeFunction, nil
	default:
		return EntityTypeUnknown, fmt.Errorf("%w: %q", ErrUnknownEntityType, token)
	}
}

func (t EntityType) String() string {
	switch t {
	case EntityTypeTable:
		return "Table"
	case EntityTypeView:
		return "View"
	case EntityTypeSp:
		return "Sp"
	case EntityTypeFunction:
		return "Function"
	default:
		return "Unknown"
	}
}

// Token returns the upper-case form stored by dependency repositories.
func (t EntityType) Token() string {
	switch t {
	case EntityTypeTable:
		return "TABLE"
	case EntityTypeView:
		return "VIEW"
	case EntityTypeSp:
		return "SP"
	case EntityTypeFunction:
		return "FUNCTION"
	default:
		return "UNKNOWN"
	}
}

func (t EntityType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts every token MarshalJSON writes, including the zero
// value, which ParseEntityType refuses.
func (t *EntityType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" || strings.EqualFold(s, EntityTypeUnknown.String()) {
		*t = EntityTypeUnknown
		return nil
	}
	parsed, err := ParseEntityType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// EntityKey is the identity of an entity. Names are display metadata only.
type EntityKey struct {
	Type EntityType
	ID   int64
}

func (k EntityKey) String() string {
	return fmt.Sprintf("%s:%d", k.Type, k.ID)
}

// EntityRef references a database entity.
type EntityRef struct {
	Type EntityType `json:"type"`
	ID   int64      `json:"id"`
	Name string     `json:"name,omitempty"`
}

// Key returns the (type, id) identity of the reference.
func (e EntityRef) Key() EntityKey {
	return EntityKey{Type: e.Type, ID: e.ID}
}

// Same reports whether two references point at the same entity.
func (e EntityRef) Same(other EntityRef) bool {
	return e.Key() == other.Key()
}

func (e EntityRef) String() string {
	return e.Key().String()
}

// DependencyType is the kind of access one entity makes of another.
type DependencyType int

const (
	DependencyUnknown DependencyType = iota
	DependencySelect
	DependencyInsert
	DependencyUpdate
	DependencyDelete
	DependencyLogicalFk
)

// ParseDependencyType maps a token to a DependencyType. Unrecognised tokens
// degrade to DependencyUnknown instead of failing.
func ParseDependencyType(token string) DependencyType {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case "SELECT":
		return DependencySelect
	case "INSERT":
		return DependencyInsert
	case "UPDATE":
		return DependencyUpdate
	case "DELETE":
		return DependencyDelete
	case "LOGICAL_FK":
		return DependencyLogicalFk
	default:
		return DependencyUnknown
	}
}

// SeverityRank orders dependency types for picking the dominant edge of a path.
func (d DependencyType) SeverityRank() int {
	switch d {
	case DependencyDelete:
		return 6
	case DependencyUpdate:
		return 5
	case DependencyInsert:
		return 4
	case DependencyLogicalFk:
		return 3
	case DependencySelect:
		return 2
	default:
		return 1
	}
}

func (d DependencyType) String() string {
	switch d {
	case DependencySelect:
		return "SELECT"
	case DependencyInsert:
		return "INSERT"
	case DependencyUpdate:
		return "UPDATE"
	case DependencyDelete:
		return "DELETE"
	case DependencyLogicalFk:
		return "LOGICAL_FK"
	default:
		return "UNKNOWN"
	}
}

func (d DependencyType) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *DependencyType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*d = ParseDependencyType(s)
	return nil
}

// ImpactLevel is the risk band derived from a risk score.
type ImpactLevel int

const (
	ImpactNone ImpactLevel = iota
	ImpactLow
	ImpactMedium
	ImpactHigh
	ImpactCritical
)

func (l ImpactLevel) String() string {
	switch l {
	case ImpactLow:
		return "Low"
	case ImpactMedium:
		return "Medium"
	case ImpactHigh:
		return "High"
	case ImpactCritical:
		return "Critical"
	default:
		return "None"
	}
}

// ParseImpactLevel is the inverse of ImpactLevel.String. Unknown tokens map to None.
func ParseImpactLevel(token string) ImpactLevel {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "low":
		return ImpactLow
	case "medium":
		return ImpactMedium
	case "high":
		return ImpactHigh
	case "critical":
		return ImpactCritical
	default:
		return ImpactNone
	}
}

func (l ImpactLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *ImpactLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = ParseImpactLevel(s)
	return nil
}

// ChangeType is the kind of edit proposed on the root entity.
type ChangeType int

const (
	ChangeCreate ChangeType = iota + 1
	ChangeModify
	ChangeDelete
)

// ParseChangeType resolves a change-type token.
func ParseChangeType(token string) (ChangeType, error) {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case "CREATE":
		return ChangeCreate, nil
	case "MODIFY", "ALTER", "UPDATE":
		return ChangeModify, nil
	case "DELETE", "DROP":
		return ChangeDelete, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownChangeType, token)
	}
}

func (c ChangeType) String() string {
	switch c {
	case ChangeCreate:
		return "CREATE"
	case ChangeModify:
		return "MODIFY"
	case ChangeDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

func (c ChangeType) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ChangeType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" || strings.EqualFold(s, ChangeType(0).String()) {
		*c = 0
		return nil
	}
	parsed, err := ParseChangeType(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// DependencyRow is a raw dependency fact as returned by a repository.
// Source depends on Target.
type DependencyRow struct {
	SourceEntityType       string `json:"source_entity_type" yaml:"source_entity_type"`
	SourceEntityID         int64  `json:"source_entity_id" yaml:"source_entity_id"`
	SourceEntityName       string `json:"source_entity_name,omitempty" yaml:"source_entity_name,omitempty"`
	TargetEntityType       string `json:"target_entity_type" yaml:"target_entity_type"`
	TargetEntityID         int64  `json:"target_entity_id" yaml:"target_entity_id"`
	TargetEntityName       string `json:"target_entity_name,omitempty" yaml:"target_entity_name,omitempty"`
	DependencyType         string `json:"dependency_type" yaml:"dependency_type"`
	Depth                  int    `json:"depth" yaml:"depth"`
	SourceCriticalityLevel *int   `json:"source_criticality_level,omitempty" yaml:"source_criticality_level,omitempty"`
}

// GraphNode is a graph vertex.
type GraphNode struct {
	Entity           EntityRef `json:"entity"`
	CriticalityLevel int       `json:"criticality_level"`
}

// GraphEdge points from a depended-upon entity to its dependent, the
// direction in which impact propagates.
type GraphEdge struct {
	From           EntityRef      `json:"from"`
	To             EntityRef      `json:"to"`
	DependencyType DependencyType `json:"dependency_type"`
}

// DependencyPath is a chain from the root entity to an affected entity.
type DependencyPath struct {
	PathID                 string           `json:"path_id"`
	Nodes                  []EntityRef      `json:"nodes"`
	Edges                  []DependencyType `json:"edges"`
	Depth                  int              `json:"depth"`
	MaxDependencyType      DependencyType   `json:"max_dependency_type"`
	MaxCriticalityLevel    int              `json:"max_criticality_level"`
	RiskScore              int              `json:"risk_score"`
	ImpactLevel            ImpactLevel      `json:"impact_level"`
	DominantEntity         EntityRef        `json:"dominant_entity"`
	DominantDependencyType DependencyType   `json:"dominant_dependency_type"`
}

// Terminal returns the affected entity at the end of the path.
func (p DependencyPath) Terminal() (EntityRef, bool) {
	if len(p.Nodes) == 0 {
		return EntityRef{}, false
	}
	return p.Nodes[len(p.Nodes)-1], true
}

// PathID joins node keys with "->".
func PathID(nodes []EntityRef) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.Key().String()
	}
	return strings.Join(parts, "->")
}

// EntityImpact rolls up every path ending at one affected entity.
type EntityImpact struct {
	Entity               EntityRef        `json:"entity"`
	WorstCaseImpactLevel ImpactLevel      `json:"worst_case_impact_level"`
	WorstCaseRiskScore   int              `json:"worst_case_risk_score"`
	CumulativeRiskScore  int              `json:"cumulative_risk_score"`
	DominantPathID       string           `json:"dominant_path_id"`
	Paths                []DependencyPath `json:"paths"`
}

// OverallImpactSummary is the headline outcome of an analysis.
type OverallImpactSummary struct {
	WorstImpactLevel ImpactLevel `json:"worst_impact_level"`
	WorstRiskScore   int         `json:"worst_risk_score"`
	TriggeringEntity *EntityRef  `json:"triggering_entity,omitempty"`
	TriggeringPathID string      `json:"triggering_path_id,omitempty"`
	RequiresApproval bool        `json:"requires_approval"`
}

// ImpactResult is returned by Analyzer.Analyze.
type ImpactResult struct {
	RootEntity       EntityRef            `json:"root_entity"`
	ChangeType       ChangeType           `json:"change_type"`
	TotalPaths       int                  `json:"total_paths"`
	TotalEntities    int                  `json:"total_entities"`
	IsTruncated      bool                 `json:"is_truncated"`
	TruncationReason string               `json:"truncation_reason,omitempty"`
	MaxDepthReached  int                  `json:"max_depth_reached"`
	OverallImpact    OverallImpactSummary `json:"overall_impact"`
	EntityImpacts    []EntityImpact       `json:"entity_impacts"`
	PolicyVersion    string               `json:"policy_version"`
}
