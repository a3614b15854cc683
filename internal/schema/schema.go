// Package schema holds the on-disk dependency snapshot produced by discovery
// and read by the snapshot repository.
package schema

import "time"

// Snapshot is the dependency catalog of one project.
type Snapshot struct {
	ProjectID    int64        `yaml:"project_id"`
	DatabaseType string       `yaml:"database_type"` // postgresql or oracle
	Host         string       `yaml:"host,omitempty"`
	Database     string       `yaml:"database,omitempty"`
	SchemaName   string       `yaml:"schema_name,omitempty"`
	DiscoveredAt time.Time    `yaml:"discovered_at"`
	Entities     []Entity     `yaml:"entities"`
	Dependencies []Dependency `yaml:"dependencies"`
}

// Entity is a database object that can take part in a dependency.
type Entity struct {
	Type string `yaml:"type"` // TABLE, VIEW, SP, FUNCTION
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
	// Criticality is the 1-5 business rating, when one has been assigned.
	Criticality *int `yaml:"criticality,omitempty"`
}

// Dependency records that Source reads or writes Target.
type Dependency struct {
	SourceType string `yaml:"source_type"`
	SourceID   int64  `yaml:"source_id"`
	TargetType string `yaml:"target_type"`
	TargetID   int64  `yaml:"target_id"`
	Kind       string `yaml:"kind"` // SELECT, INSERT, UPDATE, DELETE, LOGICAL_FK
}
