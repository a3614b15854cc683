// Package discovery reads physical object dependencies from a source
// database catalog and produces a dependency snapshot.
package discovery

import (
	"context"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/config"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/schema"
)

// Discoverer extracts a dependency snapshot from a source database.
type Discoverer interface {
	// Connect establishes a read-only connection to the source database.
	Connect(ctx context.Context) error

	// Discover lists tables, views and routines and the dependencies between them.
	Discover(ctx context.Context) (*schema.Snapshot, error)

	// Close closes the database connection.
	Close() error
}

// New creates a Discoverer for the given source configuration. projectID is
// stamped onto the snapshot.
func New(cfg *config.SourceConfig, projectID int64) (Discoverer, error) {
	switch cfg.Type {
	case "postgresql":
		return NewPostgres(cfg, projectID), nil
	case "oracle":
		return NewOracle(cfg, projectID), nil
	default:
		return nil, &UnsupportedDBError{DBType: cfg.Type}
	}
}

// UnsupportedDBError is returned when the source DB type is not supported.
type UnsupportedDBError struct {
	DBType string
}

func (e *UnsupportedDBError) Error() string {
	return "unsupported database type: " + e.DBType
}

// routine is a stored procedure or function body awaiting classification.
type routine struct {
	entity schema.Entity
	body   string
}

// routineDependencies classifies every routine body against every other
// known entity name, in entity order.
func routineDependencies(routines []routine, entities []schema.Entity) []schema.Dependency {
	var deps []schema.Dependency
	for _, r := range routines {
		for _, target := range entities {
			if target.Type == r.entity.Type && target.ID == r.entity.ID {
				continue
			}
			kind, ok := Classify(r.body, target.Name)
			if !ok {
				continue
			}
			deps = append(deps, schema.Dependency{
				SourceType: r.entity.Type,
				SourceID:   r.entity.ID,
				TargetType: target.Type,
				TargetID:   target.ID,
				Kind:       kind.String(),
			})
		}
	}
	return deps
}
