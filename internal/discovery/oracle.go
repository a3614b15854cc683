package discovery

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/config"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/schema"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/source"
)

// Oracle implements Discoverer for Oracle databases using go-ora (pure Go,
// no Instant Client). Entity ids are ALL_OBJECTS.OBJECT_ID values.
type Oracle struct {
	cfg       *config.SourceConfig
	projectID int64
	db        *sql.DB
	owner     string
}

// NewOracle creates a new Oracle discoverer.
func NewOracle(cfg *config.SourceConfig, projectID int64) *Oracle {
	return &Oracle{cfg: cfg, projectID: projectID, owner: source.OracleOwner(cfg)}
}

func (o *Oracle) Connect(ctx context.Context) error {
	db, err := source.OpenOracle(ctx, o.cfg)
	if err != nil {
		return err
	}
	o.db = db
	return nil
}

func (o *Oracle) Discover(ctx context.Context) (*schema.Snapshot, error) {
	if o.db == nil {
		return nil, fmt.Errorf("not connected; call Connect first")
	}

	entities, err := o.discoverObjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovering objects: %w", err)
	}

	bodies, err := o.discoverSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading routine source: %w", err)
	}

	deps, err := o.discoverDependencies(ctx, entities, bodies)
	if err != nil {
		return nil, fmt.Errorf("discovering dependencies: %w", err)
	}

	return &schema.Snapshot{
		ProjectID:    o.projectID,
		DatabaseType: "oracle",
		Host:         o.cfg.Host,
		Database:     o.cfg.Database,
		SchemaName:   o.owner,
		DiscoveredAt: time.Now().UTC(),
		Entities:     entities,
		Dependencies: deps,
	}, nil
}

func (o *Oracle) Close() error {
	if o.db != nil {
		err := o.db.Close()
		o.db = nil
		return err
	}
	return nil
}

func (o *Oracle) discoverObjects(ctx context.Context) ([]schema.Entity, error) {
	query := `
		SELECT OBJECT_ID, OBJECT_NAME, OBJECT_TYPE
		FROM ALL_OBJECTS
		WHERE OWNER = :1
			AND OBJECT_TYPE IN ('TABLE', 'VIEW', 'PROCEDURE', 'FUNCTION')
		ORDER BY OBJECT_NAME`

	rows, err := o.db.QueryContext(ctx, query, o.owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []schema.Entity
	for rows.Next() {
		var (
			e       schema.Entity
			objType string
		)
		if err := rows.Scan(&e.ID, &e.Name, &objType); err != nil {
			return nil, err
		}
		e.Type = oracleEntityType(objType)
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func oracleEntityType(objectType string) string {
	if objectType == "PROCEDURE" {
		return "SP"
	}
	return objectType
}

// discoverSource concatenates ALL_SOURCE lines per routine name.
func (o *Oracle) discoverSource(ctx context.Context) (map[string]string, error) {
	query := `
		SELECT NAME, TEXT
		FROM ALL_SOURCE
		WHERE OWNER = :1
			AND TYPE IN ('PROCEDURE', 'FUNCTION')
		ORDER BY NAME, LINE`

	rows, err := o.db.QueryContext(ctx, query, o.owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	builders := make(map[string]*strings.Builder)
	for rows.Next() {
		var name, text string
		if err := rows.Scan(&name, &text); err != nil {
			return nil, err
		}
		b, ok := builders[name]
		if !ok {
			b = &strings.Builder{}
			builders[name] = b
		}
		b.WriteString(text)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	bodies := make(map[string]string, len(builders))
	for name, b := range builders {
		bodies[name] = b.String()
	}
	return bodies, nil
}

// discoverDependencies reads ALL_DEPENDENCIES within the owner. View edges
// are SELECT; routine edges are classified from the routine's source.
func (o *Oracle) discoverDependencies(ctx context.Context, entities []schema.Entity, bodies map[string]string) ([]schema.Dependency, error) {
	query := `
		SELECT NAME, TYPE, REFERENCED_NAME, REFERENCED_TYPE
		FROM ALL_DEPENDENCIES
		WHERE OWNER = :1
			AND REFERENCED_OWNER = :1
			AND TYPE IN ('VIEW', 'PROCEDURE', 'FUNCTION')
			AND REFERENCED_TYPE IN ('TABLE', 'VIEW', 'PROCEDURE', 'FUNCTION')
		ORDER BY NAME, REFERENCED_NAME`

	rows, err := o.db.QueryContext(ctx, query, o.owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byName := make(map[string]schema.Entity, len(entities))
	for _, e := range entities {
		byName[e.Type+"/"+e.Name] = e
	}

	var deps []schema.Dependency
	for rows.Next() {
		var name, typ, refName, refType string
		if err := rows.Scan(&name, &typ, &refName, &refType); err != nil {
			return nil, err
		}
		src, ok := byName[oracleEntityType(typ)+"/"+name]
		if !ok {
			continue
		}
		target, ok := byName[oracleEntityType(refType)+"/"+refName]
		if !ok {
			continue
		}

		kind := "SELECT"
		if src.Type != "VIEW" {
			if k, found := Classify(bodies[name], refName); found {
				kind = k.String()
			}
		}
		deps = append(deps, schema.Dependency{
			SourceType: src.Type,
			SourceID:   src.ID,
			TargetType: target.Type,
			TargetID:   target.ID,
			Kind:       kind,
		})
	}
	return deps, rows.Err()
}
