package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/config"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/schema"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/source"
)

// Postgres implements Discoverer for PostgreSQL databases. Entity ids are
// catalog OIDs.
type Postgres struct {
	cfg       *config.SourceConfig
	projectID int64
	pool      *pgxpool.Pool
	schema    string // pg schema to discover, defaults to "public"
}

// NewPostgres creates a new PostgreSQL discoverer.
func NewPostgres(cfg *config.SourceConfig, projectID int64) *Postgres {
	s := cfg.Schema
	if s == "" {
		s = "public"
	}
	return &Postgres{cfg: cfg, projectID: projectID, schema: s}
}

func (p *Postgres) Connect(ctx context.Context) error {
	pool, err := source.OpenPostgres(ctx, p.cfg, 1)
	if err != nil {
		return err
	}
	p.pool = pool
	return nil
}

func (p *Postgres) Discover(ctx context.Context) (*schema.Snapshot, error) {
	if p.pool == nil {
		return nil, fmt.Errorf("not connected; call Connect first")
	}

	relations, err := p.discoverRelations(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovering relations: %w", err)
	}

	routines, err := p.discoverRoutines(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovering routines: %w", err)
	}

	entities := append([]schema.Entity{}, relations...)
	for _, r := range routines {
		entities = append(entities, r.entity)
	}

	viewDeps, err := p.discoverViewDependencies(ctx, entities)
	if err != nil {
		return nil, fmt.Errorf("discovering view dependencies: %w", err)
	}

	return &schema.Snapshot{
		ProjectID:    p.projectID,
		DatabaseType: "postgresql",
		Host:         p.cfg.Host,
		Database:     p.cfg.Database,
		SchemaName:   p.schema,
		DiscoveredAt: time.Now().UTC(),
		Entities:     entities,
		Dependencies: append(viewDeps, routineDependencies(routines, entities)...),
	}, nil
}

func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	return nil
}

// discoverRelations lists tables and views (plain and materialized).
func (p *Postgres) discoverRelations(ctx context.Context) ([]schema.Entity, error) {
	query := `
		SELECT c.oid::bigint, c.relname,
			CASE WHEN c.relkind IN ('v', 'm') THEN 'VIEW' ELSE 'TABLE' END
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1
			AND c.relkind IN ('r', 'p', 'v', 'm')
		ORDER BY c.relname`

	rows, err := p.pool.Query(ctx, query, p.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []schema.Entity
	for rows.Next() {
		var e schema.Entity
		if err := rows.Scan(&e.ID, &e.Name, &e.Type); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// discoverRoutines lists functions and procedures with their source text.
func (p *Postgres) discoverRoutines(ctx context.Context) ([]routine, error) {
	query := `
		SELECT p.oid::bigint, p.proname,
			CASE WHEN p.prokind = 'p' THEN 'SP' ELSE 'FUNCTION' END,
			COALESCE(p.prosrc, '')
		FROM pg_proc p
		JOIN pg_namespace n ON n.oid = p.pronamespace
		WHERE n.nspname = $1
			AND p.prokind IN ('f', 'p')
		ORDER BY p.proname, p.oid`

	rows, err := p.pool.Query(ctx, query, p.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var routines []routine
	for rows.Next() {
		var r routine
		if err := rows.Scan(&r.entity.ID, &r.entity.Name, &r.entity.Type, &r.body); err != nil {
			return nil, err
		}
		routines = append(routines, r)
	}
	return routines, rows.Err()
}

// discoverViewDependencies reads view -> relation edges from pg_depend via
// the views' rewrite rules. Views only read, so every edge is SELECT.
func (p *Postgres) discoverViewDependencies(ctx context.Context, entities []schema.Entity) ([]schema.Dependency, error) {
	query := `
		SELECT DISTINCT v.oid::bigint, t.oid::bigint
		FROM pg_depend d
		JOIN pg_rewrite r ON r.oid = d.objid
		JOIN pg_class v ON v.oid = r.ev_class
		JOIN pg_class t ON t.oid = d.refobjid
		JOIN pg_namespace n ON n.oid = v.relnamespace
		WHERE d.classid = 'pg_rewrite'::regclass
			AND d.refclassid = 'pg_class'::regclass
			AND v.oid <> t.oid
			AND n.nspname = $1
			AND t.relkind IN ('r', 'p', 'v', 'm')
		ORDER BY 1, 2`

	rows, err := p.pool.Query(ctx, query, p.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := make(map[int64]string, len(entities))
	for _, e := range entities {
		types[e.ID] = e.Type
	}

	var deps []schema.Dependency
	for rows.Next() {
		var viewID, targetID int64
		if err := rows.Scan(&viewID, &targetID); err != nil {
			return nil, err
		}
		targetType, ok := types[targetID]
		if !ok {
			// relation in another schema
			continue
		}
		deps = append(deps, schema.Dependency{
			SourceType: "VIEW",
			SourceID:   viewID,
			TargetType: targetType,
			TargetID:   targetID,
			Kind:       "SELECT",
		})
	}
	return deps, rows.Err()
}
