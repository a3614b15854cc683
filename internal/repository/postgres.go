package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/config"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
	"github.com/vinitparekh17/ActoEngine-sub006/internal/source"
)

// levelQuery returns the rows whose target is one of the given entities, the
// dependents one level further from the root. Target types are folded the
// way normalizeType folds them.
const levelQuery = `
SELECT d.source_entity_type, d.source_entity_id, COALESCE(d.source_entity_name, ''),
	d.target_entity_type, d.target_entity_id, COALESCE(d.target_entity_name, ''),
	d.dependency_type, d.criticality_level
FROM entity_dependencies d
JOIN unnest($2::text[], $3::bigint[]) AS t(entity_type, entity_id)
	ON (CASE upper(d.target_entity_type)
			WHEN 'PROCEDURE' THEN 'SP'
			WHEN 'STORED_PROCEDURE' THEN 'SP'
			ELSE upper(d.target_entity_type)
		END) = t.entity_type
	AND d.target_entity_id = t.entity_id
WHERE d.project_id = $1
ORDER BY d.id`

// querier is satisfied by *pgxpool.Pool and *pgxpool.Conn.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Postgres reads dependency rows from the entity_dependencies table.
type Postgres struct {
	pool       *pgxpool.Pool
	fetchDepth int
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool, maxDepth int) *Postgres {
	return &Postgres{pool: pool, fetchDepth: fetchDepth(maxDepth)}
}

// OpenPostgres connects to the source database.
func OpenPostgres(ctx context.Context, cfg *config.SourceConfig, maxDepth int) (*Postgres, error) {
	pool, err := source.OpenPostgres(ctx, cfg, int32(cfg.MaxConnections))
	if err != nil {
		return nil, err
	}
	return NewPostgres(pool, maxDepth), nil
}

// GetDownstreamDependents walks entity_dependencies breadth-first from the
// root, one query per level. Every entity is expanded at most once, so the
// cost grows with the rows reached rather than with the number of paths.
func (p *Postgres) GetDownstreamDependents(ctx context.Context, projectID int64, rootType impact.EntityType, rootID int64) ([]impact.DependencyRow, error) {
	return downstream(ctx, p.pool, projectID, rootType, rootID, p.fetchDepth)
}

func downstream(ctx context.Context, q querier, projectID int64, rootType impact.EntityType, rootID int64, depth int) ([]impact.DependencyRow, error) {
	root := keyOf(rootType.Token(), rootID)
	expanded := map[snapshotKey]bool{root: true}
	level := []snapshotKey{root}
	result := make([]impact.DependencyRow, 0)

	for d := 1; d <= depth && len(level) > 0; d++ {
		types := make([]string, len(level))
		ids := make([]int64, len(level))
		for i, k := range level {
			types[i], ids[i] = k.typ, k.id
		}

		rows, err := queryLevel(ctx, q, projectID, types, ids, d)
		if err != nil {
			return nil, err
		}

		var next []snapshotKey
		for _, r := range rows {
			src := keyOf(r.SourceEntityType, r.SourceEntityID)
			if !expanded[src] {
				expanded[src] = true
				next = append(next, src)
			}
		}
		result = append(result, rows...)
		level = next
	}
	return result, nil
}

func queryLevel(ctx context.Context, q querier, projectID int64, types []string, ids []int64, depth int) ([]impact.DependencyRow, error) {
	rows, err := q.Query(ctx, levelQuery, projectID, types, ids)
	if err != nil {
		return nil, fmt.Errorf("querying dependents at depth %d: %w", depth, err)
	}
	defer rows.Close()

	var result []impact.DependencyRow
	for rows.Next() {
		var (
			r    impact.DependencyRow
			crit *int32
		)
		if err := rows.Scan(
			&r.SourceEntityType, &r.SourceEntityID, &r.SourceEntityName,
			&r.TargetEntityType, &r.TargetEntityID, &r.TargetEntityName,
			&r.DependencyType, &crit,
		); err != nil {
			return nil, fmt.Errorf("scanning dependency row: %w", err)
		}
		r.Depth = depth
		if crit != nil {
			level := int(*crit)
			r.SourceCriticalityLevel = &level
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	return nil
}
