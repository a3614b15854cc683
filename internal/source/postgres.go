// Package source opens connections to the configured source database.
package source

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/config"
)

// PostgresConnString builds a key/value pgx connection string.
func PostgresConnString(cfg *config.SourceConfig) string {
	connStr := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s default_query_exec_mode=simple_protocol",
		cfg.Host, cfg.Port, cfg.Database, cfg.Username, quotePgValue(cfg.Password),
	)
	if cfg.SSL {
		return connStr + " sslmode=require"
	}
	return connStr + " sslmode=disable"
}

// OpenPostgres connects a pool of at most maxConns connections and pings it.
func OpenPostgres(ctx context.Context, cfg *config.SourceConfig, maxConns int32) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(PostgresConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging PostgreSQL: %w", err)
	}
	return pool, nil
}

// quotePgValue single-quotes a connection-string value when it contains
// characters the key/value parser would split on.
func quotePgValue(v string) string {
	needs := v == ""
	for _, r := range v {
		if r == ' ' || r == '\'' || r == '\\' {
			needs = true
			break
		}
	}
	if !needs {
		return v
	}
	out := make([]rune, 0, len(v)+2)
	out = append(out, '\'')
	for _, r := range v {
		if r == '\'' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(append(out, '\''))
}
