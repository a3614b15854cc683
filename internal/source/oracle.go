package source

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	go_ora "github.com/sijms/go-ora/v2"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/config"
)

// OracleConnString builds a go-ora URL for the configured service name.
func OracleConnString(cfg *config.SourceConfig) string {
	var options map[string]string
	if cfg.SSL {
		options = map[string]string{"SSL": "true"}
	}
	return go_ora.BuildUrl(cfg.Host, cfg.Port, cfg.Database, cfg.Username, cfg.Password, options)
}

// OpenOracle opens a single-connection go-ora handle and pings it.
func OpenOracle(ctx context.Context, cfg *config.SourceConfig) (*sql.DB, error) {
	db, err := sql.Open("oracle", OracleConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening Oracle connection: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging Oracle: %w", err)
	}
	return db, nil
}

// OracleOwner returns the schema owner to inspect: the configured schema, or
// the upper-cased user name.
func OracleOwner(cfg *config.SourceConfig) string {
	if cfg.Schema != "" {
		return strings.ToUpper(cfg.Schema)
	}
	return strings.ToUpper(cfg.Username)
}

// RedactURL hides the password in a connection URL for logging.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
