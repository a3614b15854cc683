//go:build integration

package integration

import (
	"fmt"
	"os"
	"testing"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/config"
)

// testProjectID keeps integration rows apart from anything else in the
// entity_dependencies table.
const testProjectID int64 = 9001

func pgHost(t *testing.T) string {
	t.Helper()
	return envOrDefault("ACTO_TEST_PG_HOST", "localhost")
}

func pgPort(t *testing.T) int {
	t.Helper()
	p := envOrDefault("ACTO_TEST_PG_PORT", "25432")
	var port int
	fmt.Sscanf(p, "%d", &port)
	return port
}

func pgDatabase(t *testing.T) string {
	t.Helper()
	return envOrDefault("ACTO_TEST_PG_DATABASE", "acto_test")
}

func pgUser(t *testing.T) string {
	t.Helper()
	return envOrDefault("ACTO_TEST_PG_USER", "postgres")
}

func pgPassword(t *testing.T) string {
	t.Helper()
	return envOrDefault("ACTO_TEST_PG_PASSWORD", "postgres")
}

func sourceConfig(t *testing.T) config.SourceConfig {
	t.Helper()
	return config.SourceConfig{
		Type:           "postgresql",
		Host:           pgHost(t),
		Port:           pgPort(t),
		Database:       pgDatabase(t),
		Schema:         "public",
		Username:       pgUser(t),
		Password:       pgPassword(t),
		MaxConnections: 2,
	}
}

func skipIfNoPostgres(t *testing.T) {
	t.Helper()
	if os.Getenv("ACTO_TEST_PG_HOST") == "" && os.Getenv("ACTO_TEST_PG_PORT") == "" {
		t.Skip("skipping: ACTO_TEST_PG_HOST/PORT not set")
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
