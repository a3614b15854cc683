package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinitparekh17/ActoEngine-sub006/internal/impact"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "acto.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMinimalConfig(t *testing.T) {
	path := writeConfig(t, "version: 1\nrepository:\n  type: snapshot\n  snapshot_path: /tmp/deps.yaml\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, RepositorySnapshot, cfg.Repository.Type)
	assert.Equal(t, "/tmp/deps.yaml", cfg.Repository.SnapshotPath)
	assert.Equal(t, impact.DefaultMaxDepth, cfg.Analysis.MaxDepth)
	assert.Equal(t, impact.DefaultMaxPaths, cfg.Analysis.MaxPaths)
	assert.Equal(t, 4, cfg.Analysis.Parallelism)
	assert.Equal(t, impact.DefaultRiskPolicy(), cfg.Analysis.Policy)
	assert.Equal(t, 8230, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "none", cfg.Telemetry.Tracing)
	assert.False(t, cfg.Audit.Enabled())
}

func TestLoadPostgresRepositoryDefault(t *testing.T) {
	path := writeConfig(t, `version: 1
source:
  type: postgresql
  host: localhost
  port: 5432
  database: acto
  username: acto
  password: secret
  max_connections: 100
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, RepositoryPostgres, cfg.Repository.Type)
	assert.Equal(t, 20, cfg.Source.MaxConnections)
}

func TestLoadPolicyOverridesKeepDefaults(t *testing.T) {
	path := writeConfig(t, `version: 1
repository:
  type: snapshot
  snapshot_path: deps.yaml
  cache_size: 64
analysis:
  max_depth: 3
  policy:
    version: strict/v2
    weights:
      select: 5
    thresholds:
      high: 30
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	p := cfg.Analysis.Policy
	assert.Equal(t, "strict/v2", p.Version)
	assert.Equal(t, 5, p.Weights.Select)
	assert.Equal(t, 10, p.Weights.Delete)
	assert.Equal(t, 30, p.Thresholds.High)
	assert.Equal(t, 70, p.Thresholds.Critical)
	assert.Equal(t, 3, cfg.Analysis.MaxDepth)
	assert.Equal(t, 5*time.Minute, cfg.Repository.CacheTTL)
}

func TestLoadRejectsBadPolicy(t *testing.T) {
	path := writeConfig(t, `version: 1
analysis:
  policy:
    thresholds:
      medium: 90
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis.policy")
}

func TestLoadInvalidVersion(t *testing.T) {
	path := writeConfig(t, "version: 99\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadValidationErrors(t *testing.T) {
	tests := map[string]string{
		"unknown repository":  "version: 1\nrepository:\n  type: neo4j\n",
		"unknown tracing":     "version: 1\ntelemetry:\n  tracing: jaeger\n",
		"bad log level":       "version: 1\nlogging:\n  level: verbose\n",
		"postgres no source":  "version: 1\nrepository:\n  type: postgres\n",
		"unknown source type": "version: 1\nsource:\n  type: db2\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "acto.yaml")
	cfg := Default()
	cfg.Repository.SnapshotPath = "/var/lib/acto/snapshot.yaml"
	cfg.Analysis.MaxPaths = 42

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42, loaded.Analysis.MaxPaths)
	assert.Equal(t, "/var/lib/acto/snapshot.yaml", loaded.Repository.SnapshotPath)
}

func TestResolveEnvSecret(t *testing.T) {
	t.Setenv("ACTO_TEST_SECRET", "mysecret")
	val, err := ResolveValue("${ENV:ACTO_TEST_SECRET}")
	require.NoError(t, err)
	assert.Equal(t, "mysecret", val)

	_, err = ResolveValue("${ENV:ACTO_TEST_SECRET_UNSET}")
	assert.Error(t, err)
}

func TestResolvePlainValue(t *testing.T) {
	val, err := ResolveValue("plaintext")
	require.NoError(t, err)
	assert.Equal(t, "plaintext", val)
}

func TestResolveVault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/secret/data/acto" || r.Header.Get("X-Vault-Token") != "test-token" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data": map[string]any{"mongo_uri": "mongodb://vault:27017"},
			},
		})
	}))
	defer server.Close()

	t.Setenv("VAULT_ADDR", server.URL)
	t.Setenv("VAULT_TOKEN", "test-token")

	val, err := ResolveValue("${VAULT:secret/data/acto#mongo_uri}")
	require.NoError(t, err)
	assert.Equal(t, "mongodb://vault:27017", val)

	_, err = ResolveValue("${VAULT:secret/data/acto#missing}")
	assert.Error(t, err)

	_, err = ResolveValue("${VAULT:no-key-separator}")
	assert.Error(t, err)
}

func TestResolveVaultMissingEnv(t *testing.T) {
	t.Setenv("VAULT_ADDR", "")
	t.Setenv("VAULT_TOKEN", "")

	_, err := ResolveValue("${VAULT:secret/data/acto#key}")
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".acto/acto.yaml"), ExpandHome(DefaultPath))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
}
