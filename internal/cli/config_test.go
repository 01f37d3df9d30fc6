package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "definitely-absent.yaml"))
	require.Error(t, err, "an explicit missing path is an error")

	cfg = DefaultConfig()
	assert.Equal(t, 30, cfg.Oracle.TimeoutSeconds)
	assert.Equal(t, "STANZAFLOW_ORACLE_KEY", cfg.Oracle.APIKeyEnv)
	assert.Equal(t, ".stanzaflow/cache.db", cfg.Cache.Path)
	assert.Equal(t, []string{"go", "vet"}, cfg.Sandbox.Command)
	assert.Equal(t, 5, cfg.Sandbox.TimeoutSeconds)
	assert.InDelta(t, 0.5, cfg.Audit.Threshold, 1e-9)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
oracle:
  url: https://oracle.example/v1/complete
  model: synth-large
cache:
  path: /tmp/sf-cache.db
audit:
  threshold: 0.8
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://oracle.example/v1/complete", cfg.Oracle.URL)
	assert.Equal(t, "synth-large", cfg.Oracle.Model)
	assert.Equal(t, "/tmp/sf-cache.db", cfg.Cache.Path)
	assert.InDelta(t, 0.8, cfg.Audit.Threshold, 1e-9)
	// Untouched sections keep their defaults.
	assert.Equal(t, 30, cfg.Oracle.TimeoutSeconds)
	assert.Equal(t, []string{"go", "vet"}, cfg.Sandbox.Command)
}

func TestLoadConfigRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("oracle: [not: a: mapping\n"), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
