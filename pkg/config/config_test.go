package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Storage.AutoConsolidate)
	assert.Equal(t, "zstd", cfg.Storage.SnapshotCompression)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  auto_consolidate: false
  snapshot_compression: lz4
csv:
  delimiter: ";"
  null_tokens: ["-"]
logging:
  level: debug
  encoding: console
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Storage.AutoConsolidate)
	assert.Equal(t, "lz4", cfg.Storage.SnapshotCompression)
	assert.Equal(t, ";", cfg.CSV.Delimiter)
	assert.Equal(t, []string{"-"}, cfg.CSV.NullTokens)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 16, cfg.Storage.ConsolidateThreshold, "unset fields keep defaults")
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  snapshot_compression: brotli\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidateDelimiter(t *testing.T) {
	cfg := Default()
	cfg.CSV.Delimiter = "ab"
	require.Error(t, cfg.Validate())
}
