package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 1, cfg.Regrid.Workers)
	assert.Equal(t, 0.125, cfg.Regrid.GridSpacing)
	assert.Equal(t, "xlsx", cfg.Output.Format)
	assert.False(t, cfg.Output.Previews)
	assert.Equal(t, time.Hour, cfg.Cache.BatchTTL)
	assert.Equal(t, []string{"netcdf", "native"}, cfg.Dataset.Backends)
	assert.Equal(t, int64(512<<20), cfg.MaxUploadBytes())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regrid.yaml")
	yaml := `
server:
  port: "9000"
  cors_origins: ["http://localhost:5173"]
regrid:
  workers: 4
output:
  format: csv
  previews: true
cache:
  batch_ttl: 30m
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("REGRID_WORKERS", "2")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 2, cfg.Regrid.Workers)
	assert.Equal(t, "csv", cfg.Output.Format)
	assert.True(t, cfg.Output.Previews)
	assert.Equal(t, 30*time.Minute, cfg.Cache.BatchTTL)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("REGRID_WORKERS", "many")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("OUTPUT_FORMAT", "parquet")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate_NegativeWorkers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Regrid.Workers = -1
	assert.Error(t, cfg.Validate())
}
