package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GIGCAL_CONFIG_DIR", dir)
	for _, k := range []string{"GIGCAL_SOURCE", "GIGCAL_DB_PATH", "SUPABASE_URL", "SUPABASE_ANON_KEY", "GIGCAL_CACHE_TTL", "GIGCAL_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	return dir
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	dir := useTempConfigDir(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Source.Kind)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL())
	assert.Equal(t, 2, cfg.Cache.PrefetchMonths)
	require.NoError(t, cfg.Validate())

	path, err := cfg.DBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "gigcal.db"), path)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := useTempConfigDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
[source]
kind = "supabase"

[supabase]
url = "https://example.supabase.co"

[cache]
ttl_seconds = 60

[colors]
roving = "#000000"

[log]
level = "debug"
`), 0644))
	t.Setenv("SUPABASE_ANON_KEY", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "supabase", cfg.Source.Kind)
	assert.Equal(t, "https://example.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, "from-env", cfg.Supabase.AnonKey)
	assert.Equal(t, time.Minute, cfg.Cache.TTL())
	assert.Equal(t, 2, cfg.Cache.PrefetchMonths, "unset keys keep defaults")
	assert.Equal(t, "#000000", cfg.Colors["roving"])
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source.Kind = "supabase"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Source.Kind = "postgres"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Cache.TTLSeconds = 0
	assert.Error(t, cfg.Validate())
}

func TestSaveColors_PreservesOtherSettings(t *testing.T) {
	dir := useTempConfigDir(t)
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, WriteDefault(path))

	require.NoError(t, SaveColors(map[string]string{"wedding": "#FFFFFF"}))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "#FFFFFF", cfg.Colors["wedding"])
	assert.Equal(t, 300, cfg.Cache.TTLSeconds)
	assert.Equal(t, "sqlite", cfg.Source.Kind)
}
