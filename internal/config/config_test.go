package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":6000"
storage:
  driver: sqlite
  path: /tmp/worlds.db
world:
  width: 50
  height: 40
  seed: 7
autosave: 30s
moderators: [1, 2]
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":6000", cfg.Listen)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, World{Width: 50, Height: 40, Seed: 7}, cfg.World)
	assert.Equal(t, 30*time.Second, cfg.Autosave)
	assert.Equal(t, []int32{1, 2}, cfg.Moderators)
	assert.Equal(t, 50*time.Millisecond, cfg.Tick, "не заданное остается по умолчанию")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("TILE_LISTEN", ":7000")
	t.Setenv("TILE_WORLD_SEED", "99")
	t.Setenv("TILE_AUTOSAVE", "1m")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Listen)
	assert.Equal(t, int64(99), cfg.World.Seed)
	assert.Equal(t, time.Minute, cfg.Autosave)

	t.Setenv("TILE_WORLD_SEED", "abc")
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("TILE_STORAGE_DRIVER=sqlite\nTILE_STORAGE_PATH=x.db\n"), 0o644))
	t.Setenv("TILE_STORAGE_DRIVER", "")
	t.Setenv("TILE_STORAGE_PATH", "")
	os.Unsetenv("TILE_STORAGE_DRIVER")
	os.Unsetenv("TILE_STORAGE_PATH")

	require.NoError(t, LoadEnv(env, filepath.Join(dir, "missing.env")))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Storage{Driver: DriverSQLite, Path: "x.db"}, cfg.Storage)
}

func TestValidate(t *testing.T) {
	bad := []func(c *Config){
		func(c *Config) { c.Storage.Driver = "mongo" },
		func(c *Config) { c.Storage.Path = "" },
		func(c *Config) { c.Listen = "" },
		func(c *Config) { c.Tick = 0 },
		func(c *Config) { c.World.Width = 0 },
	}
	for i, mutate := range bad {
		cfg := Defaults()
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), "случай %d", i)
	}
	assert.NoError(t, Defaults().Validate())
}

func TestLogger(t *testing.T) {
	cfg := Defaults()
	log, err := cfg.Logger()
	require.NoError(t, err)
	assert.NotNil(t, log)

	cfg.LogLevel = "loud"
	_, err = cfg.Logger()
	assert.Error(t, err)
}
