package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"shiftcal/internal/rotation"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_NormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "listen: 0.0.0.0:9000\nweek_start: friday\nteam: c\nlocale: de\nrotation:\n  weekend_policy: bogus\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "monday", cfg.WeekStart)
	assert.Equal(t, "ru", cfg.Locale)
	assert.Equal(t, "C", cfg.Team)
	assert.Equal(t, rotation.TeamC, cfg.DefaultTeam())
	assert.Equal(t, rotation.WeekendCarry, cfg.WeekendPolicy())
	assert.Equal(t, "file", cfg.Prefs.Backend)
	assert.Equal(t, defaultRefreshCron, cfg.RefreshCron)
	assert.Equal(t, 1200, cfg.Snapshot.Width)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EmptyPath(t *testing.T) {
	_, err := Load("")
	assert.EqualError(t, err, "config path is empty")
}

func TestSave_RoundTripKeepsPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Rotation.WeekendPolicy = "sunday"
	cfg.BasicAuth = &BasicAuthConfig{Username: "ops", Password: "secret"}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, rotation.WeekendSunday, loaded.WeekendPolicy())
	require.NotNil(t, loaded.BasicAuth)
	assert.Equal(t, "ops", loaded.BasicAuth.Username)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should not be left behind")
}

func TestSave_NilConfig(t *testing.T) {
	assert.EqualError(t, Save(filepath.Join(t.TempDir(), "c.yaml"), nil), "config is nil")
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Save(path, DefaultConfig()))

	ctx, cancel := context.WithCancel(context.Background())
	reloaded := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { reloaded <- c })
	}()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)

	updated := DefaultConfig()
	updated.Team = "D"
	require.NoError(t, Save(path, updated))

	select {
	case c := <-reloaded:
		assert.Equal(t, "D", c.Team)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	require.NoError(t, <-done)
}
