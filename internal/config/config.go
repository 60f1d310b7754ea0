package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"shiftcal/internal/rotation"
)

// NOTE: Load creates a default config on first run; Save always writes
// atomically with 0600 permissions.

// RotationConfig tunes the parts of the rotation that are a policy choice.
// The patterns and reference date themselves are fixed.
type RotationConfig struct {
	// WeekendPolicy is one of "carry" (default), "sunday" or "off".
	WeekendPolicy string `yaml:"weekend_policy" json:"weekend_policy"`
}

// PrefsConfig selects where the chosen team is remembered.
type PrefsConfig struct {
	// Backend is "file" (YAML, default) or "sqlite".
	Backend string `yaml:"backend" json:"backend"`
	// Path of the preference file or database.
	Path string `yaml:"path" json:"path"`
}

// SnapshotConfig controls the periodic PNG capture of /calendar.
type SnapshotConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Width   int    `yaml:"width" json:"width"`
	Height  int    `yaml:"height" json:"height"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used to decide what "today" is.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart controls which weekday is treated as the first day of the week
	// in calendar views. Supported values:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// Locale picks label language: "ru" (default) or "en".
	Locale string `yaml:"locale" json:"locale"`

	// RefreshCron is a cron-style schedule string (e.g. "0 0 * * *") for
	// the cache refresh / snapshot job.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// Team is used when no preference has been stored yet.
	Team string `yaml:"team" json:"team"`

	Rotation RotationConfig `yaml:"rotation" json:"rotation"`
	Prefs    PrefsConfig    `yaml:"prefs" json:"prefs"`
	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen       = "127.0.0.1:8080"
	defaultTimezone     = "Europe/Moscow"
	defaultRefreshCron  = "0 0 * * *"
	defaultPrefsPath    = "/var/lib/shiftcal/prefs.yaml"
	defaultSnapshotPath = "/var/lib/shiftcal/preview.png"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		Timezone:    defaultTimezone,
		WeekStart:   "monday",
		Locale:      "ru",
		RefreshCron: defaultRefreshCron,
		Team:        string(rotation.DefaultTeam),
		Rotation:    RotationConfig{WeekendPolicy: string(rotation.DefaultWeekendPolicy)},
		Prefs:       PrefsConfig{Backend: "file", Path: defaultPrefsPath},
		Snapshot: SnapshotConfig{
			Enabled: false,
			Path:    defaultSnapshotPath,
			Width:   1200,
			Height:  1600,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = "monday"
	}
	switch c.Locale {
	case "ru", "en":
	default:
		c.Locale = "ru"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if t, err := rotation.ParseTeam(c.Team); err != nil {
		c.Team = string(rotation.DefaultTeam)
	} else {
		c.Team = string(t)
	}
	if _, err := rotation.ParseWeekendPolicy(c.Rotation.WeekendPolicy); err != nil || c.Rotation.WeekendPolicy == "" {
		c.Rotation.WeekendPolicy = string(rotation.DefaultWeekendPolicy)
	}
	switch c.Prefs.Backend {
	case "file", "sqlite":
	default:
		c.Prefs.Backend = "file"
	}
	if c.Prefs.Path == "" {
		c.Prefs.Path = defaultPrefsPath
	}
	if c.Snapshot.Path == "" {
		c.Snapshot.Path = defaultSnapshotPath
	}
	if c.Snapshot.Width <= 0 {
		c.Snapshot.Width = 1200
	}
	if c.Snapshot.Height <= 0 {
		c.Snapshot.Height = 1600
	}
}

// DefaultTeam returns the configured fallback team.
func (c *Config) DefaultTeam() rotation.Team {
	t, err := rotation.ParseTeam(c.Team)
	if err != nil {
		return rotation.DefaultTeam
	}
	return t
}

// WeekendPolicy returns the configured weekend policy.
func (c *Config) WeekendPolicy() rotation.WeekendPolicy {
	p, err := rotation.ParseWeekendPolicy(c.Rotation.WeekendPolicy)
	if err != nil {
		return rotation.DefaultWeekendPolicy
	}
	return p
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data, ".shiftcal-config-*.tmp")
}

// WriteFileAtomic writes data next to path under a temporary name, fsyncs,
// chmods to 0600 and renames it over path. The parent directory is created
// with 0700 if needed.
func WriteFileAtomic(path string, data []byte, pattern string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
