package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Scheduler   SchedulerConfig   `toml:"scheduler"`
	Sync        SyncConfig        `toml:"sync"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	AdminToken string `toml:"admin_token"`
}

// SchedulerConfig controls when fleet runs fire and how gating behaves.
//
// Cron holds a standard five-field cron expression evaluated in Timezone.
// MinIntervalHours is the recency window that suppresses automatic runs;
// MissedRunHours is the threshold past which a run is considered missed at startup.
type SchedulerConfig struct {
	Cron             string `toml:"cron"`
	Timezone         string `toml:"timezone"`
	MinIntervalHours int    `toml:"min_interval_hours"`
	MissedRunHours   int    `toml:"missed_run_hours"`
}

// MinInterval returns the automatic-run suppression window.
func (s SchedulerConfig) MinInterval() time.Duration {
	return time.Duration(s.MinIntervalHours) * time.Hour
}

// MissedRunAfter returns the elapsed time past which a startup run is triggered.
func (s SchedulerConfig) MissedRunAfter() time.Duration {
	return time.Duration(s.MissedRunHours) * time.Hour
}

// Location resolves the configured timezone, defaulting to the host's local zone.
func (s SchedulerConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// SyncConfig bounds the per-run upstream traffic.
type SyncConfig struct {
	ArtistLimit  int     `toml:"artist_limit"`  // Max releases fetched per artist
	NumWorkers   int     `toml:"num_workers"`   // Concurrent upstream fetches
	RateLimit    float64 `toml:"rate_limit"`    // Requests per second
	PlaylistName string  `toml:"playlist_name"` // Name for playlists created on first sync
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Parsing starts from the embedded defaults, so sections or keys absent from
// the file keep their default values. A sparse config cannot end up with an
// empty cron expression or a zero recency window.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
