package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Every credential and tuning knob can also be supplied through the
// environment (see [Config.ApplyEnv]); environment values win over the file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Archive     ArchiveConfig     `toml:"archive"`
	State       StateConfig       `toml:"state"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials for the refresh-token flow.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RefreshToken string `toml:"refresh_token"`
	UserID       string `toml:"user_id"`
	RedirectURI  string `toml:"redirect_uri"`
}

// Update stores the refresh token minted by an authorization flow.
func (c *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil || token.RefreshToken == "" {
		return fmt.Errorf("%w: authorization produced no refresh token", ErrAuthFailed)
	}
	c.RefreshToken = token.RefreshToken
	return nil
}

// Map converts the Spotify credentials to the map form expected by service constructors.
func (c SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"refresh_token": c.RefreshToken,
		"redirect_uri":  c.RedirectURI,
	}
}

// ArchiveConfig contains feed and rotation settings for the archiver.
type ArchiveConfig struct {
	Station           string `toml:"station"`            // XMPlaylist station identifier
	PlaylistPrefix    string `toml:"playlist_prefix"`    // display-name prefix for archive volumes
	Resolver          string `toml:"resolver"`           // "search" or "link"
	CapacityLimit     int    `toml:"capacity_limit"`     // remote hard limit per playlist
	CapacityThreshold int    `toml:"capacity_threshold"` // rotation point, strictly below the limit
	BatchSize         int    `toml:"batch_size"`         // URIs per append call (API caps at 100)
	CheckpointSize    int    `toml:"checkpoint_size"`    // buffered tracks per flush/checkpoint
	PacingMS          int    `toml:"pacing_ms"`          // delay between append calls
}

// Pacing returns the inter-call append delay as a [time.Duration].
func (c ArchiveConfig) Pacing() time.Duration {
	return time.Duration(c.PacingMS) * time.Millisecond
}

// StateConfig selects and locates the persistence backend.
type StateConfig struct {
	Backend      string `toml:"backend"` // "file" or "sqlite"
	Dir          string `toml:"dir"`
	DatabasePath string `toml:"database_path"`
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
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
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, os.ErrExist)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes the configuration back to the specified path as TOML.
func SaveConfig(path string, config *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// ApplyEnv overlays environment-supplied values onto the configuration.
func (c *Config) ApplyEnv() {
	setString(&c.Credentials.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	setString(&c.Credentials.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	setString(&c.Credentials.Spotify.RefreshToken, "SPOTIFY_REFRESH_TOKEN")
	setString(&c.Credentials.Spotify.UserID, "SPOTIFY_USER_ID")
	setString(&c.Archive.Station, "XMARC_STATION")
	setString(&c.Archive.PlaylistPrefix, "XMARC_PLAYLIST_PREFIX")
	setString(&c.Archive.Resolver, "XMARC_RESOLVER")
	setInt(&c.Archive.CapacityLimit, "XMARC_CAPACITY_LIMIT")
	setInt(&c.Archive.CapacityThreshold, "XMARC_CAPACITY_THRESHOLD")
	setInt(&c.Archive.BatchSize, "XMARC_BATCH_SIZE")
	setInt(&c.Archive.CheckpointSize, "XMARC_CHECKPOINT_SIZE")
	setInt(&c.Archive.PacingMS, "XMARC_PACING_MS")
	setString(&c.State.Backend, "XMARC_STATE_BACKEND")
	setString(&c.State.Dir, "XMARC_STATE_DIR")
	setString(&c.State.DatabasePath, "XMARC_DATABASE_PATH")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// ValidateRun checks everything an archival run needs before any network call.
func (c *Config) ValidateRun() error {
	sp := c.Credentials.Spotify
	if sp.ClientID == "" || sp.ClientSecret == "" || sp.RefreshToken == "" || sp.UserID == "" {
		return fmt.Errorf("%w: spotify client_id, client_secret, refresh_token and user_id are required", ErrMissingCredentials)
	}
	if c.Archive.Station == "" {
		return fmt.Errorf("%w: archive station is required", ErrInvalidConfig)
	}
	switch c.Archive.Resolver {
	case "search", "link":
	default:
		return fmt.Errorf("%w: resolver must be \"search\" or \"link\", got %q", ErrInvalidConfig, c.Archive.Resolver)
	}
	if c.Archive.CapacityThreshold <= 0 {
		return fmt.Errorf("%w: capacity_threshold must be positive, got %d", ErrInvalidConfig, c.Archive.CapacityThreshold)
	}
	if c.Archive.CapacityThreshold >= c.Archive.CapacityLimit {
		return fmt.Errorf("%w: capacity_threshold (%d) must be strictly below capacity_limit (%d)",
			ErrInvalidConfig, c.Archive.CapacityThreshold, c.Archive.CapacityLimit)
	}
	if c.Archive.BatchSize <= 0 || c.Archive.BatchSize > 100 {
		return fmt.Errorf("%w: batch_size must be between 1 and 100, got %d", ErrInvalidConfig, c.Archive.BatchSize)
	}
	if c.Archive.CheckpointSize <= 0 {
		return fmt.Errorf("%w: checkpoint_size must be positive, got %d", ErrInvalidConfig, c.Archive.CheckpointSize)
	}
	switch c.State.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("%w: state backend must be \"file\" or \"sqlite\", got %q", ErrInvalidConfig, c.State.Backend)
	}
	return nil
}
