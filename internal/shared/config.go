package shared

import (
	"bytes"
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
	Blend       BlendConfig       `toml:"blend"`
	Spotify     SpotifyAPIConfig  `toml:"spotify"`
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

// Map returns the credentials in the form accepted by services.NewSpotifyService.
func (c SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"redirect_uri":  c.RedirectURI,
	}
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local OAuth callback server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// BlendConfig contains session defaults and the accepted playlist length range.
type BlendConfig struct {
	DefaultRatio    float64 `toml:"default_ratio"`
	DefaultWindow   string  `toml:"default_window"`
	DefaultLength   int     `toml:"default_length"`
	MinLength       int     `toml:"min_length"`
	MaxLength       int     `toml:"max_length"`
	SessionTTLHours int     `toml:"session_ttl_hours"`
}

// SessionTTL returns how long a new session stays joinable.
func (b BlendConfig) SessionTTL() time.Duration {
	return time.Duration(b.SessionTTLHours) * time.Hour
}

// SpotifyAPIConfig tunes the Spotify HTTP client.
type SpotifyAPIConfig struct {
	BaseURL                  string  `toml:"base_url"`
	RequestsPerSecond        float64 `toml:"requests_per_second"`
	Burst                    int     `toml:"burst"`
	TimeoutSeconds           int     `toml:"timeout_seconds"`
	BreakerFailures          int     `toml:"breaker_failures"`
	BreakerTimeoutSeconds    int     `toml:"breaker_timeout_seconds"`
	DefaultRetryAfterSeconds int     `toml:"default_retry_after_seconds"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
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

// Validate checks the blend and client settings for values the service cannot work with.
func (c *Config) Validate() error {
	b := c.Blend
	switch {
	case b.DefaultRatio < 0.3 || b.DefaultRatio > 0.7:
		return fmt.Errorf("%w: blend.default_ratio must be within [0.3, 0.7], got %v", ErrInvalidConfig, b.DefaultRatio)
	case b.MinLength <= 0 || b.MaxLength < b.MinLength:
		return fmt.Errorf("%w: blend length range [%d, %d] is empty", ErrInvalidConfig, b.MinLength, b.MaxLength)
	case b.DefaultLength < b.MinLength || b.DefaultLength > b.MaxLength:
		return fmt.Errorf("%w: blend.default_length %d outside [%d, %d]", ErrInvalidConfig, b.DefaultLength, b.MinLength, b.MaxLength)
	case b.SessionTTLHours <= 0:
		return fmt.Errorf("%w: blend.session_ttl_hours must be positive", ErrInvalidConfig)
	case c.Spotify.RequestsPerSecond <= 0:
		return fmt.Errorf("%w: spotify.requests_per_second must be positive", ErrInvalidConfig)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
