package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	// AdminPassword bootstraps the admin account on first start.
	AdminPassword string `mapstructure:"admin_password"`
}

// ProvidersConfig holds credentials for the external list and metadata APIs.
type ProvidersConfig struct {
	TraktClientID string `mapstructure:"trakt_client_id"`
	MDBListAPIKey string `mapstructure:"mdblist_api_key"`
	TMDBAPIKey    string `mapstructure:"tmdb_api_key"`
}

// JobsConfig holds scheduled job tuning.
type JobsConfig struct {
	// RefreshTickMinutes is how often due collections are checked.
	RefreshTickMinutes int `mapstructure:"refresh_tick_minutes"`
	// SyncLogRetentionDays is how long sync history is kept.
	SyncLogRetentionDays int `mapstructure:"synclog_retention_days"`
	// ServerTimeoutSeconds bounds one per-server Emby sync attempt.
	ServerTimeoutSeconds int `mapstructure:"server_timeout_seconds"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8585,
		},
		Database: DatabaseConfig{
			Path: "./data/collectarr.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Jobs: JobsConfig{
			RefreshTickMinutes:   15,
			SyncLogRetentionDays: 30,
			ServerTimeoutSeconds: 30,
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.collectarr")
	}

	v.SetEnvPrefix("COLLECTARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Providers.TMDBAPIKey == "" {
		cfg.Providers.TMDBAPIKey = EmbeddedTMDBKey
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8585)

	v.SetDefault("database.path", "./data/collectarr.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.admin_password", "")

	v.SetDefault("providers.trakt_client_id", "")
	v.SetDefault("providers.mdblist_api_key", "")
	v.SetDefault("providers.tmdb_api_key", "")

	v.SetDefault("jobs.refresh_tick_minutes", 15)
	v.SetDefault("jobs.synclog_retention_days", 30)
	v.SetDefault("jobs.server_timeout_seconds", 30)
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
