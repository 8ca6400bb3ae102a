package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                = "DAILYTRACK"
	defaultHTTPAddress       = "0.0.0.0:3000"
	defaultDatabaseDriver    = DriverSQLite
	defaultDatabasePath      = "dailytrack.db"
	defaultMaxOpenConns      = 10
	defaultMaxIdleConns      = 5
	defaultConnMaxLifetime   = 30 * time.Minute
	defaultLogLevel          = "info"
	defaultTokenTTL          = 12 * time.Hour
	defaultCORSAllowedOrigin = "*"
)

const (
	// DriverSQLite selects the embedded sqlite store.
	DriverSQLite = "sqlite"
	// DriverMySQL selects a MySQL server reachable through database.dsn.
	DriverMySQL = "mysql"
)

// DatabaseConfig describes the relational store backing topics and daily tracks.
type DatabaseConfig struct {
	Driver          string
	Path            string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress        string
	Database           DatabaseConfig
	LogLevel           string
	LogFile            string
	SigningSecret      string
	TokenTTL           time.Duration
	CORSAllowedOrigins []string
}

// AuthEnabled reports whether API routes require a bearer token.
func (c AppConfig) AuthEnabled() bool {
	return strings.TrimSpace(c.SigningSecret) != ""
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.driver", defaultDatabaseDriver)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("database.dsn", "")
	configViper.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	configViper.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	configViper.SetDefault("database.conn_max_lifetime", defaultConnMaxLifetime)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.file", "")
	configViper.SetDefault("auth.signing_secret", "")
	configViper.SetDefault("auth.token_ttl", defaultTokenTTL)
	configViper.SetDefault("cors.allowed_origins", []string{defaultCORSAllowedOrigin})
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress: configViper.GetString("http.address"),
		Database: DatabaseConfig{
			Driver:          strings.ToLower(strings.TrimSpace(configViper.GetString("database.driver"))),
			Path:            configViper.GetString("database.path"),
			DSN:             configViper.GetString("database.dsn"),
			MaxOpenConns:    configViper.GetInt("database.max_open_conns"),
			MaxIdleConns:    configViper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: configViper.GetDuration("database.conn_max_lifetime"),
		},
		LogLevel:           configViper.GetString("log.level"),
		LogFile:            configViper.GetString("log.file"),
		SigningSecret:      configViper.GetString("auth.signing_secret"),
		TokenTTL:           configViper.GetDuration("auth.token_ttl"),
		CORSAllowedOrigins: splitOrigins(configViper.GetStringSlice("cors.allowed_origins")),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return fmt.Errorf("database.path is required for the %s driver", DriverSQLite)
		}
	case DriverMySQL:
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required for the %s driver", DriverMySQL)
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database connection limits must not be negative")
	}
	if c.AuthEnabled() && c.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	if len(c.CORSAllowedOrigins) == 0 {
		return fmt.Errorf("cors.allowed_origins must list at least one origin")
	}
	return nil
}

// splitOrigins accepts both list values and a single comma separated env value.
func splitOrigins(values []string) []string {
	origins := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}
	return origins
}
