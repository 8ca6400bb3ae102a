package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cfg.HTTPAddress != defaultHTTPAddress {
		t.Fatalf("unexpected http address %q", cfg.HTTPAddress)
	}
	if cfg.Database.Driver != DriverSQLite || cfg.Database.Path != defaultDatabasePath {
		t.Fatalf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.AuthEnabled() {
		t.Fatalf("expected auth to be disabled without a signing secret")
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DAILYTRACK_DATABASE_DRIVER", "MySQL")
	t.Setenv("DAILYTRACK_DATABASE_DSN", "user:pass@tcp(localhost:3306)/tracks")
	t.Setenv("DAILYTRACK_AUTH_SIGNING_SECRET", "secret")
	t.Setenv("DAILYTRACK_AUTH_TOKEN_TTL", "45m")
	t.Setenv("DAILYTRACK_CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cfg.Database.Driver != DriverMySQL {
		t.Fatalf("expected mysql driver, got %q", cfg.Database.Driver)
	}
	if !cfg.AuthEnabled() {
		t.Fatalf("expected auth to be enabled")
	}
	if cfg.TokenTTL != 45*time.Minute {
		t.Fatalf("unexpected token ttl %s", cfg.TokenTTL)
	}
	if strings.Join(cfg.CORSAllowedOrigins, "|") != "https://a.example.com|https://b.example.com" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadRejectsInvalidConfiguration(t *testing.T) {
	testCases := []struct {
		name      string
		key       string
		value     any
		wantError string
	}{
		{name: "unknown-driver", key: "database.driver", value: "postgres", wantError: "not supported"},
		{name: "empty-sqlite-path", key: "database.path", value: " ", wantError: "database.path"},
		{name: "negative-pool", key: "database.max_open_conns", value: -1, wantError: "must not be negative"},
		{name: "empty-address", key: "http.address", value: "", wantError: "http.address"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			configViper := NewViper()
			configViper.Set(testCase.key, testCase.value)
			_, err := Load(configViper)
			if err == nil {
				t.Fatalf("expected error for %s", testCase.name)
			}
			if !strings.Contains(err.Error(), testCase.wantError) {
				t.Fatalf("expected error containing %q, got %v", testCase.wantError, err)
			}
		})
	}
}

func TestLoadRequiresMySQLDSN(t *testing.T) {
	configViper := NewViper()
	configViper.Set("database.driver", DriverMySQL)
	if _, err := Load(configViper); err == nil || !strings.Contains(err.Error(), "database.dsn") {
		t.Fatalf("expected dsn error, got %v", err)
	}
}
