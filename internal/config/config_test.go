package config

import (
	"strings"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cfg.HTTPAddress != defaultHTTPAddress {
		t.Fatalf("unexpected http address %q", cfg.HTTPAddress)
	}
	if cfg.DatabasePath != defaultDatabasePath {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath)
	}
	if cfg.AuthEnabled() {
		t.Fatalf("expected auth to be disabled without a signing secret")
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("unexpected allowed origins %v", cfg.AllowedOrigins)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PRM_DATABASE_PATH", "/var/lib/prm/review.db")
	t.Setenv("PRM_AUTH_SIGNING_SECRET", "shared-secret")
	t.Setenv("PRM_CORS_ALLOWED_ORIGINS", "https://admin.example.com, https://ops.example.com")

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cfg.DatabasePath != "/var/lib/prm/review.db" {
		t.Fatalf("unexpected database path %q", cfg.DatabasePath)
	}
	if !cfg.AuthEnabled() {
		t.Fatalf("expected auth to be enabled")
	}
	if cfg.AuthCookieName != defaultCookieName {
		t.Fatalf("unexpected cookie name %q", cfg.AuthCookieName)
	}
	if strings.Join(cfg.AllowedOrigins, "|") != "https://admin.example.com|https://ops.example.com" {
		t.Fatalf("unexpected allowed origins %v", cfg.AllowedOrigins)
	}
}

func TestLoadRejectsInvalidConfiguration(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{name: "empty-database-path", key: "database.path", value: " ", want: "database.path"},
		{name: "empty-address", key: "http.address", value: "", want: "http.address"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			configViper := NewViper()
			configViper.Set(testCase.key, testCase.value)
			_, err := Load(configViper)
			if err == nil || !strings.Contains(err.Error(), testCase.want) {
				t.Fatalf("expected error mentioning %s, got %v", testCase.want, err)
			}
		})
	}

	configViper := NewViper()
	configViper.Set("auth.signing_secret", "secret")
	configViper.Set("auth.cookie_name", "")
	if _, err := Load(configViper); err == nil {
		t.Fatalf("expected cookie name error when auth is enabled")
	}
}
