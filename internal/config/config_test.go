package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SECRETS_FILE", filepath.Join(dir, "missing.toml"))
	t.Setenv("CREDENTIALS_FILE", "")
	t.Setenv(APIKeyName, "")
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadDefaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %q", cfg.Port)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("expected 24h session ttl, got %v", cfg.SessionTTL)
	}
	if cfg.Cookie.Name != "threat_app" {
		t.Errorf("expected cookie name threat_app, got %q", cfg.Cookie.Name)
	}
	if cfg.Cookie.Key == "" {
		t.Error("expected a generated cookie key")
	}
	if len(cfg.Credentials) != 2 {
		t.Fatalf("expected 2 default credentials, got %d", len(cfg.Credentials))
	}
	if cfg.Lookup.Sentences != 2 || cfg.Lookup.MaxOptions != 5 {
		t.Errorf("unexpected lookup defaults: %+v", cfg.Lookup)
	}
	if !errors.Is(cfg.SafeBrowsing.Validate(), ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey without a configured key")
	}
}

func TestLoadAPIKeyFromSecretsFile(t *testing.T) {
	dir := isolateEnv(t)
	path := filepath.Join(dir, "secrets.toml")
	writeFile(t, path, `GOOGLE_SAFE_BROWSING_API_KEY = "from-file"`+"\n")
	t.Setenv("SECRETS_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.SafeBrowsing.APIKey != "from-file" {
		t.Fatalf("expected key from secrets file, got %q", cfg.SafeBrowsing.APIKey)
	}
	if err := cfg.SafeBrowsing.Validate(); err != nil {
		t.Fatalf("expected valid safe browsing config, got %v", err)
	}
}

func TestEnvironmentOverridesSecretsFile(t *testing.T) {
	dir := isolateEnv(t)
	path := filepath.Join(dir, "secrets.toml")
	writeFile(t, path, `GOOGLE_SAFE_BROWSING_API_KEY = "from-file"`+"\n")
	t.Setenv("SECRETS_FILE", path)
	t.Setenv(APIKeyName, "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.SafeBrowsing.APIKey != "from-env" {
		t.Fatalf("expected key from env, got %q", cfg.SafeBrowsing.APIKey)
	}
}

func TestLoadCredentialsFile(t *testing.T) {
	dir := isolateEnv(t)
	path := filepath.Join(dir, "credentials.yaml")
	writeFile(t, path, `credentials:
  - username: alice
    name: Alice
    password: wonderland
  - username: bob
    name: Bob
    password_hash: "$2a$10$abcdefghijklmnopqrstuu"
`)
	t.Setenv("CREDENTIALS_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Credentials) != 2 {
		t.Fatalf("expected 2 credentials, got %d", len(cfg.Credentials))
	}
	if cfg.Credentials[0].Username != "alice" || cfg.Credentials[0].Password != "wonderland" {
		t.Errorf("unexpected first credential: %+v", cfg.Credentials[0])
	}
	if cfg.Credentials[1].PasswordHash == "" {
		t.Errorf("expected password hash on second credential")
	}
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds []Credential
		ok    bool
	}{
		{"defaults", DefaultCredentials(), true},
		{"empty", nil, false},
		{"blank username", []Credential{{Password: "x"}}, false},
		{"duplicate", []Credential{{Username: "a", Password: "x"}, {Username: "a", Password: "y"}}, false},
		{"no secret", []Credential{{Username: "a"}}, false},
		{"both secrets", []Credential{{Username: "a", Password: "x", PasswordHash: "y"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCredentials(tt.creds)
			if (err == nil) != tt.ok {
				t.Fatalf("validateCredentials() error = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestGetEnvDurationFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SESSION_TTL", "soon")
	if got := getEnvDuration("SESSION_TTL", time.Hour); got != time.Hour {
		t.Fatalf("expected fallback, got %v", got)
	}
}
