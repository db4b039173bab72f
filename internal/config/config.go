// Package config provides application configuration.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingAPIKey is returned when the Safe Browsing API key is absent
// from both the environment and the secrets file.
var ErrMissingAPIKey = errors.New("GOOGLE_SAFE_BROWSING_API_KEY not found in secrets")

// APIKeyName is the secret holding the Safe Browsing API key.
const APIKeyName = "GOOGLE_SAFE_BROWSING_API_KEY"

// Config holds all application configuration.
type Config struct {
	Port               string
	GRPCPort           string // empty disables the gRPC health server
	FrontendURL        string
	DBPath             string
	SessionTTL         time.Duration
	SessionReapEvery   time.Duration
	Cookie             CookieConfig
	SecretsPath        string
	CredentialsPath    string
	Credentials        []Credential
	Lookup             LookupConfig
	SafeBrowsing       SafeBrowsingConfig
	MaxRequestBodySize int64
}

// CookieConfig controls the signed session cookie.
type CookieConfig struct {
	Name string
	Key  string
}

// LookupConfig controls the encyclopedia client.
type LookupConfig struct {
	Endpoint   string
	UserAgent  string
	Sentences  int
	MaxOptions int
	Timeout    time.Duration
}

// SafeBrowsingConfig controls the threat API client.
type SafeBrowsingConfig struct {
	Endpoint      string
	APIKey        string
	ClientID      string
	ClientVersion string
	Timeout       time.Duration
}

// Validate reports ErrMissingAPIKey when no key was configured. It is
// checked separately from Config.Validate so that only the Security Tools
// section is affected.
func (c SafeBrowsingConfig) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// Load reads configuration from environment variables, the secrets file
// and the optional credentials file.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		GRPCPort:         getEnv("GRPC_PORT", ""),
		FrontendURL:      getEnv("FRONTEND_URL", ""),
		DBPath:           getEnv("DB_PATH", "./data/sentinel.db"),
		SessionTTL:       getEnvDuration("SESSION_TTL", 24*time.Hour),
		SessionReapEvery: getEnvDuration("SESSION_REAP_INTERVAL", 5*time.Minute),
		Cookie: CookieConfig{
			Name: getEnv("COOKIE_NAME", "threat_app"),
			Key:  getEnv("COOKIE_KEY", ""),
		},
		SecretsPath:     getEnv("SECRETS_FILE", ".streamlit/secrets.toml"),
		CredentialsPath: getEnv("CREDENTIALS_FILE", ""),
		Lookup: LookupConfig{
			Endpoint:   getEnv("WIKI_API_URL", "https://en.wikipedia.org/w/api.php"),
			UserAgent:  getEnv("WIKI_USER_AGENT", "sentinel-auth/1.0 (+https://github.com/ashureev/sentinel-auth)"),
			Sentences:  getEnvInt("WIKI_SUMMARY_SENTENCES", 2),
			MaxOptions: getEnvInt("WIKI_MAX_OPTIONS", 5),
			Timeout:    getEnvDuration("WIKI_TIMEOUT", 10*time.Second),
		},
		SafeBrowsing: SafeBrowsingConfig{
			Endpoint:      getEnv("SAFE_BROWSING_URL", "https://safebrowsing.googleapis.com/v4/threatMatches:find"),
			ClientID:      "sentinel-auth",
			ClientVersion: "1.0",
			Timeout:       getEnvDuration("SAFE_BROWSING_TIMEOUT", 10*time.Second),
		},
		MaxRequestBodySize: 1 << 20,
	}

	secrets, err := LoadSecrets(cfg.SecretsPath)
	if err != nil {
		return nil, err
	}
	cfg.SafeBrowsing.APIKey = secrets.Get(APIKeyName)

	if cfg.CredentialsPath != "" {
		creds, err := LoadCredentials(cfg.CredentialsPath)
		if err != nil {
			return nil, err
		}
		cfg.Credentials = creds
	} else {
		cfg.Credentials = DefaultCredentials()
	}

	if cfg.Cookie.Key == "" {
		key, err := randomKey()
		if err != nil {
			return nil, err
		}
		cfg.Cookie.Key = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.SessionReapEvery <= 0 {
		return fmt.Errorf("SESSION_REAP_INTERVAL must be > 0")
	}
	if c.Cookie.Name == "" {
		return fmt.Errorf("COOKIE_NAME cannot be empty")
	}
	if c.Cookie.Key == "" {
		return fmt.Errorf("COOKIE_KEY cannot be empty")
	}
	if c.Lookup.Endpoint == "" {
		return fmt.Errorf("WIKI_API_URL cannot be empty")
	}
	if c.Lookup.Sentences <= 0 {
		return fmt.Errorf("WIKI_SUMMARY_SENTENCES must be > 0")
	}
	if c.Lookup.MaxOptions <= 0 {
		return fmt.Errorf("WIKI_MAX_OPTIONS must be > 0")
	}
	if c.SafeBrowsing.Endpoint == "" {
		return fmt.Errorf("SAFE_BROWSING_URL cannot be empty")
	}
	return validateCredentials(c.Credentials)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env == "development"
	}
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func randomKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate cookie key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
