package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Secrets resolves secret values from the process environment first and
// the secrets file second.
type Secrets struct {
	file *viper.Viper
}

// LoadSecrets reads the secrets file at path. A missing file is not an
// error: lookups then fall back to the environment only.
func LoadSecrets(path string) (*Secrets, error) {
	s := &Secrets{}
	if path == "" {
		return s, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read secrets file %s: %w", path, err)
	}
	s.file = v
	return s, nil
}

// Get returns the secret value for name, or "" when it is set nowhere.
func (s *Secrets) Get(name string) string {
	if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	if s == nil || s.file == nil {
		return ""
	}
	return strings.TrimSpace(s.file.GetString(name))
}

// Credential is one configured login record. Exactly one of Password and
// PasswordHash is set; plaintext passwords are hashed at startup.
type Credential struct {
	Username     string `mapstructure:"username"`
	Name         string `mapstructure:"name"`
	Password     string `mapstructure:"password"`
	PasswordHash string `mapstructure:"password_hash"`
}

// DefaultCredentials returns the built-in credential table.
func DefaultCredentials() []Credential {
	return []Credential{
		{Username: "admin", Name: "Administrator", Password: "admin123"},
		{Username: "bhavya", Name: "Bhavya", Password: "user123"},
	}
}

// LoadCredentials reads the "credentials" list from a YAML, JSON or TOML file.
func LoadCredentials(path string) ([]Credential, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read credentials file %s: %w", path, err)
	}

	var creds []Credential
	if err := v.UnmarshalKey("credentials", &creds); err != nil {
		return nil, fmt.Errorf("decode credentials file %s: %w", path, err)
	}
	if len(creds) == 0 {
		return nil, fmt.Errorf("credentials file %s defines no credentials", path)
	}
	return creds, nil
}

func validateCredentials(creds []Credential) error {
	if len(creds) == 0 {
		return fmt.Errorf("at least one credential is required")
	}
	seen := make(map[string]struct{}, len(creds))
	for i, c := range creds {
		if strings.TrimSpace(c.Username) == "" {
			return fmt.Errorf("credential %d: username cannot be empty", i)
		}
		if _, dup := seen[c.Username]; dup {
			return fmt.Errorf("credential %q: duplicate username", c.Username)
		}
		seen[c.Username] = struct{}{}
		if (c.Password == "") == (c.PasswordHash == "") {
			return fmt.Errorf("credential %q: set exactly one of password and password_hash", c.Username)
		}
	}
	return nil
}
