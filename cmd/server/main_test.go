package main

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/ashureev/sentinel-auth/internal/config"
)

func TestAllowedOrigins(t *testing.T) {
	tests := []struct {
		frontend string
		want     []string
	}{
		{"", []string{"*"}},
		{"/dashboard", []string{"*"}},
		{"https://sentinel.example/", []string{"https://sentinel.example"}},
		{"http://localhost:5173", []string{"http://localhost:5173"}},
	}
	for _, tt := range tests {
		if got := allowedOrigins(tt.frontend); !slices.Equal(got, tt.want) {
			t.Errorf("allowedOrigins(%q) = %v, want %v", tt.frontend, got, tt.want)
		}
	}
}

func TestSecurityUnavailable(t *testing.T) {
	cfg := &config.Config{SecretsPath: ".streamlit/secrets.toml"}

	msg := securityUnavailable(cfg, config.ErrMissingAPIKey)
	if !strings.Contains(msg, "not found in secrets") || !strings.Contains(msg, cfg.SecretsPath) {
		t.Fatalf("unexpected message %q", msg)
	}

	msg = securityUnavailable(cfg, errors.New("bad endpoint"))
	if !strings.Contains(msg, "bad endpoint") {
		t.Fatalf("unexpected message %q", msg)
	}
}
