package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := NewTokens("test-key")

	signed, err := tokens.Issue("sess-1", "admin", "Administrator", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := tokens.Parse(signed)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if claims.SessionID() != "sess-1" || claims.Username != "admin" || claims.Name != "Administrator" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestTokensRejectExpired(t *testing.T) {
	tokens := NewTokens("test-key")
	signed, err := tokens.Issue("sess-1", "admin", "Administrator", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := tokens.Parse(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokensRejectOtherKey(t *testing.T) {
	signed, err := NewTokens("key-a").Issue("sess-1", "admin", "Administrator", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := NewTokens("key-b").Parse(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokensRejectTampered(t *testing.T) {
	tokens := NewTokens("test-key")
	signed, err := tokens.Issue("sess-1", "admin", "Administrator", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	parts := strings.Split(signed, ".")
	parts[1] = parts[1][:len(parts[1])-2] + "xy"
	if _, err := tokens.Parse(strings.Join(parts, ".")); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
