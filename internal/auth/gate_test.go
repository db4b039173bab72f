package auth

import (
	"testing"

	"github.com/ashureev/sentinel-auth/internal/config"
	"golang.org/x/crypto/bcrypt"
)

func newTestGate(t *testing.T) *Gate {
	t.Helper()
	gate, err := NewGate(config.DefaultCredentials(), NewBcryptHasher(bcrypt.MinCost))
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}
	return gate
}

func TestGateAuthenticate(t *testing.T) {
	gate := newTestGate(t)

	tests := []struct {
		name     string
		username string
		password string
		want     Status
		wantName string
	}{
		{"admin", "admin", "admin123", StatusAuthenticated, "Administrator"},
		{"bhavya", "bhavya", "user123", StatusAuthenticated, "Bhavya"},
		{"wrong password", "admin", "user123", StatusRejected, ""},
		{"unknown user", "mallory", "admin123", StatusRejected, ""},
		{"username only", "admin", "", StatusRejected, ""},
		{"nothing submitted", "", "", StatusNotAttempted, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, got := gate.Authenticate(tt.username, tt.password)
			if got != tt.want {
				t.Fatalf("Authenticate() status = %v, want %v", got, tt.want)
			}
			if cred.Name != tt.wantName {
				t.Fatalf("Authenticate() name = %q, want %q", cred.Name, tt.wantName)
			}
		})
	}
}

func TestGateAcceptsPrecomputedHash(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("s3cret")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}

	gate, err := NewGate([]config.Credential{{Username: "ops", Name: "Ops", PasswordHash: hash}}, hasher)
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}
	if _, status := gate.Authenticate("ops", "s3cret"); status != StatusAuthenticated {
		t.Fatalf("expected authenticated, got %v", status)
	}
}

func TestGateNeverStoresPlaintext(t *testing.T) {
	gate := newTestGate(t)
	cred, ok := gate.Lookup("admin")
	if !ok {
		t.Fatal("expected admin record")
	}
	if cred.PasswordHash == "admin123" || cred.PasswordHash == "" {
		t.Fatalf("expected a bcrypt hash, got %q", cred.PasswordHash)
	}
}

func TestStatusString(t *testing.T) {
	if StatusRejected.String() != "rejected" {
		t.Fatalf("unexpected string %q", StatusRejected.String())
	}
}
