package auth

import (
	"fmt"
	"log/slog"

	"github.com/ashureev/sentinel-auth/internal/config"
	"github.com/ashureev/sentinel-auth/internal/domain"
)

// Status is the outcome of a login attempt.
type Status int

const (
	// StatusNotAttempted means no credentials were submitted.
	StatusNotAttempted Status = iota
	// StatusRejected means the username or password was wrong.
	StatusRejected
	// StatusAuthenticated means the credentials matched a record.
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusRejected:
		return "rejected"
	default:
		return "not_attempted"
	}
}

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hashedPassword, password string) bool
}

// Gate authenticates users against the credential table loaded at startup.
type Gate struct {
	hasher      Hasher
	credentials map[string]domain.Credential
	dummyHash   string
}

// NewGate hashes every plaintext password once and builds the lookup table.
func NewGate(records []config.Credential, hasher Hasher) (*Gate, error) {
	g := &Gate{
		hasher:      hasher,
		credentials: make(map[string]domain.Credential, len(records)),
	}

	for _, rec := range records {
		hash := rec.PasswordHash
		if hash == "" {
			var err error
			hash, err = hasher.Hash(rec.Password)
			if err != nil {
				return nil, fmt.Errorf("hash password for %q: %w", rec.Username, err)
			}
		}
		g.credentials[rec.Username] = domain.Credential{
			Username:     rec.Username,
			Name:         rec.Name,
			PasswordHash: hash,
		}
	}

	// Unknown usernames are compared against this so both paths cost one bcrypt check.
	dummy, err := hasher.Hash("sentinel-auth-unknown-user")
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}
	g.dummyHash = dummy

	slog.Info("Credential table loaded", "count", len(g.credentials))
	return g, nil
}

// Authenticate checks username and password.
func (g *Gate) Authenticate(username, password string) (domain.Credential, Status) {
	if username == "" && password == "" {
		return domain.Credential{}, StatusNotAttempted
	}

	cred, ok := g.credentials[username]
	if !ok {
		g.hasher.Compare(g.dummyHash, password)
		return domain.Credential{}, StatusRejected
	}
	if !g.hasher.Compare(cred.PasswordHash, password) {
		return domain.Credential{}, StatusRejected
	}
	return cred, StatusAuthenticated
}

// Lookup returns the credential record for username.
func (g *Gate) Lookup(username string) (domain.Credential, bool) {
	cred, ok := g.credentials[username]
	return cred, ok
}
