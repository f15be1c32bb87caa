package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

const (
	DemoEmail    = "admin@grocerymanager.com"
	DemoPassword = "admin123"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type account struct {
	hash string
	user User
}

// MockAuthenticator checks credentials against an in-memory account list
// and issues signed session tokens. It stands in for a real identity
// provider.
type MockAuthenticator struct {
	tokens *TokenService

	mu       sync.RWMutex
	accounts map[string]account
	revoked  map[string]struct{}
}

// NewMockAuthenticator creates an authenticator seeded with the demo
// admin account.
func NewMockAuthenticator(tokens *TokenService) (*MockAuthenticator, error) {
	a := &MockAuthenticator{
		tokens:   tokens,
		accounts: make(map[string]account),
		revoked:  make(map[string]struct{}),
	}
	err := a.AddAccount(DemoPassword, User{
		ID:    "user_001",
		Email: DemoEmail,
		Name:  "Admin User",
		Role:  RoleAdmin,
		Permissions: []string{
			"orders:read", "orders:write",
			"inventory:read", "inventory:write",
			"deliveries:read", "deliveries:write",
			"customers:read",
		},
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// AddAccount registers a user. Passwords are stored as bcrypt hashes and
// must satisfy the length policy.
func (a *MockAuthenticator) AddAccount(password string, user User) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accounts[strings.ToLower(user.Email)] = account{hash: hash, user: user}
	return nil
}

func (a *MockAuthenticator) Login(_ context.Context, creds Credentials) (Session, error) {
	if err := creds.Validate(); err != nil {
		return Session{}, err
	}

	a.mu.RLock()
	acct, ok := a.accounts[strings.ToLower(strings.TrimSpace(creds.Email))]
	a.mu.RUnlock()
	if !ok || !CheckPassword(creds.Password, acct.hash) {
		return Session{}, ErrInvalidCredentials
	}

	token, expiresAt, err := a.tokens.Issue(acct.user)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expiresAt, User: acct.user}, nil
}

// Logout revokes token. Unknown or invalid tokens are ignored.
func (a *MockAuthenticator) Logout(_ context.Context, token string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.revoked[token] = struct{}{}
	return nil
}

// Authenticate validates a bearer token and rejects revoked ones.
func (a *MockAuthenticator) Authenticate(token string) (*Claims, error) {
	a.mu.RLock()
	_, revoked := a.revoked[token]
	a.mu.RUnlock()
	if revoked {
		return nil, ErrInvalidToken
	}
	return a.tokens.Validate(token)
}
