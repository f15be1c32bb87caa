package mocks

import (
	"context"
	"sync"

	"github.com/example/grocery-sync/internal/auth"
)

// MockAuthenticator is a mock implementation of session.Authenticator
type MockAuthenticator struct {
	mu sync.Mutex

	Session   auth.Session
	LoginErr  error
	LogoutErr error

	// Release, when set, holds Login until it is closed
	Release chan struct{}
	Started chan struct{}

	// For tracking calls in tests
	LoginCalls  []auth.Credentials
	LogoutCalls []string
}

func (m *MockAuthenticator) Login(ctx context.Context, creds auth.Credentials) (auth.Session, error) {
	m.mu.Lock()
	m.LoginCalls = append(m.LoginCalls, creds)
	release, started := m.Release, m.Started
	m.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return auth.Session{}, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Session, m.LoginErr
}

func (m *MockAuthenticator) Logout(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LogoutCalls = append(m.LogoutCalls, token)
	return m.LogoutErr
}

func (m *MockAuthenticator) LoginCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.LoginCalls)
}

func (m *MockAuthenticator) LoggedOut() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.LogoutCalls...)
}

// MockBridge is a mock implementation of session.Bridge
type MockBridge struct {
	mu         sync.Mutex
	connected  bool
	ConnectErr error

	// OnDisconnect runs at the start of Disconnect
	OnDisconnect func()

	// For tracking calls in tests
	ConnectCalls    []string
	DisconnectCalls int
}

func (m *MockBridge) Connect(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConnectCalls = append(m.ConnectCalls, token)
	if m.ConnectErr != nil {
		return m.ConnectErr
	}
	m.connected = true
	return nil
}

func (m *MockBridge) Disconnect() {
	if m.OnDisconnect != nil {
		m.OnDisconnect()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DisconnectCalls++
	m.connected = false
}

func (m *MockBridge) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockBridge) Connects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ConnectCalls...)
}
