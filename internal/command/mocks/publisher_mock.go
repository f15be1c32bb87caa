package mocks

import (
	"context"
	"sync"

	"github.com/example/grocery-sync/internal/realtime"
)

// MockPublisher is a mock implementation of command.Publisher for testing
type MockPublisher struct {
	mu  sync.Mutex
	Err error

	// For tracking calls in tests
	Published []realtime.Envelope
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishEvent(_ context.Context, env realtime.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, env)
	return m.Err
}

// Events returns the names of every published envelope, in order
func (m *MockPublisher) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Published))
	for _, env := range m.Published {
		out = append(out, env.Event)
	}
	return out
}

// Last returns the most recent envelope
func (m *MockPublisher) Last() (realtime.Envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Published) == 0 {
		return realtime.Envelope{}, false
	}
	return m.Published[len(m.Published)-1], true
}

func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = nil
	m.Err = nil
}
