package mocks

import (
	"context"
	"errors"
	"sync"

	"github.com/example/grocery-sync/internal/realtime"
)

var ErrConnClosed = errors.New("mock connection closed")

// MockTransport is a mock implementation of realtime.Transport for testing
type MockTransport struct {
	mu       sync.Mutex
	dialErrs []error
	conns    []*MockConn
	dialed   chan *MockConn

	// For tracking calls in tests
	DialCalls []string
}

// NewMockTransport creates a new MockTransport
func NewMockTransport() *MockTransport {
	return &MockTransport{
		dialed: make(chan *MockConn, 64),
	}
}

// FailNextDials queues errors returned by the next Dial calls, in order
func (m *MockTransport) FailNextDials(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dialErrs = append(m.dialErrs, errs...)
}

func (m *MockTransport) Dial(ctx context.Context, token string) (realtime.Conn, error) {
	m.mu.Lock()
	m.DialCalls = append(m.DialCalls, token)
	if len(m.dialErrs) > 0 {
		err := m.dialErrs[0]
		m.dialErrs = m.dialErrs[1:]
		m.mu.Unlock()
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	c := NewMockConn()
	m.conns = append(m.conns, c)
	m.mu.Unlock()

	select {
	case m.dialed <- c:
	default:
	}
	return c, nil
}

// Dialed delivers every successfully dialed connection
func (m *MockTransport) Dialed() <-chan *MockConn {
	return m.dialed
}

// DialCount returns the number of Dial attempts
func (m *MockTransport) DialCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.DialCalls)
}

// Conns returns every connection dialed so far
func (m *MockTransport) Conns() []*MockConn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MockConn(nil), m.conns...)
}

// InvokeCall records parameters passed to Invoke
type InvokeCall struct {
	Method string
	Args   []any
}

// MockConn is a mock implementation of realtime.Conn driven by the test
type MockConn struct {
	events    chan realtime.Envelope
	drop      chan error
	closed    chan struct{}
	closeOnce sync.Once

	mu          sync.Mutex
	InvokeCalls []InvokeCall
	InvokeErr   error
}

// NewMockConn creates a new MockConn
func NewMockConn() *MockConn {
	return &MockConn{
		events: make(chan realtime.Envelope, 64),
		drop:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (c *MockConn) Receive(ctx context.Context) (realtime.Envelope, error) {
	select {
	case env := <-c.events:
		return env, nil
	case err := <-c.drop:
		return realtime.Envelope{}, err
	case <-c.closed:
		return realtime.Envelope{}, ErrConnClosed
	case <-ctx.Done():
		return realtime.Envelope{}, ctx.Err()
	}
}

func (c *MockConn) Invoke(_ context.Context, method string, args ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.InvokeCalls = append(c.InvokeCalls, InvokeCall{Method: method, Args: args})
	return c.InvokeErr
}

func (c *MockConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// Push queues a server event
func (c *MockConn) Push(event, group string, payload any) error {
	env, err := realtime.NewEnvelope(event, group, payload)
	if err != nil {
		return err
	}
	c.events <- env
	return nil
}

// PushRaw queues an envelope with an arbitrary payload
func (c *MockConn) PushRaw(event string, payload []byte) {
	c.events <- realtime.Envelope{Event: event, Payload: payload}
}

// Drop simulates a transport failure
func (c *MockConn) Drop(err error) {
	c.drop <- err
}

// IsClosed reports whether Close was called
func (c *MockConn) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// Invoked returns the methods invoked so far, in order
func (c *MockConn) Invoked() []InvokeCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]InvokeCall(nil), c.InvokeCalls...)
}
