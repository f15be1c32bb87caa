package mocks

import (
	"sync"
)

// MockKV is a mock implementation of store.KV for testing
type MockKV struct {
	mu   sync.RWMutex
	data map[string][]byte

	// Errors returned by the next calls; nil means succeed
	GetErr    error
	SetErr    error
	DeleteErr error

	// OnGet, when set, runs before every Get
	OnGet func(key string)

	// For tracking calls in tests
	GetCalls    []string
	SetCalls    []SetCall
	DeleteCalls []string
}

// SetCall records parameters passed to Set
type SetCall struct {
	Key   string
	Value []byte
}

// NewMockKV creates a new MockKV
func NewMockKV() *MockKV {
	return &MockKV{
		data: make(map[string][]byte),
	}
}

func (m *MockKV) Get(key string) ([]byte, bool, error) {
	if m.OnGet != nil {
		m.OnGet(key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls = append(m.GetCalls, key)
	if m.GetErr != nil {
		return nil, false, m.GetErr
	}
	value, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (m *MockKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SetCalls = append(m.SetCalls, SetCall{Key: key, Value: append([]byte(nil), value...)})
	if m.SetErr != nil {
		return m.SetErr
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MockKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls = append(m.DeleteCalls, key)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.data, key)
	return nil
}

// SetData stores a value directly for testing (without recording the call)
func (m *MockKV) SetData(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
}

// GetData reads a value directly for testing (without recording the call)
func (m *MockKV) GetData(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.data[key]
	return value, ok
}

// SetCount returns how many Set calls were recorded for key
func (m *MockKV) SetCount(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.SetCalls {
		if c.Key == key {
			n++
		}
	}
	return n
}

// Reset clears all data, errors and recorded calls
func (m *MockKV) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
	m.GetErr, m.SetErr, m.DeleteErr = nil, nil, nil
	m.GetCalls = nil
	m.SetCalls = nil
	m.DeleteCalls = nil
}
