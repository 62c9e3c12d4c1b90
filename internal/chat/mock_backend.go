package chat

import (
	"context"
	"fmt"
	"sync"
)

// MockBackend is a deterministic Backend for testing.
type MockBackend struct {
	// Response is the fixed text returned by Generate.
	Response string

	// Error, if set, is returned by Generate instead of a response.
	Error error

	mu           sync.Mutex
	calls        int
	lastMessages []Message
	lastParams   Params
}

// NewMockBackend creates a mock backend with the given fixed response.
func NewMockBackend(response string) *MockBackend {
	return &MockBackend{Response: response}
}

// NewMockBackendWithError creates a mock backend that always fails with
// err wrapped in ErrGenerationService.
func NewMockBackendWithError(err error) *MockBackend {
	return &MockBackend{Error: fmt.Errorf("%w: %w", ErrGenerationService, err)}
}

// Generate records the request and returns the configured response.
func (m *MockBackend) Generate(ctx context.Context, messages []Message, params Params) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.lastMessages = append([]Message(nil), messages...)
	m.lastParams = params

	if m.Error != nil {
		return "", m.Error
	}
	return m.Response, nil
}

// Calls returns how many times Generate ran.
func (m *MockBackend) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastMessages returns the messages of the most recent call.
func (m *MockBackend) LastMessages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.lastMessages...)
}

// LastParams returns the parameters of the most recent call.
func (m *MockBackend) LastParams() Params {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastParams
}
