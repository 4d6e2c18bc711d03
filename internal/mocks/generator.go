package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/scry-chat/internal/generation"
)

// MockGenerator implements generation.Generator for testing
type MockGenerator struct {
	// GenerateFn allows test cases to mock the Generate behavior
	GenerateFn func(ctx context.Context, model string, messages []generation.Message) (string, error)

	// Default response values
	Reply string
	Err   error

	// Call tracking for verification
	GenerateCalls struct {
		// mu protects the call tracking state for concurrent test cases
		mu sync.Mutex

		// Count tracks how many times Generate was called
		Count int

		// Models contains all models passed to Generate calls
		Models []string

		// Messages contains all message lists passed to Generate calls
		Messages [][]generation.Message
	}
}

// Generate implements the generation.Generator interface
func (m *MockGenerator) Generate(
	ctx context.Context,
	model string,
	messages []generation.Message,
) (string, error) {
	// Track call details for verification
	m.GenerateCalls.mu.Lock()
	m.GenerateCalls.Count++
	m.GenerateCalls.Models = append(m.GenerateCalls.Models, model)
	m.GenerateCalls.Messages = append(m.GenerateCalls.Messages, append([]generation.Message(nil), messages...))
	m.GenerateCalls.mu.Unlock()

	// Use custom function if provided
	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, model, messages)
	}

	// Return default values
	return m.Reply, m.Err
}

// CallCount returns how many times Generate was called
func (m *MockGenerator) CallCount() int {
	m.GenerateCalls.mu.Lock()
	defer m.GenerateCalls.mu.Unlock()
	return m.GenerateCalls.Count
}

// LastCall returns the model and messages of the most recent Generate call
func (m *MockGenerator) LastCall() (string, []generation.Message) {
	m.GenerateCalls.mu.Lock()
	defer m.GenerateCalls.mu.Unlock()
	n := len(m.GenerateCalls.Models)
	if n == 0 {
		return "", nil
	}
	return m.GenerateCalls.Models[n-1], m.GenerateCalls.Messages[n-1]
}

// NewMockGeneratorWithReply creates a MockGenerator that returns the specified reply
func NewMockGeneratorWithReply(reply string) *MockGenerator {
	return &MockGenerator{
		Reply: reply,
	}
}

// NewMockGeneratorWithError creates a MockGenerator that returns the specified error
func NewMockGeneratorWithError(err error) *MockGenerator {
	return &MockGenerator{
		Err: err,
	}
}

// MockGeneratorThatFails creates a MockGenerator that simulates an unreachable service
func MockGeneratorThatFails() *MockGenerator {
	return &MockGenerator{
		Err: generation.ErrExternalService,
	}
}

// MockGeneratorWithContentBlocked creates a MockGenerator that simulates content being blocked
func MockGeneratorWithContentBlocked() *MockGenerator {
	return &MockGenerator{
		Err: generation.ErrContentBlocked,
	}
}

// Reset resets the call tracking state
func (m *MockGenerator) Reset() {
	m.GenerateCalls.mu.Lock()
	defer m.GenerateCalls.mu.Unlock()

	m.GenerateCalls.Count = 0
	m.GenerateCalls.Models = nil
	m.GenerateCalls.Messages = nil
}
