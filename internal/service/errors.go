package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/scry-chat/internal/domain"
	"github.com/phrazzld/scry-chat/internal/task"
)

// ChatServiceError wraps errors from the chat service with context.
type ChatServiceError struct {
	// Operation is the operation that failed (e.g., "submit", "history")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ChatServiceError.
func (e *ChatServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("chat service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("chat service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ChatServiceError) Unwrap() error {
	return e.Err
}

// NewChatServiceError creates a new ChatServiceError.
// It returns known sentinel errors directly without wrapping.
func NewChatServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range []error{
		domain.ErrEmptyMessage,
		domain.ErrUnknownModel,
		task.ErrQueueFull,
		task.ErrQueueClosed,
		task.ErrRegistryFull,
	} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}

	return &ChatServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
