package task

import (
	"context"

	"github.com/google/uuid"
)

// MockTask is a simple implementation of the Task interface for testing
type MockTask struct {
	TaskID    uuid.UUID
	TaskClass Class
	ExecuteFn func(ctx context.Context) (string, error)
}

// NewMockTask creates a new MockTask with the given ID and class that
// succeeds with result
func NewMockTask(id uuid.UUID, class Class, result string) *MockTask {
	return &MockTask{
		TaskID:    id,
		TaskClass: class,
		ExecuteFn: func(ctx context.Context) (string, error) { return result, nil },
	}
}

// ID returns the task's job id
func (t *MockTask) ID() uuid.UUID {
	return t.TaskID
}

// Class returns the task's job class
func (t *MockTask) Class() Class {
	return t.TaskClass
}

// Execute runs the task logic
func (t *MockTask) Execute(ctx context.Context) (string, error) {
	if t.ExecuteFn == nil {
		return "", nil
	}
	return t.ExecuteFn(ctx)
}
