package task

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Class identifies one of the independent job classes.
type Class string

// Job classes
const (
	// ClassText produces the next assistant text turn
	ClassText Class = "text"

	// ClassImage produces an assistant image turn
	ClassImage Class = "image"
)

// State is the lifecycle state of a job as observed by a poller.
type State string

// Possible job states
const (
	StateProcessing State = "processing"
	StateDone       State = "done"
	StateFailed     State = "failed"
	StateNotFound   State = "not_found"
)

// IsTerminal reports whether a job in this state will never change again.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// Common errors
var (
	ErrJobNotFound       = errors.New("job not found")
	ErrInvalidTransition = errors.New("job is not processing")
	ErrRegistryFull      = errors.New("too many pending jobs")
	ErrUnknownClass      = errors.New("unknown job class")
	ErrNilGenerator      = errors.New("generator cannot be nil")
	ErrNilImageGenerator = errors.New("image generator cannot be nil")
	ErrNilImageStore     = errors.New("image store cannot be nil")
	ErrNilConversation   = errors.New("conversation store cannot be nil")
	ErrNilRenderer       = errors.New("renderer cannot be nil")
	ErrNilLogger         = errors.New("logger cannot be nil")
	ErrEmptyImagePrompt  = errors.New("synthesized image prompt is empty")
)

// Task is a unit of background work bound to a registry entry.
type Task interface {
	// ID returns the job id the task reports its outcome under
	ID() uuid.UUID

	// Class returns the job class, which selects the registry
	Class() Class

	// Execute runs the job body and returns the job result:
	// rendered assistant text for text jobs, an image reference for image jobs
	Execute(ctx context.Context) (string, error)
}

// PollResult is what a poller observes for a job id.
type PollResult struct {
	ID     uuid.UUID
	Class  Class
	State  State
	Result string
	Error  string
}

// FailureMessage formats a job error the way it is surfaced to pollers.
func (c Class) FailureMessage(err error) string {
	if c == ClassImage {
		return "Error generating image: " + err.Error()
	}
	return "Error: " + err.Error()
}
