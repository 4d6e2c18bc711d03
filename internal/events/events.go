package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published when a conversation changes.
const (
	TypeTurnAppended = "turn_appended"
	TypeModelChanged = "model_changed"
)

// ConversationEvent reports that the conversation under Key changed.
type ConversationEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Type constants
	Type string `json:"type"`

	// Key identifies the conversation scope the change happened in
	Key string `json:"key"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewConversationEvent creates an event of eventType for the conversation key.
func NewConversationEvent(eventType, key string) *ConversationEvent {
	return &ConversationEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Key:       key,
		CreatedAt: time.Now(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event. It must not block for long,
	// emitters call it from request and worker goroutines.
	HandleEvent(ctx context.Context, event *ConversationEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *ConversationEvent) error
}
