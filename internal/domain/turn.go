package domain

import (
	"fmt"
	"time"
)

// Role identifies the author of a turn.
type Role string

// Possible role values
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Kind identifies what a turn's content holds.
type Kind string

// Possible kind values
const (
	// KindText is conversational text (markdown for assistant turns).
	KindText Kind = "text"

	// KindImage is a reference to a generated image.
	KindImage Kind = "image"
)

// Turn is one message in the conversation. Turns are immutable once appended.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTurn creates a validated turn stamped with the current time.
func NewTurn(role Role, kind Kind, content string) (Turn, error) {
	t := Turn{
		Role:      role,
		Content:   content,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
	if err := t.Validate(); err != nil {
		return Turn{}, err
	}
	return t, nil
}

// UserText creates a user text turn.
func UserText(content string) (Turn, error) {
	return NewTurn(RoleUser, KindText, content)
}

// AssistantText creates an assistant text turn.
func AssistantText(content string) (Turn, error) {
	return NewTurn(RoleAssistant, KindText, content)
}

// AssistantImage creates an assistant turn referencing a stored image.
func AssistantImage(ref string) (Turn, error) {
	return NewTurn(RoleAssistant, KindImage, ref)
}

// Validate checks the turn's role, kind and content.
// System turns are never stored in a conversation, so they are rejected here.
func (t Turn) Validate() error {
	switch t.Role {
	case RoleUser, RoleAssistant:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRole, t.Role)
	}

	switch t.Kind {
	case KindText:
	case KindImage:
		if t.Content == "" {
			return fmt.Errorf("%w: image reference", ErrEmptyContent)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, t.Kind)
	}

	return nil
}

// IsImage reports whether the turn references a generated image.
func (t Turn) IsImage() bool {
	return t.Kind == KindImage
}
