package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-chat/internal/conversation"
	"github.com/phrazzld/scry-chat/internal/domain"
	"github.com/phrazzld/scry-chat/internal/generation"
)

// Renderer turns raw model output into what is stored and what is shown.
type Renderer interface {
	// CleanReply normalises a raw model reply before it is stored
	CleanReply(reply string) string

	// RenderMarkdown converts stored markdown into display HTML
	RenderMarkdown(markdown string) (string, error)
}

// TextDeps are the collaborators a text job needs.
type TextDeps struct {
	Conversation *conversation.Store
	Generator    generation.Generator
	Renderer     Renderer
	ImagePrefix  string
	Logger       *slog.Logger
}

func (d TextDeps) validate() error {
	switch {
	case d.Conversation == nil:
		return ErrNilConversation
	case d.Generator == nil:
		return ErrNilGenerator
	case d.Renderer == nil:
		return ErrNilRenderer
	case d.Logger == nil:
		return ErrNilLogger
	}
	return nil
}

// TextTask produces the next assistant reply for a conversation.
type TextTask struct {
	id   uuid.UUID
	deps TextDeps
}

// NewTextTask creates a text job bound to id.
func NewTextTask(id uuid.UUID, deps TextDeps) (*TextTask, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	deps.Logger = deps.Logger.With("job_id", id, "job_class", ClassText)
	return &TextTask{id: id, deps: deps}, nil
}

// ID returns the job id.
func (t *TextTask) ID() uuid.UUID {
	return t.id
}

// Class returns ClassText.
func (t *TextTask) Class() Class {
	return ClassText
}

// Execute sends the conversation to the selected model, appends the reply as
// an assistant turn and returns the reply rendered as HTML.
//
// The conversation is read once when the job starts; turns appended while
// the model is thinking are not part of this request.
func (t *TextTask) Execute(ctx context.Context) (string, error) {
	store := t.deps.Conversation
	model := store.Model()
	messages := ConversationMessages(store.Turns(), t.deps.ImagePrefix)

	t.deps.Logger.Debug("requesting reply",
		"model", model,
		"message_count", len(messages))

	reply, err := t.deps.Generator.Generate(ctx, model, messages)
	if err != nil {
		return "", err
	}

	content := t.deps.Renderer.CleanReply(reply)
	turn, err := domain.AssistantText(content)
	if err != nil {
		return "", fmt.Errorf("invalid reply: %w", err)
	}
	if _, err := store.Append(turn); err != nil {
		return "", err
	}

	html, err := t.deps.Renderer.RenderMarkdown(content)
	if err != nil {
		return "", fmt.Errorf("failed to render reply: %w", err)
	}
	return html, nil
}
