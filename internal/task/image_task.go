package task

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-chat/internal/conversation"
	"github.com/phrazzld/scry-chat/internal/domain"
	"github.com/phrazzld/scry-chat/internal/generation"
)

// PromptInstruction asks the model to describe the scene when an image command
// carries no prompt of its own.
const PromptInstruction = "Create a high-detailed description in english of your character's appearance and pose based on the conversation. " +
	"Include the background as well. In response give only description in english, without any explanations or questions."

// DefaultImageExt is used when the generated file has no extension.
const DefaultImageExt = ".webp"

// ImageDeps are the collaborators an image job needs.
type ImageDeps struct {
	Conversation *conversation.Store
	Generator    generation.Generator
	Images       generation.ImageGenerator
	Store        generation.ImageStore
	Params       generation.ImageParams
	ImagePrefix  string
	Logger       *slog.Logger
}

func (d ImageDeps) validate() error {
	switch {
	case d.Conversation == nil:
		return ErrNilConversation
	case d.Generator == nil:
		return ErrNilGenerator
	case d.Images == nil:
		return ErrNilImageGenerator
	case d.Store == nil:
		return ErrNilImageStore
	case d.Logger == nil:
		return ErrNilLogger
	}
	return nil
}

// ImageTask renders an image for a prompt and records it in the conversation.
type ImageTask struct {
	id     uuid.UUID
	prompt string
	deps   ImageDeps
}

// NewImageTask creates an image job bound to id. A blank prompt is
// synthesised from the conversation when the job runs.
func NewImageTask(id uuid.UUID, prompt string, deps ImageDeps) (*ImageTask, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	deps.Logger = deps.Logger.With("job_id", id, "job_class", ClassImage)
	return &ImageTask{id: id, prompt: strings.TrimSpace(prompt), deps: deps}, nil
}

// ID returns the job id.
func (t *ImageTask) ID() uuid.UUID {
	return t.id
}

// Class returns ClassImage.
func (t *ImageTask) Class() Class {
	return ClassImage
}

// Prompt returns the prompt supplied at submission, possibly empty.
func (t *ImageTask) Prompt() string {
	return t.prompt
}

// Execute generates the image, stores it and appends an assistant image turn.
// The result is the stored image reference.
func (t *ImageTask) Execute(ctx context.Context) (string, error) {
	prompt := t.prompt
	if prompt == "" {
		synthesized, err := t.synthesizePrompt(ctx)
		if err != nil {
			return "", err
		}
		prompt = synthesized
	}

	t.deps.Logger.Debug("generating image", "prompt_length", len(prompt))

	tempPath, err := t.deps.Images.GenerateImage(ctx, t.deps.Params.Request(prompt))
	if err != nil {
		return "", err
	}

	ref, err := t.deps.Store.Save(ctx, tempPath, NewImageName(filepath.Ext(tempPath)))
	if err != nil {
		return "", err
	}

	turn, err := domain.AssistantImage(ref)
	if err != nil {
		return "", fmt.Errorf("invalid image reference: %w", err)
	}
	if _, err := t.deps.Conversation.Append(turn); err != nil {
		return "", err
	}

	t.deps.Logger.Info("image stored", "image", ref)
	return ref, nil
}

// synthesizePrompt asks the conversation's model to describe the scene
func (t *ImageTask) synthesizePrompt(ctx context.Context) (string, error) {
	store := t.deps.Conversation
	messages := append(
		[]generation.Message{{Role: domain.RoleSystem, Content: PromptInstruction}},
		ConversationMessages(store.Turns(), t.deps.ImagePrefix)...,
	)

	prompt, err := t.deps.Generator.Generate(ctx, store.Model(), messages)
	if err != nil {
		return "", err
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyImagePrompt
	}
	return prompt, nil
}

// NewImageName returns a collision-resistant file name of the form
// image_<32 hex digits><ext>.
func NewImageName(ext string) string {
	if ext == "" {
		ext = DefaultImageExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return "image_" + strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ToLower(ext)
}
