package service

import (
	"context"
	"errors"
	"html"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-chat/internal/conversation"
	"github.com/phrazzld/scry-chat/internal/domain"
	"github.com/phrazzld/scry-chat/internal/events"
	"github.com/phrazzld/scry-chat/internal/generation"
	"github.com/phrazzld/scry-chat/internal/platform/logger"
	"github.com/phrazzld/scry-chat/internal/task"
)

// Dispatcher registers background jobs and reads their state.
// It is satisfied by *task.Runner.
type Dispatcher interface {
	// Dispatch registers a job and enqueues the task built for its id
	Dispatch(class task.Class, build func(id uuid.UUID) (task.Task, error)) (uuid.UUID, error)

	// Poll reads, and on a terminal state consumes, a job
	Poll(class task.Class, id uuid.UUID) (task.PollResult, error)
}

// HistoryReloader restores a conversation from durable storage when it is
// empty. It is satisfied by *snapshot.Persister.
type HistoryReloader interface {
	ReloadIfEmpty(ctx context.Context, key string) bool
}

// Submission identifies an accepted job.
type Submission struct {
	ID    uuid.UUID
	Class task.Class
}

// HistoryEntry is one turn prepared for display.
type HistoryEntry struct {
	Role      domain.Role
	Kind      domain.Kind
	Content   string
	HTML      string
	CreatedAt time.Time
}

// History is a conversation prepared for display.
type History struct {
	Model string
	Turns []HistoryEntry
}

// ChatService provides the chat use cases
type ChatService interface {
	// Submit appends the user's text and dispatches a text job, or an image
	// job when the text starts with the image command prefix
	Submit(ctx context.Context, key, text string) (Submission, error)

	// SubmitImage dispatches an image job; an empty prompt is synthesised
	// from the conversation
	SubmitImage(ctx context.Context, key, prompt string) (Submission, error)

	// PollText reads a text job; terminal results are returned once
	PollText(ctx context.Context, id string) (task.PollResult, error)

	// PollImage reads an image job; terminal results are returned once
	PollImage(ctx context.Context, id string) (task.PollResult, error)

	// SelectModel changes the model used by subsequent jobs
	SelectModel(ctx context.Context, key, model string) error

	// ActiveModel returns the model selected for key
	ActiveModel(key string) string

	// Models lists the selectable models in order
	Models() []string

	// History returns the conversation for key prepared for display
	History(ctx context.Context, key string) (History, error)

	// OpenImage opens a stored generated image by name
	OpenImage(ctx context.Context, name string) (io.ReadSeekCloser, time.Time, error)
}

// ChatDeps are the collaborators of the chat service.
type ChatDeps struct {
	Provider     conversation.Provider
	Dispatcher   Dispatcher
	Generator    generation.Generator
	Images       generation.ImageGenerator
	ImageStore   generation.ImageStore
	Renderer     task.Renderer
	ImageParams  generation.ImageParams
	Catalog      domain.ModelCatalog
	ImagePrefix  string
	StrictModels bool

	// Reloader is optional; without it History never reloads
	Reloader HistoryReloader

	// Events is optional; it is told about every conversation change
	Events events.EventEmitter

	Logger *slog.Logger
}

// chatServiceImpl implements the ChatService interface
type chatServiceImpl struct {
	deps   ChatDeps
	logger *slog.Logger
}

// Ensure chatServiceImpl implements ChatService
var _ ChatService = (*chatServiceImpl)(nil)

// NewChatService creates a chat service. It returns an error if a required
// collaborator is missing.
func NewChatService(deps ChatDeps) (ChatService, error) {
	switch {
	case deps.Provider == nil:
		return nil, errors.New("conversation provider cannot be nil")
	case deps.Dispatcher == nil:
		return nil, errors.New("dispatcher cannot be nil")
	case deps.Generator == nil:
		return nil, task.ErrNilGenerator
	case deps.Images == nil:
		return nil, task.ErrNilImageGenerator
	case deps.ImageStore == nil:
		return nil, task.ErrNilImageStore
	case deps.Renderer == nil:
		return nil, task.ErrNilRenderer
	case deps.Logger == nil:
		return nil, task.ErrNilLogger
	}
	if deps.ImagePrefix == "" {
		deps.ImagePrefix = task.DefaultImagePrefix
	}

	return &chatServiceImpl{
		deps:   deps,
		logger: deps.Logger.With("component", "chat_service"),
	}, nil
}

// Submit implements ChatService.
func (s *chatServiceImpl) Submit(ctx context.Context, key, text string) (Submission, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Submission{}, domain.ErrEmptyMessage
	}

	if prompt, ok := strings.CutPrefix(text, s.deps.ImagePrefix); ok {
		return s.submitImage(ctx, key, text, strings.TrimSpace(prompt))
	}

	log := s.log(ctx)
	store := s.deps.Provider.ForKey(key)
	if err := s.appendUserTurn(store, text); err != nil {
		return Submission{}, NewChatServiceError("submit", "failed to append user turn", err)
	}

	s.notify(ctx, events.TypeTurnAppended, key)

	id, err := s.deps.Dispatcher.Dispatch(task.ClassText, func(id uuid.UUID) (task.Task, error) {
		t, err := task.NewTextTask(id, task.TextDeps{
			Conversation: store,
			Generator:    s.deps.Generator,
			Renderer:     s.deps.Renderer,
			ImagePrefix:  s.deps.ImagePrefix,
			Logger:       s.logger,
		})
		if err != nil {
			return nil, err
		}
		return s.watch(key, t), nil
	})
	if err != nil {
		log.Warn("failed to dispatch text job", "error", err)
		return Submission{}, NewChatServiceError("submit", "failed to dispatch text job", err)
	}

	log.Debug("text job submitted", "job_id", id)
	return Submission{ID: id, Class: task.ClassText}, nil
}

// SubmitImage implements ChatService.
func (s *chatServiceImpl) SubmitImage(ctx context.Context, key, prompt string) (Submission, error) {
	prompt = strings.TrimSpace(prompt)
	raw := s.deps.ImagePrefix
	if prompt != "" {
		raw += " " + prompt
	}
	return s.submitImage(ctx, key, raw, prompt)
}

func (s *chatServiceImpl) submitImage(ctx context.Context, key, raw, prompt string) (Submission, error) {
	log := s.log(ctx)
	store := s.deps.Provider.ForKey(key)
	if err := s.appendUserTurn(store, raw); err != nil {
		return Submission{}, NewChatServiceError("submit_image", "failed to append user turn", err)
	}

	s.notify(ctx, events.TypeTurnAppended, key)

	id, err := s.deps.Dispatcher.Dispatch(task.ClassImage, func(id uuid.UUID) (task.Task, error) {
		t, err := task.NewImageTask(id, prompt, task.ImageDeps{
			Conversation: store,
			Generator:    s.deps.Generator,
			Images:       s.deps.Images,
			Store:        s.deps.ImageStore,
			Params:       s.deps.ImageParams,
			ImagePrefix:  s.deps.ImagePrefix,
			Logger:       s.logger,
		})
		if err != nil {
			return nil, err
		}
		return s.watch(key, t), nil
	})
	if err != nil {
		log.Warn("failed to dispatch image job", "error", err)
		return Submission{}, NewChatServiceError("submit_image", "failed to dispatch image job", err)
	}

	log.Debug("image job submitted",
		"job_id", id,
		"synthesize_prompt", prompt == "")
	return Submission{ID: id, Class: task.ClassImage}, nil
}

func (s *chatServiceImpl) appendUserTurn(store *conversation.Store, text string) error {
	turn, err := domain.UserText(text)
	if err != nil {
		return err
	}
	_, err = store.Append(turn)
	return err
}

// PollText implements ChatService.
func (s *chatServiceImpl) PollText(ctx context.Context, id string) (task.PollResult, error) {
	return s.poll(ctx, task.ClassText, id)
}

// PollImage implements ChatService.
func (s *chatServiceImpl) PollImage(ctx context.Context, id string) (task.PollResult, error) {
	return s.poll(ctx, task.ClassImage, id)
}

// poll treats an id that does not parse as an unknown job.
func (s *chatServiceImpl) poll(ctx context.Context, class task.Class, rawID string) (task.PollResult, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		s.log(ctx).Debug("poll with malformed job id", "job_class", class, "job_id", rawID)
		return task.PollResult{Class: class, State: task.StateNotFound}, nil
	}

	result, err := s.deps.Dispatcher.Poll(class, id)
	if err != nil {
		return task.PollResult{}, NewChatServiceError("poll", "failed to read job", err)
	}
	if result.State.IsTerminal() {
		s.log(ctx).Debug("job result delivered",
			"job_id", id,
			"job_class", class,
			"job_state", result.State)
	}
	return result, nil
}

// SelectModel implements ChatService. Unknown models are accepted with a
// warning unless strict model selection is enabled.
func (s *chatServiceImpl) SelectModel(ctx context.Context, key, model string) error {
	model = strings.TrimSpace(model)
	if model == "" {
		return domain.ErrUnknownModel
	}

	if !s.deps.Catalog.Known(model) {
		if s.deps.StrictModels {
			return domain.ErrUnknownModel
		}
		s.log(ctx).Warn("selecting model outside the catalog", "model", model)
	}

	s.deps.Provider.ForKey(key).SetModel(model)
	s.notify(ctx, events.TypeModelChanged, key)
	s.log(ctx).Info("model selected", "model", model)
	return nil
}

// ActiveModel implements ChatService.
func (s *chatServiceImpl) ActiveModel(key string) string {
	return s.deps.Provider.ForKey(key).Model()
}

// Models implements ChatService.
func (s *chatServiceImpl) Models() []string {
	return s.deps.Catalog.List()
}

// History implements ChatService. An empty conversation is first reloaded
// from the last snapshot.
func (s *chatServiceImpl) History(ctx context.Context, key string) (History, error) {
	store := s.deps.Provider.ForKey(key)
	if store.Len() == 0 && s.deps.Reloader != nil {
		s.deps.Reloader.ReloadIfEmpty(ctx, key)
	}

	conv := store.Snapshot()
	out := History{
		Model: conv.Model,
		Turns: make([]HistoryEntry, 0, len(conv.Turns)),
	}
	for _, turn := range conv.Turns {
		entry := HistoryEntry{
			Role:      turn.Role,
			Kind:      turn.Kind,
			Content:   turn.Content,
			CreatedAt: turn.CreatedAt,
		}
		if !turn.IsImage() {
			rendered, err := s.deps.Renderer.RenderMarkdown(turn.Content)
			if err != nil {
				s.log(ctx).Warn("failed to render turn, showing plain text", "error", err)
				rendered = html.EscapeString(turn.Content)
			}
			entry.HTML = rendered
		}
		out.Turns = append(out.Turns, entry)
	}
	return out, nil
}

// OpenImage implements ChatService.
func (s *chatServiceImpl) OpenImage(ctx context.Context, name string) (io.ReadSeekCloser, time.Time, error) {
	r, modTime, err := s.deps.ImageStore.Open(name)
	if err != nil {
		if errors.Is(err, generation.ErrImageNotFound) || errors.Is(err, generation.ErrInvalidImageName) {
			return nil, time.Time{}, generation.ErrImageNotFound
		}
		return nil, time.Time{}, NewChatServiceError("open_image", "failed to open image", err)
	}
	return r, modTime, nil
}

func (s *chatServiceImpl) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, s.logger)
}
