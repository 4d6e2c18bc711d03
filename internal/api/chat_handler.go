package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/scry-chat/internal/api/middleware"
	"github.com/phrazzld/scry-chat/internal/api/shared"
	"github.com/phrazzld/scry-chat/internal/domain"
	"github.com/phrazzld/scry-chat/internal/platform/logger"
	"github.com/phrazzld/scry-chat/internal/service"
	"github.com/phrazzld/scry-chat/internal/task"
)

// DefaultImageRoute is the path prefix generated images are served under.
const DefaultImageRoute = "/images"

// ChatHandler handles chat, polling and image HTTP requests
type ChatHandler struct {
	chat       service.ChatService
	imageRoute string
	logger     *slog.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(chat service.ChatService, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{
		chat:       chat,
		imageRoute: DefaultImageRoute,
		logger:     logger.With("component", "chat_handler"),
	}
}

// SubmitMessage handles POST /api/messages requests
func (h *ChatHandler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	h.submitMessage(w, r, http.StatusAccepted)
}

// LegacySendMessage handles POST /send_message, which answers 200 instead of 202
func (h *ChatHandler) LegacySendMessage(w http.ResponseWriter, r *http.Request) {
	h.submitMessage(w, r, http.StatusOK)
}

func (h *ChatHandler) submitMessage(w http.ResponseWriter, r *http.Request, status int) {
	var req SubmitMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sub, err := h.chat.Submit(r.Context(), middleware.GetSessionKey(r), req.Message)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit message")
		return
	}

	shared.RespondWithJSON(w, r, status, SubmissionResponse{
		RequestID: sub.ID.String(),
		Kind:      string(sub.Class),
	})
}

// SubmitImage handles POST /api/images requests
func (h *ChatHandler) SubmitImage(w http.ResponseWriter, r *http.Request) {
	var req SubmitImageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sub, err := h.chat.SubmitImage(r.Context(), middleware.GetSessionKey(r), req.Prompt)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit image request")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmissionResponse{
		RequestID: sub.ID.String(),
		Kind:      string(sub.Class),
	})
}

// CheckMessage handles GET /api/messages/{id} requests
func (h *ChatHandler) CheckMessage(w http.ResponseWriter, r *http.Request) {
	h.check(w, r, task.ClassText)
}

// CheckImage handles GET /api/images/{id} requests
func (h *ChatHandler) CheckImage(w http.ResponseWriter, r *http.Request) {
	h.check(w, r, task.ClassImage)
}

func (h *ChatHandler) check(w http.ResponseWriter, r *http.Request, class task.Class) {
	id := chi.URLParam(r, "id")

	var (
		res task.PollResult
		err error
	)
	if class == task.ClassImage {
		res, err = h.chat.PollImage(r.Context(), id)
	} else {
		res, err = h.chat.PollText(r.Context(), id)
	}
	if err != nil {
		HandleAPIError(w, r, err, "Failed to check request")
		return
	}

	// Polls must never be cached, a terminal result is consumed once
	w.Header().Set("Cache-Control", "no-store")
	status, body := pollResponse(res)
	shared.RespondWithJSON(w, r, status, body)
}

// SelectModel handles PUT /api/model and the legacy POST /change_model
func (h *ChatHandler) SelectModel(w http.ResponseWriter, r *http.Request) {
	var req SelectModelRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	key := middleware.GetSessionKey(r)
	if err := h.chat.SelectModel(r.Context(), key, req.Model); err != nil {
		HandleAPIError(w, r, err, "Failed to change model")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SelectModelResponse{
		Success: true,
		Model:   h.chat.ActiveModel(key),
	})
}

// ListModels handles GET /api/models requests
func (h *ChatHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, ModelsResponse{
		Models: h.chat.Models(),
		Active: h.chat.ActiveModel(middleware.GetSessionKey(r)),
	})
}

// History handles GET /api/history requests
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.chat.History(r.Context(), middleware.GetSessionKey(r))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load history")
		return
	}

	resp := HistoryResponse{
		Model: history.Model,
		Turns: make([]TurnResponse, 0, len(history.Turns)),
	}
	for _, turn := range history.Turns {
		tr := TurnResponse{
			Role:      string(turn.Role),
			Kind:      string(turn.Kind),
			Content:   turn.Content,
			HTML:      turn.HTML,
			CreatedAt: turn.CreatedAt,
		}
		if turn.Kind == domain.KindImage {
			tr.ImageURL = imageURL(h.imageRoute, turn.Content)
		}
		resp.Turns = append(resp.Turns, tr)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// ServeImage handles GET /images/{name} and the legacy /static/images/{name}
func (h *ChatHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	img, modTime, err := h.chat.OpenImage(r.Context(), name)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load image")
		return
	}
	defer func() {
		if err := img.Close(); err != nil {
			logger.FromContextOrDefault(r.Context(), h.logger).Warn("failed to close image", "error", err)
		}
	}()

	// Image names are never reused
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, name, modTime, img)
}

// Health handles GET /health requests
func (h *ChatHandler) Health(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{Status: "ok"})
}

// Routes registers every chat endpoint, including the legacy aliases.
func (h *ChatHandler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/messages", h.SubmitMessage)
		r.Get("/messages/{id}", h.CheckMessage)
		r.Post("/images", h.SubmitImage)
		r.Get("/images/{id}", h.CheckImage)
		r.Put("/model", h.SelectModel)
		r.Get("/models", h.ListModels)
		r.Get("/history", h.History)
	})

	r.Get(h.imageRoute+"/{name}", h.ServeImage)

	// Legacy endpoints
	r.Post("/send_message", h.LegacySendMessage)
	r.Get("/check_response/{id}", h.CheckMessage)
	r.Get("/check_image/{id}", h.CheckImage)
	r.Post("/change_model", h.SelectModel)
	r.Get("/static/images/{name}", h.ServeImage)
}
