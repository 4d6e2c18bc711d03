package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/scry-chat/internal/api"
	apiMiddleware "github.com/phrazzld/scry-chat/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	chatHandler := api.NewChatHandler(app.chatService, app.logger)

	// Health check stays outside session handling so probes never get cookies
	r.Get("/health", chatHandler.Health)

	r.Group(func(r chi.Router) {
		if app.sessions != nil {
			sessionMiddleware := apiMiddleware.NewSessionMiddleware(app.sessions, app.config.Chat.SessionCookie)
			r.Use(sessionMiddleware.Attach)
		}
		chatHandler.Routes(r)
	})

	return r
}
