package middleware

import (
	"net/http"

	"github.com/phrazzld/scry-chat/internal/api/shared"
	"github.com/phrazzld/scry-chat/internal/platform/logger"
	"github.com/phrazzld/scry-chat/internal/service/session"
)

// SessionMiddleware binds each client to its own conversation through a
// signed cookie. A missing, expired or tampered cookie starts a new session.
type SessionMiddleware struct {
	sessions   session.Service
	cookieName string
}

// NewSessionMiddleware creates a SessionMiddleware using the named cookie.
func NewSessionMiddleware(sessions session.Service, cookieName string) *SessionMiddleware {
	return &SessionMiddleware{
		sessions:   sessions,
		cookieName: cookieName,
	}
}

// Attach puts the client's conversation key into the request context.
func (m *SessionMiddleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		log := logger.FromContext(ctx)

		if cookie, err := r.Cookie(m.cookieName); err == nil {
			claims, err := m.sessions.Validate(ctx, cookie.Value)
			if err == nil {
				next.ServeHTTP(w, r.WithContext(shared.SetSessionKey(ctx, claims.Key())))
				return
			}
			log.Debug("session cookie rejected, starting a new session", "error", err)
		}

		token, claims, err := m.sessions.Issue(ctx)
		if err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Session error", err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     m.cookieName,
			Value:    token,
			Path:     "/",
			Expires:  claims.ExpiresAt,
			MaxAge:   int(m.sessions.Lifetime().Seconds()),
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
		log.Debug("session started", "session_id", claims.SessionID)

		next.ServeHTTP(w, r.WithContext(shared.SetSessionKey(ctx, claims.Key())))
	})
}

// GetSessionKey extracts the conversation key from the request context.
func GetSessionKey(r *http.Request) string {
	return shared.GetSessionKey(r.Context())
}
