// Package session issues and validates the signed cookies that scope a
// client to its own conversation.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-chat/internal/config"
	"github.com/phrazzld/scry-chat/internal/platform/logger"
)

// MinSecretLength is the shortest accepted signing secret.
const MinSecretLength = 32

// tokenType marks tokens issued by this service.
const tokenType = "session"

// Service defines operations for managing session tokens.
type Service interface {
	// Issue creates a new session and returns its signed token.
	Issue(ctx context.Context) (token string, claims *Claims, err error)

	// Validate verifies a token and extracts its claims.
	// Returns ErrExpiredToken, ErrTokenNotYetValid or ErrInvalidToken on failure.
	Validate(ctx context.Context, token string) (*Claims, error)

	// Lifetime returns how long an issued token stays valid.
	Lifetime() time.Duration
}

// Claims represents the session a token was issued for.
type Claims struct {
	// SessionID keys the client's conversation
	SessionID uuid.UUID

	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Key returns the conversation key for the session.
func (c *Claims) Key() string {
	return c.SessionID.String()
}

// hmacSessionService is an implementation of Service using HMAC-SHA signing.
type hmacSessionService struct {
	signingKey []byte
	lifetime   time.Duration
	timeFunc   func() time.Time // Injectable for testing
	clockSkew  time.Duration    // Allowed time difference for validation to handle clock drift
}

// jwtSessionClaims defines the structure of JWT claims we use
type jwtSessionClaims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// Ensure hmacSessionService implements Service interface
var _ Service = (*hmacSessionService)(nil)

// NewService creates a session service from the chat configuration.
func NewService(cfg config.ChatConfig) (Service, error) {
	svc, err := newService(cfg.SessionSecret, cfg.SessionLifetime, time.Now)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func newService(secret string, lifetime time.Duration, now func() time.Time) (*hmacSessionService, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("session lifetime must be positive, got %s", lifetime)
	}
	return &hmacSessionService{
		signingKey: []byte(secret),
		lifetime:   lifetime,
		timeFunc:   now,
		clockSkew:  2 * time.Minute,
	}, nil
}

// Lifetime implements Service.
func (s *hmacSessionService) Lifetime() time.Duration {
	return s.lifetime
}

// Issue creates a fresh session id and signs a token for it.
func (s *hmacSessionService) Issue(ctx context.Context) (string, *Claims, error) {
	log := logger.FromContext(ctx)
	now := s.timeFunc()
	sessionID := uuid.New()

	claims := jwtSessionClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		log.Error("failed to sign session token",
			"error", err,
			"signing_method", jwt.SigningMethodHS256.Name)
		return "", nil, fmt.Errorf("failed to sign session token with HMAC-SHA256: %w", err)
	}

	return signed, &Claims{
		SessionID: sessionID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Validate parses a session token and returns its claims if valid.
func (s *hmacSessionService) Validate(ctx context.Context, tokenString string) (*Claims, error) {
	log := logger.FromContext(ctx)

	if tokenString == "" {
		return nil, ErrMissingToken
	}

	now := s.timeFunc()
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.clockSkew),
		jwt.WithTimeFunc(func() time.Time {
			return now
		}),
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwtSessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.signingKey, nil
		},
		parserOpts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			log.Debug("session token expired", "error", err)
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			log.Debug("session token not yet valid", "error", err)
			return nil, ErrTokenNotYetValid
		default:
			log.Debug("session token rejected",
				"error", err,
				"error_type", fmt.Sprintf("%T", err))
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*jwtSessionClaims)
	if !ok || !token.Valid || claims.TokenType != tokenType {
		log.Debug("session token validation failed: invalid claims")
		return nil, ErrInvalidToken
	}

	sessionID, err := uuid.Parse(claims.Subject)
	if err != nil {
		log.Debug("session token carries a malformed session id", "error", err)
		return nil, ErrInvalidToken
	}

	out := &Claims{SessionID: sessionID}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
