package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/phrazzld/scry-chat/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-session-secret-that-is-32-chars-long"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewService(t *testing.T) {
	t.Parallel()

	_, err := NewService(config.ChatConfig{SessionSecret: "short", SessionLifetime: time.Hour})
	assert.ErrorIs(t, err, ErrWeakSecret)

	_, err = NewService(config.ChatConfig{SessionSecret: testSecret})
	assert.Error(t, err)

	svc, err := NewService(config.ChatConfig{SessionSecret: testSecret, SessionLifetime: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, svc.Lifetime())
}

func TestIssueAndValidate(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc, err := newService(testSecret, time.Hour, fixedClock(issuedAt))
	require.NoError(t, err)

	token, issued, err := svc.Issue(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, issued.SessionID, claims.SessionID)
	assert.Equal(t, issued.SessionID.String(), claims.Key())
	assert.Equal(t, issuedAt.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, issuedAt.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())

	// Every issue starts a distinct session
	_, other, err := svc.Issue(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, issued.SessionID, other.SessionID)
}

func TestValidate_Failures(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := newService(testSecret, time.Hour, fixedClock(issuedAt))
	require.NoError(t, err)
	token, _, err := issuer.Issue(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name    string
		svc     func(t *testing.T) Service
		token   string
		wantErr error
	}{
		{
			name: "missing token",
			svc: func(t *testing.T) Service {
				return issuer
			},
			token:   "",
			wantErr: ErrMissingToken,
		},
		{
			name: "malformed token",
			svc: func(t *testing.T) Service {
				return issuer
			},
			token:   "not.a.token",
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong secret",
			svc: func(t *testing.T) Service {
				other, err := newService("another-secret-that-is-long-enough-ok", time.Hour, fixedClock(issuedAt))
				require.NoError(t, err)
				return other
			},
			token:   token,
			wantErr: ErrInvalidToken,
		},
		{
			name: "expired beyond clock skew",
			svc: func(t *testing.T) Service {
				later, err := newService(testSecret, time.Hour, fixedClock(issuedAt.Add(2*time.Hour)))
				require.NoError(t, err)
				return later
			},
			token:   token,
			wantErr: ErrExpiredToken,
		},
		{
			name: "wrong token type",
			svc: func(t *testing.T) Service {
				return issuer
			},
			token: func() string {
				claims := jwtSessionClaims{
					TokenType: "access",
					RegisteredClaims: jwt.RegisteredClaims{
						Subject:   "0b9f3f8e-5a4c-4c1e-9a55-0f3c1c7b9e01",
						ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
					},
				}
				signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
				require.NoError(t, err)
				return signed
			}(),
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.svc(t).Validate(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidate_WithinClockSkew(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := newService(testSecret, time.Hour, fixedClock(issuedAt))
	require.NoError(t, err)
	token, _, err := issuer.Issue(context.Background())
	require.NoError(t, err)

	late, err := newService(testSecret, time.Hour, fixedClock(issuedAt.Add(time.Hour+time.Minute)))
	require.NoError(t, err)
	_, err = late.Validate(context.Background(), token)
	assert.NoError(t, err)
}
