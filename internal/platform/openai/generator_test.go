package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phrazzld/scry-chat/internal/config"
	"github.com/phrazzld/scry-chat/internal/domain"
	"github.com/phrazzld/scry-chat/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionBody(content, finish string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "deepseek-v3",
		"choices": []map[string]interface{}{{
			"index":         0,
			"finish_reason": finish,
			"message":       map[string]interface{}{"role": "assistant", "content": content},
		}},
	})
	return string(body)
}

func newTestServer(t *testing.T, status int, body string, got *recordedRequest, auth *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		if auth != nil {
			*auth = r.Header.Get("Authorization")
		}
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewGenerator(t *testing.T) {
	t.Parallel()

	_, err := NewGenerator(config.LLMConfig{Provider: "openai"}, testLogger())
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewGenerator(config.LLMConfig{Provider: "ollama"}, testLogger())
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewGenerator(config.LLMConfig{Provider: "llm7"}, nil)
	assert.Error(t, err)

	gen, err := NewGenerator(config.LLMConfig{Provider: "llm7"}, testLogger())
	require.NoError(t, err)
	assert.NotNil(t, gen)
}

func TestGenerator_Generate(t *testing.T) {
	t.Parallel()

	messages := []generation.Message{
		{Role: domain.RoleSystem, Content: "be brief"},
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, Content: "hello"},
		{Role: domain.RoleUser, Content: "bye"},
	}

	t.Run("sends ordered messages", func(t *testing.T) {
		t.Parallel()
		var got recordedRequest
		var auth string
		srv := newTestServer(t, http.StatusOK, completionBody("See you!", "stop"), &got, &auth)

		gen, err := NewGenerator(config.LLMConfig{Provider: "llm7", BaseURL: srv.URL, Timeout: 5 * time.Second}, testLogger())
		require.NoError(t, err)

		reply, err := gen.Generate(context.Background(), "gpt-4.1", messages)
		require.NoError(t, err)
		assert.Equal(t, "See you!", reply)

		assert.Equal(t, "gpt-4.1", got.Model)
		require.Len(t, got.Messages, 4)
		assert.Equal(t, "system", got.Messages[0].Role)
		assert.Equal(t, "user", got.Messages[1].Role)
		assert.Equal(t, "assistant", got.Messages[2].Role)
		assert.Equal(t, "bye", got.Messages[3].Content)
		assert.Equal(t, "Bearer unused", auth)
	})

	t.Run("unwraps reasoning content", func(t *testing.T) {
		t.Parallel()
		wrapped := `{"reasoning_content": "The answer is 4."}`
		srv := newTestServer(t, http.StatusOK, completionBody(wrapped, "stop"), nil, nil)

		gen, err := NewGenerator(config.LLMConfig{Provider: "llm7", BaseURL: srv.URL}, testLogger())
		require.NoError(t, err)

		reply, err := gen.Generate(context.Background(), "deepseek-v3", messages)
		require.NoError(t, err)
		assert.Equal(t, "The answer is 4.", reply)
	})

	t.Run("server error", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, http.StatusInternalServerError, `{"error":{"message":"boom"}}`, nil, nil)

		gen, err := NewGenerator(config.LLMConfig{Provider: "openai", APIKey: "sk-test", BaseURL: srv.URL}, testLogger())
		require.NoError(t, err)

		_, err = gen.Generate(context.Background(), "gpt-4.1", messages)
		assert.ErrorIs(t, err, generation.ErrExternalService)
	})

	t.Run("content filter", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, http.StatusOK, completionBody("", "content_filter"), nil, nil)

		gen, err := NewGenerator(config.LLMConfig{Provider: "llm7", BaseURL: srv.URL}, testLogger())
		require.NoError(t, err)

		_, err = gen.Generate(context.Background(), "gpt-4.1", messages)
		assert.ErrorIs(t, err, generation.ErrContentBlocked)
	})
}

func TestDecodeReasoningContent(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"plain text":                            "plain text",
		`{"reasoning_content":"inner"}`:         "inner",
		`  {"reasoning_content":"padded"}  `:    "padded",
		`{"other":"field"}`:                     `{"other":"field"}`,
		`{not json`:                             `{not json`,
		`{"reasoning_content":""}`:              `{"reasoning_content":""}`,
	}
	for input, want := range tests {
		assert.Equal(t, want, decodeReasoningContent(input), input)
	}
}
