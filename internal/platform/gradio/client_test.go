package gradio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/phrazzld/scry-chat/internal/config"
	"github.com/phrazzld/scry-chat/internal/generation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSpace serves the call, stream and file endpoints of a Space
type fakeSpace struct {
	stream   string
	fileBody string

	mu      sync.Mutex
	payload []interface{}
	auth    string
}

func (f *fakeSpace) request() ([]interface{}, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payload, f.auth
}

func (f *fakeSpace) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/gradio_api/call/infer", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body struct {
			Data []interface{} `json:"data"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.auth = r.Header.Get("Authorization")
		f.payload = body.Data
		f.mu.Unlock()
		_, _ = io.WriteString(w, `{"event_id":"evt-1"}`)
	})
	mux.HandleFunc("/gradio_api/call/infer/evt-1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, f.stream)
	})
	mux.HandleFunc("/gradio_api/file=/tmp/gradio/out.webp", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, f.fileBody)
	})
	return mux
}

func newTestClient(t *testing.T, space *fakeSpace) *Client {
	t.Helper()
	srv := httptest.NewServer(space.handler(t))
	t.Cleanup(srv.Close)

	client, err := NewClient(config.ImageConfig{
		SpaceURL: srv.URL,
		APIName:  "/infer",
		HFToken:  "hf_test",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	client.tempDir = t.TempDir()
	return client
}

func TestClient_GenerateImage(t *testing.T) {
	t.Parallel()

	req := generation.DefaultImageParams().Request("a lighthouse at dusk")

	t.Run("downloads completed file", func(t *testing.T) {
		t.Parallel()
		space := &fakeSpace{
			stream: "event: generating\ndata: null\n\n" +
				"event: complete\n" +
				`data: [{"path": "/tmp/gradio/out.webp", "url": null}, 1234]` + "\n\n",
			fileBody: "RIFFwebpdata",
		}
		client := newTestClient(t, space)

		tempPath, err := client.GenerateImage(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, ".webp", filepath.Ext(tempPath))
		data, err := os.ReadFile(tempPath)
		require.NoError(t, err)
		assert.Equal(t, "RIFFwebpdata", string(data))

		payload, auth := space.request()
		require.Len(t, payload, 8)
		assert.Equal(t, "a lighthouse at dusk", payload[0])
		assert.Equal(t, generation.DefaultNegativePrompt, payload[1])
		assert.Equal(t, true, payload[3])
		assert.Equal(t, float64(512), payload[4])
		assert.Equal(t, float64(28), payload[7])
		assert.Equal(t, "Bearer hf_test", auth)
	})

	t.Run("error event", func(t *testing.T) {
		t.Parallel()
		space := &fakeSpace{stream: "event: error\ndata: \"GPU quota exceeded\"\n\n"}
		client := newTestClient(t, space)

		_, err := client.GenerateImage(context.Background(), req)
		assert.ErrorIs(t, err, ErrCallFailed)
		assert.ErrorIs(t, err, generation.ErrExternalService)
		assert.Contains(t, err.Error(), "GPU quota exceeded")
	})

	t.Run("stream ends early", func(t *testing.T) {
		t.Parallel()
		space := &fakeSpace{stream: "event: heartbeat\ndata: null\n\n"}
		client := newTestClient(t, space)

		_, err := client.GenerateImage(context.Background(), req)
		assert.ErrorIs(t, err, ErrStreamEnded)
	})

	t.Run("empty output", func(t *testing.T) {
		t.Parallel()
		space := &fakeSpace{stream: "event: complete\ndata: []\n\n"}
		client := newTestClient(t, space)

		_, err := client.GenerateImage(context.Background(), req)
		assert.ErrorIs(t, err, ErrNoOutput)
		assert.ErrorIs(t, err, generation.ErrInvalidResponse)
	})
}

func TestClient_SubmitFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "sleeping")
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(config.ImageConfig{SpaceURL: srv.URL, APIName: "infer"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	_, err = client.GenerateImage(context.Background(), generation.ImageRequest{Prompt: "x"})
	assert.ErrorIs(t, err, generation.ErrExternalService)
	assert.Contains(t, err.Error(), "sleeping")
}

func TestNewClient_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(config.ImageConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)

	_, err = NewClient(config.ImageConfig{SpaceURL: "http://x"}, nil)
	assert.Error(t, err)
}
