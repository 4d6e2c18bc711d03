package main

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/scry-chat/internal/config"
	"github.com/phrazzld/scry-chat/internal/domain"
	"github.com/phrazzld/scry-chat/internal/mocks"
	"github.com/phrazzld/scry-chat/internal/platform/logger"
	"github.com/phrazzld/scry-chat/internal/snapshot"
	"github.com/stretchr/testify/require"
)

// createTestConfig returns a valid configuration using temp directories and
// the file snapshot backend.
func createTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{
			Port:            8080,
			LogLevel:        "debug",
			LogFormat:       "json",
			ShutdownTimeout: 5 * time.Second,
		},
		Chat: config.ChatConfig{
			Scope:           "global",
			ImagePrefix:     "/img",
			Models:          domain.DefaultModels,
			SessionSecret:   "test-session-secret-that-is-32-chars-long",
			SessionCookie:   "scrychat_session",
			SessionLifetime: time.Hour,
		},
		LLM: config.LLMConfig{
			Provider: "llm7",
			Timeout:  time.Second,
		},
		Image: config.ImageConfig{
			SpaceURL:      "http://127.0.0.1:1",
			APIName:       "infer",
			Dir:           filepath.Join(dir, "images"),
			Timeout:       time.Second,
			Width:         512,
			Height:        512,
			GuidanceScale: 4,
			Steps:         28,
		},
		Task: config.TaskConfig{
			WorkerCount:         2,
			QueueSize:           8,
			MaxPendingJobs:      16,
			OrphanCheckInterval: time.Minute,
		},
		Snapshot: config.SnapshotConfig{
			Backend:  "file",
			Path:     filepath.Join(dir, "conversations.json"),
			Debounce: 0,
		},
	}
}

// testBackends returns mock backends that reply with reply.
func testBackends(t *testing.T, reply string) (backends, *mocks.MockGenerator, *mocks.MockImageStore) {
	t.Helper()
	gen := mocks.NewMockGeneratorWithReply(reply)
	store := &mocks.MockImageStore{}
	return backends{
		generator:  gen,
		images:     newTempImageGenerator(t),
		imageStore: store,
	}, gen, store
}

// newTempImageGenerator returns a mock that writes a small webp-like file
// for every request.
func newTempImageGenerator(t *testing.T) *mocks.MockImageGenerator {
	t.Helper()
	dir := t.TempDir()
	return &mocks.MockImageGenerator{
		Path: writeTempImage(t, dir),
	}
}

func writeTempImage(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "out.webp")
	require.NoError(t, os.WriteFile(path, []byte("RIFF0000WEBP"), 0o600))
	return path
}

// runningApp is an application serving on a random local port.
type runningApp struct {
	app     *application
	baseURL string
	cancel  context.CancelFunc
	done    chan error
}

// startTestApp assembles and serves an application until the test ends or
// stop is called.
func startTestApp(t *testing.T, cfg *config.Config, b backends, store snapshot.Store) *runningApp {
	t.Helper()
	l, _ := logger.GetTestLogger(t)

	app, err := assembleApplication(context.Background(), cfg, l, b, store)
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ra := &runningApp{
		app:     app,
		baseURL: "http://" + listener.Addr().String(),
		cancel:  cancel,
		done:    make(chan error, 1),
	}
	go func() {
		ra.done <- app.serve(ctx, listener, app.setupRouter())
	}()
	t.Cleanup(func() { ra.stop(t) })
	return ra
}

// stop cancels the serve loop and waits for a clean shutdown. It is safe to
// call more than once.
func (ra *runningApp) stop(t *testing.T) {
	t.Helper()
	if ra.done == nil {
		return
	}
	ra.cancel()
	select {
	case err := <-ra.done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
	ra.done = nil
}

// newTestClient returns an HTTP client that keeps cookies.
func newTestClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

// doJSON sends body (when non-empty) and decodes the JSON response into out.
func doJSON(t *testing.T, client *http.Client, method, url, body string, out any) int {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}
