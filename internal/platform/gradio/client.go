package gradio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/phrazzld/scry-chat/internal/config"
	"github.com/phrazzld/scry-chat/internal/generation"
)

// Errors reported by the Space
var (
	ErrCallFailed  = errors.New("gradio call failed")
	ErrNoOutput    = errors.New("gradio call produced no file")
	ErrNoEventID   = errors.New("gradio did not return an event id")
	ErrStreamEnded = errors.New("gradio event stream ended without a result")
)

// fileData is the Gradio representation of a produced file
type fileData struct {
	Path string `json:"path"`
	URL  string `json:"url"`
}

// Client calls one endpoint of a Gradio Space.
type Client struct {
	spaceURL   string
	apiName    string
	token      string
	tempDir    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Space client from the image configuration.
func NewClient(cfg config.ImageConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.SpaceURL == "" {
		return nil, fmt.Errorf("%w: space url cannot be empty", generation.ErrInvalidConfig)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	return &Client{
		spaceURL:   strings.TrimRight(cfg.SpaceURL, "/"),
		apiName:    strings.Trim(cfg.APIName, "/"),
		token:      cfg.HFToken,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "gradio"),
	}, nil
}

// GenerateImage runs the Space endpoint and downloads the image into a
// temporary file whose path is returned.
func (c *Client) GenerateImage(ctx context.Context, req generation.ImageRequest) (string, error) {
	eventID, err := c.submit(ctx, req)
	if err != nil {
		return "", err
	}

	c.logger.DebugContext(ctx, "gradio call queued", "event_id", eventID)

	file, err := c.awaitResult(ctx, eventID)
	if err != nil {
		return "", err
	}

	return c.download(ctx, file)
}

func (c *Client) callURL() string {
	return c.spaceURL + "/gradio_api/call/" + c.apiName
}

// submit queues the call and returns its event id
func (c *Client) submit(ctx context.Context, req generation.ImageRequest) (string, error) {
	payload := map[string]interface{}{
		"data": []interface{}{
			req.Prompt,
			req.NegativePrompt,
			req.Seed,
			req.RandomizeSeed,
			req.Width,
			req.Height,
			req.GuidanceScale,
			req.Steps,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, c.callURL(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: gradio: %v", generation.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: gradio: %s: %s", generation.ErrExternalService, resp.Status, strings.TrimSpace(string(msg)))
	}

	var queued struct {
		EventID string `json:"event_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&queued); err != nil {
		return "", fmt.Errorf("%w: failed to decode call response: %v", generation.ErrInvalidResponse, err)
	}
	if queued.EventID == "" {
		return "", fmt.Errorf("%w: %w", generation.ErrInvalidResponse, ErrNoEventID)
	}
	return queued.EventID, nil
}

// awaitResult reads the event stream until the call completes or fails
func (c *Client) awaitResult(ctx context.Context, eventID string) (fileData, error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, c.callURL()+"/"+url.PathEscape(eventID), nil)
	if err != nil {
		return fileData{}, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fileData{}, fmt.Errorf("%w: gradio: %v", generation.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fileData{}, fmt.Errorf("%w: gradio stream: %s", generation.ErrExternalService, resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var event string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			switch event {
			case "complete":
				return parseOutput(data)
			case "error":
				return fileData{}, fmt.Errorf("%w: %w: %s", generation.ErrExternalService, ErrCallFailed, data)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fileData{}, fmt.Errorf("%w: gradio stream: %v", generation.ErrExternalService, err)
	}
	return fileData{}, fmt.Errorf("%w: %w", generation.ErrExternalService, ErrStreamEnded)
}

// parseOutput extracts the first output file from a complete event payload
func parseOutput(data string) (fileData, error) {
	var outputs []json.RawMessage
	if err := json.Unmarshal([]byte(data), &outputs); err != nil {
		return fileData{}, fmt.Errorf("%w: failed to decode output: %v", generation.ErrInvalidResponse, err)
	}
	if len(outputs) == 0 {
		return fileData{}, fmt.Errorf("%w: %w", generation.ErrInvalidResponse, ErrNoOutput)
	}

	var file fileData
	if err := json.Unmarshal(outputs[0], &file); err != nil {
		return fileData{}, fmt.Errorf("%w: unexpected output: %v", generation.ErrInvalidResponse, err)
	}
	if file.URL == "" && file.Path == "" {
		return fileData{}, fmt.Errorf("%w: %w", generation.ErrInvalidResponse, ErrNoOutput)
	}
	return file, nil
}

// download fetches the produced file into a temporary file
func (c *Client) download(ctx context.Context, file fileData) (string, error) {
	fileURL := file.URL
	if fileURL == "" {
		fileURL = c.spaceURL + "/gradio_api/file=" + file.Path
	}

	httpReq, err := c.newRequest(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: gradio download: %v", generation.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: gradio download: %s", generation.ErrExternalService, resp.Status)
	}

	ext := path.Ext(file.Path)
	if ext == "" {
		if u, err := url.Parse(fileURL); err == nil {
			ext = path.Ext(u.Path)
		}
	}

	tmp, err := os.CreateTemp(c.tempDir, "gradio-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: gradio download: %v", generation.ErrExternalService, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	return tmp.Name(), nil
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}
