package mocks

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/phrazzld/scry-chat/internal/generation"
)

// MockImageGenerator implements generation.ImageGenerator for testing
type MockImageGenerator struct {
	// GenerateImageFn allows test cases to mock the GenerateImage behavior
	GenerateImageFn func(ctx context.Context, req generation.ImageRequest) (string, error)

	// Default response values
	Path string
	Err  error

	mu       sync.Mutex
	requests []generation.ImageRequest
}

// GenerateImage implements the generation.ImageGenerator interface
func (m *MockImageGenerator) GenerateImage(ctx context.Context, req generation.ImageRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.GenerateImageFn != nil {
		return m.GenerateImageFn(ctx, req)
	}
	return m.Path, m.Err
}

// Requests returns every request passed to GenerateImage
func (m *MockImageGenerator) Requests() []generation.ImageRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.ImageRequest(nil), m.requests...)
}

// MockImageStore implements generation.ImageStore with an in-memory map
type MockImageStore struct {
	// SaveFn allows test cases to mock the Save behavior
	SaveFn func(ctx context.Context, tempPath, name string) (string, error)

	// OpenFn allows test cases to mock the Open behavior
	OpenFn func(ref string) (io.ReadSeekCloser, time.Time, error)

	mu    sync.Mutex
	saved map[string]string
}

// Save implements the generation.ImageStore interface; by default it records
// tempPath under name and returns name as the reference
func (m *MockImageStore) Save(ctx context.Context, tempPath, name string) (string, error) {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, tempPath, name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[string]string)
	}
	m.saved[name] = tempPath
	return name, nil
}

// Open implements the generation.ImageStore interface
func (m *MockImageStore) Open(ref string) (io.ReadSeekCloser, time.Time, error) {
	if m.OpenFn != nil {
		return m.OpenFn(ref)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.saved[ref]
	if !ok {
		return nil, time.Time{}, generation.ErrImageNotFound
	}
	return nopCloser{bytes.NewReader([]byte(src))}, time.Time{}, nil
}

// Saved returns a copy of the saved name to temp path mapping
func (m *MockImageStore) Saved() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.saved))
	for k, v := range m.saved {
		out[k] = v
	}
	return out
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
