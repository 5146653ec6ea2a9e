package llm

import (
	"context"
	"sync"
)

// MockTextProvider is a configurable mock for testing text generation.
// Set the function fields to control behavior in tests.
type MockTextProvider struct {
	// NameValue is returned by Name. Defaults to "mock".
	NameValue string

	// GenerateTextFunc is called when GenerateText is invoked.
	// If nil, returns a fixed result and nil error.
	GenerateTextFunc func(ctx context.Context, req TextRequest) (*TextResult, error)

	mu       sync.Mutex
	Requests []TextRequest
}

// Name implements TextProvider.
func (m *MockTextProvider) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

// GenerateText implements TextProvider.
func (m *MockTextProvider) GenerateText(ctx context.Context, req TextRequest) (*TextResult, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.GenerateTextFunc != nil {
		return m.GenerateTextFunc(ctx, req)
	}
	return &TextResult{Text: "mock copy", Model: "mock-model"}, nil
}

// Calls returns how many times GenerateText was invoked.
func (m *MockTextProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// Ensure MockTextProvider implements TextProvider at compile time.
var _ TextProvider = (*MockTextProvider)(nil)

// MockImageProvider is a configurable mock for testing image generation.
type MockImageProvider struct {
	NameValue         string
	GenerateImageFunc func(ctx context.Context, req ImageRequest) (*ImageResult, error)

	mu       sync.Mutex
	Requests []ImageRequest
}

// Name implements ImageProvider.
func (m *MockImageProvider) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

// GenerateImage implements ImageProvider.
func (m *MockImageProvider) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.GenerateImageFunc != nil {
		return m.GenerateImageFunc(ctx, req)
	}
	return &ImageResult{Data: []byte{0x89, 'P', 'N', 'G'}, MimeType: "image/png", Model: "mock-image"}, nil
}

// Calls returns how many times GenerateImage was invoked.
func (m *MockImageProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

var _ ImageProvider = (*MockImageProvider)(nil)

// MockVideoProvider is a configurable mock for testing video generation.
type MockVideoProvider struct {
	NameValue         string
	GenerateVideoFunc func(ctx context.Context, req VideoRequest) (*VideoResult, error)

	mu       sync.Mutex
	Requests []VideoRequest
}

// Name implements VideoProvider.
func (m *MockVideoProvider) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

// GenerateVideo implements VideoProvider.
func (m *MockVideoProvider) GenerateVideo(ctx context.Context, req VideoRequest) (*VideoResult, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.GenerateVideoFunc != nil {
		return m.GenerateVideoFunc(ctx, req)
	}
	return &VideoResult{URL: "https://cdn.example.com/video.mp4", TaskID: "mock-task"}, nil
}

// Calls returns how many times GenerateVideo was invoked.
func (m *MockVideoProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

var _ VideoProvider = (*MockVideoProvider)(nil)
