// Package llm provides clients for the text, image and video generation providers.
package llm

import (
	"context"
)

// Provider names. These are recorded on generations as the serving backend.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderFreepik   = "freepik"
)

// TextRequest is a single-turn text generation request.
type TextRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// TextResult is the generated copy.
type TextResult struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}

// TextProvider generates text. Use this interface for dependency injection to enable mocking in tests.
type TextProvider interface {
	Name() string
	GenerateText(ctx context.Context, req TextRequest) (*TextResult, error)
}

// ReferencePart is one materialized reference image, already in priority order.
type ReferencePart struct {
	Role     string // product, background or style
	Label    string
	MimeType string
	Data     []byte
}

// ImageRequest is an image generation request. References are sent in slice order.
type ImageRequest struct {
	Prompt string
	// NegativePrompt is already rendered into Prompt. Providers only forward
	// it through a dedicated request field.
	NegativePrompt string
	AspectRatio    string // e.g. "1:1", "4:5", "16:9"
	Resolution     string // "1k", "2k", "4k"
	Seed           *int64
	Model          string // provider-specific model hint, e.g. "mystic"
	References     []ReferencePart
}

// ImageResult carries either inline image bytes or a provider-hosted URL.
type ImageResult struct {
	Data     []byte
	MimeType string
	URL      string
	TaskID   string
	Model    string
}

// ImageProvider generates images.
type ImageProvider interface {
	Name() string
	GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error)
}

// VideoRequest animates a source image.
type VideoRequest struct {
	Prompt         string
	NegativePrompt string
	ImageURL       string
	DurationSecs   int
}

// VideoResult is a provider-hosted video.
type VideoResult struct {
	URL    string
	TaskID string
}

// VideoProvider generates video from an image.
type VideoProvider interface {
	Name() string
	GenerateVideo(ctx context.Context, req VideoRequest) (*VideoResult, error)
}
