package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/config"
)

// Registry holds the providers that have credentials configured.
// Unconfigured providers are nil.
type Registry struct {
	Anthropic TextProvider
	Gemini    *GeminiClient
	OpenAI    TextProvider
	Freepik   *FreepikClient
}

// NewRegistry creates clients for every provider with credentials.
func NewRegistry(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Registry, error) {
	r := &Registry{}
	p := &cfg.Providers

	if p.AnthropicConfigured() {
		c, err := NewAnthropicClient(AnthropicConfig{
			APIKey:    p.Anthropic.APIKey,
			Model:     p.Anthropic.Model,
			MaxTokens: p.Anthropic.MaxTokens,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("anthropic: %w", err)
		}
		r.Anthropic = c
	}

	if p.GeminiConfigured() {
		c, err := NewGeminiClient(ctx, GeminiConfig{
			APIKey:     p.Gemini.APIKey,
			TextModel:  p.Gemini.TextModel,
			ImageModel: p.Gemini.ImageModel,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		r.Gemini = c
	}

	if p.OpenAIConfigured() {
		c, err := NewOpenAIClient(OpenAIConfig{
			Endpoint: p.OpenAI.BaseURL,
			Model:    p.OpenAI.Model,
			APIKey:   p.OpenAI.APIKey,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		r.OpenAI = c
	}

	if p.FreepikConfigured() {
		c, err := NewFreepikClient(FreepikConfig{
			APIKey:       p.Freepik.APIKey,
			BaseURL:      p.Freepik.BaseURL,
			PollInterval: cfg.Generation.FreepikPollInterval,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("freepik: %w", err)
		}
		r.Freepik = c
	}

	logger.Info("Generation providers configured",
		zap.Bool("anthropic", r.Anthropic != nil),
		zap.Bool("gemini", r.Gemini != nil),
		zap.Bool("openai", r.OpenAI != nil),
		zap.Bool("freepik", r.Freepik != nil))

	return r, nil
}

// TextProviders returns configured text providers keyed by name.
func (r *Registry) TextProviders() map[string]TextProvider {
	out := make(map[string]TextProvider)
	if r.Anthropic != nil {
		out[ProviderAnthropic] = r.Anthropic
	}
	if r.Gemini != nil {
		out[ProviderGemini] = r.Gemini
	}
	if r.OpenAI != nil {
		out[ProviderOpenAI] = r.OpenAI
	}
	return out
}

// ImageProviders returns the default (Gemini) and alternate (Freepik) image providers.
// Either may be nil.
func (r *Registry) ImageProviders() (defaultProvider, alternate ImageProvider) {
	if r.Gemini != nil {
		defaultProvider = r.Gemini
	}
	if r.Freepik != nil {
		alternate = r.Freepik
	}
	return defaultProvider, alternate
}

// VideoProvider returns the video provider, or nil.
func (r *Registry) VideoProvider() VideoProvider {
	if r.Freepik == nil {
		return nil
	}
	return r.Freepik
}
