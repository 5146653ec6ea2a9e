package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey     string
	TextModel  string
	ImageModel string
}

// GeminiClient generates copy and images with Gemini. It is the default image provider.
type GeminiClient struct {
	client     *genai.Client
	textModel  string
	imageModel string
	logger     *zap.Logger
}

var (
	_ TextProvider  = (*GeminiClient)(nil)
	_ ImageProvider = (*GeminiClient)(nil)
)

// NewGeminiClient creates a Gemini provider.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, NotConfigured(ProviderGemini)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:     client,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		logger:     logger.Named("gemini"),
	}, nil
}

// Name implements TextProvider and ImageProvider.
func (c *GeminiClient) Name() string { return ProviderGemini }

// GenerateText implements TextProvider.
func (c *GeminiClient) GenerateText(ctx context.Context, req TextRequest) (*TextResult, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.textModel,
		[]*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}, config)
	if err != nil {
		return nil, c.classify(err, c.textModel)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, NewError(ErrorTypeUnknown, ProviderGemini, "empty response", nil)
	}

	result := &TextResult{Text: text, Model: c.textModel}
	if resp.UsageMetadata != nil {
		result.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	c.logger.Info("Gemini text request completed",
		zap.Int("output_tokens", result.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return result, nil
}

// GenerateImage implements ImageProvider. Reference images are sent as inline
// parts ahead of the text directive, in the order given.
func (c *GeminiClient) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	parts := make([]*genai.Part, 0, len(req.References)+1)
	for _, ref := range req.References {
		parts = append(parts, genai.NewPartFromBytes(ref.Data, ref.MimeType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
		ImageConfig:        &genai.ImageConfig{AspectRatio: geminiAspectRatio(req.AspectRatio)},
	}
	if size := geminiImageSize(req.Resolution); size != "" {
		config.ImageConfig.ImageSize = size
	}
	if req.Seed != nil {
		config.Seed = genai.Ptr(int32(*req.Seed))
	}

	c.logger.Debug("Gemini image request",
		zap.String("model", c.imageModel),
		zap.Int("references", len(req.References)),
		zap.Int("prompt_len", len(req.Prompt)))

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.imageModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config)
	if err != nil {
		return nil, c.classify(err, c.imageModel)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				c.logger.Info("Gemini image request completed",
					zap.Int("bytes", len(part.InlineData.Data)),
					zap.Duration("elapsed", time.Since(start)))
				return &ImageResult{
					Data:     part.InlineData.Data,
					MimeType: part.InlineData.MIMEType,
					Model:    c.imageModel,
				}, nil
			}
		}
	}

	return nil, NewError(ErrorTypeUnknown, ProviderGemini, "response contained no image", nil)
}

// geminiAspectRatio passes through ratios Gemini accepts and defaults to square.
func geminiAspectRatio(ratio string) string {
	switch ratio {
	case "1:1", "2:3", "3:2", "3:4", "4:3", "4:5", "5:4", "9:16", "16:9", "21:9":
		return ratio
	}
	return "1:1"
}

// geminiImageSize maps resolution tiers to Gemini sizes. 1k is the model default and is left unset.
func geminiImageSize(resolution string) string {
	switch strings.ToLower(resolution) {
	case "2k":
		return "2K"
	case "4k":
		return "4K"
	}
	return ""
}

func (c *GeminiClient) classify(err error, model string) error {
	e := classifyGeminiError(err)
	e.Model = model
	return e
}

func classifyGeminiError(err error) *Error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyGeminiAPIError(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return classifyGeminiAPIError(*apiErrPtr, err)
	}
	return ClassifyError(ProviderGemini, err)
}

func classifyGeminiAPIError(apiErr genai.APIError, err error) *Error {
	if apiErr.Status == "RESOURCE_EXHAUSTED" {
		e := NewError(ErrorTypeQuota, ProviderGemini, "quota exhausted", err)
		e.StatusCode = apiErr.Code
		return e
	}
	if apiErr.Code == 400 && strings.Contains(strings.ToLower(apiErr.Message), "api key") {
		e := NewError(ErrorTypeAuth, ProviderGemini, "authentication failed", err)
		e.StatusCode = apiErr.Code
		return e
	}
	return NewStatusError(ProviderGemini, apiErr.Code, apiErr.Message, err)
}
