package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// AnthropicConfig holds configuration for the Claude client.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string // Optional, for tests
}

// AnthropicClient generates copy with Claude.
type AnthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

var _ TextProvider = (*AnthropicClient)(nil)

// NewAnthropicClient creates a Claude text provider.
func NewAnthropicClient(cfg AnthropicConfig, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, NotConfigured(ProviderAnthropic)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("anthropic model is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}

	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(cfg.APIKey, opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger.Named("anthropic"),
	}, nil
}

// Name implements TextProvider.
func (c *AnthropicClient) Name() string { return ProviderAnthropic }

// GenerateText implements TextProvider.
func (c *AnthropicClient) GenerateText(ctx context.Context, req TextRequest) (*TextResult, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	temperature := float32(req.Temperature)
	prompt := req.Prompt

	c.logger.Debug("Claude request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(prompt)),
		zap.Int("system_len", len(req.System)))

	start := time.Now()
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		MaxTokens:   maxTokens,
		System:      req.System,
		Temperature: &temperature,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		return nil, c.classify(err)
	}

	text := extractAnthropicText(resp)
	if strings.TrimSpace(text) == "" {
		return nil, NewError(ErrorTypeUnknown, ProviderAnthropic, "empty response", nil)
	}

	c.logger.Info("Claude request completed",
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &TextResult{
		Text:         text,
		Model:        c.model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}

func extractAnthropicText(resp anthropic.MessagesResponse) string {
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			b.WriteString(*block.Text)
		}
	}
	return b.String()
}

// classify maps go-anthropic errors onto the provider error taxonomy.
func (c *AnthropicClient) classify(err error) error {
	e := classifyAnthropicError(err)
	e.Model = c.model
	return e
}

func classifyAnthropicError(err error) *Error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		lower := strings.ToLower(apiErr.Message)
		switch string(apiErr.Type) {
		case "rate_limit_error":
			return NewError(ErrorTypeQuota, ProviderAnthropic, "rate limited", err)
		case "authentication_error", "permission_error":
			return NewError(ErrorTypeAuth, ProviderAnthropic, "authentication failed", err)
		case "overloaded_error", "api_error":
			return NewError(ErrorTypeTransient, ProviderAnthropic, "provider unavailable", err)
		case "invalid_request_error":
			if strings.Contains(lower, "credit balance") || strings.Contains(lower, "billing") {
				return NewError(ErrorTypeQuota, ProviderAnthropic, "insufficient credit", err)
			}
			return NewError(ErrorTypeBadRequest, ProviderAnthropic, "invalid request", err)
		}
	}

	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) && reqErr.StatusCode > 0 {
		return NewStatusError(ProviderAnthropic, reqErr.StatusCode, "request failed", err)
	}

	return ClassifyError(ProviderAnthropic, err)
}
