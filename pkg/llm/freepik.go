package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Freepik task statuses.
const (
	freepikStatusCompleted = "COMPLETED"
	freepikStatusFailed    = "FAILED"
)

const (
	freepikMysticPath = "/v1/ai/mystic"
	freepikVideoPath  = "/v1/ai/image-to-video/kling-v2"
)

// FreepikConfig holds configuration for the Freepik client.
type FreepikConfig struct {
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	HTTPClient   *http.Client // Optional
}

// FreepikClient submits Mystic image and Kling video tasks and polls them to completion.
type FreepikClient struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	logger       *zap.Logger
}

var (
	_ ImageProvider = (*FreepikClient)(nil)
	_ VideoProvider = (*FreepikClient)(nil)
)

// NewFreepikClient creates a Freepik provider.
func NewFreepikClient(cfg FreepikConfig, logger *zap.Logger) (*FreepikClient, error) {
	if cfg.APIKey == "" {
		return nil, NotConfigured(ProviderFreepik)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("freepik base URL is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &FreepikClient{
		httpClient:   httpClient,
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		pollInterval: cfg.PollInterval,
		logger:       logger.Named("freepik"),
	}, nil
}

// Name implements ImageProvider and VideoProvider.
func (c *FreepikClient) Name() string { return ProviderFreepik }

type freepikTask struct {
	Data struct {
		TaskID    string   `json:"task_id"`
		Status    string   `json:"status"`
		Generated []string `json:"generated"`
	} `json:"data"`
}

type mysticRequest struct {
	Prompt             string `json:"prompt"`
	Resolution         string `json:"resolution,omitempty"`
	AspectRatio        string `json:"aspect_ratio,omitempty"`
	Model              string `json:"model,omitempty"`
	Seed               *int64 `json:"seed,omitempty"`
	StructureReference string `json:"structure_reference,omitempty"`
	StyleReference     string `json:"style_reference,omitempty"`
}

// GenerateImage implements ImageProvider. Mystic accepts one structure and one
// style reference: the first product image and the first style image are used.
func (c *FreepikClient) GenerateImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	body := mysticRequest{
		Prompt:      req.Prompt,
		Resolution:  strings.ToLower(req.Resolution),
		AspectRatio: freepikAspectRatio(req.AspectRatio),
		Seed:        req.Seed,
	}
	if req.Model != "" && req.Model != "mystic" {
		body.Model = req.Model
	}
	for _, ref := range req.References {
		encoded := base64.StdEncoding.EncodeToString(ref.Data)
		switch {
		case ref.Role == "style" && body.StyleReference == "":
			body.StyleReference = encoded
		case ref.Role == "product" && body.StructureReference == "":
			body.StructureReference = encoded
		}
	}

	task, err := c.submit(ctx, freepikMysticPath, body)
	if err != nil {
		return nil, err
	}
	done, err := c.poll(ctx, freepikMysticPath, task.Data.TaskID)
	if err != nil {
		return nil, err
	}

	return &ImageResult{URL: done.Data.Generated[0], TaskID: done.Data.TaskID, Model: "mystic"}, nil
}

type klingRequest struct {
	Image          string `json:"image"`
	Prompt         string `json:"prompt,omitempty"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Duration       string `json:"duration"`
}

// GenerateVideo implements VideoProvider.
func (c *FreepikClient) GenerateVideo(ctx context.Context, req VideoRequest) (*VideoResult, error) {
	if req.ImageURL == "" {
		return nil, NewError(ErrorTypeBadRequest, ProviderFreepik, "source image is required", nil)
	}
	duration := "5"
	if req.DurationSecs >= 10 {
		duration = "10"
	}

	task, err := c.submit(ctx, freepikVideoPath, klingRequest{
		Image:          req.ImageURL,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Duration:       duration,
	})
	if err != nil {
		return nil, err
	}
	done, err := c.poll(ctx, freepikVideoPath, task.Data.TaskID)
	if err != nil {
		return nil, err
	}

	return &VideoResult{URL: done.Data.Generated[0], TaskID: done.Data.TaskID}, nil
}

func (c *FreepikClient) submit(ctx context.Context, path string, payload any) (*freepikTask, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal freepik request: %w", err)
	}

	task, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if task.Data.TaskID == "" {
		return nil, NewError(ErrorTypeUnknown, ProviderFreepik, "response carried no task id", nil)
	}

	c.logger.Debug("Freepik task submitted",
		zap.String("path", path),
		zap.String("task_id", task.Data.TaskID))
	return task, nil
}

// poll checks the task every poll interval until it completes, fails or ctx ends.
func (c *FreepikClient) poll(ctx context.Context, path, taskID string) (*freepikTask, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		task, err := c.do(ctx, http.MethodGet, path+"/"+taskID, nil)
		if err != nil {
			return nil, err
		}

		switch task.Data.Status {
		case freepikStatusCompleted:
			if len(task.Data.Generated) == 0 {
				return nil, NewError(ErrorTypeUnknown, ProviderFreepik, "completed task has no output", nil)
			}
			return task, nil
		case freepikStatusFailed:
			return nil, NewError(ErrorTypeUnknown, ProviderFreepik, fmt.Sprintf("task %s failed", taskID), nil)
		}

		select {
		case <-ctx.Done():
			return nil, ClassifyError(ProviderFreepik, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *FreepikClient) do(ctx context.Context, method, path string, body io.Reader) (*freepikTask, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create freepik request: %w", err)
	}
	req.Header.Set("x-freepik-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ClassifyError(ProviderFreepik, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, ClassifyError(ProviderFreepik, err)
	}

	if resp.StatusCode >= 300 {
		msg := freepikErrorMessage(raw)
		e := NewStatusError(ProviderFreepik, resp.StatusCode, msg, nil)
		if lower := strings.ToLower(msg); strings.Contains(lower, "credit") || strings.Contains(lower, "quota") {
			e.Type, e.Retryable = ErrorTypeQuota, false
		}
		return nil, e
	}

	var task freepikTask
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, NewError(ErrorTypeUnknown, ProviderFreepik, "malformed response", err)
	}
	return &task, nil
}

func freepikErrorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return "request failed"
}

// freepikAspectRatio maps "W:H" ratios to Mystic's named ratios.
func freepikAspectRatio(ratio string) string {
	switch ratio {
	case "16:9":
		return "widescreen_16_9"
	case "9:16":
		return "social_story_9_16"
	case "4:3":
		return "classic_4_3"
	case "3:4":
		return "traditional_3_4"
	case "3:2":
		return "standard_3_2"
	case "2:3":
		return "portrait_2_3"
	case "4:5":
		return "social_post_4_5"
	case "21:9":
		return "cinematic_21_9"
	}
	return "square_1_1"
}
