package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewOpenAIClient(OpenAIConfig{Endpoint: srv.URL + "/v1/", Model: "gpt-4o", APIKey: "sk-test"}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestOpenAIClient_GenerateText(t *testing.T) {
	c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o", body.Model)
		if assert.Len(t, body.Messages, 2) {
			assert.Equal(t, "system", body.Messages[0].Role)
			assert.Equal(t, "be brief", body.Messages[0].Content)
			assert.Equal(t, "write a tagline", body.Messages[1].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Light the wick."},"finish_reason":"stop"}],"usage":{"prompt_tokens":12,"completion_tokens":4,"total_tokens":16}}`))
	})

	res, err := c.GenerateText(context.Background(), TextRequest{System: "be brief", Prompt: "write a tagline", Temperature: 0.7})

	require.NoError(t, err)
	assert.Equal(t, "Light the wick.", res.Text)
	assert.Equal(t, 12, res.InputTokens)
	assert.Equal(t, 4, res.OutputTokens)
	assert.Equal(t, ProviderOpenAI, c.Name())
}

func TestOpenAIClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType ErrorType
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached","type":"requests"}}`, ErrorTypeQuota},
		{"insufficient quota", http.StatusTooManyRequests, `{"error":{"message":"You exceeded your current quota","type":"insufficient_quota"}}`, ErrorTypeQuota},
		{"bad key", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`, ErrorTypeAuth},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"The server had an error","type":"server_error"}}`, ErrorTypeTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.GenerateText(context.Background(), TextRequest{Prompt: "x"})

			require.Error(t, err)
			assert.Equal(t, tt.wantType, GetErrorType(err))
			assert.Equal(t, tt.wantType.Retryable(), IsRetryable(err))
		})
	}
}

func TestNewOpenAIClient_Validation(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{Endpoint: "http://x", Model: "m"}, zap.NewNop())
	assert.Equal(t, ErrorTypeConfig, GetErrorType(err))

	_, err = NewOpenAIClient(OpenAIConfig{APIKey: "k", Endpoint: "http://x"}, zap.NewNop())
	assert.Error(t, err)
}
