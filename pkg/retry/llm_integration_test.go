package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lumenbrand/lumen-engine/pkg/llm"
	"github.com/lumenbrand/lumen-engine/pkg/retry"
)

// TestIsRetryable_WithLLMError verifies that retry.IsRetryable correctly
// recognizes llm.Error retryability via the IsRetryable() interface method.
func TestIsRetryable_WithLLMError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "transient provider error",
			err:      llm.NewStatusError(llm.ProviderGemini, 503, "server error", errors.New("HTTP 503")),
			expected: true,
		},
		{
			name:     "timeout provider error",
			err:      llm.NewError(llm.ErrorTypeTimeout, llm.ProviderAnthropic, "no response", context.DeadlineExceeded),
			expected: true,
		},
		{
			name:     "rate limit is never retried",
			err:      llm.NewStatusError(llm.ProviderAnthropic, 429, "rate limited", errors.New("HTTP 429 server busy")),
			expected: false,
		},
		{
			name:     "auth error",
			err:      llm.NewStatusError(llm.ProviderOpenAI, 401, "unauthorized", nil),
			expected: false,
		},
		{
			name:     "wrapped transient error",
			err:      fmt.Errorf("dispatch: %w", llm.NewStatusError(llm.ProviderFreepik, 502, "bad gateway", nil)),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retry.IsRetryable(tt.err); got != tt.expected {
				t.Errorf("IsRetryable() = %v, want %v for %v", got, tt.expected, tt.err)
			}
		})
	}
}

func TestDoIfRetryable_StopsOnQuotaError(t *testing.T) {
	cfg := &retry.Config{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}

	calls := 0
	err := retry.DoIfRetryable(context.Background(), cfg, func() error {
		calls++
		return llm.NewStatusError(llm.ProviderFreepik, 402, "no credits", nil)
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("quota errors must not be retried, got %d calls", calls)
	}
}
