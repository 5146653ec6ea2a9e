package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorType classifies a provider failure for the dispatcher.
type ErrorType string

const (
	ErrorTypeConfig     ErrorType = "config"      // missing credentials or model; fatal
	ErrorTypeAuth       ErrorType = "auth"        // rejected credentials
	ErrorTypeQuota      ErrorType = "quota"       // rate limit, quota or credit exhaustion
	ErrorTypeTransient  ErrorType = "transient"   // 5xx, connection failures
	ErrorTypeTimeout    ErrorType = "timeout"     // provider call exceeded its deadline
	ErrorTypeBadRequest ErrorType = "bad_request" // provider rejected the request itself
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Retryable reports whether errors of this type are worth retrying against the same provider.
func (t ErrorType) Retryable() bool {
	return t == ErrorTypeTransient || t == ErrorTypeTimeout
}

// Error represents a structured provider error with classification.
type Error struct {
	Type       ErrorType // Classification of the error
	Provider   string    // Provider name, e.g. "anthropic"
	Message    string    // Human-readable message
	Retryable  bool      // Whether the operation can be retried
	Cause      error     // Underlying error
	StatusCode int       // HTTP status code if applicable
	Model      string    // Model name if known
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	if e.Provider != "" {
		parts = append(parts, e.Provider)
	}
	parts = append(parts, string(e.Type))

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}

	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements the retry.RetryableError interface.
// This allows the retry package to check retryability without importing llm.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewError creates a structured provider error. Retryability follows the type.
func NewError(errType ErrorType, provider, message string, cause error) *Error {
	return &Error{
		Type:      errType,
		Provider:  provider,
		Message:   message,
		Retryable: errType.Retryable(),
		Cause:     cause,
	}
}

// NewStatusError creates a structured error from an HTTP status code.
func NewStatusError(provider string, statusCode int, message string, cause error) *Error {
	e := NewError(ClassifyHTTPStatus(statusCode), provider, message, cause)
	e.StatusCode = statusCode
	return e
}

// ClassifyHTTPStatus maps an HTTP status to an error type.
func ClassifyHTTPStatus(code int) ErrorType {
	switch {
	case code == 401 || code == 403:
		return ErrorTypeAuth
	case code == 402 || code == 429:
		return ErrorTypeQuota
	case code == 408 || code == 504:
		return ErrorTypeTimeout
	case code >= 500 && code <= 599:
		return ErrorTypeTransient
	case code >= 400 && code <= 499:
		return ErrorTypeBadRequest
	}
	return ErrorTypeUnknown
}

// quotaSignals are provider phrases for rate, quota and credit exhaustion.
var quotaSignals = []string{
	"rate limit", "rate_limit", "too many requests", "quota", "resource_exhausted",
	"resource exhausted", "credit balance", "insufficient credit", "insufficient_quota",
	"billing",
}

// ClassifyError categorizes an error and returns a structured Error.
// SDK-specific errors are classified by the provider clients before reaching here;
// this handles context errors, network errors and plain messages.
func ClassifyError(provider string, err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrorTypeTimeout, provider, "request timeout", err)
	}
	if errors.Is(err, context.Canceled) {
		return NewError(ErrorTypeUnknown, provider, "request canceled", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return NewError(ErrorTypeTimeout, provider, "network timeout", err)
		}
		return NewError(ErrorTypeTransient, provider, "network error", err)
	}

	errStr := err.Error()
	lower := strings.ToLower(errStr)

	statusCode := 0
	for _, code := range []int{400, 401, 402, 403, 404, 408, 413, 422, 429, 500, 502, 503, 504} {
		if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
			statusCode = code
			break
		}
	}

	classified := func(t ErrorType, msg string) *Error {
		e := NewError(t, provider, msg, err)
		e.StatusCode = statusCode
		return e
	}

	for _, signal := range quotaSignals {
		if strings.Contains(lower, signal) {
			return classified(ErrorTypeQuota, "quota or rate limit exceeded")
		}
	}
	if strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "api key not valid") || strings.Contains(lower, "permission denied") {
		return classified(ErrorTypeAuth, "authentication failed")
	}
	if strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "deadline exceeded") {
		return classified(ErrorTypeTimeout, "request timeout")
	}
	if strings.Contains(lower, "connection refused") || strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "no such host") || strings.Contains(lower, "overloaded") ||
		strings.Contains(lower, "unavailable") {
		return classified(ErrorTypeTransient, "provider unavailable")
	}
	if statusCode > 0 {
		return classified(ClassifyHTTPStatus(statusCode), "provider error")
	}

	return classified(ErrorTypeUnknown, "provider error")
}

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// GetErrorType extracts the ErrorType from an error.
func GetErrorType(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

// NotConfigured returns the configuration error for a provider without credentials.
func NotConfigured(provider string) *Error {
	return NewError(ErrorTypeConfig, provider, "provider is not configured", nil)
}
