package logging

import (
	"regexp"
)

const (
	// MaxPromptLogLength is the maximum length of a prompt to log
	MaxPromptLogLength = 200
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Matches password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// JWT bearer tokens (three base64 segments separated by dots)
	jwtPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)

	// Query-string style API keys; Gemini puts its key in ?key=...
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{10,}`)

	// Header style keys, e.g. x-freepik-api-key: abc / x-api-key: abc
	headerKeyPattern = regexp.MustCompile(`(?i)(x-[a-z-]*api-key|x-api-key)(["']?\s*[:=]\s*["']?)[A-Za-z0-9-_]{10,}`)

	// Anthropic / OpenAI style secret keys
	secretKeyPattern = regexp.MustCompile(`\bsk-[A-Za-z0-9-_]{10,}`)

	// Connection string credentials (user:pass@host format)
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)

	// Long base64 runs, typically inline image payloads
	base64Pattern = regexp.MustCompile(`[A-Za-z0-9+/]{200,}={0,2}`)

	// data: URLs with base64 payloads
	dataURLPattern = regexp.MustCompile(`data:[a-zA-Z0-9/+.-]+;base64,[A-Za-z0-9+/=]+`)
)

// SanitizeConnectionString removes credentials from a connection string.
// Use this before logging any connection string
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeError sanitizes error messages that might contain provider keys,
// tokens or inline image payloads. Provider SDK errors sometimes echo the
// request URL (including ?key=) or the request body back.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeText(err.Error())
}

// SanitizeText applies every redaction pattern to s.
func SanitizeText(s string) string {
	sanitized := passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	sanitized = jwtPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = headerKeyPattern.ReplaceAllString(sanitized, "${1}${2}"+RedactedText)
	sanitized = secretKeyPattern.ReplaceAllString(sanitized, RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)
	return RedactBase64(sanitized)
}

// RedactBase64 replaces inline base64 payloads with a short marker.
func RedactBase64(s string) string {
	s = dataURLPattern.ReplaceAllString(s, "data:[BASE64]")
	return base64Pattern.ReplaceAllString(s, "[BASE64]")
}

// TruncatePrompt truncates and redacts a prompt for logging.
func TruncatePrompt(prompt string) string {
	return TruncateString(RedactBase64(prompt), MaxPromptLogLength)
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
