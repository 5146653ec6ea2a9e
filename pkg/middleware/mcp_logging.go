package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/logging"
	"github.com/lumenbrand/lumen-engine/pkg/metrics"
)

// MCPRequestLogger logs MCP JSON-RPC calls with their tool name, sanitized
// arguments and outcome, and counts tool calls. Prompts and reference image
// payloads in arguments are truncated and stripped of base64. A nil logger
// disables logging; m may be nil.
func MCPRequestLogger(logger *zap.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Error("Failed to read MCP request body", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			var req jsonRPCRequest
			if err := json.Unmarshal(body, &req); err != nil {
				logger.Debug("Failed to parse MCP request JSON", zap.Error(err))
			}
			tool := req.Params.Name

			logger.Debug("MCP request",
				zap.String("method", req.Method),
				zap.String("tool", tool),
				zap.Any("arguments", sanitizeArguments(req.Params.Arguments)))

			recorder := &mcpResponseRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(recorder, r)
			elapsed := time.Since(start)

			var resp jsonRPCResponse
			if err := json.Unmarshal(recorder.body.Bytes(), &resp); err != nil {
				logger.Debug("Failed to parse MCP response JSON", zap.Error(err))
				return
			}

			outcome := "success"
			switch {
			case resp.Error != nil:
				outcome = "error"
				logger.Debug("MCP response error",
					zap.String("tool", tool),
					zap.Int("error_code", resp.Error.Code),
					zap.String("error_message", logging.SanitizeText(resp.Error.Message)),
					zap.Duration("duration", elapsed))
			case resp.Result.IsError:
				outcome = "tool_error"
				logger.Debug("MCP tool error",
					zap.String("tool", tool),
					zap.Duration("duration", elapsed))
			default:
				logger.Debug("MCP response success",
					zap.String("tool", tool),
					zap.Duration("duration", elapsed))
			}
			if req.Method == "tools/call" && tool != "" {
				m.ObserveMCPToolCall(tool, outcome)
			}
		})
	}
}

type jsonRPCRequest struct {
	Method string `json:"method"`
	Params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"params"`
}

type jsonRPCResponse struct {
	Result struct {
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *jsonRPCError `json:"error"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// mcpResponseRecorder tees the response body for inspection.
type mcpResponseRecorder struct {
	http.ResponseWriter
	body bytes.Buffer
}

func (r *mcpResponseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *mcpResponseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

var sensitiveArgumentKeys = []string{"password", "secret", "token", "key", "credential"}

// sanitizeArguments redacts secret-looking keys and shortens string values,
// including strings nested in lists and objects.
func sanitizeArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}

	out := make(map[string]any, len(args))
	for k, v := range args {
		lower := strings.ToLower(k)
		redact := false
		for _, kw := range sensitiveArgumentKeys {
			if strings.Contains(lower, kw) {
				redact = true
				break
			}
		}
		if redact {
			out[k] = logging.RedactedText
			continue
		}
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch t := v.(type) {
	case string:
		return logging.TruncatePrompt(t)
	case []any:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = sanitizeValue(item)
		}
		return items
	case map[string]any:
		return sanitizeArguments(t)
	default:
		return v
	}
}
