package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// trimString removes leading and trailing whitespace from a string.
// This is a common helper used across MCP tool parameter validation.
func trimString(s string) string {
	return strings.TrimSpace(s)
}

// arguments returns the tool call arguments, or an empty map.
func arguments(req mcp.CallToolRequest) map[string]any {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok || args == nil {
		return map[string]any{}
	}
	return args
}

// optionalString reads a string argument, trimmed. Missing or non-string
// values yield "".
func optionalString(req mcp.CallToolRequest, key string) string {
	val, _ := arguments(req)[key].(string)
	return trimString(val)
}

// extractArrayParam reads an array argument. Some clients send arrays as a
// JSON-encoded string; those are decoded. A missing key returns def.
func extractArrayParam(args map[string]any, key string, def []any) ([]any, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case []any:
		return v, nil
	case string:
		var out []any
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("parameter %q must be an array: %w", key, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("parameter %q must be an array, got %T", key, raw)
	}
}

// decodeArrayParam reads an array argument into a typed slice by
// round-tripping it through JSON.
func decodeArrayParam[T any](args map[string]any, key string) ([]T, error) {
	items, err := extractArrayParam(args, key, nil)
	if err != nil || items == nil {
		return nil, err
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("parameter %q: %w", key, err)
	}
	var out []T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("parameter %q has invalid items: %w", key, err)
	}
	return out, nil
}

// jsonResult marshals v into a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
