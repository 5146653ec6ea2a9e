package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterHealthTool(t *testing.T) {
	s := newTestServer()
	RegisterHealthTool(s, "test-version", nil)

	assert.Equal(t, []string{"health"}, listTools(t, s))
}

func TestHealthTool_Execute(t *testing.T) {
	tests := []struct {
		name      string
		version   string
		providers []string
		want      []string
	}{
		{"configured providers", "1.2.3", []string{"anthropic", "gemini"}, []string{"anthropic", "gemini"}},
		{"no providers", "1.2.3", nil, []string{}},
		{"version needing escapes", `1.0.0-"beta"`, nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			RegisterHealthTool(s, tt.version, tt.providers)

			resp := callTool(t, context.Background(), s, "health", map[string]any{})
			require.False(t, resp.IsError)

			var health healthResult
			require.NoError(t, json.Unmarshal([]byte(resp.Text), &health))
			assert.Equal(t, "ok", health.Status)
			assert.Equal(t, tt.version, health.Version)
			assert.Equal(t, tt.want, health.Providers)
		})
	}
}
