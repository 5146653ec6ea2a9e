package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenbrand/lumen-engine/pkg/models"
	"github.com/lumenbrand/lumen-engine/pkg/prompts"
)

func TestRegisterRoutingTools(t *testing.T) {
	s := newTestServer()
	RegisterRoutingTools(s)

	assert.ElementsMatch(t, []string{"route_copy_squad", "refine_prompt", "categorize_references"}, listTools(t, s))
}

func TestRouteCopySquadTool(t *testing.T) {
	s := newTestServer()
	RegisterRoutingTools(s)

	tests := []struct {
		name       string
		args       map[string]any
		wantSquad  models.CopySquad
		wantReason models.RoutingReason
	}{
		{
			name:       "override wins over keywords",
			args:       map[string]any{"brief": "urgent flash sale today", "style_override": "scientists"},
			wantSquad:  models.SquadScientists,
			wantReason: models.RoutedByOverride,
		},
		{
			name:       "urgency keywords",
			args:       map[string]any{"brief": "urgent flash sale, limited stock, ends today"},
			wantSquad:  models.SquadDisruptors,
			wantReason: models.RoutedByKeywords,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, context.Background(), s, "route_copy_squad", tt.args)
			require.False(t, resp.IsError, resp.Text)

			var got routeResult
			require.NoError(t, json.Unmarshal([]byte(resp.Text), &got))
			assert.Equal(t, tt.wantSquad, got.CopySquad)
			assert.Equal(t, tt.wantReason, got.Reason)
			assert.NotEmpty(t, got.PrimaryMaster)
			assert.NotEmpty(t, got.Philosophy)
		})
	}
}

func TestRouteCopySquadTool_RequiresBrief(t *testing.T) {
	s := newTestServer()
	RegisterRoutingTools(s)

	resp := callTool(t, context.Background(), s, "route_copy_squad", map[string]any{"brief": "   "})
	assert.True(t, resp.IsError)

	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Text), &errResp))
	assert.Equal(t, "invalid_parameters", errResp.Code)
}

func TestRefinePromptTool(t *testing.T) {
	s := newTestServer()
	RegisterRoutingTools(s)

	args := map[string]any{
		"prompt":      "a studio shot of a candle with a marble background",
		"instruction": "remove the marble background",
	}
	resp := callTool(t, context.Background(), s, "refine_prompt", args)
	require.False(t, resp.IsError, resp.Text)

	var got refineResult
	require.NoError(t, json.Unmarshal([]byte(resp.Text), &got))
	assert.Equal(t, prompts.RefineRemove, got.Kind)
	assert.Equal(t, prompts.Refine(args["prompt"].(string), args["instruction"].(string)), got.Prompt)

	// Refining the refined prompt with the same instruction is a no-op.
	args["prompt"] = got.Prompt
	resp = callTool(t, context.Background(), s, "refine_prompt", args)
	var again refineResult
	require.NoError(t, json.Unmarshal([]byte(resp.Text), &again))
	assert.Equal(t, got.Prompt, again.Prompt)

	resp = callTool(t, context.Background(), s, "refine_prompt", map[string]any{"prompt": "x"})
	assert.True(t, resp.IsError)
}

func TestCategorizeReferencesTool(t *testing.T) {
	s := newTestServer()
	RegisterRoutingTools(s)

	refs := []map[string]any{
		{"url": "https://cdn.example.com/mood.jpg", "label": "lighting mood"},
		{"url": "https://cdn.example.com/beach.jpg", "label": "beach backdrop"},
		{"url": "https://cdn.example.com/bottle.png", "label": "bottle"},
		{"url": "  "},
	}

	tests := []struct {
		name string
		refs any
	}{
		{"native array", refs},
		{"stringified array", mustJSON(t, refs)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, context.Background(), s, "categorize_references", map[string]any{
				"references":       tt.refs,
				"parent_image_url": "https://app.example.com/api/media/p1",
			})
			require.False(t, resp.IsError, resp.Text)

			var got categorizeResult
			require.NoError(t, json.Unmarshal([]byte(resp.Text), &got))
			assert.Equal(t, 4, got.Total)
			require.Len(t, got.Product, 2)
			assert.Equal(t, models.PreviousIterationLabel, got.Product[0].Label)
			assert.Equal(t, "https://cdn.example.com/bottle.png", got.Product[1].URL)
			require.Len(t, got.Background, 1)
			require.Len(t, got.Style, 1)
		})
	}

	resp := callTool(t, context.Background(), s, "categorize_references", map[string]any{"references": 42})
	assert.True(t, resp.IsError)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
