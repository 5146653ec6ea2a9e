package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/lumenbrand/lumen-engine/pkg/models"
	"github.com/lumenbrand/lumen-engine/pkg/prompts"
	"github.com/lumenbrand/lumen-engine/pkg/refimages"
	"github.com/lumenbrand/lumen-engine/pkg/squads"
)

type routeResult struct {
	models.RoutingStrategy
	Philosophy      string `json:"philosophy"`
	VisualDirection string `json:"visual_direction"`
}

// RegisterRoutingTools adds the pure planning tools: squad routing, prompt
// refinement and reference categorization. None of them touch the database.
func RegisterRoutingTools(s *server.MCPServer) {
	registerRouteCopySquadTool(s)
	registerRefinePromptTool(s)
	registerCategorizeReferencesTool(s)
}

func registerRouteCopySquadTool(s *server.MCPServer) {
	tool := mcp.NewTool(
		"route_copy_squad",
		mcp.WithDescription(
			"Choose the copywriting squad, masters and awareness stage for a brief. "+
				"An explicit squad override wins, then the content type, then keywords in the brief.",
		),
		mcp.WithString(
			"brief",
			mcp.Required(),
			mcp.Description("What the copy should achieve (e.g., 'urgent 48 hour sale on the autumn candles')"),
		),
		mcp.WithString(
			"content_type",
			mcp.Description("Optional - Content type such as 'email', 'product_description', 'ad'"),
		),
		mcp.WithString(
			"style_override",
			mcp.Description("Optional - Force a squad: 'scientists', 'storytellers' or 'disruptors'"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		brief, err := req.RequireString("brief")
		if err != nil || trimString(brief) == "" {
			return NewErrorResult("invalid_parameters", "brief is required"), nil
		}

		strategy := squads.Route(optionalString(req, "content_type"), brief, optionalString(req, "style_override"))
		def := squads.Lookup(strategy.CopySquad)
		return jsonResult(routeResult{
			RoutingStrategy: strategy,
			Philosophy:      def.Philosophy,
			VisualDirection: def.VisualDirection,
		})
	})
}

type refineResult struct {
	Prompt string                 `json:"prompt"`
	Kind   prompts.RefinementKind `json:"kind"`
}

func registerRefinePromptTool(s *server.MCPServer) {
	tool := mcp.NewTool(
		"refine_prompt",
		mcp.WithDescription(
			"Fold a refinement instruction into an earlier image prompt, the way a refinement "+
				"of a stored generation would. Applying the same instruction twice changes nothing.",
		),
		mcp.WithString(
			"prompt",
			mcp.Required(),
			mcp.Description("The prompt that produced the image being refined"),
		),
		mcp.WithString(
			"instruction",
			mcp.Required(),
			mcp.Description("The change to make (e.g., 'make it warmer', 'remove the marble background')"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		original, err := req.RequireString("prompt")
		if err != nil || trimString(original) == "" {
			return NewErrorResult("invalid_parameters", "prompt is required"), nil
		}
		instruction, err := req.RequireString("instruction")
		if err != nil || trimString(instruction) == "" {
			return NewErrorResult("invalid_parameters", "instruction is required"), nil
		}

		return jsonResult(refineResult{
			Prompt: prompts.Refine(original, instruction),
			Kind:   prompts.ClassifyRefinement(instruction),
		})
	})
}

type categorizeResult struct {
	refimages.Categorized
	Total int `json:"total"`
}

func registerCategorizeReferencesTool(s *server.MCPServer) {
	tool := mcp.NewTool(
		"categorize_references",
		mcp.WithDescription(
			"Group reference images into product, background and style roles by their labels, "+
				"in the order they would be sent to the image provider.",
		),
		mcp.WithArray(
			"references",
			mcp.Required(),
			mcp.Description("Reference images: objects with 'url', optional 'label' and 'description'"),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url":         map[string]any{"type": "string"},
					"label":       map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
				},
				"required": []string{"url"},
			}),
		),
		mcp.WithString(
			"parent_image_url",
			mcp.Description("Optional - Image being refined; it is added first as the previous iteration"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		refs, err := decodeArrayParam[models.ReferenceImage](arguments(req), "references")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		refs = refimages.WithPreviousIteration(refs, optionalString(req, "parent_image_url"))
		c := refimages.Categorize(refs)
		return jsonResult(categorizeResult{Categorized: c, Total: c.Len()})
	})
}
