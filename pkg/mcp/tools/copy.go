package tools

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/logging"
	"github.com/lumenbrand/lumen-engine/pkg/services"
)

// CopyToolDeps contains dependencies for the copy generation tool.
type CopyToolDeps struct {
	CopyService services.CopyGenerationService
	// TenantContext acquires the organization-scoped connection the
	// generation's reads and writes run on.
	TenantContext services.TenantContextFunc
	Logger        *zap.Logger
}

type generateCopyResult struct {
	GenerationID string `json:"generation_id"`
	Text         string `json:"text"`
	Provider     string `json:"provider"`
	Squad        string `json:"squad"`
	Awareness    string `json:"awareness_stage"`
}

// RegisterCopyTools adds generate_copy, which writes brand copy for the
// organization the MCP session is bound to.
func RegisterCopyTools(s *server.MCPServer, deps *CopyToolDeps) {
	tool := mcp.NewTool(
		"generate_copy",
		mcp.WithDescription(
			"Write marketing copy in the brand's voice. The brief is routed to a copywriting squad, "+
				"combined with stored brand knowledge and the product (if given), and sent to the text "+
				"provider with fallback. The result is stored in the generation library.",
		),
		mcp.WithString(
			"brief",
			mcp.Required(),
			mcp.Description("What the copy should achieve"),
		),
		mcp.WithString(
			"content_type",
			mcp.Description("Optional - Content type such as 'email', 'product_description', 'ad'"),
		),
		mcp.WithString(
			"product_id",
			mcp.Description("Optional - UUID of the product the copy is about"),
		),
		mcp.WithString(
			"style_override",
			mcp.Description("Optional - Force a squad: 'scientists', 'storytellers' or 'disruptors'"),
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		orgID, ok := OrganizationIDFromContext(ctx)
		if !ok {
			return NewErrorResult("authentication_required", "no organization bound to this session"), nil
		}

		brief, err := req.RequireString("brief")
		if err != nil || trimString(brief) == "" {
			return NewErrorResult("invalid_parameters", "brief is required"), nil
		}

		copyReq := services.CopyRequest{
			Brief:         trimString(brief),
			ContentType:   optionalString(req, "content_type"),
			StyleOverride: optionalString(req, "style_override"),
		}
		if raw := optionalString(req, "product_id"); raw != "" {
			productID, err := uuid.Parse(raw)
			if err != nil {
				return NewErrorResult("invalid_parameters", fmt.Sprintf("invalid product_id %q", raw)), nil
			}
			copyReq.ProductID = &productID
		}

		tenantCtx, cleanup, err := deps.TenantContext(ctx, orgID)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire database connection: %w", err)
		}
		defer cleanup()

		result, err := deps.CopyService.Generate(tenantCtx, orgID, copyReq)
		if err != nil {
			deps.Logger.Warn("generate_copy failed",
				zap.String("organization_id", orgID.String()),
				zap.String("brief", logging.TruncatePrompt(copyReq.Brief)),
				zap.Error(err))
			return serviceErrorResult(err)
		}

		g := result.Generation
		out := generateCopyResult{
			GenerationID: g.ID.String(),
			Provider:     g.GenerationProvider,
			Squad:        string(result.Strategy.CopySquad),
			Awareness:    string(result.Strategy.AwarenessStage),
		}
		if g.GeneratedText != nil {
			out.Text = *g.GeneratedText
		}
		return jsonResult(out)
	})
}
