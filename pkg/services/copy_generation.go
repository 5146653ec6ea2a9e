package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/apperrors"
	"github.com/lumenbrand/lumen-engine/pkg/llm"
	"github.com/lumenbrand/lumen-engine/pkg/metrics"
	"github.com/lumenbrand/lumen-engine/pkg/models"
	"github.com/lumenbrand/lumen-engine/pkg/prompts"
	"github.com/lumenbrand/lumen-engine/pkg/repositories"
	"github.com/lumenbrand/lumen-engine/pkg/squads"
)

// copyTemperature leaves room for voice without drifting off brief.
const copyTemperature = 0.7

// CopyRequest asks for marketing copy.
type CopyRequest struct {
	ProductID     *uuid.UUID `json:"product_id,omitempty"`
	ContentType   string     `json:"content_type,omitempty"`
	Brief         string     `json:"brief"`
	StyleOverride string     `json:"style_override,omitempty"`
	// Provider optionally names the text provider to try first.
	Provider string `json:"provider,omitempty"`
}

// CopyResult is the stored generation plus how it was routed.
type CopyResult struct {
	Generation *models.Generation     `json:"generation"`
	Strategy   models.RoutingStrategy `json:"strategy"`
}

// CopyGenerationService writes brand copy.
type CopyGenerationService interface {
	Generate(ctx context.Context, orgID uuid.UUID, req CopyRequest) (*CopyResult, error)
}

type copyGenerationService struct {
	knowledge   KnowledgeAccessor
	masters     MasterLoader
	dispatcher  Dispatcher
	generations repositories.GenerationRepository
	rules       *prompts.GlobalRules
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewCopyGenerationService creates a new CopyGenerationService. A nil rules
// uses the built-in global rules.
func NewCopyGenerationService(
	knowledge KnowledgeAccessor,
	masters MasterLoader,
	dispatcher Dispatcher,
	generations repositories.GenerationRepository,
	rules *prompts.GlobalRules,
	m *metrics.Metrics,
	logger *zap.Logger,
) CopyGenerationService {
	if rules == nil {
		rules = prompts.DefaultGlobalRules()
	}
	return &copyGenerationService{
		knowledge:   knowledge,
		masters:     masters,
		dispatcher:  dispatcher,
		generations: generations,
		rules:       rules,
		metrics:     m,
		logger:      logger.Named("copy-generation"),
	}
}

var _ CopyGenerationService = (*copyGenerationService)(nil)

func (s *copyGenerationService) Generate(ctx context.Context, orgID uuid.UUID, req CopyRequest) (*CopyResult, error) {
	brief := strings.TrimSpace(req.Brief)
	if brief == "" {
		return nil, fmt.Errorf("%w: brief is required", apperrors.ErrInvalidInput)
	}

	k, err := s.knowledge.Load(ctx, orgID, req.ProductID)
	if err != nil {
		return nil, err
	}

	strategy := squads.Route(req.ContentType, brief, req.StyleOverride)
	masters := s.masters.Load(ctx, strategy)

	composed := prompts.ComposeCopy(prompts.CopyInput{
		Intent:      brief,
		ContentType: req.ContentType,
		Strategy:    strategy,
		Masters:     masters,
		Context:     prompts.FormatCopyContext(k, k.Product, s.rules),
	})

	out, err := s.dispatcher.GenerateText(ctx, llm.TextRequest{
		System:      composed.System,
		Prompt:      composed.Prompt,
		Temperature: copyTemperature,
	}, req.Provider)
	if err != nil {
		s.metrics.ObserveGeneration(string(models.MediaKindText), "", "error")
		return nil, err
	}

	text := prompts.ApplyConstraints(llm.CleanCopy(out.Result.Text), composed.Rewrites, composed.Forbidden)
	g := &models.Generation{
		OrganizationID:     orgID,
		ProductID:          req.ProductID,
		MediaKind:          models.MediaKindText,
		Prompt:             brief,
		FinalPrompt:        composed.Prompt,
		GeneratedText:      &text,
		GenerationProvider: out.Provider,
		LibraryCategory:    stringPtr(models.InferLibraryCategory(models.MediaKindText, brief)),
		Squad:              stringPtr(string(strategy.CopySquad)),
		AwarenessStage:     stringPtr(string(strategy.AwarenessStage)),
	}
	g.SetLineage(nil)

	if err := s.generations.Create(ctx, g); err != nil {
		s.metrics.ObserveGeneration(string(models.MediaKindText), out.Provider, "error")
		return nil, fmt.Errorf("failed to store generation: %w", err)
	}
	s.metrics.ObserveGeneration(string(models.MediaKindText), out.Provider, outcomeLabel(out.Fallback))

	s.logger.Info("Generated copy",
		zap.String("organization_id", orgID.String()),
		zap.String("generation_id", g.ID.String()),
		zap.String("squad", string(strategy.CopySquad)),
		zap.String("awareness_stage", string(strategy.AwarenessStage)),
		zap.String("routed_by", string(strategy.Reason)),
		zap.String("provider", out.Provider))

	return &CopyResult{Generation: g, Strategy: strategy}, nil
}

func outcomeLabel(fallback bool) string {
	if fallback {
		return "fallback"
	}
	return "success"
}

// stringPtr returns nil for "", else a pointer to s.
func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
