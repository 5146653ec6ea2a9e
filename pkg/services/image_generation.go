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
	"github.com/lumenbrand/lumen-engine/pkg/refimages"
	"github.com/lumenbrand/lumen-engine/pkg/repositories"
	"github.com/lumenbrand/lumen-engine/pkg/squads"
)

// MediaPath is the route stored image bytes are served from.
const MediaPath = "/api/media/"

// ImageRequest asks for a product image, or a refinement of an earlier one
// when ParentID is set.
type ImageRequest struct {
	ProductID *uuid.UUID `json:"product_id,omitempty"`
	Intent    string     `json:"prompt"`

	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
	Refinement string     `json:"refinement,omitempty"`

	References     []models.ReferenceImage `json:"reference_images,omitempty"`
	StyleOverride  string                  `json:"style_override,omitempty"`
	AspectRatio    string                  `json:"aspect_ratio,omitempty"`
	Resolution     string                  `json:"resolution,omitempty"`
	Seed           *int64                  `json:"seed,omitempty"`
	NegativePrompt string                  `json:"negative_prompt,omitempty"`
	Provider       string                  `json:"provider,omitempty"`
	FreepikModel   string                  `json:"freepik_model,omitempty"`

	// SuperAdmin is taken from the caller's token, never from the body.
	SuperAdmin bool `json:"-"`
}

// ImageResult is the stored generation plus entitlement notes.
type ImageResult struct {
	Generation     *models.Generation `json:"generation"`
	TierRestricted bool               `json:"tier_restricted"`
	Notes          []string           `json:"notes,omitempty"`
	References     int                `json:"references_used"`
}

// ImageGenerationService renders product imagery.
type ImageGenerationService interface {
	Generate(ctx context.Context, orgID uuid.UUID, req ImageRequest) (*ImageResult, error)
}

// ImageGenerationDeps are the collaborators of an ImageGenerationService.
type ImageGenerationDeps struct {
	Knowledge     KnowledgeAccessor
	Materializer  *refimages.Materializer
	Dispatcher    Dispatcher
	Generations   repositories.GenerationRepository
	Media         repositories.MediaRepository
	Subscriptions repositories.SubscriptionRepository
	Rules         *prompts.GlobalRules
	// BaseURL prefixes media URLs so later refinements can fetch them.
	BaseURL string
	Metrics *metrics.Metrics
}

type imageGenerationService struct {
	deps   ImageGenerationDeps
	logger *zap.Logger
}

// NewImageGenerationService creates a new ImageGenerationService.
func NewImageGenerationService(deps ImageGenerationDeps, logger *zap.Logger) ImageGenerationService {
	if deps.Rules == nil {
		deps.Rules = prompts.DefaultGlobalRules()
	}
	deps.BaseURL = strings.TrimSuffix(deps.BaseURL, "/")
	return &imageGenerationService{
		deps:   deps,
		logger: logger.Named("image-generation"),
	}
}

var _ ImageGenerationService = (*imageGenerationService)(nil)

func (s *imageGenerationService) Generate(ctx context.Context, orgID uuid.UUID, req ImageRequest) (*ImageResult, error) {
	var parent *models.Generation
	intent := strings.TrimSpace(req.Intent)

	if req.ParentID != nil {
		p, err := s.deps.Generations.GetByID(ctx, orgID, *req.ParentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load parent generation: %w", err)
		}
		if p.MediaKind != models.MediaKindImage {
			return nil, fmt.Errorf("%w: parent %s is a %s generation", apperrors.ErrInvalidInput, p.ID, p.MediaKind)
		}
		parent = p
		if intent == "" {
			intent = parent.Prompt
		}
		intent = prompts.Refine(intent, req.Refinement)
		if req.ProductID == nil {
			req.ProductID = parent.ProductID
		}
	}
	if intent == "" {
		return nil, fmt.Errorf("%w: prompt is required", apperrors.ErrInvalidInput)
	}

	sub, err := s.deps.Subscriptions.Get(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	ent := models.ResolveEntitlement(sub, req.SuperAdmin)

	k, err := s.deps.Knowledge.Load(ctx, orgID, req.ProductID)
	if err != nil {
		return nil, err
	}

	refs := req.References
	if parent != nil && parent.ImageURL != nil {
		refs = refimages.WithPreviousIteration(refs, *parent.ImageURL)
	}
	var payloads []refimages.Payload
	if s.deps.Materializer != nil {
		payloads = s.deps.Materializer.Materialize(ctx, refimages.Categorize(refs))
	}

	resolution, _ := CappedResolution(models.Resolution(strings.ToLower(req.Resolution)), ent)
	strategy := squads.Route("", intent, req.StyleOverride)
	composed := prompts.ComposeImage(prompts.ImageInput{
		Intent:              intent,
		Product:             k.Product,
		Context:             prompts.FormatImageContext(k, k.Product, s.deps.Rules),
		Squad:               strategy.CopySquad,
		ReferenceDirectives: refimages.Directives(payloads),
		AspectRatio:         req.AspectRatio,
		Resolution:          resolution,
		NegativePrompt:      req.NegativePrompt,
	})

	out, err := s.deps.Dispatcher.GenerateImage(ctx, ImageDispatch{
		Request: llm.ImageRequest{
			Prompt:         composed.Prompt,
			NegativePrompt: req.NegativePrompt,
			AspectRatio:    req.AspectRatio,
			Resolution:     strings.ToLower(req.Resolution),
			Seed:           req.Seed,
			Model:          req.FreepikModel,
			References:     refimages.Parts(payloads),
		},
		Provider:    req.Provider,
		Entitlement: ent,
	})
	if err != nil {
		s.deps.Metrics.ObserveGeneration(string(models.MediaKindImage), "", "error")
		return nil, err
	}

	imageURL, err := s.storeImage(ctx, orgID, out.Result)
	if err != nil {
		return nil, err
	}

	g := &models.Generation{
		OrganizationID:     orgID,
		ProductID:          req.ProductID,
		MediaKind:          models.MediaKindImage,
		Prompt:             intent,
		FinalPrompt:        composed.Prompt,
		ImageURL:           &imageURL,
		GenerationProvider: out.Provider,
		LibraryCategory:    stringPtr(models.InferLibraryCategory(models.MediaKindImage, intent)),
		Squad:              stringPtr(string(strategy.CopySquad)),
		AspectRatio:        stringPtr(req.AspectRatio),
		Resolution:         stringPtr(string(out.Resolution)),
		Seed:               req.Seed,
		TierRestricted:     out.TierRestricted,
	}
	g.SetLineage(parent)

	if err := s.deps.Generations.Create(ctx, g); err != nil {
		s.deps.Metrics.ObserveGeneration(string(models.MediaKindImage), out.Provider, "error")
		return nil, fmt.Errorf("failed to store generation: %w", err)
	}
	s.deps.Metrics.ObserveGeneration(string(models.MediaKindImage), out.Provider, outcomeLabel(out.Fallback))

	s.logger.Info("Generated image",
		zap.String("organization_id", orgID.String()),
		zap.String("generation_id", g.ID.String()),
		zap.String("provider", out.Provider),
		zap.Int("chain_depth", g.ChainDepth),
		zap.Int("references", len(payloads)),
		zap.Bool("tier_restricted", out.TierRestricted))

	return &ImageResult{
		Generation:     g,
		TierRestricted: out.TierRestricted,
		Notes:          out.Notes,
		References:     len(payloads),
	}, nil
}

// storeImage keeps inline bytes as a media asset and returns the URL the
// image is reachable at. Provider-hosted results keep their own URL.
func (s *imageGenerationService) storeImage(ctx context.Context, orgID uuid.UUID, res *llm.ImageResult) (string, error) {
	if len(res.Data) == 0 {
		if res.URL == "" {
			return "", fmt.Errorf("%w: provider returned no image", apperrors.ErrGenerationFailed)
		}
		return res.URL, nil
	}

	mimeType := res.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}
	asset := &models.MediaAsset{OrganizationID: orgID, MimeType: mimeType, Data: res.Data}
	if err := s.deps.Media.Create(ctx, asset); err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return s.deps.BaseURL + MediaPath + asset.ID.String(), nil
}
