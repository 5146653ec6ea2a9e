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
	"github.com/lumenbrand/lumen-engine/pkg/repositories"
)

const defaultVideoSeconds = 5

// VideoRequest animates an image, given directly or as a parent image generation.
type VideoRequest struct {
	ParentID       *uuid.UUID `json:"parent_id,omitempty"`
	ImageURL       string     `json:"image_url,omitempty"`
	Prompt         string     `json:"prompt"`
	NegativePrompt string     `json:"negative_prompt,omitempty"`
	DurationSecs   int        `json:"duration_seconds,omitempty"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`

	SuperAdmin bool `json:"-"`
}

// VideoGenerationService renders short product videos.
type VideoGenerationService interface {
	Generate(ctx context.Context, orgID uuid.UUID, req VideoRequest) (*models.Generation, error)
}

type videoGenerationService struct {
	dispatcher    Dispatcher
	generations   repositories.GenerationRepository
	subscriptions repositories.SubscriptionRepository
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

// NewVideoGenerationService creates a new VideoGenerationService.
func NewVideoGenerationService(
	dispatcher Dispatcher,
	generations repositories.GenerationRepository,
	subscriptions repositories.SubscriptionRepository,
	m *metrics.Metrics,
	logger *zap.Logger,
) VideoGenerationService {
	return &videoGenerationService{
		dispatcher:    dispatcher,
		generations:   generations,
		subscriptions: subscriptions,
		metrics:       m,
		logger:        logger.Named("video-generation"),
	}
}

var _ VideoGenerationService = (*videoGenerationService)(nil)

func (s *videoGenerationService) Generate(ctx context.Context, orgID uuid.UUID, req VideoRequest) (*models.Generation, error) {
	sub, err := s.subscriptions.Get(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	ent := models.ResolveEntitlement(sub, req.SuperAdmin)
	if !ent.VideoAllowed {
		return nil, fmt.Errorf("%w: %s tier does not include video generation", apperrors.ErrUpgradeRequired, ent.Tier)
	}

	var parent *models.Generation
	imageURL := strings.TrimSpace(req.ImageURL)
	if req.ParentID != nil {
		parent, err = s.generations.GetByID(ctx, orgID, *req.ParentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load parent generation: %w", err)
		}
		if imageURL == "" && parent.ImageURL != nil {
			imageURL = *parent.ImageURL
		}
		if req.ProductID == nil {
			req.ProductID = parent.ProductID
		}
	}
	if imageURL == "" {
		return nil, fmt.Errorf("%w: a source image is required", apperrors.ErrInvalidInput)
	}

	prompt := strings.TrimSpace(req.Prompt)
	duration := req.DurationSecs
	if duration <= 0 {
		duration = defaultVideoSeconds
	}

	out, err := s.dispatcher.GenerateVideo(ctx, llm.VideoRequest{
		Prompt:         prompt,
		NegativePrompt: req.NegativePrompt,
		ImageURL:       imageURL,
		DurationSecs:   duration,
	}, ent)
	if err != nil {
		s.metrics.ObserveGeneration(string(models.MediaKindVideo), "", "error")
		return nil, err
	}

	videoURL := out.Result.URL
	g := &models.Generation{
		OrganizationID:     orgID,
		ProductID:          req.ProductID,
		MediaKind:          models.MediaKindVideo,
		Prompt:             prompt,
		FinalPrompt:        prompt,
		ImageURL:           &imageURL,
		VideoURL:           &videoURL,
		GenerationProvider: out.Provider,
		LibraryCategory:    stringPtr(models.InferLibraryCategory(models.MediaKindVideo, prompt)),
	}
	g.SetLineage(parent)

	if err := s.generations.Create(ctx, g); err != nil {
		s.metrics.ObserveGeneration(string(models.MediaKindVideo), out.Provider, "error")
		return nil, fmt.Errorf("failed to store generation: %w", err)
	}
	s.metrics.ObserveGeneration(string(models.MediaKindVideo), out.Provider, "success")

	s.logger.Info("Generated video",
		zap.String("organization_id", orgID.String()),
		zap.String("generation_id", g.ID.String()),
		zap.String("task_id", out.Result.TaskID))
	return g, nil
}

// GenerationService reads stored generations.
type GenerationService interface {
	Get(ctx context.Context, orgID, id uuid.UUID) (*models.Generation, error)
	// GetChain returns the refinement tree under rootID, shallowest first.
	GetChain(ctx context.Context, orgID, rootID uuid.UUID) ([]*models.Generation, error)
	List(ctx context.Context, orgID uuid.UUID, filter repositories.GenerationFilter) ([]*models.Generation, error)
}

type generationService struct {
	repo repositories.GenerationRepository
}

// NewGenerationService creates a new GenerationService.
func NewGenerationService(repo repositories.GenerationRepository) GenerationService {
	return &generationService{repo: repo}
}

var _ GenerationService = (*generationService)(nil)

func (s *generationService) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Generation, error) {
	return s.repo.GetByID(ctx, orgID, id)
}

func (s *generationService) GetChain(ctx context.Context, orgID, rootID uuid.UUID) ([]*models.Generation, error) {
	return s.repo.GetChain(ctx, orgID, rootID)
}

func (s *generationService) List(ctx context.Context, orgID uuid.UUID, filter repositories.GenerationFilter) ([]*models.Generation, error) {
	return s.repo.List(ctx, orgID, filter)
}
