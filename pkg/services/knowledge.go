package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lumenbrand/lumen-engine/pkg/apperrors"
	"github.com/lumenbrand/lumen-engine/pkg/models"
	"github.com/lumenbrand/lumen-engine/pkg/repositories"
)

// maxKnowledgeFetches bounds concurrent store reads per Load.
const maxKnowledgeFetches = 4

// KnowledgeAccessor loads the brand knowledge a generation needs.
type KnowledgeAccessor interface {
	// Load returns every active fragment of the organization, decoded, plus
	// the product when productID is set. No knowledge is not an error; a
	// missing product is apperrors.ErrNotFound.
	Load(ctx context.Context, orgID uuid.UUID, productID *uuid.UUID) (*models.BrandKnowledge, error)
}

type knowledgeAccessor struct {
	knowledgeRepo repositories.KnowledgeRepository
	productRepo   repositories.ProductRepository
	getTenantCtx  TenantContextFunc
	logger        *zap.Logger
}

// NewKnowledgeAccessor creates a KnowledgeAccessor. Each concurrent read
// acquires its own scope through getTenantCtx; nil reuses the caller's scope
// and reads sequentially.
func NewKnowledgeAccessor(
	knowledgeRepo repositories.KnowledgeRepository,
	productRepo repositories.ProductRepository,
	getTenantCtx TenantContextFunc,
	logger *zap.Logger,
) KnowledgeAccessor {
	return &knowledgeAccessor{
		knowledgeRepo: knowledgeRepo,
		productRepo:   productRepo,
		getTenantCtx:  getTenantCtx,
		logger:        logger.Named("knowledge"),
	}
}

var _ KnowledgeAccessor = (*knowledgeAccessor)(nil)

func (a *knowledgeAccessor) Load(ctx context.Context, orgID uuid.UUID, productID *uuid.UUID) (*models.BrandKnowledge, error) {
	getTenantCtx := a.getTenantCtx
	limit := maxKnowledgeFetches
	if getTenantCtx == nil {
		getTenantCtx = sharedScope
		limit = 1
	}

	core := make([][]*models.KnowledgeFragment, len(models.CoreKnowledgeTypes))
	var categories []*models.KnowledgeFragment
	var product *models.Product

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	scoped := func(fn func(ctx context.Context) error) func() error {
		return func() error {
			tenantCtx, cleanup, err := getTenantCtx(gctx, orgID)
			if err != nil {
				return fmt.Errorf("failed to acquire tenant connection: %w", err)
			}
			defer cleanup()
			return fn(tenantCtx)
		}
	}

	for i, kt := range models.CoreKnowledgeTypes {
		g.Go(scoped(func(ctx context.Context) error {
			fragments, err := a.knowledgeRepo.ListActiveByType(ctx, orgID, kt)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", kt, err)
			}
			core[i] = fragments
			return nil
		}))
	}
	g.Go(scoped(func(ctx context.Context) error {
		fragments, err := a.knowledgeRepo.ListActiveCategories(ctx, orgID)
		if err != nil {
			return fmt.Errorf("failed to load category knowledge: %w", err)
		}
		categories = fragments
		return nil
	}))
	if productID != nil {
		g.Go(scoped(func(ctx context.Context) error {
			p, err := a.productRepo.Get(ctx, orgID, *productID)
			if err != nil {
				return fmt.Errorf("failed to load product %s: %w", productID, err)
			}
			product = p
			return nil
		}))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	k := &models.BrandKnowledge{Product: product}
	targets := map[models.KnowledgeType]func() any{
		models.KnowledgeTypeBrandVoice:           func() any { k.Voice = &models.BrandVoice{}; return k.Voice },
		models.KnowledgeTypeVocabulary:           func() any { k.Vocabulary = &models.Vocabulary{}; return k.Vocabulary },
		models.KnowledgeTypeWritingExamples:      func() any { k.Examples = &models.WritingExamples{}; return k.Examples },
		models.KnowledgeTypeStructuralGuidelines: func() any { k.Structure = &models.StructuralGuidelines{}; return k.Structure },
		models.KnowledgeTypeVisualStandards:      func() any { k.Visual = &models.VisualStandards{}; return k.Visual },
	}
	for i, kt := range models.CoreKnowledgeTypes {
		if len(core[i]) == 0 {
			continue
		}
		// Repositories return the newest version first.
		if err := core[i][0].Decode(targets[kt]()); err != nil {
			a.logger.Warn("Skipping undecodable knowledge fragment",
				zap.String("organization_id", orgID.String()),
				zap.String("knowledge_type", string(kt)),
				zap.Error(err))
			a.clear(k, kt)
		}
	}

	for _, f := range categories {
		var cg models.CategoryGuidelines
		if err := f.Decode(&cg); err != nil {
			a.logger.Warn("Skipping undecodable category fragment",
				zap.String("organization_id", orgID.String()),
				zap.String("knowledge_type", string(f.KnowledgeType)),
				zap.Error(err))
			continue
		}
		if k.Categories == nil {
			k.Categories = make(map[string]*models.CategoryGuidelines)
		}
		k.Categories[f.KnowledgeType.Category()] = &cg
	}

	return k, nil
}

func (a *knowledgeAccessor) clear(k *models.BrandKnowledge, kt models.KnowledgeType) {
	switch kt {
	case models.KnowledgeTypeBrandVoice:
		k.Voice = nil
	case models.KnowledgeTypeVocabulary:
		k.Vocabulary = nil
	case models.KnowledgeTypeWritingExamples:
		k.Examples = nil
	case models.KnowledgeTypeStructuralGuidelines:
		k.Structure = nil
	case models.KnowledgeTypeVisualStandards:
		k.Visual = nil
	}
}

// KnowledgeService manages versioned knowledge fragments.
type KnowledgeService interface {
	// Save stores content as the new active version of knowledgeType.
	Save(ctx context.Context, orgID uuid.UUID, knowledgeType models.KnowledgeType, content json.RawMessage, source string) (*models.KnowledgeFragment, error)
	ListActive(ctx context.Context, orgID uuid.UUID) ([]*models.KnowledgeFragment, error)
	History(ctx context.Context, orgID uuid.UUID, knowledgeType models.KnowledgeType) ([]*models.KnowledgeFragment, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}

type knowledgeService struct {
	repo   repositories.KnowledgeRepository
	logger *zap.Logger
}

// NewKnowledgeService creates a new KnowledgeService.
func NewKnowledgeService(repo repositories.KnowledgeRepository, logger *zap.Logger) KnowledgeService {
	return &knowledgeService{
		repo:   repo,
		logger: logger.Named("knowledge-service"),
	}
}

var _ KnowledgeService = (*knowledgeService)(nil)

func (s *knowledgeService) Save(ctx context.Context, orgID uuid.UUID, knowledgeType models.KnowledgeType, content json.RawMessage, source string) (*models.KnowledgeFragment, error) {
	if !knowledgeType.Valid() {
		return nil, fmt.Errorf("%w: unknown knowledge type %q", apperrors.ErrInvalidInput, knowledgeType)
	}
	if len(content) == 0 || !json.Valid(content) {
		return nil, fmt.Errorf("%w: knowledge content must be a JSON document", apperrors.ErrInvalidInput)
	}
	switch source {
	case "":
		source = "manual"
	case "manual", "document", "website_scan":
	default:
		return nil, fmt.Errorf("%w: unknown knowledge source %q", apperrors.ErrInvalidInput, source)
	}

	f := &models.KnowledgeFragment{
		OrganizationID: orgID,
		KnowledgeType:  knowledgeType,
		Content:        content,
		Source:         source,
	}
	if err := s.repo.InsertVersion(ctx, f); err != nil {
		return nil, err
	}

	s.logger.Info("Stored knowledge version",
		zap.String("organization_id", orgID.String()),
		zap.String("knowledge_type", string(knowledgeType)),
		zap.Int("version", f.Version))
	return f, nil
}

func (s *knowledgeService) ListActive(ctx context.Context, orgID uuid.UUID) ([]*models.KnowledgeFragment, error) {
	return s.repo.ListActive(ctx, orgID)
}

func (s *knowledgeService) History(ctx context.Context, orgID uuid.UUID, knowledgeType models.KnowledgeType) ([]*models.KnowledgeFragment, error) {
	if !knowledgeType.Valid() {
		return nil, fmt.Errorf("%w: unknown knowledge type %q", apperrors.ErrInvalidInput, knowledgeType)
	}
	return s.repo.ListHistory(ctx, orgID, knowledgeType)
}

func (s *knowledgeService) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return s.repo.Delete(ctx, orgID, id)
}
