package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/models"
	"github.com/lumenbrand/lumen-engine/pkg/prompts"
	"github.com/lumenbrand/lumen-engine/pkg/repositories"
)

// MasterLoader fetches the persona documents a routing strategy names.
type MasterLoader interface {
	// Load never fails: a store error is logged and yields no documents, so
	// the persona section is rendered from the squad philosophy alone.
	Load(ctx context.Context, strategy models.RoutingStrategy) []prompts.MasterDocument
}

type masterLoader struct {
	repo   repositories.MasterRepository
	logger *zap.Logger
}

// NewMasterLoader creates a new MasterLoader.
func NewMasterLoader(repo repositories.MasterRepository, logger *zap.Logger) MasterLoader {
	return &masterLoader{
		repo:   repo,
		logger: logger.Named("masters"),
	}
}

var _ MasterLoader = (*masterLoader)(nil)

func (l *masterLoader) Load(ctx context.Context, strategy models.RoutingStrategy) []prompts.MasterDocument {
	if strategy.PrimaryMaster == "" {
		return nil
	}
	names := strategy.MasterNames()

	masters, err := l.repo.GetByNames(ctx, names)
	if err != nil {
		l.logger.Warn("Failed to load copywriter masters, continuing without persona documents",
			zap.Strings("masters", names),
			zap.Error(err))
		return nil
	}
	if len(masters) < len(names) {
		l.logger.Warn("Some copywriter masters are missing or inactive",
			zap.Strings("requested", names),
			zap.Int("found", len(masters)))
	}

	docs := make([]prompts.MasterDocument, 0, len(masters))
	for _, m := range masters {
		docs = append(docs, prompts.MasterDocument{Name: m.Name, Document: m.Document})
	}
	return docs
}
