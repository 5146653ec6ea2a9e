package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lumenbrand/lumen-engine/pkg/apperrors"
	"github.com/lumenbrand/lumen-engine/pkg/database"
	"github.com/lumenbrand/lumen-engine/pkg/models"
)

// MediaRepository stores image bytes returned inline by providers.
type MediaRepository interface {
	Create(ctx context.Context, asset *models.MediaAsset) error
	// Get looks an asset up by id alone; media URLs are served without an
	// organization scope.
	Get(ctx context.Context, id uuid.UUID) (*models.MediaAsset, error)
}

type mediaRepository struct{}

// NewMediaRepository creates a new MediaRepository.
func NewMediaRepository() MediaRepository {
	return &mediaRepository{}
}

var _ MediaRepository = (*mediaRepository)(nil)

func (r *mediaRepository) Create(ctx context.Context, asset *models.MediaAsset) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}
	if asset.ID == uuid.Nil {
		asset.ID = uuid.New()
	}

	err := scope.Conn.QueryRow(ctx, `
		INSERT INTO media_assets (id, organization_id, mime_type, data)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`, asset.ID, asset.OrganizationID, asset.MimeType, asset.Data).Scan(&asset.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store media asset: %w", err)
	}
	return nil
}

func (r *mediaRepository) Get(ctx context.Context, id uuid.UUID) (*models.MediaAsset, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	var asset models.MediaAsset
	err := scope.Conn.QueryRow(ctx, `
		SELECT id, organization_id, mime_type, data, created_at
		FROM media_assets WHERE id = $1`, id).
		Scan(&asset.ID, &asset.OrganizationID, &asset.MimeType, &asset.Data, &asset.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media asset: %w", err)
	}
	return &asset, nil
}
