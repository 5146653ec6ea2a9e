package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lumenbrand/lumen-engine/pkg/apperrors"
	"github.com/lumenbrand/lumen-engine/pkg/database"
	"github.com/lumenbrand/lumen-engine/pkg/models"
)

// KnowledgeRepository provides data access for versioned brand knowledge fragments.
type KnowledgeRepository interface {
	ListActive(ctx context.Context, orgID uuid.UUID) ([]*models.KnowledgeFragment, error)
	ListActiveByType(ctx context.Context, orgID uuid.UUID, knowledgeType models.KnowledgeType) ([]*models.KnowledgeFragment, error)
	ListActiveCategories(ctx context.Context, orgID uuid.UUID) ([]*models.KnowledgeFragment, error)
	ListHistory(ctx context.Context, orgID uuid.UUID, knowledgeType models.KnowledgeType) ([]*models.KnowledgeFragment, error)
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.KnowledgeFragment, error)
	InsertVersion(ctx context.Context, fragment *models.KnowledgeFragment) error
	Deactivate(ctx context.Context, orgID, id uuid.UUID) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}

type knowledgeRepository struct{}

// NewKnowledgeRepository creates a new KnowledgeRepository.
func NewKnowledgeRepository() KnowledgeRepository {
	return &knowledgeRepository{}
}

var _ KnowledgeRepository = (*knowledgeRepository)(nil)

const knowledgeColumns = `id, organization_id, knowledge_type, content, is_active, version, source, created_at`

func (r *knowledgeRepository) ListActive(ctx context.Context, orgID uuid.UUID) ([]*models.KnowledgeFragment, error) {
	return r.list(ctx, `
		SELECT `+knowledgeColumns+`
		FROM brand_knowledge
		WHERE organization_id = $1 AND is_active
		ORDER BY knowledge_type`, orgID)
}

func (r *knowledgeRepository) ListActiveByType(ctx context.Context, orgID uuid.UUID, knowledgeType models.KnowledgeType) ([]*models.KnowledgeFragment, error) {
	return r.list(ctx, `
		SELECT `+knowledgeColumns+`
		FROM brand_knowledge
		WHERE organization_id = $1 AND knowledge_type = $2 AND is_active
		ORDER BY version DESC`, orgID, string(knowledgeType))
}

func (r *knowledgeRepository) ListActiveCategories(ctx context.Context, orgID uuid.UUID) ([]*models.KnowledgeFragment, error) {
	return r.list(ctx, `
		SELECT `+knowledgeColumns+`
		FROM brand_knowledge
		WHERE organization_id = $1 AND knowledge_type LIKE 'category\_%' AND is_active
		ORDER BY knowledge_type`, orgID)
}

func (r *knowledgeRepository) ListHistory(ctx context.Context, orgID uuid.UUID, knowledgeType models.KnowledgeType) ([]*models.KnowledgeFragment, error) {
	return r.list(ctx, `
		SELECT `+knowledgeColumns+`
		FROM brand_knowledge
		WHERE organization_id = $1 AND knowledge_type = $2
		ORDER BY version DESC`, orgID, string(knowledgeType))
}

func (r *knowledgeRepository) list(ctx context.Context, query string, args ...any) ([]*models.KnowledgeFragment, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	rows, err := scope.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge fragments: %w", err)
	}
	defer rows.Close()

	fragments := make([]*models.KnowledgeFragment, 0)
	for rows.Next() {
		f, err := scanKnowledgeRow(rows)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating knowledge fragments: %w", err)
	}
	return fragments, nil
}

func (r *knowledgeRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.KnowledgeFragment, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	row := scope.Conn.QueryRow(ctx, `
		SELECT `+knowledgeColumns+`
		FROM brand_knowledge
		WHERE organization_id = $1 AND id = $2`, orgID, id)
	f, err := scanKnowledgeRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	return f, err
}

// InsertVersion stores fragment as the new active version of its type. The
// previously active fragment of that type is deactivated in the same
// transaction. Version, IsActive and CreatedAt are set on fragment.
func (r *knowledgeRepository) InsertVersion(ctx context.Context, fragment *models.KnowledgeFragment) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}
	if fragment.ID == uuid.Nil {
		fragment.ID = uuid.New()
	}
	if fragment.Source == "" {
		fragment.Source = "manual"
	}
	if len(fragment.Content) == 0 {
		fragment.Content = json.RawMessage(`{}`)
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Serialize concurrent writers of the same organization and type.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1 || ':' || $2))`,
		fragment.OrganizationID.String(), string(fragment.KnowledgeType)); err != nil {
		return fmt.Errorf("failed to lock knowledge type: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE brand_knowledge SET is_active = false
		WHERE organization_id = $1 AND knowledge_type = $2 AND is_active`,
		fragment.OrganizationID, string(fragment.KnowledgeType)); err != nil {
		return fmt.Errorf("failed to deactivate previous knowledge: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO brand_knowledge (id, organization_id, knowledge_type, content, is_active, version, source)
		SELECT $1, $2, $3, $4, true, COALESCE(MAX(version), 0) + 1, $5
		FROM brand_knowledge
		WHERE organization_id = $2 AND knowledge_type = $3
		RETURNING version, is_active, created_at`,
		fragment.ID, fragment.OrganizationID, string(fragment.KnowledgeType), []byte(fragment.Content), fragment.Source,
	).Scan(&fragment.Version, &fragment.IsActive, &fragment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert knowledge fragment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit knowledge fragment: %w", err)
	}
	return nil
}

func (r *knowledgeRepository) Deactivate(ctx context.Context, orgID, id uuid.UUID) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	tag, err := scope.Conn.Exec(ctx, `
		UPDATE brand_knowledge SET is_active = false
		WHERE organization_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate knowledge fragment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete removes a fragment permanently. Only explicit user action calls this.
func (r *knowledgeRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	tag, err := scope.Conn.Exec(ctx, `DELETE FROM brand_knowledge WHERE organization_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("failed to delete knowledge fragment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanKnowledgeRow(row pgx.Row) (*models.KnowledgeFragment, error) {
	var f models.KnowledgeFragment
	var knowledgeType string
	var content []byte
	err := row.Scan(&f.ID, &f.OrganizationID, &knowledgeType, &content, &f.IsActive, &f.Version, &f.Source, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan knowledge fragment: %w", err)
	}
	f.KnowledgeType = models.KnowledgeType(knowledgeType)
	f.Content = json.RawMessage(content)
	return &f, nil
}
