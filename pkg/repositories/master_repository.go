package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lumenbrand/lumen-engine/pkg/database"
	"github.com/lumenbrand/lumen-engine/pkg/models"
)

// MasterRepository reads copywriter master documents. Masters are shared by
// all organizations and are never written at runtime.
type MasterRepository interface {
	GetByNames(ctx context.Context, names []string) ([]*models.CopywriterMaster, error)
	List(ctx context.Context) ([]*models.CopywriterMaster, error)
}

type masterRepository struct{}

// NewMasterRepository creates a new MasterRepository.
func NewMasterRepository() MasterRepository {
	return &masterRepository{}
}

var _ MasterRepository = (*masterRepository)(nil)

// GetByNames returns the active masters with the given names, in the order
// the names were given. Unknown names are skipped.
func (r *masterRepository) GetByNames(ctx context.Context, names []string) ([]*models.CopywriterMaster, error) {
	if len(names) == 0 {
		return nil, nil
	}
	masters, err := r.list(ctx, `
		SELECT id, name, squad, document, is_active, created_at
		FROM copywriter_masters
		WHERE name = ANY($1) AND is_active`, names)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*models.CopywriterMaster, len(masters))
	for _, m := range masters {
		byName[m.Name] = m
	}
	ordered := make([]*models.CopywriterMaster, 0, len(masters))
	for _, name := range names {
		if m, ok := byName[name]; ok {
			ordered = append(ordered, m)
		}
	}
	return ordered, nil
}

func (r *masterRepository) List(ctx context.Context) ([]*models.CopywriterMaster, error) {
	return r.list(ctx, `
		SELECT id, name, squad, document, is_active, created_at
		FROM copywriter_masters
		WHERE is_active
		ORDER BY squad, name`)
}

func (r *masterRepository) list(ctx context.Context, query string, args ...any) ([]*models.CopywriterMaster, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	rows, err := scope.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query copywriter masters: %w", err)
	}
	defer rows.Close()

	masters := make([]*models.CopywriterMaster, 0)
	for rows.Next() {
		m, err := scanMasterRow(rows)
		if err != nil {
			return nil, err
		}
		masters = append(masters, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating copywriter masters: %w", err)
	}
	return masters, nil
}

func scanMasterRow(row pgx.Row) (*models.CopywriterMaster, error) {
	var m models.CopywriterMaster
	var squad string
	if err := row.Scan(&m.ID, &m.Name, &squad, &m.Document, &m.IsActive, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan copywriter master: %w", err)
	}
	m.Squad = models.CopySquad(squad)
	return &m, nil
}
