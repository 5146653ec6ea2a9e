package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/apperrors"
	"github.com/lumenbrand/lumen-engine/pkg/database"
	"github.com/lumenbrand/lumen-engine/pkg/metrics"
	"github.com/lumenbrand/lumen-engine/pkg/models"
)

// undefinedColumnCode is the Postgres SQLSTATE for a column that does not exist.
const undefinedColumnCode = "42703"

var undefinedColumnPattern = regexp.MustCompile(`column "([^"]+)"`)

// GenerationFilter narrows a generation listing.
type GenerationFilter struct {
	MediaKind models.MediaKind
	ProductID *uuid.UUID
	Limit     int
}

// GenerationRepository persists generation records. Records are append-only.
type GenerationRepository interface {
	// Create inserts g. Optional columns the database does not know about are
	// dropped and the insert retried, so a lagging schema never loses a
	// generation the caller already paid for.
	Create(ctx context.Context, g *models.Generation) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Generation, error)
	// GetChain returns the refinement tree rooted at rootID, ordered by depth.
	GetChain(ctx context.Context, orgID, rootID uuid.UUID) ([]*models.Generation, error)
	List(ctx context.Context, orgID uuid.UUID, filter GenerationFilter) ([]*models.Generation, error)
}

type generationRepository struct {
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewGenerationRepository creates a new GenerationRepository. m may be nil.
func NewGenerationRepository(m *metrics.Metrics, logger *zap.Logger) GenerationRepository {
	return &generationRepository{
		metrics: m,
		logger:  logger.Named("generation-repo"),
	}
}

var _ GenerationRepository = (*generationRepository)(nil)

type insertColumn struct {
	name     string
	value    any
	optional bool
}

func generationColumns(g *models.Generation) []insertColumn {
	return []insertColumn{
		{name: "id", value: g.ID},
		{name: "organization_id", value: g.OrganizationID},
		{name: "product_id", value: g.ProductID},
		{name: "media_kind", value: string(g.MediaKind)},
		{name: "prompt", value: g.Prompt},
		{name: "final_prompt", value: g.FinalPrompt},
		{name: "generated_text", value: g.GeneratedText},
		{name: "image_url", value: g.ImageURL},
		{name: "video_url", value: g.VideoURL},
		{name: "generation_provider", value: g.GenerationProvider},
		{name: "created_at", value: g.CreatedAt},
		{name: "parent_id", value: g.ParentID, optional: true},
		{name: "chain_depth", value: g.ChainDepth, optional: true},
		{name: "is_chain_origin", value: g.IsChainOrigin, optional: true},
		{name: "library_category", value: g.LibraryCategory, optional: true},
		{name: "squad", value: g.Squad, optional: true},
		{name: "awareness_stage", value: g.AwarenessStage, optional: true},
		{name: "aspect_ratio", value: g.AspectRatio, optional: true},
		{name: "resolution", value: g.Resolution, optional: true},
		{name: "seed", value: g.Seed, optional: true},
		{name: "tier_restricted", value: g.TierRestricted, optional: true},
	}
}

func (r *generationRepository) Create(ctx context.Context, g *models.Generation) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}

	dropped, err := insertDroppingUnknownColumns(ctx, scope.Conn, "generations", generationColumns(g), func(column string) {
		r.metrics.ObserveSchemaSkew(column)
		r.logger.Warn("Dropping column unknown to the database and retrying insert",
			zap.String("table", "generations"),
			zap.String("column", column),
			zap.String("generation_id", g.ID.String()))
	})
	if err != nil {
		return err
	}
	if len(dropped) > 0 {
		r.logger.Warn("Generation stored without optional columns",
			zap.String("generation_id", g.ID.String()),
			zap.Strings("dropped", dropped))
	}
	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// insertDroppingUnknownColumns inserts a row. When the database rejects an
// optional column as undefined, that column is removed and the insert is
// retried; it returns the names of the dropped columns. An undefined required
// column fails immediately.
func insertDroppingUnknownColumns(ctx context.Context, db execer, table string, cols []insertColumn, onDrop func(column string)) ([]string, error) {
	var dropped []string
	remaining := append([]insertColumn(nil), cols...)

	for {
		names := make([]string, len(remaining))
		args := make([]any, len(remaining))
		for i, c := range remaining {
			names[i] = c.name
			args[i] = c.value
		}
		query := `INSERT INTO ` + table + ` (` + strings.Join(names, ", ") + `) VALUES (` + placeholders(1, len(args)) + `)`

		_, err := db.Exec(ctx, query, args...)
		if err == nil {
			return dropped, nil
		}

		column, ok := undefinedColumn(err)
		if !ok {
			return dropped, fmt.Errorf("failed to insert into %s: %w", table, err)
		}

		idx := -1
		for i, c := range remaining {
			if c.name == column {
				idx = i
				break
			}
		}
		if idx < 0 || !remaining[idx].optional {
			return dropped, fmt.Errorf("%w: column %q: %v", apperrors.ErrUnknownColumnExhausted, column, err)
		}

		if onDrop != nil {
			onDrop(column)
		}
		dropped = append(dropped, column)
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
}

// undefinedColumn extracts the column name from an undefined-column error.
func undefinedColumn(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != undefinedColumnCode {
		return "", false
	}
	if m := undefinedColumnPattern.FindStringSubmatch(pgErr.Message); m != nil {
		// Messages may qualify the column as "table.column".
		name := m[1]
		if i := strings.LastIndex(name, "."); i >= 0 {
			name = name[i+1:]
		}
		return name, true
	}
	return "", false
}

const generationSelectColumns = `id, organization_id, product_id, media_kind, prompt, final_prompt,
	generated_text, image_url, video_url, generation_provider, parent_id, chain_depth,
	is_chain_origin, library_category, squad, awareness_stage, aspect_ratio, resolution,
	seed, tier_restricted, created_at`

func (r *generationRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*models.Generation, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	row := scope.Conn.QueryRow(ctx, `SELECT `+generationSelectColumns+`
		FROM generations WHERE organization_id = $1 AND id = $2`, orgID, id)
	g, err := scanGenerationRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	return g, err
}

func (r *generationRepository) GetChain(ctx context.Context, orgID, rootID uuid.UUID) ([]*models.Generation, error) {
	chain, err := r.list(ctx, `
		WITH RECURSIVE chain AS (
			SELECT id FROM generations WHERE organization_id = $1 AND id = $2
			UNION ALL
			SELECT g.id FROM generations g JOIN chain c ON g.parent_id = c.id
			WHERE g.organization_id = $1
		)
		SELECT `+generationSelectColumns+`
		FROM generations
		WHERE id IN (SELECT id FROM chain)
		ORDER BY chain_depth, created_at`, orgID, rootID)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return chain, nil
}

func (r *generationRepository) List(ctx context.Context, orgID uuid.UUID, filter GenerationFilter) ([]*models.Generation, error) {
	var sb strings.Builder
	args := []any{orgID}
	sb.WriteString(`SELECT ` + generationSelectColumns + ` FROM generations WHERE organization_id = $1`)
	if filter.MediaKind != "" {
		args = append(args, string(filter.MediaKind))
		sb.WriteString(` AND media_kind = $` + strconv.Itoa(len(args)))
	}
	if filter.ProductID != nil {
		args = append(args, *filter.ProductID)
		sb.WriteString(` AND product_id = $` + strconv.Itoa(len(args)))
	}
	sb.WriteString(` ORDER BY created_at DESC`)
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	sb.WriteString(` LIMIT $` + strconv.Itoa(len(args)))

	return r.list(ctx, sb.String(), args...)
}

func (r *generationRepository) list(ctx context.Context, query string, args ...any) ([]*models.Generation, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	rows, err := scope.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list generations: %w", err)
	}
	defer rows.Close()

	generations := make([]*models.Generation, 0)
	for rows.Next() {
		g, err := scanGenerationRow(rows)
		if err != nil {
			return nil, err
		}
		generations = append(generations, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating generations: %w", err)
	}
	return generations, nil
}

func scanGenerationRow(row pgx.Row) (*models.Generation, error) {
	var g models.Generation
	var kind string
	err := row.Scan(&g.ID, &g.OrganizationID, &g.ProductID, &kind, &g.Prompt, &g.FinalPrompt,
		&g.GeneratedText, &g.ImageURL, &g.VideoURL, &g.GenerationProvider, &g.ParentID, &g.ChainDepth,
		&g.IsChainOrigin, &g.LibraryCategory, &g.Squad, &g.AwarenessStage, &g.AspectRatio, &g.Resolution,
		&g.Seed, &g.TierRestricted, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan generation: %w", err)
	}
	g.MediaKind = models.MediaKind(kind)
	return &g, nil
}
