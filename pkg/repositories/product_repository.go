package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lumenbrand/lumen-engine/pkg/apperrors"
	"github.com/lumenbrand/lumen-engine/pkg/database"
	"github.com/lumenbrand/lumen-engine/pkg/models"
)

// ProductFilter narrows a product listing. Zero values do not filter.
type ProductFilter struct {
	Category   string
	Collection string
	Search     string // matched against name and handle
	Limit      int
	Offset     int
}

// ProductRepository provides data access for the product catalog.
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	Get(ctx context.Context, orgID, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, orgID uuid.UUID, filter ProductFilter) ([]*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	BulkDelete(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) (int64, error)

	// UpsertByHandle updates the oldest product with the same handle, keeping
	// existing values where product has none, or inserts a new one.
	UpsertByHandle(ctx context.Context, product *models.Product) (created bool, err error)
	ListByHandle(ctx context.Context, orgID uuid.UUID, handle string) ([]*models.Product, error)
	ListDuplicateHandles(ctx context.Context, orgID uuid.UUID) ([]string, error)
	// MergeInto saves keep and deletes the removed products in one transaction.
	// Generations pointing at a removed product are re-pointed at keep.
	MergeInto(ctx context.Context, keep *models.Product, removeIDs []uuid.UUID) error
}

type productRepository struct{}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository() ProductRepository {
	return &productRepository{}
}

var _ ProductRepository = (*productRepository)(nil)

// Columns written from the struct, in argument order after organization_id.
var productAttributeColumns = []string{"sku", "price", "inventory_quantity", "in_stock", "is_bestseller", "image_url"}

var (
	productDescriptiveColumns = models.DescriptiveFieldNames()
	productWritableColumns    = append(append([]string{"handle"}, productAttributeColumns...), productDescriptiveColumns...)
	productSelectColumns      = "id, organization_id, " + strings.Join(productWritableColumns, ", ") + ", created_at, updated_at"
)

// productWritableArgs returns the values of productWritableColumns.
func productWritableArgs(p *models.Product) []any {
	args := []any{p.Handle, p.SKU, p.Price, p.InventoryQuantity, p.InStock, p.IsBestseller, p.ImageURL}
	return append(args, p.FieldArgs(productDescriptiveColumns)...)
}

func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}
	return insertProduct(ctx, scope.Conn, product)
}

// queryRower is satisfied by both a pooled connection and a transaction.
type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertProduct(ctx context.Context, q queryRower, product *models.Product) error {
	if strings.TrimSpace(product.Handle) == "" {
		return fmt.Errorf("%w: product handle is required", apperrors.ErrInvalidInput)
	}
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}

	args := append([]any{product.ID, product.OrganizationID}, productWritableArgs(product)...)
	query := `INSERT INTO products (id, organization_id, ` + strings.Join(productWritableColumns, ", ") + `)
		VALUES (` + placeholders(1, len(args)) + `)
		RETURNING created_at, updated_at`

	if err := q.QueryRow(ctx, query, args...).Scan(&product.CreatedAt, &product.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *productRepository) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Product, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	row := scope.Conn.QueryRow(ctx, `SELECT `+productSelectColumns+`
		FROM products WHERE organization_id = $1 AND id = $2`, orgID, id)
	p, err := scanProductRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	return p, err
}

func (r *productRepository) List(ctx context.Context, orgID uuid.UUID, filter ProductFilter) ([]*models.Product, error) {
	var sb strings.Builder
	args := []any{orgID}
	sb.WriteString(`SELECT ` + productSelectColumns + ` FROM products WHERE organization_id = $1`)

	if filter.Category != "" {
		args = append(args, models.NormalizeCategory(filter.Category))
		sb.WriteString(` AND regexp_replace(lower(category), '[\s/_-]+', '_', 'g') = $` + strconv.Itoa(len(args)))
	}
	if filter.Collection != "" {
		args = append(args, filter.Collection)
		sb.WriteString(` AND collection ILIKE $` + strconv.Itoa(len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		sb.WriteString(` AND (name ILIKE $` + n + ` OR handle ILIKE $` + n + `)`)
	}
	sb.WriteString(` ORDER BY name NULLS LAST, created_at`)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sb.WriteString(` LIMIT $` + strconv.Itoa(len(args)))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		sb.WriteString(` OFFSET $` + strconv.Itoa(len(args)))
	}

	return r.list(ctx, sb.String(), args...)
}

func (r *productRepository) ListByHandle(ctx context.Context, orgID uuid.UUID, handle string) ([]*models.Product, error) {
	return r.list(ctx, `SELECT `+productSelectColumns+`
		FROM products WHERE organization_id = $1 AND handle = $2
		ORDER BY created_at, id`, orgID, handle)
}

func (r *productRepository) list(ctx context.Context, query string, args ...any) ([]*models.Product, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	rows, err := scope.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]*models.Product, 0)
	for rows.Next() {
		p, err := scanProductRow(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

func (r *productRepository) ListDuplicateHandles(ctx context.Context, orgID uuid.UUID) ([]string, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	rows, err := scope.Conn.Query(ctx, `
		SELECT handle FROM products
		WHERE organization_id = $1
		GROUP BY handle
		HAVING COUNT(*) > 1
		ORDER BY handle`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list duplicate handles: %w", err)
	}
	defer rows.Close()

	var handles []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("failed to scan handle: %w", err)
		}
		handles = append(handles, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating handles: %w", err)
	}
	return handles, nil
}

func (r *productRepository) Update(ctx context.Context, product *models.Product) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}
	return updateProduct(ctx, scope.Conn, product)
}

func updateProduct(ctx context.Context, q queryRower, product *models.Product) error {
	sets := make([]string, len(productWritableColumns))
	for i, col := range productWritableColumns {
		sets[i] = fmt.Sprintf("%s = $%d", col, i+3)
	}
	args := append([]any{product.OrganizationID, product.ID}, productWritableArgs(product)...)

	err := q.QueryRow(ctx, `UPDATE products SET `+strings.Join(sets, ", ")+`, updated_at = now()
		WHERE organization_id = $1 AND id = $2
		RETURNING updated_at`, args...).Scan(&product.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

func (r *productRepository) UpsertByHandle(ctx context.Context, product *models.Product) (bool, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return false, fmt.Errorf("no tenant scope in context")
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var existingID uuid.UUID
	var createdAt time.Time
	err = tx.QueryRow(ctx, `
		SELECT id, created_at FROM products
		WHERE organization_id = $1 AND handle = $2
		ORDER BY created_at, id
		LIMIT 1
		FOR UPDATE`, product.OrganizationID, product.Handle).Scan(&existingID, &createdAt)

	created := false
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if err := insertProduct(ctx, tx, product); err != nil {
			return false, err
		}
		created = true
	case err != nil:
		return false, fmt.Errorf("failed to look up product by handle: %w", err)
	default:
		// Columns without a new value keep what is stored.
		sets := make([]string, len(productWritableColumns))
		for i, col := range productWritableColumns {
			sets[i] = fmt.Sprintf("%s = COALESCE($%d, %s)", col, i+3, col)
		}
		args := append([]any{product.OrganizationID, existingID}, productWritableArgs(product)...)
		if err := tx.QueryRow(ctx, `UPDATE products SET `+strings.Join(sets, ", ")+`, updated_at = now()
			WHERE organization_id = $1 AND id = $2
			RETURNING updated_at`, args...).Scan(&product.UpdatedAt); err != nil {
			return false, fmt.Errorf("failed to update product: %w", err)
		}
		product.ID = existingID
		product.CreatedAt = createdAt
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit product: %w", err)
	}
	return created, nil
}

func (r *productRepository) MergeInto(ctx context.Context, keep *models.Product, removeIDs []uuid.UUID) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := updateProduct(ctx, tx, keep); err != nil {
		return err
	}
	if len(removeIDs) > 0 {
		if _, err := tx.Exec(ctx, `
			UPDATE generations SET product_id = $2
			WHERE organization_id = $1 AND product_id = ANY($3)`,
			keep.OrganizationID, keep.ID, removeIDs); err != nil {
			return fmt.Errorf("failed to re-point generations: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM products WHERE organization_id = $1 AND id = ANY($2)`,
			keep.OrganizationID, removeIDs); err != nil {
			return fmt.Errorf("failed to delete merged products: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit merge: %w", err)
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	tag, err := scope.Conn.Exec(ctx, `DELETE FROM products WHERE organization_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *productRepository) BulkDelete(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no tenant scope in context")
	}

	tag, err := scope.Conn.Exec(ctx, `DELETE FROM products WHERE organization_id = $1 AND id = ANY($2)`, orgID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete products: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanProductRow(row pgx.Row) (*models.Product, error) {
	var p models.Product
	dest := []any{
		&p.ID, &p.OrganizationID, &p.Handle,
		&p.SKU, &p.Price, &p.InventoryQuantity, &p.InStock, &p.IsBestseller, &p.ImageURL,
	}
	dest = append(dest, p.FieldRefs(productDescriptiveColumns)...)
	dest = append(dest, &p.CreatedAt, &p.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	return &p, nil
}

// placeholders returns "$start, ..., $start+n-1".
func placeholders(start, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = "$" + strconv.Itoa(start+i)
	}
	return strings.Join(ps, ", ")
}
