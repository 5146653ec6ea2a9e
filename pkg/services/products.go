package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/apperrors"
	"github.com/lumenbrand/lumen-engine/pkg/models"
	"github.com/lumenbrand/lumen-engine/pkg/repositories"
)

// ImportReport summarizes a CSV import.
type ImportReport struct {
	Rows           int      `json:"rows"`
	Created        int      `json:"created"`
	Updated        int      `json:"updated"`
	Skipped        int      `json:"skipped"`
	IgnoredHeaders []string `json:"ignored_headers,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// MergeReport summarizes a duplicate merge.
type MergeReport struct {
	Handles int `json:"handles"`
	Removed int `json:"removed"`
}

// ProductService manages the product catalog.
type ProductService interface {
	Create(ctx context.Context, orgID uuid.UUID, product *models.Product) error
	Get(ctx context.Context, orgID, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, orgID uuid.UUID, filter repositories.ProductFilter) ([]*models.Product, error)
	Update(ctx context.Context, orgID, id uuid.UUID, product *models.Product) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	BulkDelete(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) (int64, error)

	// ImportCSV upserts one product per row, keyed by handle. Malformed rows
	// are skipped with a warning.
	ImportCSV(ctx context.Context, orgID uuid.UUID, r io.Reader) (*ImportReport, error)

	// MergeDuplicates collapses products sharing a handle into the oldest one.
	MergeDuplicates(ctx context.Context, orgID uuid.UUID) (*MergeReport, error)
}

type productService struct {
	repo   repositories.ProductRepository
	logger *zap.Logger
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, logger *zap.Logger) ProductService {
	return &productService{
		repo:   repo,
		logger: logger.Named("products"),
	}
}

var _ ProductService = (*productService)(nil)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// slugify turns "Midnight Oudh 50ml" into "midnight-oudh-50ml".
func slugify(s string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

func (s *productService) prepare(orgID uuid.UUID, p *models.Product) error {
	p.OrganizationID = orgID
	p.Handle = strings.TrimSpace(p.Handle)
	if p.Handle == "" {
		p.Handle = slugify(p.Field("name"))
	}
	if p.Handle == "" {
		return fmt.Errorf("%w: handle or name is required", apperrors.ErrInvalidInput)
	}
	return nil
}

func (s *productService) Create(ctx context.Context, orgID uuid.UUID, p *models.Product) error {
	if err := s.prepare(orgID, p); err != nil {
		return err
	}
	return s.repo.Create(ctx, p)
}

func (s *productService) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Product, error) {
	return s.repo.Get(ctx, orgID, id)
}

func (s *productService) List(ctx context.Context, orgID uuid.UUID, filter repositories.ProductFilter) ([]*models.Product, error) {
	return s.repo.List(ctx, orgID, filter)
}

func (s *productService) Update(ctx context.Context, orgID, id uuid.UUID, p *models.Product) error {
	p.ID = id
	if err := s.prepare(orgID, p); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

func (s *productService) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return s.repo.Delete(ctx, orgID, id)
}

func (s *productService) BulkDelete(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.repo.BulkDelete(ctx, orgID, ids)
}

// Attribute columns a CSV may carry besides the descriptive fields.
const (
	colHandle    = "handle"
	colSKU       = "sku"
	colPrice     = "price"
	colInventory = "inventory_quantity"
	colInStock   = "in_stock"
	colBest      = "is_bestseller"
	colImageURL  = "image_url"
)

var attributeColumns = []string{colHandle, colSKU, colPrice, colInventory, colInStock, colBest, colImageURL}

// headerAliases maps common storefront export headers to product columns.
var headerAliases = map[string]string{
	"title":                 "name",
	"product_name":          "name",
	"product_title":         "name",
	"url_handle":            colHandle,
	"slug":                  colHandle,
	"variant_sku":           colSKU,
	"variant_price":         colPrice,
	"variant_inventory_qty": colInventory,
	"inventory":             colInventory,
	"stock":                 colInventory,
	"available":             colInStock,
	"bestseller":            colBest,
	"best_seller":           colBest,
	"image_src":             colImageURL,
	"image":                 colImageURL,
	"type":                  "product_type",
	"body_html":             "description",
	"body":                  "description",
	"notes_top":             "top_notes",
	"notes_middle":          "middle_notes",
	"heart_notes":           "middle_notes",
	"notes_base":            "base_notes",
	"ingredients":           "key_ingredients",
	"benefits":              "key_benefits",
	"audience":              "target_audience",
	"ritual":                "usage_ritual",
	"sustainability":        "sustainability_notes",
	"bottle":                "bottle_type",
	"packaging":             "packaging_description",
}

var nonHeaderChars = regexp.MustCompile(`[^a-z0-9]+`)

func normalizeHeader(h string) string {
	return strings.Trim(nonHeaderChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(h)), "_"), "_")
}

func knownColumn(name string) bool {
	return models.IsDescriptiveField(name) || slices.Contains(attributeColumns, name)
}

// resolveHeader maps a CSV header to a product column. Singular and plural
// spellings of a known column are accepted.
func resolveHeader(header string) (string, bool) {
	key := normalizeHeader(header)
	if key == "" {
		return "", false
	}
	if col, ok := headerAliases[key]; ok {
		return col, true
	}
	for _, candidate := range []string{key, inflection.Plural(key), inflection.Singular(key)} {
		if knownColumn(candidate) {
			return candidate, true
		}
		if col, ok := headerAliases[candidate]; ok {
			return col, true
		}
	}
	return "", false
}

func (s *productService) ImportCSV(ctx context.Context, orgID uuid.UUID, r io.Reader) (*ImportReport, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty CSV", apperrors.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV header: %v", apperrors.ErrInvalidInput, err)
	}

	report := &ImportReport{}
	columns := make([]string, len(header))
	seen := make(map[string]bool)
	for i, h := range header {
		col, ok := resolveHeader(h)
		if !ok || seen[col] {
			if strings.TrimSpace(h) != "" {
				report.IgnoredHeaders = append(report.IgnoredHeaders, strings.TrimSpace(h))
			}
			continue
		}
		seen[col] = true
		columns[i] = col
	}
	if !seen[colHandle] && !seen["name"] {
		return nil, fmt.Errorf("%w: CSV needs a handle or name column", apperrors.ErrInvalidInput)
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			report.Skipped++
			report.Warnings = append(report.Warnings, fmt.Sprintf("line %d: %v", parseErr.Line, parseErr.Err))
			continue
		}
		if err != nil {
			return report, fmt.Errorf("failed to read CSV: %w", err)
		}
		if isBlankRecord(record) {
			continue
		}
		report.Rows++
		line, _ := reader.FieldPos(0)

		p, warn := productFromRecord(orgID, columns, record)
		if warn != "" {
			report.Skipped++
			report.Warnings = append(report.Warnings, fmt.Sprintf("line %d: %s", line, warn))
			continue
		}

		created, err := s.repo.UpsertByHandle(ctx, p)
		if err != nil {
			return report, fmt.Errorf("failed to import %q: %w", p.Handle, err)
		}
		if created {
			report.Created++
		} else {
			report.Updated++
		}
	}

	s.logger.Info("Imported products",
		zap.String("organization_id", orgID.String()),
		zap.Int("rows", report.Rows),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("skipped", report.Skipped),
		zap.Strings("ignored_headers", report.IgnoredHeaders))
	return report, nil
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// productFromRecord builds a product from one CSV row. It returns a warning
// instead of a product when the row cannot be imported.
func productFromRecord(orgID uuid.UUID, columns, record []string) (*models.Product, string) {
	p := &models.Product{OrganizationID: orgID}
	for i, value := range record {
		if i >= len(columns) || columns[i] == "" {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		switch col := columns[i]; col {
		case colHandle:
			p.Handle = value
		case colSKU:
			p.SKU = &value
		case colImageURL:
			p.ImageURL = &value
		case colPrice:
			p.Price = parsePrice(value)
		case colInventory:
			p.InventoryQuantity = parseInt(value)
		case colInStock:
			p.InStock = parseYes(value)
		case colBest:
			p.IsBestseller = parseYes(value)
		default:
			p.SetField(col, value)
		}
	}

	if p.Handle == "" {
		p.Handle = slugify(p.Field("name"))
	}
	if p.Handle == "" {
		return nil, "missing handle and name"
	}
	return p, ""
}

// parsePrice accepts "48", "48.50", "$1,048.00". Anything else is null.
func parsePrice(value string) *float64 {
	cleaned := strings.NewReplacer("$", "", "€", "", "£", "", ",", "").Replace(value)
	f, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseInt(value string) *int {
	n, err := strconv.Atoi(strings.ReplaceAll(value, ",", ""))
	if err != nil {
		return nil
	}
	return &n
}

// parseYes treats the literal "yes" as true and any other value as false.
func parseYes(value string) *bool {
	b := strings.EqualFold(strings.TrimSpace(value), "yes")
	return &b
}

func (s *productService) MergeDuplicates(ctx context.Context, orgID uuid.UUID) (*MergeReport, error) {
	handles, err := s.repo.ListDuplicateHandles(ctx, orgID)
	if err != nil {
		return nil, err
	}

	report := &MergeReport{}
	for _, handle := range handles {
		products, err := s.repo.ListByHandle(ctx, orgID, handle)
		if err != nil {
			return report, err
		}
		if len(products) < 2 {
			continue
		}

		keep := products[0]
		newestFirst := slices.Clone(products[1:])
		slices.Reverse(newestFirst)
		models.MergeProducts(keep, newestFirst)

		removeIDs := make([]uuid.UUID, len(newestFirst))
		for i, p := range newestFirst {
			removeIDs[i] = p.ID
		}
		if err := s.repo.MergeInto(ctx, keep, removeIDs); err != nil {
			return report, fmt.Errorf("failed to merge %q: %w", handle, err)
		}

		report.Handles++
		report.Removed += len(removeIDs)
		s.logger.Info("Merged duplicate products",
			zap.String("organization_id", orgID.String()),
			zap.String("handle", handle),
			zap.String("kept", keep.ID.String()),
			zap.Int("removed", len(removeIDs)))
	}
	return report, nil
}
