package handlers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/apperrors"
	"github.com/lumenbrand/lumen-engine/pkg/auth"
	"github.com/lumenbrand/lumen-engine/pkg/models"
	"github.com/lumenbrand/lumen-engine/pkg/repositories"
	"github.com/lumenbrand/lumen-engine/pkg/services"
)

// maxImportBytes caps the CSV body accepted by the import endpoint.
const maxImportBytes = 10 << 20

// ProductListResponse for GET /products
type ProductListResponse struct {
	Products []*models.Product `json:"products"`
	Total    int               `json:"total"`
}

// BulkDeleteProductsRequest for POST /products/bulk-delete
type BulkDeleteProductsRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

// BulkDeleteProductsResponse for POST /products/bulk-delete
type BulkDeleteProductsResponse struct {
	Deleted int64 `json:"deleted"`
}

// ProductHandler handles product catalog HTTP requests.
type ProductHandler struct {
	productService services.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(productService services.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers the product handler's routes on the given mux.
func (h *ProductHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	base := "/api/organizations/{oid}/products"
	scoped := func(next http.HandlerFunc) http.HandlerFunc {
		return authMiddleware.RequireAuthWithPathValidation("oid")(tenantMiddleware(next))
	}

	mux.HandleFunc("GET "+base, scoped(h.List))
	mux.HandleFunc("POST "+base, scoped(h.Create))
	mux.HandleFunc("POST "+base+"/bulk-delete", scoped(h.BulkDelete))
	mux.HandleFunc("POST "+base+"/import", scoped(h.Import))
	mux.HandleFunc("POST "+base+"/merge-duplicates", scoped(h.MergeDuplicates))
	mux.HandleFunc("GET "+base+"/{prid}", scoped(h.Get))
	mux.HandleFunc("PUT "+base+"/{prid}", scoped(h.Update))
	mux.HandleFunc("DELETE "+base+"/{prid}", scoped(h.Delete))
}

// List handles GET /api/organizations/{oid}/products
// Query: category, collection, q, limit, offset.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrganizationID(w, r, h.logger)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := repositories.ProductFilter{
		Category:   q.Get("category"),
		Collection: q.Get("collection"),
		Search:     q.Get("q"),
		Limit:      parseIntQuery(r, "limit", 100),
		Offset:     parseIntQuery(r, "offset", 0),
	}

	products, err := h.productService.List(r.Context(), orgID, filter)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to list products", err,
			zap.String("organization_id", orgID.String()))
		return
	}

	response := ProductListResponse{Products: products, Total: len(products)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/organizations/{oid}/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrganizationID(w, r, h.logger)
	if !ok {
		return
	}

	var product models.Product
	if !decodeJSON(w, r, &product, h.logger) {
		return
	}

	if err := h.productService.Create(r.Context(), orgID, &product); err != nil {
		writeServiceError(w, h.logger, "Failed to create product", err,
			zap.String("organization_id", orgID.String()))
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: &product}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/organizations/{oid}/products/{prid}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrganizationID(w, r, h.logger)
	if !ok {
		return
	}
	productID, ok := ParseProductID(w, r, h.logger)
	if !ok {
		return
	}

	product, err := h.productService.Get(r.Context(), orgID, productID)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to get product", err,
			zap.String("product_id", productID.String()))
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: product}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/organizations/{oid}/products/{prid}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrganizationID(w, r, h.logger)
	if !ok {
		return
	}
	productID, ok := ParseProductID(w, r, h.logger)
	if !ok {
		return
	}

	var product models.Product
	if !decodeJSON(w, r, &product, h.logger) {
		return
	}

	if err := h.productService.Update(r.Context(), orgID, productID, &product); err != nil {
		writeServiceError(w, h.logger, "Failed to update product", err,
			zap.String("product_id", productID.String()))
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: &product}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/organizations/{oid}/products/{prid}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrganizationID(w, r, h.logger)
	if !ok {
		return
	}
	productID, ok := ParseProductID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.productService.Delete(r.Context(), orgID, productID); err != nil {
		writeServiceError(w, h.logger, "Failed to delete product", err,
			zap.String("product_id", productID.String()))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BulkDelete handles POST /api/organizations/{oid}/products/bulk-delete
func (h *ProductHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrganizationID(w, r, h.logger)
	if !ok {
		return
	}

	var req BulkDeleteProductsRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	if len(req.IDs) == 0 {
		writeServiceError(w, h.logger, "Failed to delete products",
			fmt.Errorf("%w: ids is required", apperrors.ErrInvalidInput))
		return
	}

	deleted, err := h.productService.BulkDelete(r.Context(), orgID, req.IDs)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to delete products", err,
			zap.String("organization_id", orgID.String()))
		return
	}

	response := BulkDeleteProductsResponse{Deleted: deleted}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Import handles POST /api/organizations/{oid}/products/import
// The body is the CSV export itself.
func (h *ProductHandler) Import(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrganizationID(w, r, h.logger)
	if !ok {
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	report, err := h.productService.ImportCSV(r.Context(), orgID, body)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to import products", err,
			zap.String("organization_id", orgID.String()))
		return
	}

	h.logger.Info("Imported products",
		zap.String("organization_id", orgID.String()),
		zap.Int("created", report.Created),
		zap.Int("updated", report.Updated),
		zap.Int("skipped", report.Skipped))

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: report}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// MergeDuplicates handles POST /api/organizations/{oid}/products/merge-duplicates
func (h *ProductHandler) MergeDuplicates(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrganizationID(w, r, h.logger)
	if !ok {
		return
	}

	report, err := h.productService.MergeDuplicates(r.Context(), orgID)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to merge duplicate products", err,
			zap.String("organization_id", orgID.String()))
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: report}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
