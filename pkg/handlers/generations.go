package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/auth"
	"github.com/lumenbrand/lumen-engine/pkg/models"
	"github.com/lumenbrand/lumen-engine/pkg/repositories"
	"github.com/lumenbrand/lumen-engine/pkg/services"
)

// GenerationListResponse for GET /generations
type GenerationListResponse struct {
	Generations []*models.Generation `json:"generations"`
	Total       int                  `json:"total"`
}

// GenerationChainResponse for GET /generations/{gid}/chain
type GenerationChainResponse struct {
	RootID      string               `json:"root_id"`
	Generations []*models.Generation `json:"generations"`
}

// GenerationHandler handles copy, image and video generation requests.
type GenerationHandler struct {
	copyService        services.CopyGenerationService
	imageService       services.ImageGenerationService
	videoService       services.VideoGenerationService
	generationsService services.GenerationService
	logger             *zap.Logger
}

// NewGenerationHandler creates a new generation handler.
func NewGenerationHandler(
	copyService services.CopyGenerationService,
	imageService services.ImageGenerationService,
	videoService services.VideoGenerationService,
	generationsService services.GenerationService,
	logger *zap.Logger,
) *GenerationHandler {
	return &GenerationHandler{
		copyService:        copyService,
		imageService:       imageService,
		videoService:       videoService,
		generationsService: generationsService,
		logger:             logger,
	}
}

// RegisterRoutes registers the generation handler's routes on the given mux.
func (h *GenerationHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	base := "/api/organizations/{oid}/generations"
	scoped := func(next http.HandlerFunc) http.HandlerFunc {
		return authMiddleware.RequireAuthWithPathValidation("oid")(tenantMiddleware(next))
	}

	mux.HandleFunc("GET "+base, scoped(h.List))
	mux.HandleFunc("POST "+base+"/copy", scoped(h.GenerateCopy))
	mux.HandleFunc("POST "+base+"/image", scoped(h.GenerateImage))
	mux.HandleFunc("POST "+base+"/video", scoped(h.GenerateVideo))
	mux.HandleFunc("GET "+base+"/{gid}", scoped(h.Get))
	mux.HandleFunc("GET "+base+"/{gid}/chain", scoped(h.GetChain))
}

// GenerateCopy handles POST /api/organizations/{oid}/generations/copy
func (h *GenerationHandler) GenerateCopy(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrganizationID(w, r, h.logger)
	if !ok {
		return
	}

	var req services.CopyRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	result, err := h.copyService.Generate(r.Context(), orgID, req)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to generate copy", err,
			zap.String("organization_id", orgID.String()))
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GenerateImage handles POST /api/organizations/{oid}/generations/image
func (h *GenerationHandler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrganizationID(w, r, h.logger)
	if !ok {
		return
	}

	var req services.ImageRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	req.SuperAdmin = auth.IsSuperAdminFromContext(r.Context())

	result, err := h.imageService.Generate(r.Context(), orgID, req)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to generate image", err,
			zap.String("organization_id", orgID.String()))
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GenerateVideo handles POST /api/organizations/{oid}/generations/video
func (h *GenerationHandler) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrganizationID(w, r, h.logger)
	if !ok {
		return
	}

	var req services.VideoRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	req.SuperAdmin = auth.IsSuperAdminFromContext(r.Context())

	gen, err := h.videoService.Generate(r.Context(), orgID, req)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to generate video", err,
			zap.String("organization_id", orgID.String()))
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: gen}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/organizations/{oid}/generations
// Query: kind (text|image|video), product_id, limit.
func (h *GenerationHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrganizationID(w, r, h.logger)
	if !ok {
		return
	}
	productID, ok := parseOptionalUUIDQuery(w, r, "product_id", h.logger)
	if !ok {
		return
	}

	filter := repositories.GenerationFilter{
		MediaKind: models.MediaKind(r.URL.Query().Get("kind")),
		ProductID: productID,
		Limit:     parseIntQuery(r, "limit", 50),
	}

	gens, err := h.generationsService.List(r.Context(), orgID, filter)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to list generations", err,
			zap.String("organization_id", orgID.String()))
		return
	}

	response := GenerationListResponse{Generations: gens, Total: len(gens)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/organizations/{oid}/generations/{gid}
func (h *GenerationHandler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrganizationID(w, r, h.logger)
	if !ok {
		return
	}
	genID, ok := ParseGenerationID(w, r, h.logger)
	if !ok {
		return
	}

	gen, err := h.generationsService.Get(r.Context(), orgID, genID)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to get generation", err,
			zap.String("generation_id", genID.String()))
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: gen}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GetChain handles GET /api/organizations/{oid}/generations/{gid}/chain
func (h *GenerationHandler) GetChain(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrganizationID(w, r, h.logger)
	if !ok {
		return
	}
	genID, ok := ParseGenerationID(w, r, h.logger)
	if !ok {
		return
	}

	chain, err := h.generationsService.GetChain(r.Context(), orgID, genID)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to get generation chain", err,
			zap.String("generation_id", genID.String()))
		return
	}

	response := GenerationChainResponse{RootID: genID.String(), Generations: chain}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
