package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/apperrors"
	"github.com/lumenbrand/lumen-engine/pkg/auth"
	"github.com/lumenbrand/lumen-engine/pkg/models"
	"github.com/lumenbrand/lumen-engine/pkg/services"
)

// ============================================================================
// Request/Response Types
// ============================================================================

// KnowledgeListResponse for GET /knowledge
type KnowledgeListResponse struct {
	Fragments []*models.KnowledgeFragment `json:"fragments"`
	Total     int                         `json:"total"`
}

// SaveKnowledgeRequest for POST /knowledge
type SaveKnowledgeRequest struct {
	KnowledgeType models.KnowledgeType `json:"knowledge_type"`
	Content       json.RawMessage      `json:"content"`
	Source        string               `json:"source,omitempty"`
}

// ============================================================================
// Handler
// ============================================================================

// KnowledgeHandler handles brand knowledge HTTP requests.
type KnowledgeHandler struct {
	knowledgeService services.KnowledgeService
	logger           *zap.Logger
}

// NewKnowledgeHandler creates a new knowledge handler.
func NewKnowledgeHandler(knowledgeService services.KnowledgeService, logger *zap.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{
		knowledgeService: knowledgeService,
		logger:           logger,
	}
}

// RegisterRoutes registers the knowledge handler's routes on the given mux.
func (h *KnowledgeHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, tenantMiddleware TenantMiddleware) {
	base := "/api/organizations/{oid}/knowledge"

	mux.HandleFunc("GET "+base,
		authMiddleware.RequireAuthWithPathValidation("oid")(tenantMiddleware(h.List)))
	mux.HandleFunc("POST "+base,
		authMiddleware.RequireAuthWithPathValidation("oid")(tenantMiddleware(h.Save)))
	mux.HandleFunc("DELETE "+base+"/{kid}",
		authMiddleware.RequireAuthWithPathValidation("oid")(tenantMiddleware(h.Delete)))
}

// List handles GET /api/organizations/{oid}/knowledge
// With ?type=<knowledge_type> it returns every version of that type, newest
// first; otherwise the active fragment of each type.
func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrganizationID(w, r, h.logger)
	if !ok {
		return
	}

	var (
		fragments []*models.KnowledgeFragment
		err       error
	)
	if kt := models.KnowledgeType(r.URL.Query().Get("type")); kt != "" {
		fragments, err = h.knowledgeService.History(r.Context(), orgID, kt)
	} else {
		fragments, err = h.knowledgeService.ListActive(r.Context(), orgID)
	}
	if err != nil {
		writeServiceError(w, h.logger, "Failed to list knowledge", err,
			zap.String("organization_id", orgID.String()))
		return
	}

	response := KnowledgeListResponse{
		Fragments: fragments,
		Total:     len(fragments),
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Save handles POST /api/organizations/{oid}/knowledge
func (h *KnowledgeHandler) Save(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrganizationID(w, r, h.logger)
	if !ok {
		return
	}

	var req SaveKnowledgeRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}
	if !req.KnowledgeType.Valid() {
		writeServiceError(w, h.logger, "Failed to save knowledge",
			fmt.Errorf("%w: unknown knowledge_type %q", apperrors.ErrInvalidInput, req.KnowledgeType))
		return
	}
	if req.Source == "" {
		req.Source = "manual"
	}

	fragment, err := h.knowledgeService.Save(r.Context(), orgID, req.KnowledgeType, req.Content, req.Source)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to save knowledge", err,
			zap.String("organization_id", orgID.String()),
			zap.String("knowledge_type", string(req.KnowledgeType)))
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: fragment}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/organizations/{oid}/knowledge/{kid}
func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orgID, ok := ParseOrganizationID(w, r, h.logger)
	if !ok {
		return
	}
	fragmentID, ok := ParseKnowledgeID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.knowledgeService.Delete(r.Context(), orgID, fragmentID); err != nil {
		writeServiceError(w, h.logger, "Failed to delete knowledge", err,
			zap.String("knowledge_id", fragmentID.String()))
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Knowledge deleted"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
