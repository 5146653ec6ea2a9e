package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ParseOrganizationID extracts and validates the organization ID from the request path.
// Returns the parsed UUID and true on success, or uuid.Nil and false on error
// (after writing an error response).
// Expects path parameter: oid
func ParseOrganizationID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "oid", "invalid_organization_id", "Invalid organization ID format", logger)
}

// ParseGenerationID extracts and validates the generation ID from the request path.
// Expects path parameter: gid
func ParseGenerationID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "gid", "invalid_generation_id", "Invalid generation ID format", logger)
}

// ParseProductID extracts and validates the product ID from the request path.
// Expects path parameter: prid
func ParseProductID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "prid", "invalid_product_id", "Invalid product ID format", logger)
}

// ParseKnowledgeID extracts and validates the knowledge fragment ID from the request path.
// Expects path parameter: kid
func ParseKnowledgeID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "kid", "invalid_knowledge_id", "Invalid knowledge ID format", logger)
}

// ParseMediaID extracts and validates the media asset ID from the request path.
// Expects path parameter: mid
func ParseMediaID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	return parseUUID(w, r, "mid", "invalid_media_id", "Invalid media ID format", logger)
}

// parseUUID is the internal helper that does the actual parsing work.
func parseUUID(w http.ResponseWriter, r *http.Request, pathParam, errorCode, errorMessage string, logger *zap.Logger) (uuid.UUID, bool) {
	idStr := r.PathValue(pathParam)
	id, err := uuid.Parse(idStr)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, errorCode, errorMessage); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return uuid.Nil, false
	}
	return id, true
}

// parseOptionalUUIDQuery reads an optional UUID query parameter. An absent
// parameter yields nil; a malformed one writes a 400.
func parseOptionalUUIDQuery(w http.ResponseWriter, r *http.Request, name string, logger *zap.Logger) (*uuid.UUID, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_"+name, "Invalid "+name+" format"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return nil, false
	}
	return &id, true
}

// parseIntQuery reads a non-negative integer query parameter, falling back to def.
func parseIntQuery(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 0 {
		return def
	}
	return n
}
