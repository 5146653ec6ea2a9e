package handlers

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/lumenbrand/lumen-engine/pkg/repositories"
)

// UnscopedContextFunc acquires a database connection with no organization
// context. Returns the scoped context and a cleanup function that MUST be called.
type UnscopedContextFunc func(ctx context.Context) (context.Context, func(), error)

// MediaHandler serves stored generation images. Media URLs are unguessable
// and fetched by providers and browsers without credentials.
type MediaHandler struct {
	mediaRepo repositories.MediaRepository
	unscoped  UnscopedContextFunc
	logger    *zap.Logger
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(mediaRepo repositories.MediaRepository, unscoped UnscopedContextFunc, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{
		mediaRepo: mediaRepo,
		unscoped:  unscoped,
		logger:    logger,
	}
}

// RegisterRoutes registers the media handler's routes on the given mux.
func (h *MediaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/media/{mid}", h.Get)
}

// Get handles GET /api/media/{mid}
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	mediaID, ok := ParseMediaID(w, r, h.logger)
	if !ok {
		return
	}

	ctx, cleanup, err := h.unscoped(r.Context())
	if err != nil {
		h.logger.Error("Failed to acquire database connection", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "database_error", "Database connection error"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	defer cleanup()

	asset, err := h.mediaRepo.Get(ctx, mediaID)
	if err != nil {
		writeServiceError(w, h.logger, "Failed to get media", err,
			zap.String("media_id", mediaID.String()))
		return
	}

	w.Header().Set("Content-Type", asset.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(asset.Data)))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(asset.Data); err != nil {
		h.logger.Debug("Failed to write media body", zap.Error(err))
	}
}
