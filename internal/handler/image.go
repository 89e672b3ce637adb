package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/imgpress/imgpress/internal/blob"
	"github.com/imgpress/imgpress/internal/repository"
	"github.com/imgpress/imgpress/internal/service"
)

// ImageHandler serves stored image bytes when the filesystem backend is
// active. Keys are 256-bit content hashes, so the URLs are capability URLs
// with the same access model as presigned S3 links: unguessable, no token.
type ImageHandler struct {
	svc    *service.GalleryService
	logger *slog.Logger
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(svc *service.GalleryService, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{
		svc:    svc,
		logger: logger,
	}
}

// Get handles GET /images/{key}.
func (h *ImageHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "MISSING_KEY", "Image key is required")
		return
	}

	data, contentType, err := h.svc.FetchImage(r.Context(), key)
	if err != nil {
		if errors.Is(err, repository.ErrImageNotFound) || errors.Is(err, blob.ErrNotFound) {
			writeError(w, http.StatusNotFound, "IMAGE_NOT_FOUND", "Image not found")
			return
		}
		h.logger.Error("fetch image failed", "error", err, "key", key)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	w.Header().Set("Content-Type", contentType)
	// Content-addressed bytes never change; let browsers cache aggressively.
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
