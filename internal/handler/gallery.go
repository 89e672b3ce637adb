package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/imgpress/imgpress/internal/auth"
	"github.com/imgpress/imgpress/internal/service"
	"github.com/imgpress/imgpress/internal/transform"
)

// GalleryHandler handles the authenticated gallery endpoints.
type GalleryHandler struct {
	svc    *service.GalleryService
	logger *slog.Logger
}

// NewGalleryHandler creates a new GalleryHandler.
func NewGalleryHandler(svc *service.GalleryService, logger *slog.Logger) *GalleryHandler {
	return &GalleryHandler{
		svc:    svc,
		logger: logger,
	}
}

// listResponse matches the field names the shipped client hard-codes.
type listResponse struct {
	Message    string   `json:"message"`
	Images     []string `json:"images"`
	ImageNames []string `json:"image_names"`
}

// uploadResponse matches the field name the shipped client hard-codes.
type uploadResponse struct {
	Filename string `json:"filename"`
}

// List handles GET /get_images.
// The token must resolve to the username in the query: a valid token for user
// A never lists user B's gallery.
func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		writeError(w, http.StatusBadRequest, "MISSING_USERNAME", "Username is required")
		return
	}

	if auth.UsernameFromContext(r.Context()) != username {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Token does not belong to this user")
		return
	}

	refs, err := h.svc.ListImages(r.Context(), username)
	if err != nil {
		h.logger.Error("list images failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}

	resp := listResponse{
		Message:    "retrieved images!",
		Images:     make([]string, 0, len(refs)),
		ImageNames: make([]string, 0, len(refs)),
	}
	for _, ref := range refs {
		resp.Images = append(resp.Images, ref.URL)
		resp.ImageNames = append(resp.ImageNames, ref.Name)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Upload handles POST /compress_img.
// The multipart form was already parsed by the auth middleware, so form
// fields and the file part are directly available.
func (h *GalleryHandler) Upload(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	if username == "" {
		writeError(w, http.StatusBadRequest, "MISSING_USERNAME", "Username is required")
		return
	}

	if auth.UsernameFromContext(r.Context()) != username {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Token does not belong to this user")
		return
	}

	greyscale := false
	if raw := r.FormValue("greyscale"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_INPUT", "greyscale must be true or false")
			return
		}
		greyscale = parsed
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_FILE", "A file part is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_INPUT", "Could not read uploaded file")
		return
	}

	record, err := h.svc.UploadAndCompress(r.Context(), username, data, greyscale)
	if err != nil {
		h.handleUploadError(w, err)
		return
	}

	h.logger.Info("image_uploaded",
		"username", username,
		"filename", record.StorageKey,
		"greyscale", greyscale,
	)

	writeJSON(w, http.StatusOK, uploadResponse{Filename: record.StorageKey})
}

// handleUploadError maps pipeline and storage errors to HTTP responses.
// Every pipeline failure kind gets its own 4xx/504 status; only storage and
// unexpected failures fall through to 500.
func (h *GalleryHandler) handleUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyFile), errors.Is(err, transform.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "EMPTY_FILE", "Uploaded file is empty")
	case errors.Is(err, transform.ErrUnsupportedFormat):
		writeError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_FORMAT", "File is not a supported image format")
	case errors.Is(err, transform.ErrDecode):
		writeError(w, http.StatusUnprocessableEntity, "DECODE_FAILED", "Image data is malformed")
	case errors.Is(err, transform.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "TRANSFORM_TIMEOUT", "Image processing timed out")
	default:
		h.logger.Error("upload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
