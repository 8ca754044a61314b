package handler

import (
	"log/slog"
	"net/http"

	"github.com/snipmart/snipmart/internal/apperror"
	"github.com/snipmart/snipmart/internal/auth"
	"github.com/snipmart/snipmart/internal/service"
)

// UploadHandler accepts multipart uploads for product images and
// attachments.
type UploadHandler struct {
	uploads *service.UploadService
	logger  *slog.Logger
}

func NewUploadHandler(uploads *service.UploadService, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{uploads: uploads, logger: logger}
}

type uploadResponse struct {
	URL string `json:"url"`
}

// HandleUpload stores the "file" part of a multipart form and returns
// the object's public URL.
//
// HTTP: POST /api/uploads
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserIDFromContext(r.Context()); !ok {
		writeError(h.logger, w, apperror.Unauthorized("authentication required"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(h.logger, w, apperror.ValidationFailed("file", "multipart form must include a file part"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	url, err := h.uploads.Upload(r.Context(), header.Filename, contentType, file, header.Size)
	if err != nil {
		writeError(h.logger, w, err)
		return
	}

	writeJSON(h.logger, w, http.StatusCreated, uploadResponse{URL: url})
}
