package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxUploadBytes bounds the multipart form held in memory per upload.
const maxUploadBytes = 10 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type UploadHandler struct {
	uploadsDir string
	logger     zerolog.Logger
}

func NewUploadHandler(uploadsDir string, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		uploadsDir: uploadsDir,
		logger:     logger,
	}
}

// Upload stores an image under a generated filename and returns its URL.
// The router gates this behind RequireAdmin.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "invalid_request", "Missing file upload")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		h.respondWithError(w, http.StatusBadRequest, "invalid_file_type", "Invalid file type. Allowed: JPEG, PNG, GIF, WebP")
		return
	}

	ext := "jpg"
	if i := strings.LastIndex(header.Filename, "."); i >= 0 && i < len(header.Filename)-1 {
		ext = header.Filename[i+1:]
	}
	filename := uuid.New().String() + "." + ext

	dst, err := os.Create(filepath.Join(h.uploadsDir, filename))
	if err != nil {
		h.logger.Error().Err(err).Str("filename", filename).Msg("Failed to create upload file")
		h.respondWithError(w, http.StatusInternalServerError, "upload_failed", "Failed to store upload")
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		h.logger.Error().Err(err).Str("filename", filename).Msg("Failed to write upload file")
		h.respondWithError(w, http.StatusInternalServerError, "upload_failed", "Failed to store upload")
		return
	}

	h.logger.Info().Str("filename", filename).Str("content_type", contentType).Msg("Image uploaded")
	h.respondWithJSON(w, http.StatusOK, map[string]string{"url": "/uploads/" + filename})
}

func (h *UploadHandler) respondWithError(w http.ResponseWriter, code int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

func (h *UploadHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
