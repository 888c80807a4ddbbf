package http

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"locar-backend/internal/domain"
	"locar-backend/internal/logger"
	"locar-backend/internal/storage"
)

// uploader reads raw upload bodies. The original file name travels in the
// filename query parameter so the stored key keeps its extension.
type uploader struct {
	maxBytes int64
}

func newUploader(cfg storage.Config) *uploader {
	return &uploader{maxBytes: cfg.MaxUploadBytes}
}

func (u *uploader) open(w http.ResponseWriter, r *http.Request) (string, io.Reader, error) {
	filename := strings.TrimSpace(r.URL.Query().Get("filename"))
	if filename == "" {
		return "", nil, domain.Invalid("filename query parameter is required")
	}
	if r.ContentLength == 0 {
		return "", nil, domain.Invalid("upload body is empty")
	}
	if u.maxBytes > 0 && r.ContentLength > u.maxBytes {
		return "", nil, &http.MaxBytesError{Limit: u.maxBytes}
	}
	body := io.Reader(r.Body)
	if u.maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, u.maxBytes)
	}
	return path.Base(filename), body, nil
}

type AttachmentHandler struct {
	files storage.AttachmentStore
}

func NewAttachmentHandler(files storage.AttachmentStore) *AttachmentHandler {
	return &AttachmentHandler{files: files}
}

// Download streams a stored document, contract or receipt.
func (h *AttachmentHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	exists, size, err := h.files.Exists(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !exists {
		writeError(w, r, storage.ErrNotFound)
		return
	}
	rc, err := h.files.Open(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": path.Base(key)}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		logger.WarnContext(r.Context(), "Attachment download interrupted", "key", key, "error", err)
	}
}
