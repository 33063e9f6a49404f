package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notepress/internal/storage"
)

// AttachmentHandler serves extracted attachment files.
type AttachmentHandler struct {
	files storage.Files
}

// NewAttachmentHandler creates a handler over the attachment root.
func NewAttachmentHandler(files storage.Files) *AttachmentHandler {
	return &AttachmentHandler{files: files}
}

// ServeFile handles GET /attachments/*. Paths escaping the root are rejected.
func (h *AttachmentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if decoded, err := url.PathUnescape(rel); err == nil {
		rel = decoded
	}
	if rel == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}
	abs, err := h.files.Abs(rel)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !h.files.Exists(rel) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}
