package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/notepress/internal/noteservice"
	"github.com/starford/notepress/internal/storage"
)

// NewRouter builds the preview server: the JSON API under /api, attachment
// files under /attachments, the generated site at / (when siteDir is set) and
// a liveness probe. When events is non-nil it is mounted at /api/events.
// Every route is read-only.
func NewRouter(svc *noteservice.Service, attachments storage.Files, siteDir string, events http.Handler) chi.Router {
	h := NewHandler(svc)
	ah := NewAttachmentHandler(attachments)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(ReadOnly)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/notes", h.ListNotes)
		r.Get("/notes/*", h.GetNote)
		r.Get("/search", h.Search)
		if events != nil {
			r.Get("/events", events.ServeHTTP)
		}
	})

	r.Get("/attachments/*", ah.ServeFile)

	if siteDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(siteDir)))
	}
	return r
}
