package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/inkwell/internal/docservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *docservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents CRUD.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)
	r.Get("/documents/*", h.GetDocument)
	r.Put("/documents/*", h.UpdateDocument)
	r.Delete("/documents/*", h.DeleteDocument)

	// Editing sessions.
	r.Get("/selection/*", h.GetSelection)
	r.Put("/selection/*", h.SetSelection)
	r.Delete("/selection/*", h.ClearSelection)
	r.Get("/formatting/*", h.GetFormatting)
	r.Post("/commands/*", h.ExecCommand)
	r.Post("/lists/*", h.ToggleList)

	// Search and links.
	r.Get("/search", h.Search)
	r.Get("/backlinks/*", h.Backlinks)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
