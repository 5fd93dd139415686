package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/inkwell/internal/docservice"
	"github.com/starford/inkwell/internal/lists"
)

// maxBodyBytes bounds request bodies before they reach the service limit.
const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

// documentPath extracts the document path from the wildcard segment.
// Supports encoded slashes from OpenAPI clients (e.g. notes%2Fa.html).
func documentPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// requirePath writes a 400 and returns false when the path is empty.
func requirePath(w http.ResponseWriter, path string) bool {
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return false
	}
	return true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List documents with optional pagination and filtering
//	@Tags			documents
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated_at, title, path)
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListDocuments(r.Context(), limit, offset, q.Get("tag"), q.Get("sort"))
	if err != nil {
		writeError(w, "list documents", "", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: total})
}

// GetDocument handles GET /api/documents/*.
//
//	@Summary		Get a single document by path
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if !requirePath(w, path) {
		return
	}
	doc, err := h.svc.GetDocument(r.Context(), path)
	if err != nil {
		writeError(w, "get document", path, err)
		return
	}
	w.Header().Set("ETag", `"`+doc.Checksum+`"`)
	writeJSON(w, http.StatusOK, doc)
}

// CreateDocument handles POST /api/documents.
//
//	@Summary		Create a new document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateDocumentRequest	true	"Document to create"
//	@Success		201		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		413		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents [post]
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Path == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and content are required"))
		return
	}
	doc, err := h.svc.CreateDocument(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		writeError(w, "create document", req.Path, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// UpdateDocument handles PUT /api/documents/*.
// Accepts either a JSON body {"content": "..."} or raw text/html.
// The If-Match header enables optimistic locking against the checksum.
//
//	@Summary		Replace a document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			path		path		string					true	"Document path"
//	@Param			If-Match	header		string					false	"Expected checksum"
//	@Param			body		body		UpdateDocumentRequest	true	"New content"
//	@Success		200			{object}	DocumentDetail
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [put]
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if !requirePath(w, path) {
		return
	}

	var content []byte
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req UpdateDocumentRequest
		if !decodeBody(w, r, &req) {
			return
		}
		content = []byte(req.Content)
	} else {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
			return
		}
		content = data
	}

	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)
	doc, err := h.svc.UpdateDocument(r.Context(), path, content, ifMatch)
	if err != nil {
		writeError(w, "update document", path, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles DELETE /api/documents/*.
//
//	@Summary		Delete a document
//	@Tags			documents
//	@Param			path	path	string	true	"Document path"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if !requirePath(w, path) {
		return
	}
	if err := h.svc.DeleteDocument(r.Context(), path); err != nil {
		writeError(w, "delete document", path, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSelection handles GET /api/selection/*.
//
//	@Summary		Get the active selection of a document
//	@Tags			editing
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	Selection
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/selection/{path} [get]
func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if !requirePath(w, path) {
		return
	}
	sel, err := h.svc.GetSelection(r.Context(), path)
	if err != nil {
		writeError(w, "get selection", path, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

// SetSelection handles PUT /api/selection/*.
//
//	@Summary		Place the selection in a document
//	@Tags			editing
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string		true	"Document path"
//	@Param			body	body		Selection	true	"Selection"
//	@Success		200		{object}	FormattingState
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/selection/{path} [put]
func (h *Handler) SetSelection(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if !requirePath(w, path) {
		return
	}
	var sel Selection
	if !decodeBody(w, r, &sel) {
		return
	}
	st, err := h.svc.SetSelection(r.Context(), path, sel)
	if err != nil {
		writeError(w, "set selection", path, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ClearSelection handles DELETE /api/selection/*.
//
//	@Summary		Clear the selection of a document
//	@Tags			editing
//	@Param			path	path	string	true	"Document path"
//	@Success		204
//	@Security		BearerAuth
//	@Router			/selection/{path} [delete]
func (h *Handler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if !requirePath(w, path) {
		return
	}
	if err := h.svc.ClearSelection(r.Context(), path); err != nil {
		writeError(w, "clear selection", path, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetFormatting handles GET /api/formatting/*.
//
//	@Summary		Get the formatting under the selection
//	@Tags			editing
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	FormattingState
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/formatting/{path} [get]
func (h *Handler) GetFormatting(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if !requirePath(w, path) {
		return
	}
	st, err := h.svc.Formatting(r.Context(), path)
	if err != nil {
		writeError(w, "get formatting", path, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ExecCommand handles POST /api/commands/*.
//
//	@Summary		Run an editing command on the selection
//	@Tags			editing
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string			true	"Document path"
//	@Param			body	body		CommandRequest	true	"Command"
//	@Success		200		{object}	EditResult
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/commands/{path} [post]
func (h *Handler) ExecCommand(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if !requirePath(w, path) {
		return
	}
	var req CommandRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	res, err := h.svc.ExecCommand(r.Context(), path, req.Name, req.Arg)
	if err != nil {
		writeError(w, "exec command", path, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ToggleList handles POST /api/lists/*.
//
//	@Summary		Toggle the list under the selection
//	@Tags			editing
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string		true	"Document path"
//	@Param			body	body		ListRequest	true	"List kind"
//	@Success		200		{object}	EditResult
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/lists/{path} [post]
func (h *Handler) ToggleList(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if !requirePath(w, path) {
		return
	}
	var req ListRequest
	if !decodeBody(w, r, &req) {
		return
	}
	kind, err := lists.ParseKind(req.Kind)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("kind must be ordered or unordered"))
		return
	}
	res, err := h.svc.ToggleList(r.Context(), path, kind)
	if err != nil {
		writeError(w, "toggle list", path, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Search handles GET /api/search?q=...
//
//	@Summary		Full-text search across documents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q parameter is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", "", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Backlinks handles GET /api/backlinks/*.
//
//	@Summary		List documents linking to a document
//	@Tags			search
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	BacklinksResponse
//	@Security		BearerAuth
//	@Router			/backlinks/{path} [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if !requirePath(w, path) {
		return
	}
	bl, err := h.svc.Backlinks(r.Context(), path)
	if err != nil {
		writeError(w, "backlinks", path, err)
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Backlinks: bl})
}
