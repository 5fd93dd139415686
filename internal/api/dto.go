package api

import (
	"github.com/starford/inkwell/internal/docservice"
	"github.com/starford/inkwell/internal/index"
)

// CreateDocumentRequest is the request body for creating a document.
type CreateDocumentRequest struct {
	Path    string `json:"path" example:"notes/hello.html" validate:"required"`
	Content string `json:"content" example:"<h1>Hello</h1><ul><li>World</li></ul>" validate:"required"`
}

// UpdateDocumentRequest is the request body for replacing a document.
type UpdateDocumentRequest struct {
	Content string `json:"content" example:"<h1>Updated</h1>" validate:"required"`
}

// CommandRequest runs a built-in editing command.
type CommandRequest struct {
	Name string `json:"name" example:"bold" validate:"required"`
	Arg  string `json:"arg,omitempty" example:"#ff0000"`
}

// ListRequest toggles the list under the selection.
type ListRequest struct {
	Kind string `json:"kind" example:"ordered" validate:"required" enums:"ordered,unordered"`
}

// DocumentDetail is the full document response type.
type DocumentDetail = docservice.DocumentDetail

// DocumentListItem is a lightweight item in a list response.
type DocumentListItem = docservice.DocumentListItem

// Selection is a selection expressed as child-index paths and offsets.
type Selection = docservice.Selection

// FormattingState is the formatting response type.
type FormattingState = docservice.FormattingState

// EditResult is returned by editing operations.
type EditResult = docservice.EditResult

// DocumentListResponse wraps paginated document listings.
type DocumentListResponse struct {
	Documents []DocumentListItem `json:"documents" validate:"required"`
	Total     int                `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// BacklinksResponse lists the documents linking to a document.
type BacklinksResponse struct {
	Backlinks []string `json:"backlinks" validate:"required"`
}
