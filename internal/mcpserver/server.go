// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Inkwell tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/docservice"
	"github.com/starford/inkwell/internal/lists"
)

const contractURI = "inkwell://markup-contract"

// Server wraps the MCP server with Inkwell tools.
type Server struct {
	mcp *server.MCPServer
	svc *docservice.Service
}

// New creates a new MCP server with all Inkwell tools registered.
func New(svc *docservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Inkwell",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through document text and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the full content of a document, frontmatter included."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. folder/doc.html)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a new document at the specified path. "+
			"Content MUST follow the markup contract. Read it first via the "+
			"get_markup_contract tool or the "+contractURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new document (must end with .html)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("HTML content following the markup contract")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("get_markup_contract",
		mcp.WithDescription("Returns the Inkwell markup contract and editing model. "+
			"Call this before creating or editing documents."),
	), s.getMarkupContract)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List indexed documents, optionally filtered by tag."),
		mcp.WithString("tag", mcp.Description("Optional tag filter")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all documents that link to the specified document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the document to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("set_selection",
		mcp.WithDescription("Place the selection in a document and return the formatting under it."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path")),
		mcp.WithString("start", mcp.Required(), mcp.Description("Start point as child indexes and offset, e.g. 0/1/0:1")),
		mcp.WithString("end", mcp.Description("Optional end point; omit for a caret")),
	), s.setSelection)

	s.mcp.AddTool(mcp.NewTool("get_formatting",
		mcp.WithDescription("Return the formatting under the selection, or the last reported formatting."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path")),
	), s.getFormatting)

	s.mcp.AddTool(mcp.NewTool("toggle_list",
		mcp.WithDescription("Convert the list item under the selection into or out of a list."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path")),
		mcp.WithString("kind", mcp.Required(), mcp.Description("ordered or unordered"), mcp.Enum("ordered", "unordered")),
	), s.toggleList)

	s.mcp.AddTool(mcp.NewTool("exec_command",
		mcp.WithDescription("Run an editing command on the selection and save the document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Command name, e.g. bold or foreColor")),
		mcp.WithString("arg", mcp.Description("Command argument, e.g. a color or URL")),
	), s.execCommand)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Markup Contract",
			mcp.WithResourceDescription("Document format and editing model for Inkwell documents."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.GetDocument(ctx, path)
	if err != nil {
		return toolError(path, err), nil
	}
	return mcp.NewToolResultText(doc.Content), nil
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.CreateDocument(ctx, path, []byte(content)); err != nil {
		return toolError(path, err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, _, err := s.svc.ListDocuments(ctx, 500, 0, req.GetString("tag", ""), "path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths := make([]string, len(items))
	for i, it := range items {
		paths[i] = it.Path
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) getMarkupContract(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MarkupContract), nil
}

func (s *Server) readContractResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     MarkupContract,
		},
	}, nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) setSelection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := parsePoint(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sel := docservice.Selection{Start: start}
	if raw := req.GetString("end", ""); raw != "" {
		end, err := parsePoint(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sel.End = &end
	}
	st, err := s.svc.SetSelection(ctx, path, sel)
	if err != nil {
		return toolError(path, err), nil
	}
	return jsonResult(st)
}

func (s *Server) getFormatting(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	st, err := s.svc.Formatting(ctx, path)
	if err != nil {
		return toolError(path, err), nil
	}
	return jsonResult(st)
}

func (s *Server) toggleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := lists.ParseKind(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.ToggleList(ctx, path, kind)
	if err != nil {
		return toolError(path, err), nil
	}
	return jsonResult(res)
}

func (s *Server) execCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.ExecCommand(ctx, path, name, req.GetString("arg", ""))
	if err != nil {
		return toolError(path, err), nil
	}
	return jsonResult(res)
}

// parsePoint reads a boundary point written as "i/j/k:offset". An empty
// index list addresses the body root.
func parsePoint(s string) (docservice.Point, error) {
	idx, off, ok := strings.Cut(s, ":")
	if !ok {
		return docservice.Point{}, fmt.Errorf("point %q: missing offset", s)
	}
	offset, err := strconv.Atoi(off)
	if err != nil || offset < 0 {
		return docservice.Point{}, fmt.Errorf("point %q: invalid offset", s)
	}
	p := docservice.Point{Path: []int{}, Offset: offset}
	if idx == "" {
		return p, nil
	}
	for _, part := range strings.Split(idx, "/") {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return docservice.Point{}, fmt.Errorf("point %q: invalid index %q", s, part)
		}
		p.Path = append(p.Path, n)
	}
	return p, nil
}

func toolError(path string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path))
	case errors.Is(err, apperr.ErrAlreadyExists):
		return mcp.NewToolResultError(fmt.Sprintf("document already exists: %s", path))
	case errors.Is(err, apperr.ErrNoSelection):
		return mcp.NewToolResultError("no selection: call set_selection first")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
