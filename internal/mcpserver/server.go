// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the migration catalog and output vault for LLM inspection via
// stdio transport. All tools are read-only: the vault is produced by
// migration runs, never edited here.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/catalog"
	"github.com/starford/raido/internal/report"
	"github.com/starford/raido/internal/storage"
)

// Server wraps the MCP server with migration inspection tools.
type Server struct {
	mcp   *server.MCPServer
	store storage.Provider
	db    *catalog.DB
}

// New creates a new MCP server with all tools registered.
func New(store storage.Provider, db *catalog.DB) *Server {
	s := &Server{store: store, db: db}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("migration_status",
		mcp.WithDescription("Counters and state of the latest migration run."),
	), s.migrationStatus)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List migrated documents, optionally filtered to one vault folder."),
		mcp.WithString("folder", mcp.Description("Optional vault folder (e.g. Projects, Archives; empty for all)")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the migrated Markdown content of one document."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Document slug (e.g. home-page)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all documents whose body references the given document."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title of the document to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("broken_references",
		mcp.WithDescription("References recorded during the latest run whose target document does not exist."),
	), s.brokenReferences)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through migrated document content and titles."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchDocuments)

	// Resource: the latest migration report.
	s.mcp.AddResource(
		mcp.NewResource("raido://report", "Migration Report",
			mcp.WithResourceDescription("The Markdown report written at the end of the latest migration run."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readReportResource,
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

func (s *Server) migrationStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	run, err := s.db.LatestRun()
	if err != nil {
		return mcp.NewToolResultError("no migration run recorded yet"), nil
	}
	out, _ := json.MarshalIndent(run, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	docs, err := s.db.AllDocuments()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var lines []string
	for _, d := range docs {
		if folder != "" && d.Folder != folder {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s\t%s", d.VaultPath(), d.Title))
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no documents"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.db.GetDocument(slug)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", slug)), nil
	}
	data, err := s.store.Read(doc.VaultPath())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found in vault: %s", doc.VaultPath())), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.db.Backlinks(title)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

func (s *Server) brokenReferences(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refs, err := s.db.BrokenRefs()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(refs) == 0 {
		return mcp.NewToolResultText("no broken references"), nil
	}
	var lines []string
	for _, r := range refs {
		lines = append(lines, fmt.Sprintf("%s -> %s", r.Source, r.Target))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readReportResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data, err := s.store.Read(report.Filename)
	if err != nil {
		return nil, fmt.Errorf("mcpserver: no report written yet: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raido://report",
			MIMEType: "text/markdown",
			Text:     string(data),
		},
	}, nil
}
