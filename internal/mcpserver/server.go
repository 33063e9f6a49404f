// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the synced notes to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notepress/internal/apperr"
	"github.com/starford/notepress/internal/noteservice"
	"github.com/starford/notepress/internal/syncer"
)

// Syncer runs a sync of one collection.
type Syncer interface {
	Sync(ctx context.Context, collection string) (*syncer.Result, error)
}

// Server wraps the MCP server with the notepress tools.
type Server struct {
	mcp               *server.MCPServer
	svc               *noteservice.Service
	syncer            Syncer
	defaultCollection string
}

// New creates a new MCP server. sync may be nil, in which case the
// sync_collection tool is not registered.
func New(svc *noteservice.Service, sync Syncer, defaultCollection, version string) *Server {
	s := &Server{svc: svc, syncer: sync, defaultCollection: defaultCollection}

	s.mcp = server.NewMCPServer(
		"Notepress",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List synced notes, most recently modified first."),
		mcp.WithString("collection", mcp.Description("Optional collection (folder) name; empty lists all")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a synced note: metadata, HTML body and attachment manifest."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id as returned by list_notes")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note titles and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	if sync != nil {
		s.mcp.AddTool(mcp.NewTool("sync_collection",
			mcp.WithDescription("Pull new and changed notes of a collection from the notes app."),
			mcp.WithString("collection", mcp.Description("Collection to sync; defaults to "+defaultCollection)),
		), s.syncCollection)
	}

	s.mcp.AddResource(
		mcp.NewResource(RecordFormatURI, "Record Format",
			mcp.WithResourceDescription("How synced notes and their attachments are stored."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordFormatResource,
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

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.ListNotes(ctx, req.GetString("collection", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(res.Notes) == 0 {
		return mcp.NewToolResultText("no notes found"), nil
	}
	lines := make([]string, 0, len(res.Notes))
	for _, n := range res.Notes {
		lines = append(lines, fmt.Sprintf("%s\t%s\t%s\t%d images", n.ID, n.Title, n.ModifiedAt, n.AttachmentCount))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec, err := s.svc.GetNote(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(rec, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) syncCollection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection := req.GetString("collection", s.defaultCollection)
	if collection == "" {
		collection = s.defaultCollection
	}
	res, err := s.syncer.Sync(ctx, collection)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readRecordFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      RecordFormatURI,
			MIMEType: "text/markdown",
			Text:     RecordFormat,
		},
	}, nil
}
