package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/draftforge/draftforge/internal/pipeline"
	"github.com/draftforge/draftforge/internal/store"
)

const (
	// ServerName is the MCP server name
	ServerName = "draftforge"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	pipeline *pipeline.Pipeline
	store    store.Store
	logger   *zap.Logger
}

// NewServer creates a new MCP server around an assembled pipeline.
func NewServer(p *pipeline.Pipeline, s store.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		pipeline: p,
		store:    s,
		logger:   logger,
	}
	srv.registerTools()
	return srv
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.store.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(ingestDocumentTool(), s.handleIngestDocument)
	s.mcp.AddTool(matchTemplateTool(), s.handleMatchTemplate)
	s.mcp.AddTool(renderDraftTool(), s.handleRenderDraft)
	s.mcp.AddTool(getTemplateTool(), s.handleGetTemplate)
	s.mcp.AddTool(deleteTemplateTool(), s.handleDeleteTemplate)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
