// Package mcp implements C10: the Model Context Protocol transport,
// exposing the memory engine and curation pipeline to AI agents as a
// set of JSON-RPC tools instead of a REST surface.
package mcp

import (
	"log/slog"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/engram-ai/engram/internal/cleanup"
	"github.com/engram-ai/engram/internal/collaborator/embedder"
	"github.com/engram-ai/engram/internal/curation"
	"github.com/engram-ai/engram/internal/engine"
)

// ServerConfig names the MCP server for the initialize handshake.
type ServerConfig struct {
	Name    string
	Version string
}

// ServerDeps are the collaborators tool handlers call into. All fields
// are optional; a handler whose dependency is nil reports a tool error
// rather than panicking.
type ServerDeps struct {
	Engine   *engine.Engine
	Pipeline *curation.Pipeline
	Embedder embedder.Embedder
	Sched    *cleanup.Scheduler
	Log      *slog.Logger
}

// Server wraps an mcp-go MCPServer with Engram's six tools and serves
// them over the streamable HTTP transport mounted at /mcp/ (§4.8).
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
	httpSrv   *mcpserver.StreamableHTTPServer
	log       *slog.Logger
}

// NewServer builds the MCP server and registers every tool up front so
// tools/list and tools/call have a stable view from the first request.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg:       cfg,
		deps:      deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version),
		log:       log,
	}
	s.registerTools()
	s.httpSrv = mcpserver.NewStreamableHTTPServer(s.mcpServer)
	return s
}

// MCPServer exposes the underlying mcp-go server, mainly for tests that
// want to invoke a registered tool's handler directly.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Handler returns the http.Handler that serves JSON-RPC 2.0 tool calls.
// routes.go mounts this at /mcp/ behind the same API key middleware as
// the rest of the HTTP surface, so the transport carries no auth of its
// own (§4.6 already covers it once for both façades).
func (s *Server) Handler() http.Handler {
	return s.httpSrv
}
