// Package mcp exposes the product catalog to AI assistants as MCP tools
// served over stdio.
package mcp

import (
	"strings"

	"github.com/mark3labs/mcp-go/server"

	"github.com/gandtscales/scalesite/pkg/catalog"
	"github.com/gandtscales/scalesite/pkg/config"
	"github.com/gandtscales/scalesite/pkg/mcplog"
	"github.com/gandtscales/scalesite/pkg/site"
)

const serverName = "scalesite"

// Server implements the catalog tool server.
type Server struct {
	mcpServer *server.MCPServer
	query     *catalog.QueryService
	cfg       *config.Config
	logger    *mcplog.Logger // nil disables call logging
}

// NewServer creates a tool server over qs. cfg supplies the public site URL
// for product links; nil uses config.Default(). logger may be nil.
func NewServer(qs *catalog.QueryService, cfg *config.Config, logger *mcplog.Logger, version string) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{query: qs, cfg: cfg, logger: logger}

	opts := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	}
	if logger != nil {
		opts = append(opts, server.WithToolHandlerMiddleware(s.loggingMiddleware()))
	}
	s.mcpServer = server.NewMCPServer(serverName, version, opts...)

	s.mcpServer.AddTools(
		server.ServerTool{Tool: listCategoriesTool(), Handler: s.handleListCategories},
		server.ServerTool{Tool: listProductsTool(), Handler: s.handleListProducts},
		server.ServerTool{Tool: getProductTool(), Handler: s.handleGetProduct},
		server.ServerTool{Tool: getCategoryTool(), Handler: s.handleGetCategory},
		server.ServerTool{Tool: featuredProductsTool(), Handler: s.handleFeaturedProducts},
	)

	return s
}

// ServeStdio serves tool calls on stdin/stdout until stdin closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// MCPServer returns the underlying server, for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// pageURL returns the public absolute URL of a site path.
func (s *Server) pageURL(p string) string {
	return strings.TrimRight(s.cfg.Site.URL, "/") + site.WithBasePath(s.cfg.Site.BasePath, p)
}
