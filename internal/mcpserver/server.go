// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the rewrite pipeline for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/accessaurus/semantify/internal/pipeline"
	"github.com/accessaurus/semantify/internal/semantic"
)

// Server wraps the MCP server with Semantify tools.
type Server struct {
	mcp *server.MCPServer
	svc *pipeline.Service
}

// New creates a new MCP server with all Semantify tools registered.
func New(svc *pipeline.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Semantify",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("semantify_html",
		mcp.WithDescription("Rewrite div-soup HTML into semantic HTML using the heuristic engine. "+
			"Returns the rewritten markup plus the list of element reclassifications."),
		mcp.WithString("html", mcp.Required(), mcp.Description("HTML fragment to rewrite")),
	), s.semantifyHTML)

	s.mcp.AddTool(mcp.NewTool("compute_metrics",
		mcp.WithDescription("Compute structure and accessibility metrics for an HTML fragment: "+
			"landmark counts, headings, and semantic coverage."),
		mcp.WithString("html", mcp.Required(), mcp.Description("HTML fragment to analyze")),
	), s.computeMetrics)

	s.mcp.AddTool(mcp.NewTool("lookup_transform",
		mcp.WithDescription("Fetch the stored semantic_html output for the most recent transform "+
			"of a tracked page."),
		mcp.WithString("orgId", mcp.Required(), mcp.Description("Tenant identifier")),
		mcp.WithString("pageUrl", mcp.Required(), mcp.Description("Tracked page URL")),
		mcp.WithString("hash", mcp.Description("Optional input fingerprint to narrow the lookup")),
	), s.lookupTransform)

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

func (s *Server) semantifyHTML(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	html, err := req.RequireString("html")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	result, err := semantic.Rewrite(html, semantic.DefaultOptions())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(result, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) computeMetrics(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	html, err := req.RequireString("html")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	metrics, err := semantic.ComputeMetrics(html)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(metrics, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) lookupTransform(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orgID, err := req.RequireString("orgId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pageURL, err := req.RequireString("pageUrl")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hash := ""
	if v, err := req.RequireString("hash"); err == nil {
		hash = v
	}

	body, err := s.svc.Latest(ctx, orgID, pageURL, hash)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(body)), nil
}
