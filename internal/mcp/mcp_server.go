// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/covdelta/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the covdelta MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StoreManager) *server.MCPServer {
	s := server.NewMCPServer(
		"Coverage Delta Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: get_coverage ---
	s.AddTool(mcp.NewTool("get_coverage",
		mcp.WithDescription("Return the aggregated coverage tree and lifecycle state of a recorded build."),
		mcp.WithString("build_id", mcp.Description("Identifier of the build (e.g. 'api#42')."), mcp.Required()),
	), h.handleGetCoverage)

	// --- 2. Tool: get_delta ---
	s.AddTool(mcp.NewTool("get_delta",
		mcp.WithDescription("Return per-element coverage before and after, with the delta against the reference build."),
		mcp.WithString("build_id", mcp.Description("Identifier of the build."), mcp.Required()),
	), h.handleGetDelta)

	// --- 3. Tool: get_reference ---
	s.AddTool(mcp.NewTool("get_reference",
		mcp.WithDescription("Return the reference build attached to a build and the messages explaining the choice."),
		mcp.WithString("build_id", mcp.Description("Identifier of the build."), mcp.Required()),
	), h.handleGetReference)

	// --- 4. Tool: list_builds ---
	s.AddTool(mcp.NewTool("list_builds",
		mcp.WithDescription("List recorded builds, newest first."),
		mcp.WithString("job", mcp.Description("Only list builds of this job.")),
		mcp.WithNumber("limit", mcp.Description("Limit the number of builds returned.")),
	), h.handleListBuilds)

	// --- 5. Tool: compare_reports ---
	s.AddTool(mcp.NewTool("compare_reports",
		mcp.WithDescription("Compare two sets of coverage reports without recording anything."),
		mcp.WithString("reference", mcp.Description("Comma separated adapter:path reports of the reference side."), mcp.Required()),
		mcp.WithString("current", mcp.Description("Comma separated adapter:path reports of the current side."), mcp.Required()),
	), h.handleCompareReports)

	return s
}

// StartMCPServer starts the covdelta MCP server.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StoreManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
