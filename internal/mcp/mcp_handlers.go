package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/covdelta/core"
	"github.com/huangsam/covdelta/internal/contract"
	"github.com/huangsam/covdelta/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.StoreManager
}

// history returns the configured history store or a tool error result.
func (h *toolHandler) history() (contract.HistoryStore, *mcp.CallToolResult) {
	if h.mgr == nil || h.mgr.GetHistoryStore() == nil {
		return nil, mcp.NewToolResultError("history store is not initialized")
	}
	return h.mgr.GetHistoryStore(), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

func buildID(request mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	id := strings.TrimSpace(request.GetString("build_id", ""))
	if id == "" {
		return "", mcp.NewToolResultError("build_id is required")
	}
	return id, nil
}

func (h *toolHandler) handleGetCoverage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errRes := buildID(request)
	if errRes != nil {
		return errRes, nil
	}
	history, errRes := h.history()
	if errRes != nil {
		return errRes, nil
	}

	result, err := history.GetResult(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading coverage failed: %v", err)), nil
	}
	return jsonResult(result)
}

func (h *toolHandler) handleGetDelta(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errRes := buildID(request)
	if errRes != nil {
		return errRes, nil
	}
	history, errRes := h.history()
	if errRes != nil {
		return errRes, nil
	}

	report, err := core.GetDeltaReport(ctx, history, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading deltas failed: %v", err)), nil
	}
	return jsonResult(report)
}

func (h *toolHandler) handleGetReference(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, errRes := buildID(request)
	if errRes != nil {
		return errRes, nil
	}
	history, errRes := h.history()
	if errRes != nil {
		return errRes, nil
	}

	if _, err := history.GetBuild(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading build failed: %v", err)), nil
	}
	ref, err := history.GetReference(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading reference failed: %v", err)), nil
	}
	return jsonResult(map[string]any{"build_id": id, "reference": ref})
}

func (h *toolHandler) handleListBuilds(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	history, errRes := h.history()
	if errRes != nil {
		return errRes, nil
	}

	limit := contract.DefaultHistoryLimit
	if h.baseCfg != nil && h.baseCfg.Limit > 0 {
		limit = h.baseCfg.Limit
	}
	if l := request.GetInt("limit", 0); l > 0 {
		limit = min(l, contract.MaxHistoryLimit)
	}

	builds, err := history.ListBuilds(ctx, strings.TrimSpace(request.GetString("job", "")))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing builds failed: %v", err)), nil
	}
	if len(builds) > limit {
		builds = builds[:limit]
	}
	if builds == nil {
		builds = []schema.BuildRecord{}
	}
	return jsonResult(builds)
}

func (h *toolHandler) handleCompareReports(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reference, err := parseReportList(request.GetString("reference", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid reference reports: %v", err)), nil
	}
	current, err := parseReportList(request.GetString("current", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid current reports: %v", err)), nil
	}

	var cache contract.ReportCache
	if h.mgr != nil {
		cache = h.mgr.GetReportCache()
	}
	report, err := core.CompareReports(ctx, reference, current, cache)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("comparison failed: %v", err)), nil
	}
	return jsonResult(report)
}

// parseReportList parses a comma separated list of adapter:path reports.
func parseReportList(s string) ([]schema.ReportInput, error) {
	var args []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			args = append(args, part)
		}
	}
	if len(args) == 0 {
		return nil, errors.New("at least one adapter:path report is required")
	}
	return contract.ParseReportInputs(args)
}
