package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zheng/ctb/internal/display"
	"github.com/zheng/ctb/internal/graph"
	"github.com/zheng/ctb/internal/impact"
)

const (
	defaultTreeDepth   = 3
	defaultSearchLimit = 50
)

func (s *Server) handleListClasses(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	classes := s.graph.Store().ListClasses()
	return jsonResult(map[string]any{
		"total":   len(classes),
		"classes": classes,
	}), nil
}

func (s *Server) handleGetClass(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	name := getStringArg(args, "class")
	if name == "" {
		return errResult("class is required"), nil
	}

	info, err := s.graph.Store().GetClass(name)
	if err != nil {
		return errResult(err.Error()), nil
	}
	return jsonResult(info), nil
}

func (s *Server) handleListEntrypoints(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries := s.graph.Store().ListEntrypoints()
	return jsonResult(map[string]any{
		"total":       len(entries),
		"entrypoints": entries,
	}), nil
}

func (s *Server) handleGetMethod(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	ref, err := methodArg(args)
	if err != nil {
		return errResult(err.Error()), nil
	}

	info, err := s.graph.Store().GetMethod(ref.Class, ref.Signature)
	if err != nil {
		return errResult(err.Error()), nil
	}
	return jsonResult(info), nil
}

func (s *Server) handleCallTree(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	ref, err := methodArg(args)
	if err != nil {
		return errResult(err.Error()), nil
	}
	dir, err := graph.ParseDirection(getStringArg(args, "direction"))
	if err != nil {
		return errResult(err.Error()), nil
	}
	depth := getIntArg(args, "depth", defaultTreeDepth)
	if depth < 0 {
		return errResult(fmt.Sprintf("depth must be >= 0, got %d", depth)), nil
	}

	tree, err := s.graph.Store().CallTree(ref, dir, depth)
	if err != nil {
		return errResult(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"root":      ref,
		"direction": dir,
		"depth":     depth,
		"tree":      display.RenderTree(ref, tree),
		"children":  tree,
	}), nil
}

func (s *Server) handleImpact(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	ref, err := methodArg(args)
	if err != nil {
		return errResult(err.Error()), nil
	}

	report, err := impact.NewAnalyzer(s.graph.Store()).Analyze(ref,
		getIntArg(args, "upstream_depth", 0),
		getIntArg(args, "downstream_depth", 1))
	if err != nil {
		return errResult(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"summary": report.Summary(),
		"report":  report,
	}), nil
}

func (s *Server) handleSearchMethods(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	pattern := getStringArg(args, "pattern")
	if pattern == "" {
		return errResult("pattern is required"), nil
	}
	limit := getIntArg(args, "limit", defaultSearchLimit)

	results := s.graph.Store().Search(pattern, limit)
	if results == nil {
		results = []graph.MethodRef{}
	}
	return jsonResult(map[string]any{
		"pattern": pattern,
		"total":   len(results),
		"results": results,
	}), nil
}

func (s *Server) handleGraphStats(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.graph.Store().Stats()), nil
}
