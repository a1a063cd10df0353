package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zheng/ctb/internal/graph"
)

// Version is reported to MCP clients.
var Version = "0.1.0"

// Server exposes call graph queries as MCP tools
type Server struct {
	mcp   *mcp.Server
	graph *graph.Handle
}

// NewServer creates a new MCP server with all tools registered
func NewServer(h *graph.Handle) *Server {
	srv := &Server{
		graph: h,
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "ctb",
				Version: Version,
			},
			nil,
		),
	}
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Run serves MCP over stdin/stdout until ctx is done or the client leaves.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("mcp.start", "version", Version)
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_classes",
		Description: "List every class in the call tree, sorted by name.",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}, s.handleListClasses)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_class",
		Description: "Show the methods of a class with the number of incoming (reverse) and outgoing (forward) call edges of each.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"class": {
					"type": "string",
					"description": "Fully qualified class name, e.g. 'java.lang.Thread'"
				}
			},
			"required": ["class"]
		}`),
	}, s.handleGetClass)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "list_entrypoints",
		Description: "List the VM entry points (methods with no recorded caller) in order of first appearance.",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}, s.handleListEntrypoints)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_method",
		Description: "Show the calls a method makes (forward edges) and the calls made into it (reverse edges, with inverted phrases such as 'directly called by').",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"class": {
					"type": "string",
					"description": "Fully qualified class name"
				},
				"signature": {
					"type": "string",
					"description": "Method name with parameter list, e.g. 'run()' or 'runWith(java.lang.Object, java.lang.Runnable)'"
				}
			},
			"required": ["class", "signature"]
		}`),
	}, s.handleGetMethod)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "call_tree",
		Description: "Expand the callees (downstream) or callers (upstream) of a method recursively. Recursive calls are marked as cycles; a method reached again elsewhere is marked seen. Neither is expanded a second time.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"class": {
					"type": "string",
					"description": "Fully qualified class name"
				},
				"signature": {
					"type": "string",
					"description": "Method name with parameter list"
				},
				"direction": {
					"type": "string",
					"enum": ["downstream", "upstream"],
					"description": "downstream follows calls made, upstream follows callers (default downstream)"
				},
				"depth": {
					"type": "integer",
					"description": "Maximum depth, 0 for unlimited (default 3)"
				}
			},
			"required": ["class", "signature"]
		}`),
	}, s.handleCallTree)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "impact",
		Description: "Analyze the impact of changing a method: direct and indirect callers, direct and indirect callees, and the VM entry points that reach it. Use before modifying a method to find everything that may be affected.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"class": {
					"type": "string",
					"description": "Fully qualified class name"
				},
				"signature": {
					"type": "string",
					"description": "Method signature without return type, e.g. 'run()'"
				},
				"upstream_depth": {
					"type": "integer",
					"description": "Caller depth, 0 = unlimited (default 0)"
				},
				"downstream_depth": {
					"type": "integer",
					"description": "Callee depth, 0 = unlimited (default 1)"
				}
			},
			"required": ["class", "signature"]
		}`),
	}, s.handleImpact)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "search_methods",
		Description: "Find methods whose 'Class.signature' contains the pattern, ignoring case. Exact method-name matches rank first.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"pattern": {
					"type": "string",
					"description": "Substring to look for, e.g. 'run' or 'java.util.List'"
				},
				"limit": {
					"type": "integer",
					"description": "Maximum number of results (default 50)"
				}
			},
			"required": ["pattern"]
		}`),
	}, s.handleSearchMethods)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "graph_stats",
		Description: "Return class, method, edge and entry point counts together with details of the loaded trace file.",
		InputSchema: json.RawMessage(`{"type": "object"}`),
	}, s.handleGraphStats)
}

// jsonResult marshals data to JSON and returns it as a tool result.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs unmarshals the raw JSON arguments into a map.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if req.Params == nil || len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

// getStringArg extracts a string argument from parsed args.
func getStringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// getIntArg extracts an integer argument with a default value.
func getIntArg(args map[string]any, key string, defaultVal int) int {
	f, ok := args[key].(float64) // JSON numbers decode as float64
	if !ok {
		return defaultVal
	}
	return int(f)
}

// methodArg reads the class and signature arguments.
func methodArg(args map[string]any) (graph.MethodRef, error) {
	ref := graph.MethodRef{
		Class:     getStringArg(args, "class"),
		Signature: getStringArg(args, "signature"),
	}
	if ref.Class == "" || ref.Signature == "" {
		return ref, fmt.Errorf("class and signature are required")
	}
	return ref, nil
}
