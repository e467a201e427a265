// Package mcp exposes the step index over the Model Context Protocol so AI
// assistants can search step definitions and audit missing steps without
// shelling out to the CLI.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/stepdex/internal/debug"
	"github.com/standardbeagle/stepdex/internal/indexing"
	"github.com/standardbeagle/stepdex/internal/version"
	"github.com/standardbeagle/stepdex/pkg/pathutil"
)

// Server hosts the stepdex MCP tools over stdio.
type Server struct {
	master *indexing.MasterIndex
	server *mcp.Server
}

// NewServer creates an MCP server bound to the given master index.
func NewServer(master *indexing.MasterIndex) *Server {
	s := &Server{
		master: master,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "stepdex-mcp-server",
			Version: version.Info(),
		}, nil),
	}
	s.registerTools()
	return s
}

// Run serves MCP over stdio until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	debug.LogMCP("serving over stdio\n")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "step_search",
		Description: "Fuzzy search over indexed step-definition patterns. Blank query lists everything alphabetically; otherwise results come back best match first.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"query": {
					Type:        "string",
					Description: "Free-text query; tokens may be camelCase fragments",
				},
				"groups": {
					Type:        "array",
					Items:       &jsonschema.Schema{Type: "string"},
					Description: "Restrict to these group labels (step classes)",
				},
				"screen": {
					Type:        "string",
					Description: "Restrict to this screen tag",
				},
				"max": {
					Type:        "integer",
					Description: "Maximum results (default 50)",
				},
			},
		},
	}, s.handleStepSearch)

	s.server.AddTool(&mcp.Tool{
		Name:        "missing_steps",
		Description: "Reconcile every scenario step reference in the project against the step index and report the unmatched ones with file/line provenance.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleMissingSteps)

	s.server.AddTool(&mcp.Tool{
		Name:        "step_stats",
		Description: "Corpus counts: step definitions, feature files, scenarios (outlines expanded by example rows), definitions per group and per screen tag.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleStepStats)

	s.server.AddTool(&mcp.Tool{
		Name:        "reindex",
		Description: "Invalidate the cached step index; the next query rebuilds from a fresh project scan.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleReindex)
}

// StepSearchParams are the arguments of the step_search tool.
type StepSearchParams struct {
	Query  string   `json:"query"`
	Groups []string `json:"groups"`
	Screen string   `json:"screen"`
	Max    int      `json:"max"`
}

const defaultMaxResults = 50

func (s *Server) handleStepSearch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params StepSearchParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("step_search", fmt.Errorf("invalid parameters: %w", err))
	}
	if params.Max <= 0 {
		params.Max = defaultMaxResults
	}

	results := s.master.Search(params.Query, params.Groups, params.Screen)
	total := len(results)
	if len(results) > params.Max {
		results = results[:params.Max]
	}

	root := s.master.Config().Project.Root
	rows := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		rows = append(rows, map[string]interface{}{
			"text": r.DisplayText,
			"path": pathutil.ToRelative(r.SourcePath, root),
			"line": r.Line,
		})
	}

	return createJSONResponse(map[string]interface{}{
		"query":   params.Query,
		"total":   total,
		"results": rows,
	})
}

func (s *Server) handleMissingSteps(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	missing := s.master.FindMissingInProject()

	root := s.master.Config().Project.Root
	rows := make([]map[string]interface{}, 0, len(missing))
	for _, m := range missing {
		rows = append(rows, map[string]interface{}{
			"text": m.Text,
			"path": pathutil.ToRelative(m.SourcePath, root),
			"line": m.Line,
		})
	}

	return createJSONResponse(map[string]interface{}{
		"missing_count":    len(missing),
		"missing":          rows,
		"feature_files":    s.master.CountFeatureFiles(),
		"scenarios":        s.master.CountScenarios(),
		"step_definitions": s.master.CountStepDefinitions(),
	})
}

func (s *Server) handleStepStats(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return createJSONResponse(map[string]interface{}{
		"step_definitions": s.master.CountStepDefinitions(),
		"feature_files":    s.master.CountFeatureFiles(),
		"scenarios":        s.master.CountScenarios(),
		"groups":           s.master.GroupCounts(),
		"screens":          s.master.ScreenCounts(),
		"server_version":   version.FullInfo(),
	})
}

func (s *Server) handleReindex(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.master.InvalidateIndex()
	return createJSONResponse(map[string]interface{}{
		"success": true,
		"note":    "index invalidated; next query rebuilds from a fresh scan",
	})
}
