// Package mcpserver exposes haruspex analyses as MCP tools over stdio, so
// an LLM agent can interrogate binary listings without shelling out.
package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/arcusfield/haruspex/pkg/config"
)

// Server wraps the MCP server and registers the haruspex analysis tools.
type Server struct {
	server *mcp.Server
	cfg    *config.Config
}

// NewServer creates an MCP server with all haruspex tools registered.
func NewServer(version string, cfg *config.Config) *Server {
	if version == "" {
		version = "dev"
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "haruspex",
			Version: version,
		},
		nil,
	)

	s := &Server{server: server, cfg: cfg}
	s.registerTools()
	return s
}

// Run starts the MCP server over stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "analyze_module",
		Description: "Compute static complexity metrics for every routine in a " +
			"disassembly listing: size and branch counts, cyclomatic family, " +
			"Halstead, Harrison, Pivovarsky, boundary value, span, data-flow " +
			"and coupling metrics, plus module totals.",
	}, s.handleAnalyzeModule)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "list_routines",
		Description: "List the routines of a disassembly listing in program " +
			"order, with entry addresses.",
	}, s.handleListRoutines)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "routine_graph",
		Description: "Reconstruct the basic-block node graph of one routine " +
			"as an adjacency list keyed by block entry address.",
	}, s.handleRoutineGraph)
}
