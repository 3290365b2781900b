package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	toon "github.com/toon-format/toon-go"

	"github.com/arcusfield/haruspex/pkg/analyzer"
	"github.com/arcusfield/haruspex/pkg/config"
	"github.com/arcusfield/haruspex/pkg/disasm"
)

// AnalyzeModuleInput selects a listing and optionally narrows the metric set.
type AnalyzeModuleInput struct {
	Path    string `json:"path" jsonschema:"Path to an objdump-style disassembly listing."`
	Metrics string `json:"metrics,omitempty" jsonschema:"Comma-separated metric keys (e.g. loc,cc,halstead) or 'all'. Defaults to the configured set."`
}

// ListRoutinesInput selects a listing.
type ListRoutinesInput struct {
	Path string `json:"path" jsonschema:"Path to an objdump-style disassembly listing."`
}

// RoutineGraphInput selects one routine of a listing.
type RoutineGraphInput struct {
	Path    string `json:"path" jsonschema:"Path to an objdump-style disassembly listing."`
	Routine string `json:"routine" jsonschema:"Routine name as it appears in the listing."`
}

func toolResult(data any) (*mcp.CallToolResult, any, error) {
	text, err := toon.Marshal(data, toon.WithIndent(2))
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(text)},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

func (s *Server) analysisConfig(metricList string) (*config.Config, error) {
	cfg := *s.cfg
	if metricList != "" {
		set, err := config.ParseMetricSet(metricList)
		if err != nil {
			return nil, err
		}
		cfg.Metrics = set
	}
	return &cfg, nil
}

func (s *Server) handleAnalyzeModule(ctx context.Context, req *mcp.CallToolRequest, input AnalyzeModuleInput) (*mcp.CallToolResult, any, error) {
	cfg, err := s.analysisConfig(input.Metrics)
	if err != nil {
		return toolError(err.Error())
	}
	lst, err := disasm.Load(input.Path)
	if err != nil {
		return toolError(err.Error())
	}
	mod, err := analyzer.New(cfg).AnalyzeListing(ctx, lst)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(mod)
}

func (s *Server) handleListRoutines(ctx context.Context, req *mcp.CallToolRequest, input ListRoutinesInput) (*mcp.CallToolResult, any, error) {
	lst, err := disasm.Load(input.Path)
	if err != nil {
		return toolError(err.Error())
	}

	type routine struct {
		Name  string `json:"name" toon:"name"`
		Entry string `json:"entry" toon:"entry"`
	}
	var routines []routine
	for _, entry := range lst.Routines() {
		routines = append(routines, routine{
			Name:  lst.RoutineName(entry),
			Entry: entry.String(),
		})
	}
	return toolResult(routines)
}

func (s *Server) handleRoutineGraph(ctx context.Context, req *mcp.CallToolRequest, input RoutineGraphInput) (*mcp.CallToolResult, any, error) {
	lst, err := disasm.Load(input.Path)
	if err != nil {
		return toolError(err.Error())
	}
	graph, err := analyzer.New(s.cfg).RoutineGraph(lst, lst, input.Routine)
	if err != nil {
		return toolError(err.Error())
	}

	adjacency := make(map[string][]string, len(graph))
	for _, node := range graph.Nodes() {
		succs := make([]string, 0, len(graph[node]))
		for _, t := range graph[node] {
			succs = append(succs, t.String())
		}
		adjacency[node.String()] = succs
	}
	return toolResult(adjacency)
}
