package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/arcusfield/haruspex/internal/mcpserver"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes haruspex's
analyses as tools an LLM can invoke against disassembly listings.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "haruspex": {
        "command": "haruspex",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_module   Full metric set for every routine of a listing
  - list_routines    Routine names and entry addresses
  - routine_graph    Basic-block node graph of one routine`,
		Action: runMCPCmd,
	}
}

func runMCPCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	server := mcpserver.NewServer(version, cfg)
	return server.Run(context.Background())
}
