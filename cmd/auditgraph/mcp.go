package main

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"auditgraph/internal/mcp"
)

func mcpCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd, opts)
		},
	}
}

func runMCP(cmd *cobra.Command, opts *rootOptions) error {
	ctx := context.Background()

	cfg, logger, err := opts.load(cmd)
	if err != nil {
		return err
	}

	a := newApp(ctx, cfg, logger)
	defer a.Close(ctx)

	var graphs mcp.GraphReader
	if a.store != nil {
		graphs = a.store
	}
	server := mcp.NewServer(a.reviews, a.laws, graphs, version, mcp.WithChat(a.chat))
	return server.Run(ctx, &sdk.StdioTransport{})
}
