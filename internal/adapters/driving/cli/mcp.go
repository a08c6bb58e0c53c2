package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/postsmith/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can search
your newsletters and create post jobs.

By default, the server communicates over stdio using JSON-RPC. Jobs created
through the server run on this process's workers.

Use --port to start an HTTP server instead, which enables:
  - Testing with MCP Inspector web UI
  - Remote access via HTTP

Examples:
  # Stdio mode (default)
  postsmith mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  postsmith mcp serve --port 8090

Client configuration:
  {
    "mcpServers": {
      "postsmith": {
        "command": "/path/to/postsmith",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}

	ports := &mcp.Ports{
		Retrieval:   svc.Retrieval,
		Jobs:        svc.Jobs,
		Index:       svc.Index,
		Newsletters: svc.Newsletters,
		Contexts:    svc.Contexts,
	}

	server, err := mcp.NewServer(ports, svc.Config.Retrieval)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
