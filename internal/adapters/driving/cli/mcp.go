package cli

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragify/internal/adapters/driving/mcp"
	"github.com/custodia-labs/ragify/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

With --user, tools work on that user's stored knowledge. Without it, the
server holds a temporary session that ends when the server stops.

By default, the server communicates over stdio using JSON-RPC. In stdio mode
the password for --user must come from $RAGIFY_PASSWORD.

Use --port to start an HTTP server instead, which enables:
  - Testing with MCP Inspector web UI
  - Remote access via HTTP

Examples:
  # Stdio mode (default)
  ragify mcp serve

  # HTTP mode with stored knowledge
  ragify --user alice mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "ragify": {
        "command": "/path/to/ragify",
        "args": ["--user", "alice", "mcp", "serve"],
        "env": {"RAGIFY_PASSWORD": "..."}
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

	if err := requireKnowledge(); err != nil {
		return err
	}
	if _, ok := lookupPasswordEnv(); port == 0 && userFlag != "" && !ok {
		return fmt.Errorf("set %s to serve a user over stdio", PasswordEnv)
	}

	scope, err := resolveScope(cmd, bufio.NewReader(cmd.InOrStdin()))
	if err != nil {
		return err
	}
	if !scope.IsDurable() {
		defer func() {
			if err := knowledgeService.ResetSession(cmd.Context(), scope.SessionID()); err != nil {
				logger.Warn("ending session: %v", err)
			}
		}()
	}

	ports := &mcp.Ports{
		Knowledge: knowledgeService,
		Scope:     scope,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}
	logger.Info("mcp server for %s", scope)

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
