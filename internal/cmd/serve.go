package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/inkgate/internal/mcpserver"
	"github.com/Iron-Ham/inkgate/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve session tools over MCP on stdio",
	Long: `Run an MCP server on stdin/stdout exposing session_open, session_close,
complete, advance_chapter and status as tools. Logs go to stderr or the
configured log directory; stdout carries only JSON-RPC.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	return withCoordinator(func(coord *session.Coordinator) error {
		return mcpserver.Serve(coord, Version)
	})
}
