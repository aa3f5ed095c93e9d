package main

import (
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the report tools over MCP (stdio)",
	Long: `Start an MCP server on stdin/stdout exposing generate_report,
hacker_news_report, subscription management, list_reports and health.

Add to an MCP client config:
  {"command": "githubsentinel", "args": ["mcp"]}`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	s, err := openSentinel()
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	go func() {
		<-ctx.Done()
		s.Logger().Info("Received shutdown signal, closing archive")
		s.Close()
	}()

	defer s.Close()
	return s.ServeMCP()
}
