package main

import (
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the web GUI",
	Long: `Serve the web GUI and its JSON API.

Examples:
  githubsentinel serve
  githubsentinel serve --addr 0.0.0.0:7860`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default gui.addr from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := openSentinel()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signalContext()
	defer stop()

	return s.ServeGUI(ctx, serveAddr)
}
