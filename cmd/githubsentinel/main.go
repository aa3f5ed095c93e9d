// Command githubsentinel exports GitHub and Hacker News activity and turns it
// into LLM-written progress reports.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	githubsentinel "github.com/localrivet/githubsentinel"
	"github.com/localrivet/githubsentinel/internal/config"
	"github.com/localrivet/githubsentinel/internal/errortypes"
	"github.com/localrivet/githubsentinel/internal/logger"
)

// Version information, set with -ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "githubsentinel",
	Short: "GitHub repository progress reports written by an LLM",
	Long: `githubsentinel - follow GitHub repositories and Hacker News

Exports recent commits, issues and pull requests of subscribed repositories
(or the Hacker News front page) to markdown and asks the configured LLM
provider (OpenAI-compatible or Ollama) for a progress report.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", Version, Commit)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigFilename, "Path to the JSON config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging builds the process logger from the config file's logging
// section. Logs go to stderr; stdout carries reports and the MCP transport.
func setupLogging() (*slog.Logger, *config.Config, error) {
	bootstrap := logger.New(&logger.Config{Level: slog.LevelWarn, Output: os.Stderr})

	cfg, err := config.LoadConfigWithPath(configPath, bootstrap)
	if err != nil {
		return nil, nil, errortypes.ConfigError(err, "failed to load configuration")
	}

	appLogger := logger.New(&logger.Config{
		Level:       logger.ParseLevel(cfg.Logging.Level),
		Format:      logger.ParseFormat(cfg.Logging.Format),
		Output:      os.Stderr,
		DefaultTags: map[string]interface{}{"service": "github-sentinel"},
	})
	slog.SetDefault(appLogger)
	return appLogger, cfg, nil
}

// openSentinel loads configuration and builds the service.
func openSentinel() (*githubsentinel.Sentinel, error) {
	appLogger, cfg, err := setupLogging()
	if err != nil {
		return nil, err
	}
	s, err := githubsentinel.New(githubsentinel.Options{Config: cfg, Logger: appLogger})
	if err != nil {
		errortypes.LogError(appLogger, err)
		return nil, err
	}
	return s, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
