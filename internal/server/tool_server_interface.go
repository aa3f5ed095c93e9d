// Package server provides the MCP server implementation for the GitHub Sentinel service.
package server

import (
	"context"

	"github.com/localrivet/githubsentinel/internal/reportgen"
	"github.com/localrivet/githubsentinel/internal/reportstore"
	"github.com/localrivet/githubsentinel/internal/telemetry"
)

// ReportToolServer defines the interface for the MCP server that handles
// report-related tool calls from MCP clients.
type ReportToolServer interface {
	// Initialize registers the tools.
	Initialize() error

	// Start starts the MCP server on the specified transport.
	Start() error

	// Stop gracefully shuts down the MCP server.
	Stop() error
}

// Service is the report pipeline behind the tools.
type Service interface {
	GenerateReport(ctx context.Context, req reportgen.Request) (reportgen.Output, error)
	GenerateHackerNewsReport(ctx context.Context, dryRun bool) (reportgen.Output, error)
	ListSubscriptions() ([]string, error)
	AddSubscription(repo string) ([]string, error)
	RemoveSubscription(repo string) ([]string, error)
	ListReports(repository string, limit int) ([]reportstore.Report, error)
	Health(ctx context.Context) telemetry.HealthReport
	MetricsReport() string
}
