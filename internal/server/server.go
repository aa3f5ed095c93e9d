package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/localrivet/gomcp/server"

	"github.com/localrivet/githubsentinel/internal/errortypes"
	"github.com/localrivet/githubsentinel/internal/reportgen"
	"github.com/localrivet/githubsentinel/internal/tools"
)

// MCPReportToolServer implements the ReportToolServer interface
// for handling MCP tool calls related to report generation.
type MCPReportToolServer struct {
	service   Service
	logger    *slog.Logger
	mcpServer server.Server
}

// NewReportToolServer creates a new MCPReportToolServer instance.
func NewReportToolServer(service Service, logger *slog.Logger) *MCPReportToolServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &MCPReportToolServer{
		service: service,
		logger:  logger.WithGroup("mcp"),
	}
}

// Initialize initializes the server with dependencies and configurations.
func (s *MCPReportToolServer) Initialize() error {
	s.logger.Info("Initializing MCP Report Tool Server")

	if s.service == nil {
		return errortypes.ConfigError(errors.New("missing dependencies"), "server initialization failed")
	}

	srv := s.RegisterTools(server.NewServer("githubsentinel"))

	s.mcpServer = srv
	s.logger.Info("MCP Report Tool Server initialized successfully", "tool_count", len(tools.ToolNames))
	return nil
}

// RegisterTools adds the report tools to srv, which may be a host server
// carrying tools of its own.
func (s *MCPReportToolServer) RegisterTools(srv server.Server) server.Server {
	srv = srv.Tool(tools.ToolGenerateReport, "Generate a progress report for a subscribed GitHub repository",
		s.handleGenerateReport)
	srv = srv.Tool(tools.ToolHackerNewsReport, "Generate a report on the current Hacker News front page",
		s.handleHackerNewsReport)
	srv = srv.Tool(tools.ToolListSubscriptions, "List subscribed GitHub repositories",
		s.handleListSubscriptions)
	srv = srv.Tool(tools.ToolAddSubscription, "Subscribe to a GitHub repository (owner/name)",
		s.handleAddSubscription)
	srv = srv.Tool(tools.ToolRemoveSubscription, "Unsubscribe from a GitHub repository",
		s.handleRemoveSubscription)
	srv = srv.Tool(tools.ToolListReports, "List archived reports, newest first",
		s.handleListReports)
	srv = srv.Tool(tools.ToolHealth, "Report provider health and metrics",
		s.handleHealth)
	return srv
}

// Start starts the MCP server on the specified transport.
func (s *MCPReportToolServer) Start() error {
	if s.mcpServer == nil {
		return errortypes.ConfigError(errors.New("server not initialized"), "cannot start server")
	}

	s.logger.Info("Starting MCP Report Tool Server")

	// Start the server using stdio transport
	return s.mcpServer.AsStdio().Run()
}

// Stop gracefully shuts down the MCP server.
func (s *MCPReportToolServer) Stop() error {
	s.logger.Info("Stopping MCP Report Tool Server")
	// The server will exit when stdin is closed
	return nil
}

func (s *MCPReportToolServer) handleGenerateReport(_ *server.Context, req tools.GenerateReportRequest) (tools.ReportResponse, error) {
	s.logger.Info("Processing generate_report request", "repository", req.Repository, "days", req.Days, "since", req.Since)

	out, err := s.service.GenerateReport(context.Background(), reportgen.Request{
		Repository: req.Repository,
		Days:       req.Days,
		Since:      req.Since,
		DryRun:     req.DryRun,
	})
	if err != nil {
		return s.reportError(err), nil
	}
	return reportResponse(out), nil
}

func (s *MCPReportToolServer) handleHackerNewsReport(_ *server.Context, req tools.HackerNewsReportRequest) (tools.ReportResponse, error) {
	s.logger.Info("Processing hacker_news_report request", "dry_run", req.DryRun)

	out, err := s.service.GenerateHackerNewsReport(context.Background(), req.DryRun)
	if err != nil {
		return s.reportError(err), nil
	}
	return reportResponse(out), nil
}

func (s *MCPReportToolServer) handleListSubscriptions(_ *server.Context, _ tools.ListSubscriptionsRequest) (tools.SubscriptionsResponse, error) {
	repos, err := s.service.ListSubscriptions()
	return s.subscriptionsResponse(repos, err), nil
}

func (s *MCPReportToolServer) handleAddSubscription(_ *server.Context, req tools.SubscriptionRequest) (tools.SubscriptionsResponse, error) {
	s.logger.Info("Processing add_subscription request", "repository", req.Repository)
	repos, err := s.service.AddSubscription(req.Repository)
	return s.subscriptionsResponse(repos, err), nil
}

func (s *MCPReportToolServer) handleRemoveSubscription(_ *server.Context, req tools.SubscriptionRequest) (tools.SubscriptionsResponse, error) {
	s.logger.Info("Processing remove_subscription request", "repository", req.Repository)
	repos, err := s.service.RemoveSubscription(req.Repository)
	return s.subscriptionsResponse(repos, err), nil
}

func (s *MCPReportToolServer) handleListReports(_ *server.Context, req tools.ListReportsRequest) (tools.ListReportsResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = tools.DefaultListLimit
	}

	response := tools.ListReportsResponse{Status: tools.StatusSuccess, Reports: []tools.ReportSummary{}}

	reports, err := s.service.ListReports(req.Repository, limit)
	if err != nil {
		errortypes.LogError(s.logger, err)
		response.Status = tools.StatusError
		response.Error = err.Error()
		return response, nil
	}

	for _, r := range reports {
		response.Reports = append(response.Reports, tools.ReportSummary{
			ID:         r.ID,
			Repository: r.Repository,
			Kind:       r.Kind,
			CreatedAt:  r.CreatedAt.UTC().Format(time.RFC3339),
			Report:     r.Text,
		})
	}
	return response, nil
}

func (s *MCPReportToolServer) handleHealth(_ *server.Context, _ tools.HealthRequest) (tools.HealthResponse, error) {
	h := s.service.Health(context.Background())
	return tools.HealthResponse{
		Status:            tools.StatusSuccess,
		Health:            string(h.Status),
		Provider:          h.Provider,
		Model:             h.Model,
		ProviderAvailable: h.ProviderAvailable,
		SuccessRate:       h.SuccessRate,
		TotalRequests:     h.TotalRequests,
		Metrics:           s.service.MetricsReport(),
	}, nil
}

func reportResponse(out reportgen.Output) tools.ReportResponse {
	return tools.ReportResponse{
		Status: tools.StatusSuccess,
		Report: out.Report,
		Path:   out.Path,
		ID:     out.ID,
		DryRun: out.DryRun,
	}
}

// reportError turns a failure into an error response. Provider failures
// were already logged by the adapter.
func (s *MCPReportToolServer) reportError(err error) tools.ReportResponse {
	if !errortypes.IsProviderCallFailed(err) && !errortypes.IsProviderResponseMalformed(err) {
		errortypes.LogError(s.logger, err)
	}
	return tools.ReportResponse{Status: tools.StatusError, Error: err.Error()}
}

func (s *MCPReportToolServer) subscriptionsResponse(repos []string, err error) tools.SubscriptionsResponse {
	if err != nil {
		errortypes.LogError(s.logger, err)
		return tools.SubscriptionsResponse{Status: tools.StatusError, Subscriptions: []string{}, Error: err.Error()}
	}
	if repos == nil {
		repos = []string{}
	}
	return tools.SubscriptionsResponse{Status: tools.StatusSuccess, Subscriptions: repos}
}
