// Package githubsentinel wires the report pipeline together: configuration,
// the LLM provider, the GitHub and Hacker News exporters, subscriptions and
// the report archive. The CLI, the web GUI and the MCP server all drive it.
package githubsentinel

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	mcpserver "github.com/localrivet/gomcp/server"

	"github.com/localrivet/githubsentinel/internal/config"
	"github.com/localrivet/githubsentinel/internal/errortypes"
	"github.com/localrivet/githubsentinel/internal/github"
	"github.com/localrivet/githubsentinel/internal/gui"
	"github.com/localrivet/githubsentinel/internal/hackernews"
	"github.com/localrivet/githubsentinel/internal/llm"
	"github.com/localrivet/githubsentinel/internal/llm/providers"
	"github.com/localrivet/githubsentinel/internal/prompts"
	"github.com/localrivet/githubsentinel/internal/reportgen"
	"github.com/localrivet/githubsentinel/internal/reportstore"
	"github.com/localrivet/githubsentinel/internal/server"
	"github.com/localrivet/githubsentinel/internal/subscription"
	"github.com/localrivet/githubsentinel/internal/telemetry"
)

// Config represents the configuration for the GitHub Sentinel service.
type Config = config.Config

// Options defines the options for creating a new Sentinel.
type Options struct {
	Config     *Config      // Pre-filled config. If nil, ConfigPath is used.
	ConfigPath string       // Path to config file. Empty means config.json lookup.
	Logger     *slog.Logger // External logger. If nil, slog.Default() is used.

	// HTTPClient is used for GitHub, Hacker News and the provider. If nil,
	// one is built from llm.timeout.
	HTTPClient *http.Client

	// Provider replaces the configured LLM backend.
	Provider providers.Provider

	// NoArchive skips opening the SQLite report archive.
	NoArchive bool
}

// Sentinel holds every component, built once.
type Sentinel struct {
	config        *Config
	logger        *slog.Logger
	metrics       *telemetry.MetricsCollector
	llm           *llm.Generator
	subscriptions *subscription.Store
	exporter      *github.Exporter
	hackerNews    *hackernews.Client
	archive       *reportstore.SQLiteReportStore
	reports       *reportgen.Generator
	now           func() time.Time

	closeOnce sync.Once
}

// New loads configuration and builds the pipeline.
func New(opts Options) (*Sentinel, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := opts.Config
	if cfg == nil {
		var err error
		cfg, err = config.LoadConfigWithPath(opts.ConfigPath, logger)
		if err != nil {
			logger.Error("Failed to load configuration", "path", opts.ConfigPath, "error", err)
			return nil, errortypes.ConfigError(err, "failed to load configuration")
		}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout, err := cfg.LLMTimeout()
		if err != nil {
			return nil, errortypes.ConfigError(err, "invalid llm configuration")
		}
		httpClient = providers.NewHTTPClient(timeout)
	}

	metrics := telemetry.NewMetricsCollector()

	factory := providers.NewProviderFactory(map[providers.Kind]providers.Config{
		providers.KindOpenAI: {
			APIKey:  cfg.LLM.OpenAI.APIKey,
			BaseURL: cfg.LLM.OpenAI.BaseURL,
			Model:   cfg.LLM.OpenAI.Model,
		},
		providers.KindOllama: {
			BaseURL: cfg.LLM.Ollama.APIURL,
			Model:   cfg.LLM.Ollama.Model,
		},
	}, httpClient, logger)

	gen, err := llm.New(llm.Options{
		Kind:       providers.Kind(cfg.LLM.Provider),
		Factory:    factory,
		Provider:   opts.Provider,
		Prompts:    prompts.NewDirStore(cfg.Storage.PromptsRoot, logger),
		DryRunPath: cfg.LLM.DryRunPath,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return nil, err
	}

	ghClient := github.NewClient(cfg.GitHub.APIURL, cfg.GitHub.Token, httpClient, logger)

	s := &Sentinel{
		config:        cfg,
		logger:        logger,
		metrics:       metrics,
		llm:           gen,
		subscriptions: subscription.NewStore(cfg.Storage.SubscriptionsFile, logger),
		exporter:      github.NewExporter(ghClient, cfg.Storage.ProgressDir),
		hackerNews:    hackernews.NewClient(cfg.HackerNews.URL, cfg.Storage.ProgressDir, httpClient, logger),
		now:           time.Now,
	}

	// Must stay a nil interface when the archive is disabled.
	var archive reportstore.ReportStore
	if !opts.NoArchive {
		store, err := reportstore.Open(cfg.Storage.SQLitePath, logger)
		if err != nil {
			errortypes.LogError(logger, err)
			return nil, err
		}
		s.archive = store
		archive = store
	}
	s.reports = reportgen.New(gen, archive, gen.Provider().Name(), logger)

	if subs, err := s.subscriptions.List(); err == nil {
		metrics.SetGauge(telemetry.MetricSubscriptionsCount, float64(len(subs)))
	}

	logger.Info("GitHub Sentinel initialized", "provider", gen.Provider().Name(), "model", gen.Model())
	return s, nil
}

// setClock fixes the time used by the exporters.
func (s *Sentinel) setClock(now func() time.Time) {
	s.now = now
	s.exporter.SetClock(now)
	s.hackerNews.SetClock(now)
}

// Config returns the loaded configuration.
func (s *Sentinel) Config() *Config { return s.config }

// Logger returns the service logger.
func (s *Sentinel) Logger() *slog.Logger { return s.logger }

// Metrics returns the shared metrics collector.
func (s *Sentinel) Metrics() *telemetry.MetricsCollector { return s.metrics }

// GenerateReport exports the requested window of activity for one
// repository and turns it into a report. One day uses the daily export,
// Since a natural-language start, anything else the date-range export.
func (s *Sentinel) GenerateReport(ctx context.Context, req reportgen.Request) (reportgen.Output, error) {
	if err := req.Normalize(); err != nil {
		return reportgen.Output{}, err
	}

	var (
		path string
		err  error
	)
	switch {
	case req.Since != "":
		since, perr := github.ParseSince(req.Since, s.now())
		if perr != nil {
			return reportgen.Output{}, perr
		}
		path, err = s.exporter.ExportSince(ctx, req.Repository, since)
	case req.Days == 1:
		path, err = s.exporter.ExportDaily(ctx, req.Repository)
	default:
		path, err = s.exporter.ExportProgressByDateRange(ctx, req.Repository, req.Days)
	}
	if err != nil {
		errortypes.LogError(s.logger, err)
		return reportgen.Output{}, err
	}
	s.metrics.IncrementCounter(telemetry.MetricGitHubExports, 1)

	var out reportgen.Output
	if req.Since == "" && req.Days == 1 {
		out, err = s.reports.GenerateDailyReport(ctx, path, req.Repository, req.DryRun)
	} else {
		out, err = s.reports.GenerateReportByDateRange(ctx, path, req.Repository, req.DryRun)
	}
	return s.recordArchive(out, err)
}

// GenerateHackerNewsReport exports today's front page and reports on it.
func (s *Sentinel) GenerateHackerNewsReport(ctx context.Context, dryRun bool) (reportgen.Output, error) {
	path, err := s.hackerNews.ExportStories(ctx)
	if err != nil {
		errortypes.LogError(s.logger, err)
		return reportgen.Output{}, err
	}
	s.metrics.IncrementCounter(telemetry.MetricHackerNewsExports, 1)

	return s.recordArchive(s.reports.GenerateHackerNewsReport(ctx, path, dryRun))
}

func (s *Sentinel) recordArchive(out reportgen.Output, err error) (reportgen.Output, error) {
	if err == nil && out.ID != "" {
		s.metrics.IncrementCounter(telemetry.MetricArchivedReports, 1)
	}
	return out, err
}

// ListSubscriptions returns the subscribed repositories.
func (s *Sentinel) ListSubscriptions() ([]string, error) {
	return s.subscriptions.List()
}

// AddSubscription subscribes to repo.
func (s *Sentinel) AddSubscription(repo string) ([]string, error) {
	return s.updateGauge(s.subscriptions.Add(repo))
}

// RemoveSubscription unsubscribes from repo.
func (s *Sentinel) RemoveSubscription(repo string) ([]string, error) {
	return s.updateGauge(s.subscriptions.Remove(repo))
}

func (s *Sentinel) updateGauge(repos []string, err error) ([]string, error) {
	if err == nil {
		s.metrics.SetGauge(telemetry.MetricSubscriptionsCount, float64(len(repos)))
	}
	return repos, err
}

// ListReports returns archived reports, newest first.
func (s *Sentinel) ListReports(repository string, limit int) ([]reportstore.Report, error) {
	if s.archive == nil {
		return []reportstore.Report{}, nil
	}
	return s.archive.List(repository, limit)
}

// GetReport returns one archived report.
func (s *Sentinel) GetReport(id string) (*reportstore.Report, error) {
	if s.archive == nil {
		return nil, errortypes.ResourceNotFound(errors.New("report archive disabled"), "report not found").
			WithField("id", id)
	}
	return s.archive.Get(id)
}

// Health probes the provider and summarizes the metrics.
func (s *Sentinel) Health(ctx context.Context) telemetry.HealthReport {
	provider := s.llm.Provider()
	available := true
	if hc, ok := provider.(providers.HealthChecker); ok {
		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		available = hc.Available(probeCtx)
	}
	return telemetry.CreateHealthReport(s.metrics, provider.Name(), s.llm.Model(), available)
}

// MetricsReport renders the metrics as text.
func (s *Sentinel) MetricsReport() string {
	return s.metrics.GetReport()
}

// Handler returns the web GUI.
func (s *Sentinel) Handler() http.Handler {
	return gui.New(s, s.logger)
}

// ServeGUI serves the web GUI on addr (gui.addr when empty) until ctx is
// cancelled.
func (s *Sentinel) ServeGUI(ctx context.Context, addr string) error {
	if addr == "" {
		addr = s.config.GUI.Addr
	}
	return gui.New(s, s.logger).ListenAndServe(ctx, addr)
}

// ServeMCP serves the MCP tools over stdio. It blocks until the client
// disconnects.
func (s *Sentinel) ServeMCP() error {
	toolServer := server.NewReportToolServer(s, s.logger)
	if err := toolServer.Initialize(); err != nil {
		return err
	}
	s.logger.Info("Starting MCP server")
	return toolServer.Start()
}

// RegisterTools adds the report tools to an MCP server owned by the caller.
func (s *Sentinel) RegisterTools(srv mcpserver.Server) mcpserver.Server {
	return server.NewReportToolServer(s, s.logger).RegisterTools(srv)
}

// Close releases the report archive.
func (s *Sentinel) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.logger.Info("Stopping GitHub Sentinel")
		if s.archive != nil {
			err = s.archive.Close()
		}
	})
	return err
}
