// Package llm is the report facade: it loads the repository prompt, builds
// the two-message conversation and hands it to the one provider chosen at
// construction.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/localrivet/githubsentinel/internal/errortypes"
	"github.com/localrivet/githubsentinel/internal/llm/providers"
	"github.com/localrivet/githubsentinel/internal/telemetry"
)

// DryRunSentinel is the Result text of a dry-run call.
const DryRunSentinel = "DRY RUN"

// DefaultDryRunPath is where dry-run conversations are written.
const DefaultDryRunPath = "daily_progress/prompt.txt"

// PromptLoader resolves a repository id to its system prompt.
type PromptLoader interface {
	Load(repositoryID string) (string, error)
}

// Result is either the model's reply or the dry-run sentinel.
type Result struct {
	Text   string `json:"text"`
	DryRun bool   `json:"dry_run"`
}

// Options configures a Generator.
type Options struct {
	// Kind selects the provider adapter.
	Kind providers.Kind

	// Factory builds the adapter for Kind. Ignored when Provider is set.
	Factory *providers.ProviderFactory

	// Provider overrides the factory, mainly for tests.
	Provider providers.Provider

	// Model overrides the model configured for Kind.
	Model string

	Prompts    PromptLoader
	DryRunPath string
	Logger     *slog.Logger
	Metrics    *telemetry.MetricsCollector
}

// Generator turns raw activity into a report. Its provider is fixed for its
// lifetime.
type Generator struct {
	kind       providers.Kind
	provider   providers.Provider
	model      string
	prompts    PromptLoader
	dryRunPath string
	logger     *slog.Logger
	metrics    *telemetry.MetricsCollector
}

// New validates the provider kind and builds the adapter. An unknown kind
// fails here, before any report is attempted.
func New(opts Options) (*Generator, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.WithGroup("llm")

	if opts.Prompts == nil {
		return nil, errortypes.ConfigError(errors.New("nil prompt loader"), "llm: prompts are required")
	}

	kind := providers.ParseKind(string(opts.Kind))
	if kind != providers.KindOpenAI && kind != providers.KindOllama {
		err := errortypes.UnsupportedProviderKind(
			fmt.Errorf("unknown provider: %q", string(opts.Kind)), "llm: unsupported provider kind").
			WithField("provider", string(opts.Kind))
		errortypes.LogError(logger, err)
		return nil, err
	}

	provider := opts.Provider
	model := opts.Model
	if provider == nil {
		if opts.Factory == nil {
			return nil, errortypes.ConfigError(errors.New("nil provider factory"), "llm: a provider or factory is required")
		}
		p, err := opts.Factory.GetProvider(kind)
		if err != nil {
			errortypes.LogError(logger, err)
			return nil, err
		}
		provider = p
		if model == "" {
			model = opts.Factory.ModelFor(kind)
		}
	}

	dryRunPath := opts.DryRunPath
	if dryRunPath == "" {
		dryRunPath = DefaultDryRunPath
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewMetricsCollector()
	}

	logger.Info("Report generator ready", "provider", provider.Name(), "model", model)

	return &Generator{
		kind:       kind,
		provider:   provider,
		model:      model,
		prompts:    opts.Prompts,
		dryRunPath: dryRunPath,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// Kind returns the provider kind fixed at construction.
func (g *Generator) Kind() providers.Kind { return g.kind }

// Model returns the model passed to the provider.
func (g *Generator) Model() string { return g.model }

// DryRunPath returns where dry-run conversations are written.
func (g *Generator) DryRunPath() string { return g.dryRunPath }

// Provider returns the active adapter.
func (g *Generator) Provider() providers.Provider { return g.provider }

// Metrics returns the collector the generator reports into.
func (g *Generator) Metrics() *telemetry.MetricsCollector { return g.metrics }

// GenerateReport summarizes content with the prompt for repositoryID. With
// dryRun set the conversation is written to the dry-run path instead of being
// sent, and the result carries DryRunSentinel.
func (g *Generator) GenerateReport(ctx context.Context, content, repositoryID string, dryRun bool) (Result, error) {
	g.metrics.IncrementCounter(telemetry.MetricReportRequests, 1)

	prompt, err := g.prompts.Load(repositoryID)
	if err != nil {
		g.metrics.IncrementCounter(telemetry.MetricReportFailures, 1)
		return Result{}, err
	}

	conv := providers.NewConversation(prompt, content)

	if dryRun {
		if err := g.saveConversation(conv); err != nil {
			g.metrics.IncrementCounter(telemetry.MetricReportFailures, 1)
			errortypes.LogError(g.logger, err)
			return Result{}, err
		}
		g.metrics.IncrementCounter(telemetry.MetricReportDryRuns, 1)
		g.logger.Info("Dry run: prompt saved", "path", g.dryRunPath, "repository", repositoryID)
		return Result{Text: DryRunSentinel, DryRun: true}, nil
	}

	name := g.provider.Name()
	g.metrics.IncrementCounter(telemetry.ForProvider(telemetry.MetricProviderCalls, name), 1)

	start := time.Now()
	text, err := g.provider.Complete(ctx, conv, g.model)
	g.metrics.RecordTimer(telemetry.ForProvider(telemetry.MetricProviderResponseTime, name), time.Since(start))
	if err != nil {
		g.metrics.IncrementCounter(telemetry.ForProvider(telemetry.MetricProviderFailure, name), 1)
		g.metrics.IncrementCounter(telemetry.MetricReportFailures, 1)
		return Result{}, err
	}

	g.metrics.IncrementCounter(telemetry.ForProvider(telemetry.MetricProviderSuccess, name), 1)
	g.metrics.RecordTimestamp(telemetry.MetricLastReport)
	g.logger.Info("Report generated", "repository", repositoryID, "provider", name, "elapsed", time.Since(start))

	return Result{Text: text}, nil
}

// saveConversation overwrites the dry-run artifact with conv.
func (g *Generator) saveConversation(conv providers.Conversation) error {
	data, err := MarshalConversation(conv)
	if err != nil {
		return errortypes.InternalError(err, "failed to encode conversation")
	}

	if dir := filepath.Dir(g.dryRunPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errortypes.InternalError(err, "failed to create dry-run directory").WithField("path", dir)
		}
	}

	if err := os.WriteFile(g.dryRunPath, data, 0644); err != nil {
		return errortypes.InternalError(err, "failed to write dry-run prompt").WithField("path", g.dryRunPath)
	}
	return nil
}

// MarshalConversation encodes conv as a JSON array indented with four spaces.
// Non-ASCII and HTML characters are written literally.
func MarshalConversation(conv providers.Conversation) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(conv); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
