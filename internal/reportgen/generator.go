// Package reportgen turns exported activity files into reports and archives
// them.
package reportgen

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/localrivet/githubsentinel/internal/errortypes"
	"github.com/localrivet/githubsentinel/internal/hackernews"
	"github.com/localrivet/githubsentinel/internal/llm"
	"github.com/localrivet/githubsentinel/internal/reportstore"
)

// ReportGenerator is the part of llm.Generator used here.
type ReportGenerator interface {
	GenerateReport(ctx context.Context, content, repositoryID string, dryRun bool) (llm.Result, error)
}

// Output is a generated report and where it was written. Dry runs leave
// Path and ID empty.
type Output struct {
	Report string `json:"report"`
	Path   string `json:"path,omitempty"`
	ID     string `json:"id,omitempty"`
	DryRun bool   `json:"dry_run"`
}

// Generator reads raw markdown, asks the LLM for a report, writes it next to
// the raw file and archives it.
type Generator struct {
	llm      ReportGenerator
	archive  reportstore.ReportStore
	provider string
	logger   *slog.Logger
}

// New creates a Generator. archive may be nil to skip archiving.
func New(gen ReportGenerator, archive reportstore.ReportStore, provider string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		llm:      gen,
		archive:  archive,
		provider: provider,
		logger:   logger.WithGroup("reportgen"),
	}
}

// GenerateReportByDateRange reports on a multi-day export of repo.
func (g *Generator) GenerateReportByDateRange(ctx context.Context, rawPath, repo string, dryRun bool) (Output, error) {
	return g.generate(ctx, rawPath, repo, reportstore.KindGitHubRange, dryRun)
}

// GenerateDailyReport reports on a single-day export of repo.
func (g *Generator) GenerateDailyReport(ctx context.Context, rawPath, repo string, dryRun bool) (Output, error) {
	return g.generate(ctx, rawPath, repo, reportstore.KindGitHubDaily, dryRun)
}

// GenerateHackerNewsReport reports on a front-page export.
func (g *Generator) GenerateHackerNewsReport(ctx context.Context, rawPath string, dryRun bool) (Output, error) {
	return g.generate(ctx, rawPath, hackernews.ReportKey, reportstore.KindHackerNews, dryRun)
}

// ReportPath returns where the report for rawPath is written:
// foo.md becomes foo_report.md.
func ReportPath(rawPath string) string {
	return strings.TrimSuffix(rawPath, ".md") + "_report.md"
}

func (g *Generator) generate(ctx context.Context, rawPath, repositoryID, kind string, dryRun bool) (Output, error) {
	raw, err := os.ReadFile(rawPath)
	if errors.Is(err, os.ErrNotExist) {
		return Output{}, errortypes.ResourceNotFound(err, "raw activity file not found").WithField("path", rawPath)
	}
	if err != nil {
		return Output{}, errortypes.InternalError(err, "failed to read raw activity file").WithField("path", rawPath)
	}

	result, err := g.llm.GenerateReport(ctx, string(raw), repositoryID, dryRun)
	if err != nil {
		return Output{}, err
	}
	if result.DryRun {
		return Output{Report: result.Text, DryRun: true}, nil
	}

	reportPath := ReportPath(rawPath)
	if err := os.WriteFile(reportPath, []byte(result.Text), 0644); err != nil {
		return Output{}, errortypes.InternalError(err, "failed to write report").WithField("path", reportPath)
	}
	g.logger.Info("Report written", "repository", repositoryID, "path", reportPath)

	out := Output{Report: result.Text, Path: reportPath}
	if g.archive == nil {
		return out, nil
	}

	id, err := g.archive.Store(&reportstore.Report{
		Repository: repositoryID,
		Kind:       kind,
		Provider:   g.provider,
		Text:       result.Text,
		Source:     string(raw),
		SourcePath: rawPath,
		ReportPath: reportPath,
	})
	if err != nil {
		// The report is on disk; a failed archive write is not fatal.
		errortypes.LogError(g.logger, err)
		return out, nil
	}
	out.ID = id
	return out, nil
}
