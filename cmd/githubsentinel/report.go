package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/localrivet/githubsentinel/internal/reportgen"
)

var (
	reportRepo   string
	reportDays   int
	reportSince  string
	reportDryRun bool
	hnDryRun     bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a progress report for a repository",
	Long: `Export recent activity of a repository and generate a report.

Without --repo every subscribed repository is reported on.

Examples:
  githubsentinel report --repo langchain-ai/langchain
  githubsentinel report --repo octo/hello --days 7
  githubsentinel report --repo octo/hello --since "last week"
  githubsentinel report --repo octo/hello --dry-run`,
	RunE: runReport,
}

var hackerNewsCmd = &cobra.Command{
	Use:   "hackernews",
	Short: "Generate a report on the Hacker News front page",
	RunE:  runHackerNews,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVar(&reportRepo, "repo", "", "Repository (owner/name)")
	reportCmd.Flags().IntVar(&reportDays, "days", reportgen.DefaultDays, "Number of days to cover")
	reportCmd.Flags().StringVar(&reportSince, "since", "", `Start of the window, e.g. "yesterday" or 2024-11-01`)
	reportCmd.Flags().BoolVar(&reportDryRun, "dry-run", false, "Write the prompt instead of calling the provider")

	rootCmd.AddCommand(hackerNewsCmd)
	hackerNewsCmd.Flags().BoolVar(&hnDryRun, "dry-run", false, "Write the prompt instead of calling the provider")
}

func runReport(cmd *cobra.Command, args []string) error {
	s, err := openSentinel()
	if err != nil {
		return err
	}
	defer s.Close()

	repos := []string{reportRepo}
	if reportRepo == "" {
		repos, err = s.ListSubscriptions()
		if err != nil {
			return err
		}
		if len(repos) == 0 {
			return errors.New("no --repo given and no subscriptions; add one with 'githubsentinel subscriptions add owner/name'")
		}
	}

	ctx, stop := signalContext()
	defer stop()

	for _, repo := range repos {
		out, err := s.GenerateReport(ctx, reportgen.Request{
			Repository: repo,
			Days:       reportDays,
			Since:      reportSince,
			DryRun:     reportDryRun,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", repo, err)
		}
		printOutput(cmd, out)
	}
	return nil
}

func runHackerNews(cmd *cobra.Command, args []string) error {
	s, err := openSentinel()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signalContext()
	defer stop()

	out, err := s.GenerateHackerNewsReport(ctx, hnDryRun)
	if err != nil {
		return err
	}
	printOutput(cmd, out)
	return nil
}

func printOutput(cmd *cobra.Command, out reportgen.Output) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, out.Report)
	if out.Path != "" {
		fmt.Fprintf(w, "\nReport written to %s", out.Path)
		if out.ID != "" {
			fmt.Fprintf(w, " (archive id %s)", out.ID)
		}
		fmt.Fprintln(w)
	}
}
