package github

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cbroglie/mustache"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/localrivet/githubsentinel/internal/errortypes"
)

const dateLayout = "2006-01-02"

// progressTemplate renders Updates as the raw markdown fed to the model.
const progressTemplate = `# Progress for {{{repository}}} ({{{since}}} to {{{until}}})

## Commits
{{#commits}}
- {{{message}}} ({{{author}}}, {{{short_sha}}})
{{/commits}}
{{^commits}}
- No commits
{{/commits}}

## Issues
{{#issues}}
- {{{title}}} #{{number}} [{{state}}]
{{/issues}}
{{^issues}}
- No issues
{{/issues}}

## Pull Requests
{{#pull_requests}}
- {{{title}}} #{{number}} [{{state}}]
{{/pull_requests}}
{{^pull_requests}}
- No pull requests
{{/pull_requests}}
`

// Exporter writes repository activity to markdown files under a progress
// directory.
type Exporter struct {
	client *Client
	dir    string
	now    func() time.Time
}

// NewExporter creates an exporter writing below dir.
func NewExporter(client *Client, dir string) *Exporter {
	return &Exporter{client: client, dir: dir, now: time.Now}
}

// SetClock replaces the time source.
func (e *Exporter) SetClock(now func() time.Time) {
	e.now = now
}

// RenderMarkdown renders updates with the progress template.
func RenderMarkdown(u *Updates) (string, error) {
	commits := make([]map[string]interface{}, 0, len(u.Commits))
	for _, c := range u.Commits {
		sha := c.SHA
		if len(sha) > 7 {
			sha = sha[:7]
		}
		commits = append(commits, map[string]interface{}{
			"message":   c.Message,
			"author":    c.Author,
			"short_sha": sha,
		})
	}

	data := map[string]interface{}{
		"repository":    u.Repository,
		"since":         u.Since.Format(dateLayout),
		"until":         u.Until.Format(dateLayout),
		"commits":       commits,
		"issues":        issueData(u.Issues),
		"pull_requests": issueData(u.PullRequests),
	}

	out, err := mustache.Render(progressTemplate, data)
	if err != nil {
		return "", errortypes.InternalError(err, "failed to render progress markdown")
	}
	return out, nil
}

func issueData(issues []Issue) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(issues))
	for _, i := range issues {
		out = append(out, map[string]interface{}{
			"title":  i.Title,
			"number": i.Number,
			"state":  i.State,
		})
	}
	return out
}

// ExportDaily exports the last 24 hours of activity to
// <dir>/<owner_repo>/<YYYY-MM-DD>.md.
func (e *Exporter) ExportDaily(ctx context.Context, repo string) (string, error) {
	now := e.now()
	return e.export(ctx, repo, now.Add(-24*time.Hour), now, now.Format(dateLayout))
}

// ExportProgressByDateRange exports the last days days of activity to
// <dir>/<owner_repo>/<since>_to_<until>.md.
func (e *Exporter) ExportProgressByDateRange(ctx context.Context, repo string, days int) (string, error) {
	if days < 1 {
		return "", errortypes.ValidationError(fmt.Errorf("days must be positive, got %d", days), "invalid date range")
	}
	now := e.now()
	since := now.AddDate(0, 0, -days)
	name := fmt.Sprintf("%s_to_%s", since.Format(dateLayout), now.Format(dateLayout))
	return e.export(ctx, repo, since, now, name)
}

// ExportSince exports activity from since until now.
func (e *Exporter) ExportSince(ctx context.Context, repo string, since time.Time) (string, error) {
	now := e.now()
	if !since.Before(now) {
		return "", errortypes.ValidationError(fmt.Errorf("since %s is not in the past", since.Format(time.RFC3339)), "invalid date range")
	}
	name := fmt.Sprintf("%s_to_%s", since.Format(dateLayout), now.Format(dateLayout))
	return e.export(ctx, repo, since, now, name)
}

func (e *Exporter) export(ctx context.Context, repo string, since, until time.Time, name string) (string, error) {
	updates, err := e.client.FetchUpdates(ctx, repo, since, until)
	if err != nil {
		return "", err
	}

	markdown, err := RenderMarkdown(updates)
	if err != nil {
		return "", err
	}

	repoDir := filepath.Join(e.dir, strings.ReplaceAll(repo, "/", "_"))
	if err := os.MkdirAll(repoDir, 0755); err != nil {
		return "", errortypes.InternalError(err, "failed to create progress directory").WithField("path", repoDir)
	}

	path := filepath.Join(repoDir, name+".md")
	if err := os.WriteFile(path, []byte(markdown), 0644); err != nil {
		return "", errortypes.InternalError(err, "failed to write progress file").WithField("path", path)
	}

	e.client.logger.Info("Exported progress", "repository", repo, "path", path,
		"commits", len(updates.Commits), "issues", len(updates.Issues), "pull_requests", len(updates.PullRequests))
	return path, nil
}

// ParseSince turns "yesterday", "last week", "3 days ago" or a date such as
// 2024-11-01 into a point in time relative to now.
func ParseSince(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, errortypes.ValidationError(errors.New("empty date"), "since is required")
	}

	for _, layout := range []string{dateLayout, time.RFC3339, "2006/01/02"} {
		if t, err := time.ParseInLocation(layout, text, now.Location()); err == nil {
			return t, nil
		}
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	result, err := w.Parse(text, now)
	if err != nil || result == nil {
		cause := err
		if cause == nil {
			cause = fmt.Errorf("unrecognized date %q", text)
		}
		return time.Time{}, errortypes.ValidationError(cause, "could not parse date").WithField("since", text)
	}
	return result.Time, nil
}
