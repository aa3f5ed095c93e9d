package github

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/localrivet/githubsentinel/internal/errortypes"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2024, 11, 5, 12, 0, 0, 0, time.UTC)

func fakeGitHub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/repos/octo/hello/commits", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer ghp-test" {
			t.Errorf("Expected token header, got %q", r.Header.Get("Authorization"))
		}
		if r.URL.Query().Get("since") == "" || r.URL.Query().Get("until") == "" {
			t.Errorf("Expected since/until query, got %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{
				"sha":      "0123456789abcdef",
				"html_url": "https://github.com/octo/hello/commit/0123456",
				"commit": map[string]interface{}{
					"message": "Fix crash on empty input\n\nLong body",
					"author":  map[string]interface{}{"name": "Mona", "date": "2024-11-04T10:00:00Z"},
				},
			},
		})
	})

	mux.HandleFunc("/repos/octo/hello/issues", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != "all" {
			t.Errorf("Expected state=all, got %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode([]map[string]interface{}{
			{"number": 7, "title": "Crash on <empty> input", "state": "closed", "updated_at": "2024-11-04T11:00:00Z", "user": map[string]string{"login": "mona"}},
			{"number": 8, "title": "Add retries", "state": "open", "updated_at": "2024-11-04T12:00:00Z", "user": map[string]string{"login": "hubot"}, "pull_request": map[string]string{"url": "x"}},
			{"number": 9, "title": "Future issue", "state": "open", "updated_at": "2024-12-01T00:00:00Z", "user": map[string]string{"login": "x"}},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchUpdates(t *testing.T) {
	srv := fakeGitHub(t)
	c := NewClient(srv.URL, "ghp-test", nil, quietLogger())

	u, err := c.FetchUpdates(context.Background(), "octo/hello", fixedNow.AddDate(0, 0, -2), fixedNow)
	if err != nil {
		t.Fatalf("FetchUpdates: %v", err)
	}

	if len(u.Commits) != 1 || u.Commits[0].Message != "Fix crash on empty input" || u.Commits[0].Author != "Mona" {
		t.Errorf("Unexpected commits %+v", u.Commits)
	}
	if len(u.Issues) != 1 || u.Issues[0].Number != 7 {
		t.Errorf("Unexpected issues %+v", u.Issues)
	}
	if len(u.PullRequests) != 1 || u.PullRequests[0].Number != 8 || !u.PullRequests[0].PullRequest {
		t.Errorf("Unexpected pull requests %+v", u.PullRequests)
	}
}

func TestFetchUpdatesNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := NewClient(srv.URL, "", nil, quietLogger())
	_, err := c.FetchUpdates(context.Background(), "octo/missing", fixedNow.Add(-time.Hour), fixedNow)
	if !errortypes.IsResourceNotFound(err) {
		t.Errorf("Expected ResourceNotFound, got %v", err)
	}
}

func TestFetchUpdatesInvalidRepo(t *testing.T) {
	c := NewClient("http://github.invalid", "", nil, quietLogger())
	_, err := c.FetchUpdates(context.Background(), "not-a-repo", fixedNow.Add(-time.Hour), fixedNow)
	if !errortypes.IsValidationError(err) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestExportProgressByDateRange(t *testing.T) {
	srv := fakeGitHub(t)
	dir := t.TempDir()

	e := NewExporter(NewClient(srv.URL, "ghp-test", nil, quietLogger()), dir)
	e.SetClock(func() time.Time { return fixedNow })

	path, err := e.ExportProgressByDateRange(context.Background(), "octo/hello", 2)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	want := filepath.Join(dir, "octo_hello", "2024-11-03_to_2024-11-05.md")
	if path != want {
		t.Errorf("got path %q, want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	md := string(data)
	for _, s := range []string{
		"# Progress for octo/hello (2024-11-03 to 2024-11-05)",
		"- Fix crash on empty input (Mona, 0123456)",
		"- Crash on <empty> input #7 [closed]",
		"- Add retries #8 [open]",
	} {
		if !strings.Contains(md, s) {
			t.Errorf("Expected %q in markdown:\n%s", s, md)
		}
	}
	if strings.Contains(md, "Future issue") {
		t.Error("Issues updated after the window must be excluded")
	}

	if _, err := e.ExportProgressByDateRange(context.Background(), "octo/hello", 0); !errortypes.IsValidationError(err) {
		t.Errorf("Expected validation error for zero days, got %v", err)
	}
}

func TestExportDaily(t *testing.T) {
	srv := fakeGitHub(t)
	dir := t.TempDir()

	e := NewExporter(NewClient(srv.URL, "ghp-test", nil, quietLogger()), dir)
	e.SetClock(func() time.Time { return fixedNow })

	path, err := e.ExportDaily(context.Background(), "octo/hello")
	if err != nil {
		t.Fatalf("ExportDaily: %v", err)
	}
	if filepath.Base(path) != "2024-11-05.md" {
		t.Errorf("Unexpected file %q", path)
	}
}

func TestRenderMarkdownEmpty(t *testing.T) {
	md, err := RenderMarkdown(&Updates{Repository: "a/b", Since: fixedNow, Until: fixedNow})
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"No commits", "No issues", "No pull requests"} {
		if !strings.Contains(md, s) {
			t.Errorf("Expected %q in:\n%s", s, md)
		}
	}
}

func TestParseSince(t *testing.T) {
	now := time.Date(2024, 11, 5, 12, 0, 0, 0, time.UTC)

	got, err := ParseSince("2024-11-01", now)
	if err != nil || !got.Equal(time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ParseSince(date) = %v, %v", got, err)
	}

	got, err = ParseSince("yesterday", now)
	if err != nil {
		t.Fatalf("ParseSince(yesterday): %v", err)
	}
	if got.Year() != 2024 || got.Month() != time.November || got.Day() != 4 {
		t.Errorf("Expected Nov 4, got %v", got)
	}

	got, err = ParseSince("3 days ago", now)
	if err != nil {
		t.Fatalf("ParseSince(3 days ago): %v", err)
	}
	if got.Day() != 2 {
		t.Errorf("Expected Nov 2, got %v", got)
	}

	for _, bad := range []string{"", "   ", "banana"} {
		if _, err := ParseSince(bad, now); !errortypes.IsValidationError(err) {
			t.Errorf("ParseSince(%q): expected validation error, got %v", bad, err)
		}
	}
}
