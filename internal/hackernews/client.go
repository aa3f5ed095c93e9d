// Package hackernews scrapes the Hacker News front page.
package hackernews

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cbroglie/mustache"
	"golang.org/x/net/html"

	"github.com/localrivet/githubsentinel/internal/errortypes"
)

// DefaultURL is the front page.
const DefaultURL = "https://news.ycombinator.com/"

// ReportKey is the prompt and archive key for Hacker News reports.
const ReportKey = "hacker_news"

// Story is one front-page entry.
type Story struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

const storiesTemplate = `# Top Stories ({{date}})

{{#stories}}
- {{{title}}} #{{{link}}}
{{/stories}}
`

// Client fetches and exports front-page stories.
type Client struct {
	baseURL    string
	dir        string
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient creates a client that exports below dir.
func NewClient(baseURL, dir string, httpClient *http.Client, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		dir:        dir,
		httpClient: httpClient,
		logger:     logger.WithGroup("hacker_news"),
		now:        time.Now,
	}
}

// SetClock replaces the time source.
func (c *Client) SetClock(now func() time.Time) {
	c.now = now
}

// FetchTopStories returns the title/link pairs on the front page. A non-200
// reply or a page without stories yields an empty list, which is logged.
func (c *Client) FetchTopStories(ctx context.Context) ([]Story, error) {
	c.logger.Debug("Fetching top stories", "url", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, errortypes.InternalError(err, "failed to create Hacker News request")
	}
	req.Header.Set("User-Agent", "github-sentinel")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		appErr := errortypes.NetworkError(err, "Hacker News request failed").WithField("url", c.baseURL)
		errortypes.LogError(c.logger, appErr)
		return nil, appErr
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		c.logger.Error("Fetching top stories failed", "status", resp.StatusCode)
		return []Story{}, nil
	}

	stories, err := ParseStories(resp.Body, c.baseURL)
	if err != nil {
		appErr := errortypes.ExternalError(err, "failed to parse Hacker News page")
		errortypes.LogError(c.logger, appErr)
		return nil, appErr
	}
	if len(stories) == 0 {
		c.logger.Error("Front page contained no stories")
		return []Story{}, nil
	}

	c.logger.Debug("Fetched top stories", "count", len(stories))
	return stories, nil
}

// ParseStories extracts the anchors that are direct children of a
// span.titleline. Relative links are resolved against base.
func ParseStories(r io.Reader, base string) ([]Story, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	baseURL, _ := url.Parse(base)
	stories := []Story{}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "span" && hasClass(n, "titleline") {
			for child := n.FirstChild; child != nil; child = child.NextSibling {
				if child.Type == html.ElementNode && child.Data == "a" {
					stories = append(stories, Story{
						Title: strings.TrimSpace(textContent(child)),
						Link:  resolve(baseURL, attr(child, "href")),
					})
				}
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return stories, nil
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(textContent(child))
	}
	return b.String()
}

func resolve(base *url.URL, href string) string {
	if base == nil || href == "" {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// RenderMarkdown renders stories as the raw markdown fed to the model.
func RenderMarkdown(stories []Story, day time.Time) (string, error) {
	items := make([]map[string]string, 0, len(stories))
	for _, s := range stories {
		items = append(items, map[string]string{"title": s.Title, "link": s.Link})
	}
	out, err := mustache.Render(storiesTemplate, map[string]interface{}{
		"date":    day.Format("2006-01-02"),
		"stories": items,
	})
	if err != nil {
		return "", errortypes.InternalError(err, "failed to render stories")
	}
	return out, nil
}

// ExportStories writes today's stories to <dir>/hacker_news/<YYYY-MM-DD>.md
// and returns the path.
func (c *Client) ExportStories(ctx context.Context) (string, error) {
	stories, err := c.FetchTopStories(ctx)
	if err != nil {
		return "", err
	}

	today := c.now()
	markdown, err := RenderMarkdown(stories, today)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(c.dir, ReportKey)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errortypes.InternalError(err, "failed to create export directory").WithField("path", dir)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.md", today.Format("2006-01-02")))
	if err := os.WriteFile(path, []byte(markdown), 0644); err != nil {
		return "", errortypes.InternalError(err, "failed to write stories").WithField("path", path)
	}

	c.logger.Info("Exported top stories", "path", path, "count", len(stories))
	return path, nil
}
