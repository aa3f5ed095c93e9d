// Package github fetches repository activity from the GitHub REST API and
// exports it as markdown for report generation.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/localrivet/githubsentinel/internal/errortypes"
	"github.com/localrivet/githubsentinel/internal/subscription"
)

// DefaultAPIURL is the public GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com"

const perPage = 100

// Commit is a single commit on the default branch.
type Commit struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
	URL     string    `json:"url"`
}

// Issue is an issue or pull request.
type Issue struct {
	Number      int       `json:"number"`
	Title       string    `json:"title"`
	State       string    `json:"state"`
	User        string    `json:"user"`
	URL         string    `json:"url"`
	UpdatedAt   time.Time `json:"updated_at"`
	PullRequest bool      `json:"pull_request"`
}

// Updates is the activity of one repository over a time window.
type Updates struct {
	Repository   string    `json:"repository"`
	Since        time.Time `json:"since"`
	Until        time.Time `json:"until"`
	Commits      []Commit  `json:"commits"`
	Issues       []Issue   `json:"issues"`
	PullRequests []Issue   `json:"pull_requests"`
}

// Client talks to the GitHub REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client. An empty token makes unauthenticated calls.
func NewClient(baseURL, token string, httpClient *http.Client, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		logger:     logger.WithGroup("github"),
	}
}

// FetchUpdates returns commits, issues and pull requests touched between
// since and until.
func (c *Client) FetchUpdates(ctx context.Context, repo string, since, until time.Time) (*Updates, error) {
	if err := subscription.ValidateRepo(repo); err != nil {
		return nil, err
	}
	c.logger.Debug("Fetching updates", "repository", repo, "since", since, "until", until)

	commits, err := c.fetchCommits(ctx, repo, since, until)
	if err != nil {
		return nil, err
	}

	issues, pulls, err := c.fetchIssues(ctx, repo, since, until)
	if err != nil {
		return nil, err
	}

	return &Updates{
		Repository:   repo,
		Since:        since,
		Until:        until,
		Commits:      commits,
		Issues:       issues,
		PullRequests: pulls,
	}, nil
}

type apiCommit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
	Commit  struct {
		Message string `json:"message"`
		Author  struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

type apiIssue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	State     string    `json:"state"`
	HTMLURL   string    `json:"html_url"`
	UpdatedAt time.Time `json:"updated_at"`
	User      struct {
		Login string `json:"login"`
	} `json:"user"`
	PullRequest *json.RawMessage `json:"pull_request"`
}

func (c *Client) fetchCommits(ctx context.Context, repo string, since, until time.Time) ([]Commit, error) {
	q := url.Values{}
	q.Set("since", since.UTC().Format(time.RFC3339))
	q.Set("until", until.UTC().Format(time.RFC3339))
	q.Set("per_page", fmt.Sprint(perPage))

	var raw []apiCommit
	if err := c.get(ctx, "/repos/"+repo+"/commits", q, &raw); err != nil {
		return nil, err
	}

	commits := make([]Commit, 0, len(raw))
	for _, rc := range raw {
		msg, _, _ := strings.Cut(rc.Commit.Message, "\n")
		commits = append(commits, Commit{
			SHA:     rc.SHA,
			Message: msg,
			Author:  rc.Commit.Author.Name,
			Date:    rc.Commit.Author.Date,
			URL:     rc.HTMLURL,
		})
	}
	return commits, nil
}

// fetchIssues reads the issues endpoint, which lists pull requests too, and
// splits the two.
func (c *Client) fetchIssues(ctx context.Context, repo string, since, until time.Time) ([]Issue, []Issue, error) {
	q := url.Values{}
	q.Set("state", "all")
	q.Set("since", since.UTC().Format(time.RFC3339))
	q.Set("per_page", fmt.Sprint(perPage))

	var raw []apiIssue
	if err := c.get(ctx, "/repos/"+repo+"/issues", q, &raw); err != nil {
		return nil, nil, err
	}

	issues := []Issue{}
	pulls := []Issue{}
	for _, ri := range raw {
		if !until.IsZero() && ri.UpdatedAt.After(until) {
			continue
		}
		issue := Issue{
			Number:      ri.Number,
			Title:       ri.Title,
			State:       ri.State,
			User:        ri.User.Login,
			URL:         ri.HTMLURL,
			UpdatedAt:   ri.UpdatedAt,
			PullRequest: ri.PullRequest != nil,
		}
		if issue.PullRequest {
			pulls = append(pulls, issue)
		} else {
			issues = append(issues, issue)
		}
	}
	return issues, pulls, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errortypes.InternalError(err, "failed to create GitHub request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		appErr := errortypes.NetworkError(err, "GitHub request failed").WithField("path", path)
		errortypes.LogError(c.logger, appErr)
		return appErr
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errortypes.NetworkError(err, "failed to read GitHub response").WithField("path", path)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errortypes.ResourceNotFound(
			fmt.Errorf("github: %s not found", path), "repository not found").WithField("path", path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		appErr := errortypes.ExternalError(
			fmt.Errorf("github: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			"GitHub API returned an error status").
			WithField("path", path).
			WithField("status_code", resp.StatusCode)
		errortypes.LogError(c.logger, appErr)
		return appErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errortypes.ExternalError(err, "failed to decode GitHub response").WithField("path", path)
	}
	return nil
}
