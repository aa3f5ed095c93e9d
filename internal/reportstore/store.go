// Package reportstore archives generated reports together with the raw
// activity they summarize.
package reportstore

import (
	"time"
)

// Report kinds
const (
	KindGitHubRange = "github_range"
	KindGitHubDaily = "github_daily"
	KindHackerNews  = "hacker_news"
)

// Report is one archived report.
type Report struct {
	ID         string    `json:"id"`
	Repository string    `json:"repository"`
	Kind       string    `json:"kind"`
	Provider   string    `json:"provider"`
	Text       string    `json:"text"`
	Source     string    `json:"source,omitempty"`
	SourcePath string    `json:"source_path"`
	ReportPath string    `json:"report_path"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReportStore defines the interface for storing and retrieving reports.
type ReportStore interface {
	// Store archives r and returns its id. An empty r.ID is generated.
	Store(r *Report) (string, error)

	// Get returns the report with id, including its raw source.
	Get(id string) (*Report, error)

	// List returns the newest reports first, without their raw source. An
	// empty repository lists every repository.
	List(repository string, limit int) ([]Report, error)

	// Close closes the store and releases any resources.
	Close() error
}
