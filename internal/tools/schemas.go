// Package tools defines the MCP tool names and their request and response
// shapes for the GitHub Sentinel service.
package tools

const (
	// ToolGenerateReport is the name of the generate_report MCP tool
	ToolGenerateReport = "generate_report"

	// ToolHackerNewsReport is the name of the hacker_news_report MCP tool
	ToolHackerNewsReport = "hacker_news_report"

	// ToolListSubscriptions is the name of the list_subscriptions MCP tool
	ToolListSubscriptions = "list_subscriptions"

	// ToolAddSubscription is the name of the add_subscription MCP tool
	ToolAddSubscription = "add_subscription"

	// ToolRemoveSubscription is the name of the remove_subscription MCP tool
	ToolRemoveSubscription = "remove_subscription"

	// ToolListReports is the name of the list_reports MCP tool
	ToolListReports = "list_reports"

	// ToolHealth is the name of the health MCP tool
	ToolHealth = "health"

	// DefaultListLimit is the number of archived reports returned when no
	// limit is given
	DefaultListLimit = 10
)

// ToolNames lists every tool the server registers.
var ToolNames = []string{
	ToolGenerateReport,
	ToolHackerNewsReport,
	ToolListSubscriptions,
	ToolAddSubscription,
	ToolRemoveSubscription,
	ToolListReports,
	ToolHealth,
}

// Response statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// GenerateReportRequest defines the input schema for generate_report tool
type GenerateReportRequest struct {
	// Repository is the owner/name of the GitHub repository
	Repository string `json:"repository"`

	// Days is the report window in days; defaults to 2
	Days int `json:"days,omitempty"`

	// Since overrides Days with a date such as "last week" or "2024-11-01"
	Since string `json:"since,omitempty"`

	// DryRun writes the prompt to disk instead of calling the model
	DryRun bool `json:"dry_run,omitempty"`
}

// ReportResponse defines the output schema for the report tools
type ReportResponse struct {
	Status string `json:"status"`
	Report string `json:"report,omitempty"`
	Path   string `json:"path,omitempty"`
	ID     string `json:"id,omitempty"`
	DryRun bool   `json:"dry_run,omitempty"`
	Error  string `json:"error,omitempty"`
}

// HackerNewsReportRequest defines the input schema for hacker_news_report tool
type HackerNewsReportRequest struct {
	DryRun bool `json:"dry_run,omitempty"`
}

// ListSubscriptionsRequest defines the input schema for list_subscriptions tool
type ListSubscriptionsRequest struct{}

// SubscriptionRequest defines the input schema for add_subscription and
// remove_subscription
type SubscriptionRequest struct {
	Repository string `json:"repository"`
}

// SubscriptionsResponse carries the subscription list after the operation
type SubscriptionsResponse struct {
	Status        string   `json:"status"`
	Subscriptions []string `json:"subscriptions"`
	Error         string   `json:"error,omitempty"`
}

// ListReportsRequest defines the input schema for list_reports tool
type ListReportsRequest struct {
	// Repository filters the archive; empty lists everything
	Repository string `json:"repository,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// ReportSummary is one archived report without its raw source
type ReportSummary struct {
	ID         string `json:"id"`
	Repository string `json:"repository"`
	Kind       string `json:"kind"`
	CreatedAt  string `json:"created_at"`
	Report     string `json:"report"`
}

// ListReportsResponse defines the output schema for list_reports tool
type ListReportsResponse struct {
	Status  string          `json:"status"`
	Reports []ReportSummary `json:"reports"`
	Error   string          `json:"error,omitempty"`
}

// HealthRequest defines the input schema for health tool
type HealthRequest struct{}

// HealthResponse defines the output schema for health tool
type HealthResponse struct {
	Status            string  `json:"status"`
	Health            string  `json:"health"`
	Provider          string  `json:"provider"`
	Model             string  `json:"model"`
	ProviderAvailable bool    `json:"provider_available"`
	SuccessRate       float64 `json:"success_rate"`
	TotalRequests     int64   `json:"total_requests"`
	Metrics           string  `json:"metrics,omitempty"`
	Error             string  `json:"error,omitempty"`
}
