package telemetry

import (
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	// StatusHealthy indicates a component is fully operational
	StatusHealthy HealthStatus = "healthy"

	// StatusDegraded indicates the provider is reachable but recent calls failed
	StatusDegraded HealthStatus = "degraded"

	// StatusUnhealthy indicates the provider cannot be reached
	StatusUnhealthy HealthStatus = "unhealthy"
)

// HealthReport describes the report pipeline.
type HealthReport struct {
	Status            HealthStatus `json:"status"`
	Timestamp         time.Time    `json:"timestamp"`
	Provider          string       `json:"provider"`
	Model             string       `json:"model"`
	ProviderAvailable bool         `json:"provider_available"`
	ResponseTimeMS    float64      `json:"response_time_ms"`
	SuccessRate       float64      `json:"success_rate"`
	TotalRequests     int64        `json:"total_requests"`
	DryRuns           int64        `json:"dry_runs"`
	Subscriptions     int64        `json:"subscriptions"`
	Version           string       `json:"version"`
}

// Version is reported by health checks.
const Version = "0.3.0"

// CreateHealthReport summarizes the metrics for provider. available is the
// result of a reachability probe.
func CreateHealthReport(m *MetricsCollector, provider, model string, available bool) HealthReport {
	success := m.GetCounter(ForProvider(MetricProviderSuccess, provider))
	failure := m.GetCounter(ForProvider(MetricProviderFailure, provider))
	calls := success + failure

	var successRate float64
	if calls > 0 {
		successRate = float64(success) / float64(calls) * 100.0
	}

	status := StatusHealthy
	switch {
	case !available:
		status = StatusUnhealthy
	case calls > 0 && success == 0:
		status = StatusDegraded
	}

	return HealthReport{
		Status:            status,
		Timestamp:         time.Now(),
		Provider:          provider,
		Model:             model,
		ProviderAvailable: available,
		ResponseTimeMS:    float64(m.GetTimerAverage(ForProvider(MetricProviderResponseTime, provider))) / float64(time.Millisecond),
		SuccessRate:       successRate,
		TotalRequests:     m.GetCounter(MetricReportRequests),
		DryRuns:           m.GetCounter(MetricReportDryRuns),
		Subscriptions:     int64(m.GetGauge(MetricSubscriptionsCount)),
		Version:           Version,
	}
}
