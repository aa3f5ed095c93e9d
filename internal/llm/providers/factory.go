package providers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/localrivet/githubsentinel/internal/errortypes"
)

// ProviderFactory creates providers from per-kind configuration
type ProviderFactory struct {
	// ProviderConfigs stores configuration for each provider
	ProviderConfigs map[Kind]Config

	httpClient *http.Client
	logger     *slog.Logger
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(configs map[Kind]Config, httpClient *http.Client, logger *slog.Logger) *ProviderFactory {
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProviderFactory{
		ProviderConfigs: configs,
		httpClient:      httpClient,
		logger:          logger,
	}
}

// GetProvider returns an initialized provider for kind. Kinds without an
// adapter yield an UnsupportedProviderKind error.
func (f *ProviderFactory) GetProvider(kind Kind) (Provider, error) {
	var build func(Config) Provider
	switch kind {
	case KindOpenAI:
		build = func(c Config) Provider { return NewOpenAIProvider(c, f.httpClient, f.logger) }
	case KindOllama:
		build = func(c Config) Provider { return NewOllamaProvider(c, f.httpClient, f.logger) }
	default:
		return nil, errortypes.UnsupportedProviderKind(
			fmt.Errorf("unknown provider: %q", string(kind)), "unsupported provider kind").
			WithField("provider", string(kind))
	}

	config, exists := f.ProviderConfigs[kind]
	if !exists {
		return nil, errortypes.ConfigError(
			errors.New("missing provider section"),
			fmt.Sprintf("configuration for provider '%s' not found", kind))
	}

	return build(config), nil
}

// ModelFor returns the configured model for kind.
func (f *ProviderFactory) ModelFor(kind Kind) string {
	return f.ProviderConfigs[kind].Model
}
