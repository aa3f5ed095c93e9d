package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/localrivet/configurator"
)

// Config represents the GitHub Sentinel configuration
type Config struct {
	// LLM selects and configures the report-generation backend.
	LLM struct {
		// Provider is the backend kind: "openai" ("hosted") or "ollama" ("self-hosted").
		Provider string `json:"provider" env:"LLM_PROVIDER" validate:"required"`

		OpenAI struct {
			APIKey  string `json:"api_key" env:"OPENAI_API_KEY"`
			BaseURL string `json:"base_url" env:"OPENAI_BASE_URL"`
			Model   string `json:"model" env:"OPENAI_MODEL"`
		} `json:"openai"`

		Ollama struct {
			// APIURL is the full chat endpoint, e.g. http://localhost:11434/api/chat.
			APIURL string `json:"api_url" env:"OLLAMA_API_URL"`
			Model  string `json:"model" env:"OLLAMA_MODEL"`
		} `json:"ollama"`

		// Timeout bounds each provider call ("90s", "2m"). Empty means no timeout.
		Timeout string `json:"timeout" env:"LLM_TIMEOUT"`

		// DryRunPath is where dry-run conversations are written.
		DryRunPath string `json:"dry_run_path" env:"DRY_RUN_PATH"`
	} `json:"llm"`

	GitHub struct {
		Token  string `json:"token" env:"GITHUB_TOKEN"`
		APIURL string `json:"api_url" env:"GITHUB_API_URL"`
	} `json:"github"`

	HackerNews struct {
		URL string `json:"url" env:"HACKER_NEWS_URL"`
	} `json:"hacker_news"`

	Storage struct {
		// PromptsRoot is the directory that contains prompts/<repo>.txt.
		PromptsRoot       string `json:"prompts_root" env:"PROMPTS_ROOT"`
		ProgressDir       string `json:"progress_dir" env:"PROGRESS_DIR"`
		SubscriptionsFile string `json:"subscriptions_file" env:"SUBSCRIPTIONS_FILE" validate:"required"`
		SQLitePath        string `json:"sqlite_path" env:"SQLITE_PATH" validate:"required"`
	} `json:"storage"`

	GUI struct {
		Addr string `json:"addr" env:"GUI_ADDR"`
	} `json:"gui"`

	// Logging contains logging-related configuration.
	Logging struct {
		// Level is the minimum log level to display ("debug", "info", "warn", "error").
		Level string `json:"level" env:"LOG_LEVEL" validate:"required"`

		// Format is the log format to use ("text", "json").
		Format string `json:"format" env:"LOG_FORMAT"`
	} `json:"logging"`

	// Internal state (not saved to config file)
	configPath     string       `json:"-"`
	mutex          sync.RWMutex `json:"-"`
	lastModifiedAt time.Time    `json:"-"`
}

// Default configuration values
const (
	DefaultConfigFilename    = "config.json"
	DefaultEnvPrefix         = "SENTINEL"
	DefaultProvider          = "openai"
	DefaultOpenAIBaseURL     = "https://api.openai.com/v1"
	DefaultOpenAIModel       = "gpt-4o-mini"
	DefaultOllamaAPIURL      = "http://localhost:11434/api/chat"
	DefaultOllamaModel       = "llama3"
	DefaultDryRunPath        = "daily_progress/prompt.txt"
	DefaultGitHubAPIURL      = "https://api.github.com"
	DefaultHackerNewsURL     = "https://news.ycombinator.com/"
	DefaultPromptsRoot       = "."
	DefaultProgressDir       = "daily_progress"
	DefaultSubscriptionsFile = "subscriptions.json"
	DefaultSQLitePath        = "daily_progress/reports.db"
	DefaultGUIAddr           = "127.0.0.1:7860"
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// NewConfig creates a new Config instance with default values
func NewConfig() *Config {
	cfg := &Config{}
	cfg.LLM.Provider = DefaultProvider
	cfg.LLM.OpenAI.BaseURL = DefaultOpenAIBaseURL
	cfg.LLM.OpenAI.Model = DefaultOpenAIModel
	cfg.LLM.Ollama.APIURL = DefaultOllamaAPIURL
	cfg.LLM.Ollama.Model = DefaultOllamaModel
	cfg.LLM.DryRunPath = DefaultDryRunPath
	cfg.GitHub.APIURL = DefaultGitHubAPIURL
	cfg.HackerNews.URL = DefaultHackerNewsURL
	cfg.Storage.PromptsRoot = DefaultPromptsRoot
	cfg.Storage.ProgressDir = DefaultProgressDir
	cfg.Storage.SubscriptionsFile = DefaultSubscriptionsFile
	cfg.Storage.SQLitePath = DefaultSQLitePath
	cfg.GUI.Addr = DefaultGUIAddr
	cfg.Logging.Level = DefaultLogLevel
	cfg.Logging.Format = DefaultLogFormat
	return cfg
}

// LoadConfig loads the configuration from the default path
func LoadConfig(logger *slog.Logger) (*Config, error) {
	return LoadConfigWithPath(DefaultConfigFilename, logger)
}

// LoadConfigWithPath loads the configuration from a specific path. Values are
// layered defaults, then the file, then SENTINEL_* environment variables.
func LoadConfigWithPath(configPath string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := NewConfig()

	if configPath == "" {
		configPath = DefaultConfigFilename
	}
	if configPath == DefaultConfigFilename {
		foundPath, err := configurator.FindConfigFile(configPath)
		if err == nil {
			configPath = foundPath
			logger.Debug("Found config file", "path", foundPath)
		}
	}

	loader := configurator.New(logger).
		WithProvider(configurator.NewDefaultProvider()).
		WithValidator(configurator.NewDefaultValidator())

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		logger.Info("Config file not found, using defaults and environment", "path", configPath)
	} else {
		logger.Info("Loading configuration", "path", configPath)
		loader = loader.WithProvider(configurator.NewFileProvider(configPath))
	}
	loader = loader.WithProvider(configurator.NewEnvProvider(DefaultEnvPrefix))

	if err := loader.Load(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg.applySecretFallbacks()

	cfg.configPath = configPath
	cfg.lastModifiedAt = time.Now()

	return cfg, nil
}

// applySecretFallbacks honours the unprefixed variables most users already
// export for these two services.
func (c *Config) applySecretFallbacks() {
	if c.LLM.OpenAI.APIKey == "" {
		c.LLM.OpenAI.APIKey = os.Getenv("OPEN_API_KEY")
	}
	if c.LLM.OpenAI.APIKey == "" {
		c.LLM.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.GitHub.Token == "" {
		c.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
}

// SaveToFile saves the configuration to the specified file
func (c *Config) SaveToFile(path string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := configurator.SaveToFile(c, path, configurator.FormatJSON); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	c.configPath = path
	c.lastModifiedAt = time.Now()

	return nil
}

// Save saves the configuration to the last used file path
func (c *Config) Save() error {
	if c.configPath == "" {
		c.configPath = DefaultConfigFilename
	}
	return c.SaveToFile(c.configPath)
}

// GetConfigPath returns the path of the currently loaded configuration file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// LLMTimeout parses LLM.Timeout. An empty value yields zero (no timeout).
func (c *Config) LLMTimeout() (time.Duration, error) {
	s := strings.TrimSpace(c.LLM.Timeout)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid llm.timeout %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid llm.timeout %q: must not be negative", s)
	}
	return d, nil
}

// PromptsDir is the directory holding the per-repository prompt files.
func (c *Config) PromptsDir() string {
	return filepath.Join(c.Storage.PromptsRoot, "prompts")
}
