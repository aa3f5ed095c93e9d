package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/localrivet/githubsentinel/internal/errortypes"
)

// DefaultOllamaURL is the chat endpoint of a local Ollama server.
const DefaultOllamaURL = "http://localhost:11434/api/chat"

// OllamaProvider talks to a self-hosted Ollama server. Responses are never
// streamed.
type OllamaProvider struct {
	Config
	httpClient *http.Client
	logger     *slog.Logger
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

// Message is a pointer so a missing object is distinguishable from an
// empty one in logs.
type ollamaChatResponse struct {
	Message *ollamaMessage `json:"message"`
	Error   string         `json:"error,omitempty"`
}

// NewOllamaProvider creates a new instance of the Ollama provider
func NewOllamaProvider(config Config, httpClient *http.Client, logger *slog.Logger) *OllamaProvider {
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OllamaProvider{
		Config:     config,
		httpClient: httpClient,
		logger:     logger.WithGroup(string(KindOllama)),
	}
}

// Name returns the provider name
func (o *OllamaProvider) Name() string {
	return string(KindOllama)
}

// Endpoint returns the configured chat URL.
func (o *OllamaProvider) Endpoint() string {
	if o.BaseURL == "" {
		return DefaultOllamaURL
	}
	return o.BaseURL
}

// Complete posts {model, messages, stream:false} and returns message.content.
func (o *OllamaProvider) Complete(ctx context.Context, conv Conversation, model string) (string, error) {
	o.logger.Info("Generating report with Ollama", "model", model, "messages", len(conv))

	reqBody := ollamaChatRequest{
		Model:    model,
		Messages: make([]ollamaMessage, 0, len(conv)),
		Stream:   false,
	}
	for _, m := range conv {
		reqBody.Messages = append(reqBody.Messages, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", o.fail(errortypes.ProviderCallFailed(err, "ollama: marshal request"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", o.fail(errortypes.ProviderCallFailed(err, "ollama: create request"))
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", o.fail(errortypes.ProviderCallFailed(err, "ollama: request"))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", o.fail(errortypes.ProviderCallFailed(err, "ollama: read response"))
	}
	o.logger.Debug("Ollama response", "status", resp.StatusCode, "elapsed", time.Since(start), "body", snippet(respBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", o.fail(errortypes.ProviderCallFailed(
			statusError("ollama", resp.StatusCode, respBody), "ollama: unexpected status").
			WithField("status_code", resp.StatusCode))
	}

	var chatResp ollamaChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", o.fail(errortypes.ProviderResponseMalformed(err, "ollama: decode response"))
	}

	if chatResp.Message == nil || strings.TrimSpace(chatResp.Message.Content) == "" {
		cause := errors.New("message.content missing or empty")
		if chatResp.Error != "" {
			cause = errors.New(chatResp.Error)
		}
		return "", o.fail(errortypes.ProviderResponseMalformed(cause, "ollama: no report content in response"))
	}

	return chatResp.Message.Content, nil
}

// Available reports whether the Ollama server answers on its root URL.
func (o *OllamaProvider) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	root := o.Endpoint()
	if i := strings.Index(root, "/api/"); i >= 0 {
		root = root[:i]
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(root, "/")+"/", nil)
	if err != nil {
		return false
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// fail tags err with the provider, logs it and returns it.
func (o *OllamaProvider) fail(err *errortypes.AppError) error {
	err.WithField("provider", o.Name()).WithField("endpoint", o.Endpoint())
	errortypes.LogError(o.logger, err)
	return err
}
