package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/localrivet/githubsentinel/internal/errortypes"
)

// DefaultOpenAIBaseURL is used when no base URL is configured.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIProvider talks to a hosted OpenAI-compatible chat-completions API.
type OpenAIProvider struct {
	Config
	httpClient *http.Client
	logger     *slog.Logger
}

// OpenAIMessage represents a message in OpenAI's chat format
type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAIRequest represents a request to OpenAI's API
type OpenAIRequest struct {
	Model    string          `json:"model"`
	Messages []OpenAIMessage `json:"messages"`
}

// OpenAIResponse represents a response from OpenAI's API
type OpenAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIProvider creates a new instance of the OpenAI provider
func NewOpenAIProvider(config Config, httpClient *http.Client, logger *slog.Logger) *OpenAIProvider {
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIProvider{
		Config:     config,
		httpClient: httpClient,
		logger:     logger.WithGroup(string(KindOpenAI)),
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return string(KindOpenAI)
}

// Endpoint returns the chat-completions URL.
func (p *OpenAIProvider) Endpoint() string {
	base := p.BaseURL
	if base == "" {
		base = DefaultOpenAIBaseURL
	}
	return strings.TrimRight(base, "/") + "/chat/completions"
}

// Complete sends conv to the chat-completions endpoint and returns the first
// choice's content.
func (p *OpenAIProvider) Complete(ctx context.Context, conv Conversation, model string) (string, error) {
	p.logger.Info("Generating report with OpenAI", "model", model, "messages", len(conv))

	reqBody := OpenAIRequest{
		Model:    model,
		Messages: make([]OpenAIMessage, 0, len(conv)),
	}
	for _, m := range conv {
		reqBody.Messages = append(reqBody.Messages, OpenAIMessage{Role: string(m.Role), Content: m.Content})
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", p.fail(errortypes.ProviderCallFailed(err, "error marshaling request"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint(), bytes.NewReader(reqJSON))
	if err != nil {
		return "", p.fail(errortypes.ProviderCallFailed(err, "error creating request"))
	}
	req.Header.Set("Content-Type", "application/json")
	if p.APIKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.APIKey))
	}

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", p.fail(errortypes.ProviderCallFailed(err, "error sending request to OpenAI API"))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", p.fail(errortypes.ProviderCallFailed(err, "error reading response body"))
	}
	p.logger.Debug("OpenAI response", "status", resp.StatusCode, "elapsed", time.Since(start), "body", snippet(respBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", p.fail(errortypes.ProviderCallFailed(
			statusError("openai", resp.StatusCode, respBody), "OpenAI API returned an error status").
			WithField("status_code", resp.StatusCode))
	}

	var openaiResponse OpenAIResponse
	if err := json.Unmarshal(respBody, &openaiResponse); err != nil {
		return "", p.fail(errortypes.ProviderCallFailed(err, "error unmarshaling response"))
	}

	if openaiResponse.Error != nil {
		return "", p.fail(errortypes.ProviderCallFailed(
			fmt.Errorf("%s: %s", openaiResponse.Error.Type, openaiResponse.Error.Message),
			"OpenAI API error"))
	}

	if len(openaiResponse.Choices) == 0 || openaiResponse.Choices[0].Message.Content == "" {
		return "", p.fail(errortypes.ProviderResponseMalformed(
			errors.New("choices[0].message.content missing or empty"),
			"empty response from OpenAI API"))
	}

	return openaiResponse.Choices[0].Message.Content, nil
}

// fail tags err with the provider, logs it and returns it.
func (p *OpenAIProvider) fail(err *errortypes.AppError) error {
	err.WithField("provider", p.Name()).WithField("endpoint", p.Endpoint())
	errortypes.LogError(p.logger, err)
	return err
}

// Available reports whether an API key is configured. Hosted APIs are not
// probed to avoid spending quota.
func (p *OpenAIProvider) Available(_ context.Context) bool {
	return p.APIKey != ""
}
