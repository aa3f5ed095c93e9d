package providers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/localrivet/githubsentinel/internal/errortypes"
)

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func openAIReply(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]interface{}{"role": "assistant", "content": content}},
		},
	}
}

func TestOpenAIComplete(t *testing.T) {
	srv, reqs := MockServer(t, MockResponseConfig{
		StatusCode:   http.StatusOK,
		ResponseBody: openAIReply("Report A"),
	})
	logger, _ := captureLogger()

	p := NewOpenAIProvider(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/"}, nil, logger)
	conv := NewConversation("You summarize GitHub activity.", "## Commits\n- fix bug")

	got, err := p.Complete(context.Background(), conv, "gpt-4o-mini")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Report A" {
		t.Errorf("got %q, want %q", got, "Report A")
	}

	recorded := reqs.Requests()
	if len(recorded) != 1 {
		t.Fatalf("Expected exactly one request, got %d", len(recorded))
	}
	req := recorded[0]
	if req.Method != http.MethodPost || req.Path != "/v1/chat/completions" {
		t.Errorf("Unexpected request %s %s", req.Method, req.Path)
	}
	if req.Header.Get("Authorization") != "Bearer sk-test" {
		t.Errorf("Unexpected Authorization header %q", req.Header.Get("Authorization"))
	}
	if req.Body["model"] != "gpt-4o-mini" {
		t.Errorf("model: got %v", req.Body["model"])
	}

	msgs, ok := req.Body["messages"].([]interface{})
	if !ok || len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %v", req.Body["messages"])
	}
	first := msgs[0].(map[string]interface{})
	second := msgs[1].(map[string]interface{})
	if first["role"] != "system" || first["content"] != "You summarize GitHub activity." {
		t.Errorf("Unexpected first message %v", first)
	}
	if second["role"] != "user" || second["content"] != "## Commits\n- fix bug" {
		t.Errorf("Unexpected second message %v", second)
	}
	if _, hasStream := req.Body["stream"]; hasStream {
		t.Error("OpenAI request must not carry a stream field")
	}
}

func TestOpenAIDoesNotMutateConversation(t *testing.T) {
	srv, _ := MockServer(t, MockResponseConfig{ResponseBody: openAIReply("ok")})
	logger, _ := captureLogger()
	p := NewOpenAIProvider(Config{BaseURL: srv.URL}, nil, logger)

	conv := NewConversation("system", "user")
	if _, err := p.Complete(context.Background(), conv, "m"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if conv[0] != (Message{Role: RoleSystem, Content: "system"}) || conv[1] != (Message{Role: RoleUser, Content: "user"}) {
		t.Errorf("Conversation was mutated: %+v", conv)
	}
}

func TestOpenAIErrorStatus(t *testing.T) {
	srv, _ := MockServer(t, MockResponseConfig{
		StatusCode:   http.StatusUnauthorized,
		ResponseBody: `{"error":{"message":"bad key","type":"invalid_request_error"}}`,
	})
	logger, logs := captureLogger()
	p := NewOpenAIProvider(Config{BaseURL: srv.URL}, nil, logger)

	_, err := p.Complete(context.Background(), NewConversation("s", "u"), "m")
	if !errortypes.IsProviderCallFailed(err) {
		t.Fatalf("Expected ProviderCallFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("Expected status in error, got %v", err)
	}
	if !strings.Contains(logs.String(), "provider_call_failed") {
		t.Errorf("Expected failure to be logged, got: %s", logs.String())
	}
}

func TestOpenAIMalformedBody(t *testing.T) {
	srv, _ := MockServer(t, MockResponseConfig{ResponseBody: "not json"})
	logger, _ := captureLogger()
	p := NewOpenAIProvider(Config{BaseURL: srv.URL}, nil, logger)

	_, err := p.Complete(context.Background(), NewConversation("s", "u"), "m")
	if !errortypes.IsProviderCallFailed(err) {
		t.Fatalf("Expected ProviderCallFailed for undecodable body, got %v", err)
	}
}

func TestOpenAIAPIErrorObject(t *testing.T) {
	srv, _ := MockServer(t, MockResponseConfig{
		ResponseBody: `{"error":{"message":"model overloaded","type":"server_error"}}`,
	})
	logger, _ := captureLogger()
	p := NewOpenAIProvider(Config{BaseURL: srv.URL}, nil, logger)

	_, err := p.Complete(context.Background(), NewConversation("s", "u"), "m")
	if !errortypes.IsProviderCallFailed(err) {
		t.Fatalf("Expected ProviderCallFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Errorf("Expected API message in error, got %v", err)
	}
}

func TestOpenAIEmptyChoices(t *testing.T) {
	srv, _ := MockServer(t, MockResponseConfig{ResponseBody: `{"choices":[]}`})
	logger, _ := captureLogger()
	p := NewOpenAIProvider(Config{BaseURL: srv.URL}, nil, logger)

	_, err := p.Complete(context.Background(), NewConversation("s", "u"), "m")
	if !errortypes.IsProviderResponseMalformed(err) {
		t.Fatalf("Expected ProviderResponseMalformed, got %v", err)
	}
}

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func TestOpenAITransportError(t *testing.T) {
	logger, logs := captureLogger()
	client := &http.Client{Transport: failingTransport{}}
	p := NewOpenAIProvider(Config{BaseURL: "http://llm.invalid"}, client, logger)

	_, err := p.Complete(context.Background(), NewConversation("s", "u"), "m")
	if !errortypes.IsProviderCallFailed(err) {
		t.Fatalf("Expected ProviderCallFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("Expected cause in error, got %v", err)
	}
	if !strings.Contains(logs.String(), "connection refused") {
		t.Errorf("Expected failure to be logged, got: %s", logs.String())
	}
}

func TestOpenAIEndpointDefaults(t *testing.T) {
	p := NewOpenAIProvider(Config{}, nil, nil)
	if p.Endpoint() != "https://api.openai.com/v1/chat/completions" {
		t.Errorf("Unexpected endpoint %q", p.Endpoint())
	}
	if p.Name() != "openai" {
		t.Errorf("Unexpected name %q", p.Name())
	}
	if p.Available(context.Background()) {
		t.Error("Expected unavailable without API key")
	}
}
