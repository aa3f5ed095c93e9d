package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/localrivet/githubsentinel/internal/errortypes"
)

func TestOllamaComplete(t *testing.T) {
	srv, reqs := MockServer(t, MockResponseConfig{
		ResponseBody: map[string]interface{}{
			"model":   "llama3",
			"message": map[string]interface{}{"role": "assistant", "content": "Daily report"},
			"done":    true,
		},
	})
	logger, _ := captureLogger()

	p := NewOllamaProvider(Config{BaseURL: srv.URL + "/api/chat"}, nil, logger)
	got, err := p.Complete(context.Background(), NewConversation("prompt", "content"), "llama3")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Daily report" {
		t.Errorf("got %q, want %q", got, "Daily report")
	}

	recorded := reqs.Requests()
	if len(recorded) != 1 {
		t.Fatalf("Expected one request, got %d", len(recorded))
	}
	req := recorded[0]
	if req.Method != http.MethodPost || req.Path != "/api/chat" {
		t.Errorf("Unexpected request %s %s", req.Method, req.Path)
	}
	if req.Body["model"] != "llama3" {
		t.Errorf("model: got %v", req.Body["model"])
	}
	if stream, ok := req.Body["stream"].(bool); !ok || stream {
		t.Errorf("Expected stream=false, got %v", req.Body["stream"])
	}
	msgs := req.Body["messages"].([]interface{})
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].(map[string]interface{})["role"] != "system" || msgs[1].(map[string]interface{})["role"] != "user" {
		t.Errorf("Unexpected message order %v", msgs)
	}
}

func TestOllamaMissingContent(t *testing.T) {
	bodies := []string{
		`{"model":"llama3","done":true}`,
		`{"message":{"role":"assistant"}}`,
		`{"message":{"role":"assistant","content":""}}`,
		`not json`,
	}
	for _, body := range bodies {
		srv, _ := MockServer(t, MockResponseConfig{ResponseBody: body})
		logger, logs := captureLogger()
		p := NewOllamaProvider(Config{BaseURL: srv.URL}, nil, logger)

		_, err := p.Complete(context.Background(), NewConversation("s", "u"), "llama3")
		if !errortypes.IsProviderResponseMalformed(err) {
			t.Errorf("body %q: expected ProviderResponseMalformed, got %v", body, err)
		}
		if errortypes.IsProviderCallFailed(err) {
			t.Errorf("body %q: malformed reply must not be a call failure", body)
		}
		if !strings.Contains(logs.String(), "provider_response_malformed") {
			t.Errorf("body %q: expected failure to be logged", body)
		}
	}
}

func TestOllamaServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	logger, _ := captureLogger()
	p := NewOllamaProvider(Config{BaseURL: srv.URL}, nil, logger)

	_, err := p.Complete(context.Background(), NewConversation("s", "u"), "llama3")
	if !errortypes.IsProviderCallFailed(err) {
		t.Fatalf("Expected ProviderCallFailed on 500, got %v", err)
	}
}

func TestOllamaTransportError(t *testing.T) {
	logger, logs := captureLogger()
	p := NewOllamaProvider(Config{BaseURL: "http://ollama.invalid/api/chat"}, &http.Client{Transport: failingTransport{}}, logger)

	_, err := p.Complete(context.Background(), NewConversation("s", "u"), "llama3")
	if !errortypes.IsProviderCallFailed(err) {
		t.Fatalf("Expected ProviderCallFailed, got %v", err)
	}
	if !strings.Contains(logs.String(), "provider_call_failed") {
		t.Errorf("Expected failure to be logged, got: %s", logs.String())
	}
}

func TestOllamaContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	logger, _ := captureLogger()
	p := NewOllamaProvider(Config{BaseURL: srv.URL}, nil, logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Complete(ctx, NewConversation("s", "u"), "llama3")
	if !errortypes.IsProviderCallFailed(err) {
		t.Errorf("Expected ProviderCallFailed on cancelled context, got %v", err)
	}
}

func TestOllamaAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			t.Errorf("Expected probe on /, got %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewOllamaProvider(Config{BaseURL: srv.URL + "/api/chat"}, &http.Client{Timeout: time.Second}, nil)
	if !p.Available(context.Background()) {
		t.Error("Expected available when server is up")
	}

	down := NewOllamaProvider(Config{BaseURL: "http://ollama.invalid/api/chat"}, &http.Client{Transport: failingTransport{}}, nil)
	if down.Available(context.Background()) {
		t.Error("Expected unavailable when server is unreachable")
	}
}

func TestOllamaEndpointDefault(t *testing.T) {
	p := NewOllamaProvider(Config{}, nil, nil)
	if p.Endpoint() != DefaultOllamaURL {
		t.Errorf("Unexpected endpoint %q", p.Endpoint())
	}
}
