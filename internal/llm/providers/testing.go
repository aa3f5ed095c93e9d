package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockResponseConfig holds configuration for mock API responses
type MockResponseConfig struct {
	StatusCode   int
	ResponseBody interface{}
	Headers      map[string]string
}

// MockServer creates a test server that returns the configured response and
// records every request body it receives.
func MockServer(t *testing.T, config MockResponseConfig) (*httptest.Server, *RequestLog) {
	t.Helper()
	log := &RequestLog{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			log.add(r, body)
		} else {
			log.add(r, nil)
		}

		for k, v := range config.Headers {
			w.Header().Set(k, v)
		}
		if _, exists := config.Headers["Content-Type"]; !exists {
			w.Header().Set("Content-Type", "application/json")
		}

		status := config.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)

		if config.ResponseBody == nil {
			return
		}

		var respBytes []byte
		switch body := config.ResponseBody.(type) {
		case string:
			respBytes = []byte(body)
		case []byte:
			respBytes = body
		default:
			var err error
			respBytes, err = json.Marshal(body)
			if err != nil {
				t.Errorf("Failed to marshal mock response: %v", err)
				return
			}
		}
		w.Write(respBytes)
	}))
	t.Cleanup(srv.Close)

	return srv, log
}

// RecordedRequest is one request seen by MockServer.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   map[string]interface{}
}

// RequestLog collects the requests seen by MockServer.
type RequestLog struct {
	mu       sync.Mutex
	requests []RecordedRequest
}

func (l *RequestLog) add(r *http.Request, body map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = append(l.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	})
}

// Requests returns a copy of the recorded requests.
func (l *RequestLog) Requests() []RecordedRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]RecordedRequest(nil), l.requests...)
}

// Count returns the number of recorded requests.
func (l *RequestLog) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}

// TestProvider is a simple implementation of Provider for testing
type TestProvider struct {
	name         string
	returnError  error
	returnString string
}

// NewTestProvider creates a new TestProvider
func NewTestProvider(name string, returnString string, returnError error) *TestProvider {
	return &TestProvider{
		name:         name,
		returnString: returnString,
		returnError:  returnError,
	}
}

// Name returns the provider name
func (p *TestProvider) Name() string {
	return p.name
}

// Complete returns the configured string or error
func (p *TestProvider) Complete(_ context.Context, _ Conversation, _ string) (string, error) {
	return p.returnString, p.returnError
}

// CapturingProvider is a provider that captures the inputs for testing
type CapturingProvider struct {
	name          string
	returnError   error
	returnString  string
	mu            sync.Mutex
	calls         int
	capturedConv  Conversation
	capturedModel string
}

// NewCapturingProvider creates a new CapturingProvider
func NewCapturingProvider(name, returnString string, returnError error) *CapturingProvider {
	return &CapturingProvider{
		name:         name,
		returnString: returnString,
		returnError:  returnError,
	}
}

// Name returns the provider name
func (p *CapturingProvider) Name() string {
	return p.name
}

// Complete captures inputs and returns configured response
func (p *CapturingProvider) Complete(_ context.Context, conv Conversation, model string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.capturedConv = append(Conversation(nil), conv...)
	p.capturedModel = model
	return p.returnString, p.returnError
}

// Calls returns how many times Complete ran.
func (p *CapturingProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// GetCapturedConversation returns the conversation passed to Complete
func (p *CapturingProvider) GetCapturedConversation() Conversation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capturedConv
}

// GetCapturedModel returns the model passed to Complete
func (p *CapturingProvider) GetCapturedModel() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capturedModel
}
