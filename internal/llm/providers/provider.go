// Package providers contains the LLM backends that turn a conversation into
// report text.
package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Kind names a provider implementation.
type Kind string

const (
	// KindOpenAI is a hosted, OpenAI-compatible chat-completions API.
	KindOpenAI Kind = "openai"
	// KindOllama is a self-hosted Ollama server.
	KindOllama Kind = "ollama"
)

// ParseKind normalises a configured provider name. "hosted" and
// "self-hosted" are accepted as aliases. Unknown names are returned as-is so
// the factory can reject them.
func ParseKind(name string) Kind {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai", "hosted":
		return KindOpenAI
	case "ollama", "self-hosted", "selfhosted":
		return KindOllama
	default:
		return Kind(strings.ToLower(strings.TrimSpace(name)))
	}
}

// Role is the author of a Message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is a single chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is an ordered message list. Report conversations always hold
// the system prompt first and the user content second.
type Conversation []Message

// NewConversation builds the two-message report conversation.
func NewConversation(systemPrompt, content string) Conversation {
	return Conversation{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: content},
	}
}

// Provider defines the interface for LLM backends
type Provider interface {
	// Complete sends the conversation to the backend and returns the reply text.
	Complete(ctx context.Context, conv Conversation, model string) (string, error)

	// Name returns the provider name
	Name() string
}

// Config holds configuration for one provider
type Config struct {
	APIKey string
	// BaseURL is the API root for hosted providers and the full chat
	// endpoint for self-hosted ones.
	BaseURL string
	Model   string
}

// NewHTTPClient returns the client shared by providers. A zero timeout
// leaves requests unbounded apart from the caller's context.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// snippet trims a response body for inclusion in an error message.
func snippet(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}

func statusError(provider string, code int, body []byte) error {
	return fmt.Errorf("%s: unexpected status %d: %s", provider, code, snippet(body))
}

// HealthChecker is implemented by providers that can report reachability
// without generating text.
type HealthChecker interface {
	Available(ctx context.Context) bool
}
