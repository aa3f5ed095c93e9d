package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/localrivet/githubsentinel/internal/errortypes"
	"github.com/localrivet/githubsentinel/internal/llm/providers"
	"github.com/localrivet/githubsentinel/internal/prompts"
	"github.com/localrivet/githubsentinel/internal/telemetry"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func promptFS() *prompts.Store {
	return prompts.NewStore(fstest.MapFS{
		"prompts/github.txt":      {Data: []byte("You summarize GitHub progress.")},
		"prompts/hacker_news.txt": {Data: []byte("You summarize Hacker News.")},
	}, quietLogger())
}

func newGenerator(t *testing.T, provider providers.Provider) (*Generator, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "daily_progress", "prompt.txt")
	g, err := New(Options{
		Kind:       providers.KindOpenAI,
		Provider:   provider,
		Model:      "gpt-4o-mini",
		Prompts:    promptFS(),
		DryRunPath: path,
		Logger:     quietLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g, path
}

func TestGenerateReport(t *testing.T) {
	provider := providers.NewCapturingProvider("openai", "Report A", nil)
	g, _ := newGenerator(t, provider)

	res, err := g.GenerateReport(context.Background(), "## Commits", "github", false)
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if res.Text != "Report A" || res.DryRun {
		t.Errorf("Unexpected result %+v", res)
	}

	conv := provider.GetCapturedConversation()
	if len(conv) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(conv))
	}
	if conv[0].Role != providers.RoleSystem || conv[0].Content != "You summarize GitHub progress." {
		t.Errorf("Unexpected system message %+v", conv[0])
	}
	if conv[1].Role != providers.RoleUser || conv[1].Content != "## Commits" {
		t.Errorf("Unexpected user message %+v", conv[1])
	}
	if provider.GetCapturedModel() != "gpt-4o-mini" {
		t.Errorf("Unexpected model %q", provider.GetCapturedModel())
	}

	m := g.Metrics()
	if m.GetCounter(telemetry.MetricReportRequests) != 1 ||
		m.GetCounter(telemetry.ForProvider(telemetry.MetricProviderSuccess, "openai")) != 1 {
		t.Errorf("Unexpected metrics:\n%s", m.GetReport())
	}
}

func TestDryRunSkipsProvider(t *testing.T) {
	provider := providers.NewCapturingProvider("openai", "unused", nil)
	g, path := newGenerator(t, provider)

	res, err := g.GenerateReport(context.Background(), "你好 <b>&</b>", "github", true)
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if res.Text != DryRunSentinel || !res.DryRun {
		t.Errorf("Expected dry-run sentinel, got %+v", res)
	}
	if provider.Calls() != 0 {
		t.Errorf("Dry run must not call the provider, got %d calls", provider.Calls())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	want := "[\n" +
		"    {\n" +
		"        \"role\": \"system\",\n" +
		"        \"content\": \"You summarize GitHub progress.\"\n" +
		"    },\n" +
		"    {\n" +
		"        \"role\": \"user\",\n" +
		"        \"content\": \"你好 <b>&</b>\"\n" +
		"    }\n" +
		"]"
	if string(data) != want {
		t.Errorf("Unexpected artifact:\n%s\nwant:\n%s", data, want)
	}
}

func TestDryRunNoNetwork(t *testing.T) {
	srv, reqs := providers.MockServer(t, providers.MockResponseConfig{
		StatusCode: http.StatusInternalServerError,
	})
	factory := providers.NewProviderFactory(map[providers.Kind]providers.Config{
		providers.KindOllama: {BaseURL: srv.URL, Model: "llama3"},
	}, nil, quietLogger())

	g, err := New(Options{
		Kind:       "self-hosted",
		Factory:    factory,
		Prompts:    promptFS(),
		DryRunPath: filepath.Join(t.TempDir(), "prompt.txt"),
		Logger:     quietLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if g.Kind() != providers.KindOllama || g.Model() != "llama3" {
		t.Errorf("Unexpected generator kind=%q model=%q", g.Kind(), g.Model())
	}

	if _, err := g.GenerateReport(context.Background(), "content", "github", true); err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if reqs.Count() != 0 {
		t.Errorf("Dry run reached the network %d times", reqs.Count())
	}
}

func TestLatestDryRunWins(t *testing.T) {
	g, path := newGenerator(t, providers.NewTestProvider("openai", "", nil))

	for _, content := range []string{"first content", "second content"} {
		if _, err := g.GenerateReport(context.Background(), content, "github", true); err != nil {
			t.Fatalf("GenerateReport: %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var conv providers.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		t.Fatalf("artifact is not JSON: %v", err)
	}
	if len(conv) != 2 || conv[1].Content != "second content" {
		t.Errorf("Expected only the latest conversation, got %+v", conv)
	}
	if bytes.Contains(data, []byte("first content")) {
		t.Error("Earlier conversation leaked into the artifact")
	}
}

func TestMissingPrompt(t *testing.T) {
	provider := providers.NewCapturingProvider("openai", "x", nil)
	g, path := newGenerator(t, provider)

	for _, dryRun := range []bool{false, true} {
		_, err := g.GenerateReport(context.Background(), "content", "nobody/nothing", dryRun)
		if !errortypes.IsResourceNotFound(err) {
			t.Errorf("dryRun=%v: expected ResourceNotFound, got %v", dryRun, err)
		}
	}
	if provider.Calls() != 0 {
		t.Error("Provider must not be called without a prompt")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Dry-run artifact must not be written without a prompt")
	}
}

func TestProviderErrorsPropagate(t *testing.T) {
	cause := errortypes.ProviderResponseMalformed(errors.New("no content"), "empty")
	g, _ := newGenerator(t, providers.NewTestProvider("openai", "", cause))

	_, err := g.GenerateReport(context.Background(), "content", "github", false)
	if !errortypes.IsProviderResponseMalformed(err) {
		t.Fatalf("Expected ProviderResponseMalformed, got %v", err)
	}
	if g.Metrics().GetCounter(telemetry.ForProvider(telemetry.MetricProviderFailure, "openai")) != 1 {
		t.Error("Expected provider failure to be counted")
	}
}

func TestHostedEndToEnd(t *testing.T) {
	srv, reqs := providers.MockServer(t, providers.MockResponseConfig{
		ResponseBody: map[string]interface{}{
			"choices": []map[string]interface{}{{"message": map[string]string{"content": "Report A"}}},
		},
	})
	factory := providers.NewProviderFactory(map[providers.Kind]providers.Config{
		providers.KindOpenAI: {APIKey: "k", BaseURL: srv.URL, Model: "gpt-4o-mini"},
	}, nil, quietLogger())

	g, err := New(Options{Kind: "hosted", Factory: factory, Prompts: promptFS(), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := g.GenerateReport(context.Background(), "stories", "hacker_news", false)
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if res.Text != "Report A" {
		t.Errorf("got %q, want %q", res.Text, "Report A")
	}

	msgs := reqs.Requests()[0].Body["messages"].([]interface{})
	if msgs[0].(map[string]interface{})["content"] != "You summarize Hacker News." {
		t.Errorf("Unexpected system prompt %v", msgs[0])
	}
}

func TestSelfHostedTransportFailure(t *testing.T) {
	factory := providers.NewProviderFactory(map[providers.Kind]providers.Config{
		providers.KindOllama: {BaseURL: "http://127.0.0.1:1/api/chat", Model: "llama3"},
	}, nil, quietLogger())

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	g, err := New(Options{Kind: providers.KindOllama, Factory: factory, Prompts: promptFS(), Logger: logger})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = g.GenerateReport(context.Background(), "content", "github", false)
	if !errortypes.IsProviderCallFailed(err) {
		t.Fatalf("Expected ProviderCallFailed, got %v", err)
	}
}

func TestUnknownProviderKind(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	_, err := New(Options{
		Kind:     "unknown",
		Provider: providers.NewTestProvider("x", "", nil),
		Prompts:  promptFS(),
		Logger:   logger,
	})
	if !errortypes.IsUnsupportedProviderKind(err) {
		t.Fatalf("Expected UnsupportedProviderKind, got %v", err)
	}
	if !strings.Contains(logs.String(), "unsupported") {
		t.Errorf("Expected construction failure to be logged, got: %s", logs.String())
	}
}

func TestMarshalConversation(t *testing.T) {
	data, err := MarshalConversation(providers.NewConversation("a", "b"))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.HasSuffix(data, []byte("\n")) {
		t.Error("Expected no trailing newline")
	}
	if !bytes.Contains(data, []byte("\n    {\n        \"role\"")) {
		t.Errorf("Expected four-space indent, got:\n%s", data)
	}
}
