package providers

import (
	"testing"

	"github.com/localrivet/githubsentinel/internal/errortypes"
)

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"openai":      KindOpenAI,
		"OpenAI":      KindOpenAI,
		"hosted":      KindOpenAI,
		"ollama":      KindOllama,
		"self-hosted": KindOllama,
		" Ollama ":    KindOllama,
		"unknown":     Kind("unknown"),
	}
	for in, want := range cases {
		if got := ParseKind(in); got != want {
			t.Errorf("ParseKind(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetProvider(t *testing.T) {
	f := NewProviderFactory(map[Kind]Config{
		KindOpenAI: {APIKey: "k", Model: "gpt-4o-mini"},
		KindOllama: {BaseURL: "http://localhost:11434/api/chat", Model: "llama3"},
	}, nil, nil)

	p, err := f.GetProvider(KindOpenAI)
	if err != nil {
		t.Fatalf("GetProvider(openai): %v", err)
	}
	if _, ok := p.(*OpenAIProvider); !ok {
		t.Errorf("Expected *OpenAIProvider, got %T", p)
	}

	p, err = f.GetProvider(KindOllama)
	if err != nil {
		t.Fatalf("GetProvider(ollama): %v", err)
	}
	if _, ok := p.(*OllamaProvider); !ok {
		t.Errorf("Expected *OllamaProvider, got %T", p)
	}

	if f.ModelFor(KindOllama) != "llama3" {
		t.Errorf("Unexpected model %q", f.ModelFor(KindOllama))
	}
}

func TestGetProviderUnsupported(t *testing.T) {
	f := NewProviderFactory(map[Kind]Config{KindOpenAI: {}}, nil, nil)

	_, err := f.GetProvider(Kind("unknown"))
	if !errortypes.IsUnsupportedProviderKind(err) {
		t.Fatalf("Expected UnsupportedProviderKind, got %v", err)
	}
}

func TestGetProviderMissingConfig(t *testing.T) {
	f := NewProviderFactory(map[Kind]Config{}, nil, nil)

	_, err := f.GetProvider(KindOllama)
	if err == nil {
		t.Fatal("Expected error for missing provider config")
	}
	if errortypes.IsUnsupportedProviderKind(err) {
		t.Error("A known kind without config is a config error, not an unsupported kind")
	}
}
