package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Provider identifies an LLM vendor.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
)

// ParseProvider normalizes a provider name.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "openai", "gpt":
		return ProviderOpenAI, nil
	case "gemini", "google":
		return ProviderGemini, nil
	default:
		return "", fmt.Errorf("unknown provider %q", s)
	}
}

// ProviderAdapter is the interface every provider backend implements.
type ProviderAdapter interface {
	// Name returns the provider identifier (e.g. "openai", "anthropic", "gemini").
	Name() string

	// Complete sends a blocking request and returns the full response.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Stream sends a request and returns a channel of stream events. The
	// channel is closed after a finish or error event.
	Stream(ctx context.Context, req Request) (<-chan StreamEvent, error)
}

// Options configures an adapter built by NewAdapter.
type Options struct {
	APIKey     string
	BaseURL    string       // overrides the vendor default endpoint; used in tests
	HTTPClient *http.Client // defaults to http.DefaultClient if nil
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return http.DefaultClient
}

// NewAdapter constructs the adapter for a provider. The variant is selected
// once here; callers hold only the ProviderAdapter interface afterwards.
func NewAdapter(p Provider, opts Options) (ProviderAdapter, error) {
	if opts.APIKey == "" {
		return nil, &ConfigurationError{AdapterError{Message: fmt.Sprintf("provider %s: missing API key", p)}}
	}
	switch p {
	case ProviderAnthropic:
		return newAnthropicAdapter(opts), nil
	case ProviderOpenAI:
		return newOpenAIAdapter(opts), nil
	case ProviderGemini:
		return newGeminiAdapter(opts), nil
	default:
		return nil, &ConfigurationError{AdapterError{Message: fmt.Sprintf("provider %q is not supported", p)}}
	}
}
