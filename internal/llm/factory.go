package llm

import (
	"fmt"
	"strings"
)

// Supported completion providers. Both speak the OpenAI chat completion
// protocol; OpenRouter differs only in base URL and attribution headers.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// Factory creates completion clients with consistent configuration.
type Factory struct {
	APIKey   string
	BaseURL  string
	Referrer string
	Title    string
}

// CreateClient returns a Client for the named provider and model.
func (f *Factory) CreateClient(provider, model string) (Client, error) {
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		return NewOpenAI(f.APIKey, f.BaseURL, model, "", ""), nil
	case ProviderOpenRouter:
		base := f.BaseURL
		if base == "" {
			base = openRouterBaseURL
		}
		return NewOpenAI(f.APIKey, base, model, f.Referrer, f.Title), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
