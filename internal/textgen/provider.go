// Package textgen produces story text from interchangeable LLM providers.
//
// Providers are tried in configured order. A provider that errors or whose
// reply cannot be parsed into sentences hands over to the next one; only
// when every provider has failed does generation fail.
package textgen

import (
	"context"
	"errors"
)

// Provider names accepted in configuration.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

var errEmptyResponse = errors.New("empty response")

// Prompt is a single-turn request to a text provider.
type Prompt struct {
	System    string
	User      string
	JSON      bool // ask for a JSON object reply when the provider supports it
	MaxTokens int
}

// Provider is one text-generation backend. Complete returns the raw reply
// text; remote failures are returned as *story.ProviderError.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt Prompt) (string, error)
}
