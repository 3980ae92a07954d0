package textgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/storyfairy/internal/classify"
	"github.com/fpang/storyfairy/internal/story"
)

// DefaultGeminiModel is used when GEMINI_MODEL is not set.
const DefaultGeminiModel = "gemini-2.5-flash"

// NewGeminiClient creates a Gemini Developer API client for the given key.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create Gemini client: %w", err)
	}
	return client, nil
}

// GeminiProvider generates text with a Gemini model.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider wraps an existing client. An empty model selects DefaultGeminiModel.
func NewGeminiProvider(client *genai.Client, model string) *GeminiProvider {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{client: client, model: model}
}

func (p *GeminiProvider) Name() string { return ProviderGemini }

func (p *GeminiProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	config := &genai.GenerateContentConfig{}
	if prompt.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: prompt.System}},
		}
	}
	if prompt.JSON {
		config.ResponseMIMEType = "application/json"
	}

	log.Debug().
		Str("model", p.model).
		Int("promptLength", len(prompt.User)).
		Msg("Gemini text request")

	start := time.Now()
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt.User), config)
	if err != nil {
		return "", classify.Error(p.Name(), err)
	}

	text := resp.Text()
	log.Debug().
		Str("model", p.model).
		Int("responseLength", len(text)).
		Dur("duration", time.Since(start)).
		Msg("Gemini text response")

	if strings.TrimSpace(text) == "" {
		return "", &story.ProviderError{Provider: p.Name(), Kind: story.KindEmpty, Err: errEmptyResponse}
	}
	return text, nil
}
