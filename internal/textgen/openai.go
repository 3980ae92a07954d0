package textgen

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/fpang/storyfairy/internal/classify"
	"github.com/fpang/storyfairy/internal/story"
)

// DefaultOpenAIModel is used when OPENAI_MODEL is not set.
const DefaultOpenAIModel = "gpt-4o-mini"

// defaultOpenAIMaxTokens bounds story replies; five sentences fit comfortably.
const defaultOpenAIMaxTokens = 350

// OpenAIProvider generates text with an OpenAI chat model.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a provider for apiKey. baseURL overrides the
// API endpoint and may be empty.
func NewOpenAIProvider(apiKey, model, baseURL string) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

func (p *OpenAIProvider) Complete(ctx context.Context, prompt Prompt) (string, error) {
	var messages []openai.ChatCompletionMessage
	if prompt.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: prompt.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt.User,
	})

	maxTokens := prompt.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultOpenAIMaxTokens
	}
	req := openai.ChatCompletionRequest{
		Model:     p.model,
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	if prompt.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify.Error(p.Name(), err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", &story.ProviderError{Provider: p.Name(), Kind: story.KindEmpty, Err: errEmptyResponse}
	}

	log.Debug().
		Str("model", p.model).
		Int("completionTokens", resp.Usage.CompletionTokens).
		Dur("duration", time.Since(start)).
		Msg("OpenAI text response")

	return resp.Choices[0].Message.Content, nil
}
