package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/storyfairy/internal/assets"
	"github.com/fpang/storyfairy/internal/classify"
	"github.com/fpang/storyfairy/internal/jsonutil"
	"github.com/fpang/storyfairy/internal/metrics"
	"github.com/fpang/storyfairy/internal/story"
)

// StageText labels text-generation attempts in telemetry.
const StageText = "text"

var errNoSentences = errors.New("reply contains no sentences")

// sentencePayload is the JSON shape every story provider is asked for.
type sentencePayload struct {
	Sentences []string `json:"sentences"`
}

// Chain tries text providers in order until one yields parseable sentences.
type Chain struct {
	providers     []Provider
	sentenceCount int
}

// NewChain creates a chain over providers in priority order.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers, sentenceCount: assets.DefaultSentenceCount}
}

// WithSentenceCount overrides the number of sentences requested.
func (c *Chain) WithSentenceCount(n int) *Chain {
	if n > 0 {
		c.sentenceCount = n
	}
	return c
}

// Providers returns the provider names in priority order.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Generate asks each provider in turn for a story about topic. It returns
// the first narrative that parses, together with one attempt record per
// provider called. When every provider fails the error wraps
// story.ErrNoProviderSucceeded and the last provider error.
func (c *Chain) Generate(ctx context.Context, topic string) (*story.Narrative, []story.GenerationAttempt, error) {
	prompt := Prompt{
		System: assets.StorySystemPrompt,
		User:   assets.RenderStoryPrompt(topic, c.sentenceCount),
		JSON:   true,
	}

	attempts := make([]story.GenerationAttempt, 0, len(c.providers))
	var lastErr error

	for _, p := range c.providers {
		start := time.Now()
		sentences, err := c.try(ctx, p, prompt)
		attempt := story.GenerationAttempt{Stage: StageText, Provider: p.Name(), Succeeded: err == nil, ErrorKind: story.KindOf(err)}
		attempts = append(attempts, attempt)
		metrics.RecordProviderAttempt(StageText, p.Name(), attempt.Outcome(), time.Since(start))

		if err != nil {
			log.Warn().Err(err).
				Str("provider", p.Name()).
				Str("kind", string(attempt.ErrorKind)).
				Msg("Text provider failed, trying next")
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		log.Info().
			Str("provider", p.Name()).
			Int("sentences", len(sentences)).
			Dur("duration", time.Since(start)).
			Msg("Story text generated")
		return story.NewNarrative(p.Name(), sentences), attempts, nil
	}

	if lastErr == nil {
		return nil, attempts, fmt.Errorf("%w: no text providers configured", story.ErrNoProviderSucceeded)
	}
	return nil, attempts, fmt.Errorf("%w: %w", story.ErrNoProviderSucceeded, lastErr)
}

func (c *Chain) try(ctx context.Context, p Provider, prompt Prompt) ([]string, error) {
	raw, err := p.Complete(ctx, prompt)
	if err != nil {
		return nil, classify.Error(p.Name(), err)
	}
	return ParseSentences(p.Name(), raw)
}

// ParseSentences decodes a {"sentences": [...]} reply. Sentences are
// trimmed and blank entries dropped; a reply with none left is a parse error.
func ParseSentences(provider, raw string) ([]string, error) {
	payload, err := jsonutil.ParseJSON[sentencePayload](raw)
	if err != nil {
		return nil, &story.ParseError{Provider: provider, Err: err}
	}

	sentences := make([]string, 0, len(payload.Sentences))
	for _, s := range payload.Sentences {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return nil, &story.ParseError{Provider: provider, Err: errNoSentences}
	}
	return sentences, nil
}
