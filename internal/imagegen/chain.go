package imagegen

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/storyfairy/internal/metrics"
	"github.com/fpang/storyfairy/internal/story"
)

// StageImage labels image-generation attempts in telemetry.
const StageImage = "image"

// Chain tries image providers in order for each prompt. It also keeps
// providers that are reachable by name but not part of the fallback order.
type Chain struct {
	order  []Provider
	byName map[string]Provider
}

// NewChain creates a chain whose fallback order is the order given.
func NewChain(order ...Provider) *Chain {
	c := &Chain{order: order, byName: make(map[string]Provider, len(order))}
	for _, p := range order {
		c.byName[p.Name()] = p
	}
	return c
}

// WithExtra registers providers that can be selected by name (for
// regeneration) without joining the fallback order.
func (c *Chain) WithExtra(providers ...Provider) *Chain {
	for _, p := range providers {
		if _, ok := c.byName[p.Name()]; !ok {
			c.byName[p.Name()] = p
		}
	}
	return c
}

// Providers returns the fallback order by name.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.order))
	for i, p := range c.order {
		names[i] = p.Name()
	}
	return names
}

// Provider returns the named provider, or nil when it is not configured.
func (c *Chain) Provider(name string) Provider {
	return c.byName[name]
}

// Generate asks each provider in order for one image. index is the
// sentence index and is only used for telemetry. The first success ends the
// chain; when all fail the error wraps story.ErrNoProviderSucceeded.
func (c *Chain) Generate(ctx context.Context, index int, req Request) (*Result, []story.GenerationAttempt, error) {
	attempts := make([]story.GenerationAttempt, 0, len(c.order))
	var lastErr error

	for _, p := range c.order {
		start := time.Now()
		res, err := p.Generate(ctx, req)
		attempt := story.GenerationAttempt{
			Stage:     StageImage,
			Index:     index,
			Provider:  p.Name(),
			Succeeded: err == nil,
			ErrorKind: story.KindOf(err),
		}
		attempts = append(attempts, attempt)
		metrics.RecordProviderAttempt(StageImage, p.Name(), attempt.Outcome(), time.Since(start))

		if err != nil {
			log.Warn().Err(err).
				Int("index", index).
				Str("provider", p.Name()).
				Str("kind", string(attempt.ErrorKind)).
				Msg("Image provider failed, trying next")
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		log.Debug().
			Int("index", index).
			Str("provider", p.Name()).
			Dur("duration", time.Since(start)).
			Msg("Image generated")
		return res, attempts, nil
	}

	if lastErr == nil {
		return nil, attempts, fmt.Errorf("%w: no image providers configured", story.ErrNoProviderSucceeded)
	}
	return nil, attempts, fmt.Errorf("%w: %w", story.ErrNoProviderSucceeded, lastErr)
}
