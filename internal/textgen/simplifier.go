package textgen

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fpang/storyfairy/internal/assets"
)

const simplifyMaxTokens = 300

// Simplifier produces a shorter reader-facing version of a detailed story.
type Simplifier struct {
	provider Provider
}

// NewSimplifier creates a Simplifier backed by provider. A nil provider
// makes every call return the detailed text.
func NewSimplifier(provider Provider) *Simplifier {
	return &Simplifier{provider: provider}
}

// Simplify makes one provider call. On any failure, or an empty reply, it
// returns detailed unchanged and fellBack is true.
func (s *Simplifier) Simplify(ctx context.Context, detailed string) (text string, fellBack bool) {
	if s == nil || s.provider == nil {
		return detailed, true
	}

	out, err := s.provider.Complete(ctx, Prompt{
		System:    assets.SimplifySystemPrompt,
		User:      assets.RenderSimplifyPrompt(detailed),
		MaxTokens: simplifyMaxTokens,
	})
	if err != nil {
		log.Warn().Err(err).Str("provider", s.provider.Name()).Msg("Simplification failed, using detailed story")
		return detailed, true
	}

	out = strings.TrimSpace(out)
	if out == "" {
		log.Warn().Str("provider", s.provider.Name()).Msg("Simplification returned empty text, using detailed story")
		return detailed, true
	}
	return out, false
}
