// Package regen replaces one illustration of a saved story.
package regen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/storyfairy/internal/artifact"
	"github.com/fpang/storyfairy/internal/imagegen"
	"github.com/fpang/storyfairy/internal/metrics"
	"github.com/fpang/storyfairy/internal/story"
	"github.com/fpang/storyfairy/internal/store"
)

// ProviderLookup resolves an image provider by name.
type ProviderLookup interface {
	Provider(name string) imagegen.Provider
}

// Request identifies the image to replace and how to redraw it.
type Request struct {
	UserID            string
	StoryID           string
	Index             int
	Prompt            string
	Style             string
	Model             string
	ReferenceImageURL string
}

// Regenerator redraws a single image with exactly the requested provider.
type Regenerator struct {
	stories   store.StoryStore
	providers ProviderLookup
	artifacts artifact.Store
	fetcher   imagegen.Fetcher
}

// New creates a Regenerator. fetcher may be nil.
func New(stories store.StoryStore, providers ProviderLookup, artifacts artifact.Store, fetcher imagegen.Fetcher) *Regenerator {
	if fetcher == nil {
		fetcher = imagegen.NewHTTPFetcher()
	}
	return &Regenerator{stories: stories, providers: providers, artifacts: artifacts, fetcher: fetcher}
}

// Validate checks the request fields that do not need any lookups.
func (req Request) Validate() error {
	switch {
	case strings.TrimSpace(req.Prompt) == "":
		return fmt.Errorf("%w: prompt is required", story.ErrValidation)
	case req.StoryID == "":
		return fmt.Errorf("%w: storyId is required", story.ErrValidation)
	case req.Model == "":
		return fmt.Errorf("%w: imageModel is required", story.ErrValidation)
	case req.Index < 0:
		return fmt.Errorf("%w: imageIndex must not be negative", story.ErrValidation)
	}
	return nil
}

// Regenerate draws a new image for Images[Index] of the story, stores it
// under the existing image's key and patches only that list entry. It
// returns the stored URL.
func (g *Regenerator) Regenerate(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	rec, err := g.stories.GetStory(ctx, req.UserID, req.StoryID)
	if err != nil {
		return "", fmt.Errorf("load story %s: %w", req.StoryID, err)
	}
	if rec == nil {
		return "", fmt.Errorf("story %s: %w", req.StoryID, story.ErrNotFound)
	}
	if req.Index >= len(rec.Images) {
		return "", fmt.Errorf("%w: imageIndex %d out of range (story has %d images)", story.ErrValidation, req.Index, len(rec.Images))
	}

	provider := g.providers.Provider(req.Model)
	if provider == nil {
		return "", fmt.Errorf("%w: unknown image model %q", story.ErrValidation, req.Model)
	}
	if req.ReferenceImageURL != "" && !imagegen.AcceptsReferenceImage(provider) {
		return "", fmt.Errorf("%w: image model %q does not accept a reference image", story.ErrValidation, req.Model)
	}

	key, err := story.KeyFromURL(rec.Images[req.Index].ImageURL)
	if err != nil {
		return "", err
	}

	prompt := strings.TrimSpace(req.Prompt)
	if req.Style != "" {
		prompt += ", " + story.StyleSuffix(req.Style)
	}

	start := time.Now()
	res, err := provider.Generate(ctx, imagegen.Request{Prompt: prompt, ReferenceImageURL: req.ReferenceImageURL})
	attempt := story.GenerationAttempt{Stage: imagegen.StageImage, Index: req.Index, Provider: provider.Name(), Succeeded: err == nil, ErrorKind: story.KindOf(err)}
	metrics.RecordProviderAttempt("regenerate", provider.Name(), attempt.Outcome(), time.Since(start))
	if err != nil {
		return "", fmt.Errorf("%w: %w", story.ErrNoProviderSucceeded, err)
	}

	data, err := imagegen.Materialize(ctx, g.fetcher, res)
	if err != nil {
		return "", fmt.Errorf("%w: fetch image: %w", story.ErrNoProviderSucceeded, err)
	}
	data, contentType := imagegen.Normalize(data)

	url, err := g.artifacts.Put(ctx, data, contentType, string(story.ContainerImages), key)
	if err != nil {
		return "", fmt.Errorf("%w: store image: %w", story.ErrPersistence, err)
	}

	if err := g.stories.UpdateStoryImage(ctx, req.UserID, req.StoryID, req.Index, story.StoryImage{ImageURL: url, Prompt: prompt}); err != nil {
		return "", fmt.Errorf("update story image: %w", err)
	}

	log.Info().
		Str("userId", req.UserID).
		Str("storyId", req.StoryID).
		Int("index", req.Index).
		Str("provider", provider.Name()).
		Dur("duration", time.Since(start)).
		Msg("Image regenerated")
	return url, nil
}
