// Package pipeline turns a topic into a stored narrative and one
// illustration per sentence.
package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/storyfairy/internal/artifact"
	"github.com/fpang/storyfairy/internal/imagegen"
	"github.com/fpang/storyfairy/internal/metrics"
	"github.com/fpang/storyfairy/internal/pacing"
	"github.com/fpang/storyfairy/internal/promptbuild"
	"github.com/fpang/storyfairy/internal/story"
	"github.com/fpang/storyfairy/internal/storycontext"
)

const textContentType = "text/plain; charset=utf-8"

// TextGenerator produces the narrative for a topic.
type TextGenerator interface {
	Generate(ctx context.Context, topic string) (*story.Narrative, []story.GenerationAttempt, error)
}

// Simplifier shortens a detailed narrative. fellBack is true when the
// detailed text was returned unchanged.
type Simplifier interface {
	Simplify(ctx context.Context, detailed string) (text string, fellBack bool)
}

// ImageGenerator produces one image for a sentence prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, index int, req imagegen.Request) (*imagegen.Result, []story.GenerationAttempt, error)
}

// Deps are the collaborators of an Orchestrator. Simplifier, NewPacer,
// Tagger and Fetcher are optional. NewPacer is called once per run so
// concurrent runs never share pacing state.
type Deps struct {
	Text       TextGenerator
	Simplifier Simplifier
	Images     ImageGenerator
	Artifacts  artifact.Store
	Fetcher    imagegen.Fetcher
	NewPacer   func() pacing.Pacer
	Tagger     storycontext.Tagger
}

// Options tune a single run.
type Options struct {
	Style string
}

// Telemetry describes how a run went. It is not part of the HTTP contract.
type Telemetry struct {
	RunID            string                    `json:"runId"`
	States           []State                   `json:"states"`
	SkippedIndices   []int                     `json:"skippedIndices"`
	Attempts         []story.GenerationAttempt `json:"attempts"`
	SimplifyFellBack bool                      `json:"simplifyFellBack"`
}

// Result is the outcome of a run that reached Done.
type Result struct {
	StoryText        string                `json:"storyText"`
	StoryURL         string                `json:"storyUrl"`
	DetailedStoryURL string                `json:"detailedStoryUrl"`
	Narrative        *story.Narrative      `json:"-"`
	Images           []story.ImageArtifact `json:"images"`
	Telemetry        Telemetry             `json:"-"`
}

// Orchestrator runs the pipeline. It holds no per-run state and is safe
// for concurrent use when its collaborators are.
type Orchestrator struct {
	deps      Deps
	extractor *storycontext.Extractor
	newRunID  func() string
}

// New creates an Orchestrator.
func New(deps Deps) *Orchestrator {
	if deps.NewPacer == nil {
		deps.NewPacer = func() pacing.Pacer { return pacing.None{} }
	}
	if deps.Tagger == nil {
		deps.Tagger = storycontext.NewRuleTagger()
	}
	if deps.Fetcher == nil {
		deps.Fetcher = imagegen.NewHTTPFetcher()
	}
	return &Orchestrator{
		deps:      deps,
		extractor: storycontext.NewExtractor(deps.Tagger),
		newRunID:  uuid.NewString,
	}
}

// run carries the mutable state of one Run call.
type run struct {
	res   *Result
	state State
	start time.Time
}

func (r *run) enter(s State) {
	if !CanTransition(r.state, s) {
		panic(fmt.Sprintf("pipeline: illegal transition %s -> %s", r.state, s))
	}
	log.Debug().
		Str("runId", r.res.Telemetry.RunID).
		Str("from", string(r.state)).
		Str("to", string(s)).
		Msg("Pipeline state change")
	r.state = s
	r.res.Telemetry.States = append(r.res.Telemetry.States, s)
}

// pendingImage is a generated image not yet stored.
type pendingImage struct {
	index  int
	prompt string
	result *imagegen.Result
}

// Run executes the pipeline for topic. On failure the returned Result
// still carries the telemetry collected so far.
func (o *Orchestrator) Run(ctx context.Context, topic string, opts Options) (*Result, error) {
	r := &run{
		res: &Result{
			Images: []story.ImageArtifact{},
			Telemetry: Telemetry{
				RunID:          o.newRunID(),
				States:         []State{StateAwaitingTopic},
				SkippedIndices: []int{},
			},
		},
		state: StateAwaitingTopic,
		start: time.Now(),
	}
	tel := &r.res.Telemetry

	topic, err := story.ValidateTopic(topic)
	if err != nil {
		return r.res, err
	}
	keys := story.NewArtifactKeys(topic, tel.RunID)

	log.Info().Str("runId", tel.RunID).Str("topic", topic).Msg("Pipeline started")

	// Text
	r.enter(StateGeneratingText)
	narrative, attempts, err := o.deps.Text.Generate(ctx, topic)
	tel.Attempts = append(tel.Attempts, attempts...)
	if err == nil && len(narrative.Sentences) == 0 {
		err = story.ErrNoSentences
	}
	if err != nil {
		return o.fail(r, "", fmt.Errorf("generate text: %w", err))
	}
	r.res.Narrative = narrative

	// Simplify
	r.enter(StateSimplifying)
	narrative.Simplified = narrative.Detailed
	if o.deps.Simplifier != nil {
		narrative.Simplified, tel.SimplifyFellBack = o.deps.Simplifier.Simplify(ctx, narrative.Detailed)
	}
	r.res.StoryText = narrative.Simplified

	// Persist text
	r.enter(StatePersistingText)
	if r.res.StoryURL, err = o.putText(ctx, narrative.Simplified, keys.Story()); err != nil {
		return o.fail(r, narrative.Provider, err)
	}
	if r.res.DetailedStoryURL, err = o.putText(ctx, narrative.Detailed, keys.DetailedStory()); err != nil {
		return o.fail(r, narrative.Provider, err)
	}

	// Images
	r.enter(StateGeneratingImages)
	pending := o.generateImages(ctx, r, narrative, opts.Style)

	r.enter(StatePersistingImages)
	for _, p := range pending {
		art, err := o.persistImage(ctx, keys, p)
		if err != nil {
			log.Warn().Err(err).
				Str("runId", tel.RunID).
				Int("index", p.index).
				Str("provider", p.result.Provider).
				Msg("Failed to store image, dropping it")
			tel.SkippedIndices = append(tel.SkippedIndices, p.index)
			continue
		}
		r.res.Images = append(r.res.Images, *art)
	}
	slices.Sort(tel.SkippedIndices)

	r.enter(StateDone)
	o.record(r, narrative.Provider)
	log.Info().
		Str("runId", tel.RunID).
		Str("textProvider", narrative.Provider).
		Int("sentences", len(narrative.Sentences)).
		Int("images", len(r.res.Images)).
		Ints("skipped", tel.SkippedIndices).
		Dur("duration", time.Since(r.start)).
		Msg("Pipeline complete")
	return r.res, nil
}

func (o *Orchestrator) generateImages(ctx context.Context, r *run, n *story.Narrative, style string) []pendingImage {
	tel := &r.res.Telemetry
	texts := n.Texts()
	rc := storycontext.NewRunningContext()
	pacer := o.deps.NewPacer()
	pending := make([]pendingImage, 0, len(texts))

	for i, sentence := range texts {
		scene, _ := o.extractor.Extract(sentence, rc)
		prompt := promptbuild.Build(i, texts, rc, scene, style)

		if err := pacer.Wait(ctx); err != nil {
			log.Warn().Err(err).Str("runId", tel.RunID).Int("index", i).Msg("Pacing interrupted, skipping remaining images")
			for j := i; j < len(texts); j++ {
				tel.SkippedIndices = append(tel.SkippedIndices, j)
			}
			break
		}

		res, attempts, err := o.deps.Images.Generate(ctx, i, imagegen.Request{Prompt: prompt})
		tel.Attempts = append(tel.Attempts, attempts...)
		if err != nil {
			log.Warn().Err(err).Str("runId", tel.RunID).Int("index", i).Msg("No image for sentence, skipping")
			tel.SkippedIndices = append(tel.SkippedIndices, i)
			continue
		}
		pending = append(pending, pendingImage{index: i, prompt: prompt, result: res})
	}
	return pending
}

func (o *Orchestrator) putText(ctx context.Context, text, key string) (string, error) {
	url, err := o.deps.Artifacts.Put(ctx, []byte(text), textContentType, string(story.ContainerStories), key)
	if err != nil {
		return "", fmt.Errorf("%w: store %s: %w", story.ErrPersistence, key, err)
	}
	return url, nil
}

func (o *Orchestrator) persistImage(ctx context.Context, keys story.ArtifactKeys, p pendingImage) (*story.ImageArtifact, error) {
	data, err := imagegen.Materialize(ctx, o.deps.Fetcher, p.result)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	data, contentType := imagegen.Normalize(data)

	url, err := o.deps.Artifacts.Put(ctx, data, contentType, string(story.ContainerImages), keys.Image(p.index))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", story.ErrPersistence, err)
	}
	return &story.ImageArtifact{SentenceIndex: p.index, Prompt: p.prompt, URL: url}, nil
}

func (o *Orchestrator) fail(r *run, textProvider string, err error) (*Result, error) {
	r.enter(StateFailed)
	o.record(r, textProvider)
	log.Error().Err(err).
		Str("runId", r.res.Telemetry.RunID).
		Dur("duration", time.Since(r.start)).
		Msg("Pipeline failed")
	return r.res, err
}

func (o *Orchestrator) record(r *run, textProvider string) {
	sentences := 0
	if r.res.Narrative != nil {
		sentences = len(r.res.Narrative.Sentences)
	}
	metrics.RecordRun(metrics.RunSummary{
		RunID:          r.res.Telemetry.RunID,
		Outcome:        string(r.state),
		TextProvider:   textProvider,
		SentenceCount:  sentences,
		ImagesKept:     len(r.res.Images),
		SkippedIndices: r.res.Telemetry.SkippedIndices,
		Duration:       time.Since(r.start),
	})
}
