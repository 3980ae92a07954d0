package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fpang/storyfairy/internal/artifact"
	"github.com/fpang/storyfairy/internal/imagegen"
	"github.com/fpang/storyfairy/internal/metrics"
	"github.com/fpang/storyfairy/internal/pacing"
	"github.com/fpang/storyfairy/internal/story"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	restore := metrics.SetOutput(io.Discard)
	code := m.Run()
	restore()
	os.Exit(code)
}

var dragonSentences = []string{
	"Brave Ember lived in a cave.",
	"She wanted to fly.",
	"She practiced every day.",
	"One morning she soared above the clouds.",
	"Ember was proud.",
}

type fakeText struct {
	sentences []string
	err       error
	calls     int
}

func (f *fakeText) Generate(_ context.Context, topic string) (*story.Narrative, []story.GenerationAttempt, error) {
	f.calls++
	if f.err != nil {
		return nil, []story.GenerationAttempt{{Stage: "text", Provider: "gemini", ErrorKind: story.KindQuota}}, f.err
	}
	return story.NewNarrative("gemini", f.sentences), []story.GenerationAttempt{{Stage: "text", Provider: "gemini", Succeeded: true}}, nil
}

type fakeSimplifier struct{ reply string }

func (f fakeSimplifier) Simplify(_ context.Context, detailed string) (string, bool) {
	if f.reply == "" {
		return detailed, true
	}
	return f.reply, false
}

// fakeImage is an imagegen.Provider that fails for prompts matched by failIf.
type fakeImage struct {
	name   string
	failIf func(prompt string) bool
	mu     sync.Mutex
	calls  []string
}

func (f *fakeImage) Name() string { return f.name }

func (f *fakeImage) Generate(_ context.Context, req imagegen.Request) (*imagegen.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.Prompt)
	f.mu.Unlock()
	if f.failIf != nil && f.failIf(req.Prompt) {
		return nil, &story.ProviderError{Provider: f.name, Kind: story.KindNetwork, Err: errors.New("timeout")}
	}
	return &imagegen.Result{Provider: f.name, SourceURL: "https://cdn.example/" + f.name + ".png"}, nil
}

type pngFetcher struct{ calls int }

func (f *pngFetcher) Fetch(context.Context, string) ([]byte, error) {
	f.calls++
	var buf bytes.Buffer
	png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2)))
	return buf.Bytes(), nil
}

type countingPacer struct{ waits int }

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	return ctx.Err()
}

// failingStore wraps a MemoryStore and fails Put for keys matched by failIf.
type failingStore struct {
	*artifact.MemoryStore
	failIf func(container, key string) bool
}

func (s failingStore) Put(ctx context.Context, data []byte, ct, container, key string) (string, error) {
	if s.failIf(container, key) {
		return "", fmt.Errorf("blob service unavailable")
	}
	return s.MemoryStore.Put(ctx, data, ct, container, key)
}

func newTestOrchestrator(text *fakeText, store artifact.Store, providers ...imagegen.Provider) (*Orchestrator, *countingPacer) {
	pacer := &countingPacer{}
	o := New(Deps{
		Text:       text,
		Simplifier: fakeSimplifier{reply: "Ember learned to fly."},
		Images:     imagegen.NewChain(providers...),
		Artifacts:  store,
		Fetcher:    &pngFetcher{},
		NewPacer:   func() pacing.Pacer { return pacer },
	})
	o.newRunID = func() string { return "0f8fad5b-d9cb-469f-a165-70867728950e" }
	return o, pacer
}

func TestRun_DragonExample(t *testing.T) {
	failSecond := func(p string) bool { return strings.HasPrefix(p, "Brave Ember lived in a cave. She wanted to fly.") }
	flux := &fakeImage{name: "flux-schnell", failIf: failSecond}
	sd3 := &fakeImage{name: "stable-diffusion-3", failIf: failSecond}
	store := artifact.NewMemoryStore()
	o, pacer := newTestOrchestrator(&fakeText{sentences: dragonSentences}, store, flux, sd3)

	res, err := o.Run(context.Background(), "a dragon who learns to fly", Options{Style: "watercolor"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Images) != 4 {
		t.Fatalf("got %d images, want 4", len(res.Images))
	}
	var indices []int
	for _, img := range res.Images {
		indices = append(indices, img.SentenceIndex)
		if !strings.HasSuffix(img.Prompt, "watercolor style, illustration, vibrant colors") {
			t.Errorf("prompt %q missing style suffix", img.Prompt)
		}
		if !strings.HasSuffix(img.URL, fmt.Sprintf("-image%d.png", img.SentenceIndex+1)) {
			t.Errorf("image %d stored under %q", img.SentenceIndex, img.URL)
		}
	}
	if !reflect.DeepEqual(indices, []int{0, 2, 3, 4}) {
		t.Errorf("image indices = %v", indices)
	}
	if !reflect.DeepEqual(res.Telemetry.SkippedIndices, []int{1}) {
		t.Errorf("skipped = %v", res.Telemetry.SkippedIndices)
	}
	if len(flux.calls) != 5 || len(sd3.calls) != 1 {
		t.Errorf("flux calls = %d, sd3 calls = %d", len(flux.calls), len(sd3.calls))
	}
	if pacer.waits != 5 {
		t.Errorf("pacer waits = %d, want 5", pacer.waits)
	}
	if res.StoryText != "Ember learned to fly." {
		t.Errorf("StoryText = %q", res.StoryText)
	}
	if res.Narrative.Detailed != strings.Join(dragonSentences, " ") {
		t.Errorf("Detailed = %q", res.Narrative.Detailed)
	}
	if store.Puts() != 6 {
		t.Errorf("puts = %d, want 2 texts + 4 images", store.Puts())
	}

	wantStates := []State{StateAwaitingTopic, StateGeneratingText, StateSimplifying, StatePersistingText, StateGeneratingImages, StatePersistingImages, StateDone}
	if !reflect.DeepEqual(res.Telemetry.States, wantStates) {
		t.Errorf("states = %v", res.Telemetry.States)
	}

	obj, err := store.Get(context.Background(), string(story.ContainerStories), "a_dragon_who_learns_to_fly-0f8fad5b_detailed.txt")
	if err != nil || string(obj.Data) != res.Narrative.Detailed {
		t.Errorf("detailed text not stored: %v", err)
	}
}

func TestRun_TextFailureStoresNothing(t *testing.T) {
	text := &fakeText{err: fmt.Errorf("%w: quota", story.ErrNoProviderSucceeded)}
	flux := &fakeImage{name: "flux-schnell"}
	store := artifact.NewMemoryStore()
	o, _ := newTestOrchestrator(text, store, flux)

	res, err := o.Run(context.Background(), "dragon", Options{})
	if !errors.Is(err, story.ErrNoProviderSucceeded) {
		t.Fatalf("expected ErrNoProviderSucceeded, got %v", err)
	}
	if store.Puts() != 0 || len(flux.calls) != 0 {
		t.Errorf("puts = %d, image calls = %d", store.Puts(), len(flux.calls))
	}
	if last := res.Telemetry.States[len(res.Telemetry.States)-1]; last != StateFailed {
		t.Errorf("final state = %s", last)
	}
}

func TestRun_EmptyNarrative(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeText{sentences: nil}, artifact.NewMemoryStore())
	if _, err := o.Run(context.Background(), "dragon", Options{}); !errors.Is(err, story.ErrNoSentences) {
		t.Fatalf("expected ErrNoSentences, got %v", err)
	}
}

func TestRun_TextPersistenceFailure(t *testing.T) {
	store := failingStore{MemoryStore: artifact.NewMemoryStore(), failIf: func(c, key string) bool {
		return strings.HasSuffix(key, "_detailed.txt")
	}}
	flux := &fakeImage{name: "flux-schnell"}
	o, _ := newTestOrchestrator(&fakeText{sentences: dragonSentences}, store, flux)

	res, err := o.Run(context.Background(), "dragon", Options{})
	if !errors.Is(err, story.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if len(flux.calls) != 0 {
		t.Errorf("images should not be generated after a text persistence failure")
	}
	if last := res.Telemetry.States[len(res.Telemetry.States)-1]; last != StateFailed {
		t.Errorf("final state = %s", last)
	}
}

func TestRun_AllImagesFail(t *testing.T) {
	always := func(string) bool { return true }
	flux := &fakeImage{name: "flux-schnell", failIf: always}
	sd3 := &fakeImage{name: "stable-diffusion-3", failIf: always}
	o, _ := newTestOrchestrator(&fakeText{sentences: dragonSentences}, artifact.NewMemoryStore(), flux, sd3)

	res, err := o.Run(context.Background(), "dragon", Options{})
	if err != nil {
		t.Fatalf("all image failures should not fail the run: %v", err)
	}
	if len(res.Images) != 0 {
		t.Errorf("images = %v", res.Images)
	}
	if !reflect.DeepEqual(res.Telemetry.SkippedIndices, []int{0, 1, 2, 3, 4}) {
		t.Errorf("skipped = %v", res.Telemetry.SkippedIndices)
	}
	if len(flux.calls) != 5 || len(sd3.calls) != 5 {
		t.Errorf("each provider should be tried once per sentence: flux=%d sd3=%d", len(flux.calls), len(sd3.calls))
	}
}

func TestRun_ImagePersistenceFailureDropsOnlyThatImage(t *testing.T) {
	store := failingStore{MemoryStore: artifact.NewMemoryStore(), failIf: func(c, key string) bool {
		return strings.HasSuffix(key, "-image3.png")
	}}
	o, _ := newTestOrchestrator(&fakeText{sentences: dragonSentences}, store, &fakeImage{name: "flux-schnell"})

	res, err := o.Run(context.Background(), "dragon", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Images) != 4 || !reflect.DeepEqual(res.Telemetry.SkippedIndices, []int{2}) {
		t.Errorf("images = %d, skipped = %v", len(res.Images), res.Telemetry.SkippedIndices)
	}
}

func TestRun_InvalidTopic(t *testing.T) {
	text := &fakeText{sentences: dragonSentences}
	o, _ := newTestOrchestrator(text, artifact.NewMemoryStore())
	if _, err := o.Run(context.Background(), "   ", Options{}); !errors.Is(err, story.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if text.calls != 0 {
		t.Errorf("text provider called %d times", text.calls)
	}
}

func TestRun_SimplifierFallback(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeText{sentences: dragonSentences}, artifact.NewMemoryStore(), &fakeImage{name: "flux-schnell"})
	o.deps.Simplifier = fakeSimplifier{}

	res, err := o.Run(context.Background(), "dragon", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.StoryText != res.Narrative.Detailed || !res.Telemetry.SimplifyFellBack {
		t.Errorf("fallback should keep the detailed text: %q", res.StoryText)
	}
}

// timedImage records when each call arrives.
type timedImage struct {
	mu    sync.Mutex
	times []time.Time
}

func (f *timedImage) Name() string { return "flux-schnell" }

func (f *timedImage) Generate(context.Context, imagegen.Request) (*imagegen.Result, error) {
	f.mu.Lock()
	f.times = append(f.times, time.Now())
	f.mu.Unlock()
	return &imagegen.Result{Provider: "flux-schnell", SourceURL: "https://cdn.example/flux.png"}, nil
}

func TestRun_IntervalSpacesEveryImageCall(t *testing.T) {
	const interval = 60 * time.Millisecond
	img := &timedImage{}
	o := New(Deps{
		Text:      &fakeText{sentences: dragonSentences[:3]},
		Images:    imagegen.NewChain(img),
		Artifacts: artifact.NewMemoryStore(),
		Fetcher:   &pngFetcher{},
		NewPacer:  pacing.PerRun(interval),
	})

	if _, err := o.Run(context.Background(), "dragon", Options{}); err != nil {
		t.Fatal(err)
	}
	if len(img.times) != 3 {
		t.Fatalf("image calls = %d, want 3", len(img.times))
	}
	for i := 1; i < len(img.times); i++ {
		if gap := img.times[i].Sub(img.times[i-1]); gap < interval-10*time.Millisecond {
			t.Errorf("gap %d->%d = %v, want at least ~%v", i-1, i, gap, interval)
		}
	}
}

func TestRun_FreshPacerPerRun(t *testing.T) {
	var built int
	var mu sync.Mutex
	o := New(Deps{
		Text:      &fakeText{sentences: dragonSentences[:1]},
		Images:    imagegen.NewChain(&fakeImage{name: "flux-schnell"}),
		Artifacts: artifact.NewMemoryStore(),
		Fetcher:   &pngFetcher{},
		NewPacer: func() pacing.Pacer {
			mu.Lock()
			built++
			mu.Unlock()
			return pacing.NewInterval(time.Hour)
		},
	})

	// A shared limiter would hold the second run's only image back by an
	// hour, and Wait fails fast when that exceeds the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 2; i++ {
		res, err := o.Run(ctx, "dragon", Options{})
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Images) != 1 {
			t.Errorf("run %d: images = %d, want 1", i, len(res.Images))
		}
	}
	if built != 2 {
		t.Errorf("pacers built = %d, want 2", built)
	}
}

func TestCanTransition(t *testing.T) {
	if CanTransition(StateSimplifying, StateFailed) {
		t.Error("Simplifying must not fail the run")
	}
	if CanTransition(StateGeneratingImages, StateFailed) {
		t.Error("GeneratingImages must not fail the run")
	}
	if !CanTransition(StatePersistingText, StateFailed) || !StateDone.Terminal() {
		t.Error("unexpected transition table")
	}
}
