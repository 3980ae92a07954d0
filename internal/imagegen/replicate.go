package imagegen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/replicate/replicate-go"
	"github.com/rs/zerolog/log"

	"github.com/fpang/storyfairy/internal/classify"
	"github.com/fpang/storyfairy/internal/story"
)

const (
	replicatePollInterval = time.Second
	replicateMaxPolls     = 60
)

// ReplicateClient runs Replicate model predictions and waits for them to
// finish.
type ReplicateClient struct {
	r8           *replicate.Client
	pollInterval time.Duration
	maxPolls     int
}

// NewReplicateClient creates a client authenticated with an API token.
// Options are passed through to the Replicate SDK.
func NewReplicateClient(token string, opts ...replicate.ClientOption) (*ReplicateClient, error) {
	r8, err := replicate.NewClient(append([]replicate.ClientOption{replicate.WithToken(token)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create Replicate client: %w", err)
	}
	return &ReplicateClient{
		r8:           r8,
		pollInterval: replicatePollInterval,
		maxPolls:     replicateMaxPolls,
	}, nil
}

// WithPolling overrides how often and how many times an unfinished
// prediction is polled.
func (c *ReplicateClient) WithPolling(interval time.Duration, maxPolls int) *ReplicateClient {
	c.pollInterval = interval
	c.maxPolls = maxPolls
	return c
}

// firstOutputURL handles models that return a single URL and models that
// return a list of URLs.
func firstOutputURL(output replicate.PredictionOutput) (string, error) {
	switch v := output.(type) {
	case nil:
		return "", errNoOutput
	case string:
		if v == "" {
			return "", errNoOutput
		}
		return v, nil
	case []any:
		if len(v) == 0 {
			return "", errNoOutput
		}
		if u, ok := v[0].(string); ok && u != "" {
			return u, nil
		}
		return "", errNoOutput
	default:
		return "", fmt.Errorf("unexpected output type %T", output)
	}
}

// Predict runs model ("owner/name") with input and returns the first output URL.
func (c *ReplicateClient) Predict(ctx context.Context, model string, input map[string]any) (string, error) {
	owner, name, ok := strings.Cut(model, "/")
	if !ok {
		return "", fmt.Errorf("model %q is not owner/name", model)
	}

	start := time.Now()
	pred, err := c.r8.CreatePredictionWithModel(ctx, owner, name, replicate.PredictionInput(input), nil, false)
	if err != nil {
		return "", fmt.Errorf("create prediction: %w", err)
	}

	for polls := 0; !pred.Status.Terminated(); polls++ {
		if polls >= c.maxPolls {
			return "", fmt.Errorf("prediction %s still %s after %d polls", pred.ID, pred.Status, polls)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}
		if pred, err = c.r8.GetPrediction(ctx, pred.ID); err != nil {
			return "", fmt.Errorf("get prediction: %w", err)
		}
	}

	if pred.Status != replicate.Succeeded {
		return "", fmt.Errorf("prediction %s %s: %v", pred.ID, pred.Status, pred.Error)
	}
	out, err := firstOutputURL(pred.Output)
	if err != nil {
		return "", err
	}

	log.Debug().
		Str("model", model).
		Str("predictionId", pred.ID).
		Dur("duration", time.Since(start)).
		Msg("Replicate prediction succeeded")
	return out, nil
}

// ReplicateModel is a Provider backed by one Replicate model.
type ReplicateModel struct {
	name      string
	model     string
	client    *ReplicateClient
	input     func(Request) map[string]any
	reference bool
}

// FluxSchnell is the fast default illustration model.
func FluxSchnell(client *ReplicateClient) *ReplicateModel {
	return &ReplicateModel{
		name:   ProviderFluxSchnell,
		model:  "black-forest-labs/flux-schnell",
		client: client,
		input: func(req Request) map[string]any {
			return map[string]any{
				"prompt":              req.Prompt,
				"go_fast":             true,
				"megapixels":          "1",
				"num_outputs":         1,
				"aspect_ratio":        "1:1",
				"output_format":       "webp",
				"output_quality":      80,
				"num_inference_steps": 4,
			}
		},
	}
}

// StableDiffusion3 is the fallback model; it also accepts a reference image.
func StableDiffusion3(client *ReplicateClient) *ReplicateModel {
	return &ReplicateModel{
		name:      ProviderStableDiffusion3,
		model:     "stability-ai/stable-diffusion-3",
		client:    client,
		reference: true,
		input: func(req Request) map[string]any {
			in := map[string]any{
				"prompt":          req.Prompt,
				"cfg":             7,
				"steps":           28,
				"aspect_ratio":    "1:1",
				"output_format":   "png",
				"output_quality":  90,
				"negative_prompt": "ugly, blurry, distorted, text, watermark",
				"prompt_strength": 0.85,
			}
			if req.ReferenceImageURL != "" {
				in["image"] = req.ReferenceImageURL
			}
			return in
		},
	}
}

func (m *ReplicateModel) Name() string { return m.name }

func (m *ReplicateModel) AcceptsReferenceImage() bool { return m.reference }

func (m *ReplicateModel) Generate(ctx context.Context, req Request) (*Result, error) {
	url, err := m.client.Predict(ctx, m.model, m.input(req))
	if err != nil {
		if errors.Is(err, errNoOutput) {
			return nil, &story.ProviderError{Provider: m.name, Kind: story.KindEmpty, Err: err}
		}
		return nil, classify.Error(m.name, err)
	}
	return &Result{Provider: m.name, SourceURL: url}, nil
}
