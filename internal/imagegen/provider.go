// Package imagegen produces one illustration per prompt from
// interchangeable image providers, with ordered fallback.
package imagegen

import (
	"context"
	"errors"
)

// Provider names accepted in configuration and in regeneration requests.
const (
	ProviderFluxSchnell      = "flux-schnell"
	ProviderStableDiffusion3 = "stable-diffusion-3"
	ProviderImagen           = "imagen"
)

var errNoOutput = errors.New("provider returned no image")

// Request is one image generation call.
type Request struct {
	Prompt            string
	ReferenceImageURL string
}

// AcceptsReferenceImage reports whether p conditions its output on
// Request.ReferenceImageURL. Providers that do not say so ignore it.
func AcceptsReferenceImage(p Provider) bool {
	r, ok := p.(interface{ AcceptsReferenceImage() bool })
	return ok && r.AcceptsReferenceImage()
}

// Result is a generated image, either hosted by the provider (SourceURL) or
// returned inline (Data).
type Result struct {
	Provider    string
	SourceURL   string
	Data        []byte
	ContentType string
}

// Provider is one image-generation backend. Failures are returned as
// *story.ProviderError.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (*Result, error)
}
