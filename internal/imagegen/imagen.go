package imagegen

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/storyfairy/internal/classify"
	"github.com/fpang/storyfairy/internal/story"
)

// DefaultImagenModel is used when IMAGEN_MODEL is not set.
const DefaultImagenModel = "imagen-3.0-generate-002"

// ImagenProvider generates images with Imagen through the Gemini API.
// Images come back inline rather than as URLs. Imagen is text-to-image
// only, so it does not accept a reference image.
type ImagenProvider struct {
	client *genai.Client
	model  string
}

// NewImagenProvider wraps an existing genai client.
func NewImagenProvider(client *genai.Client, model string) *ImagenProvider {
	if model == "" {
		model = DefaultImagenModel
	}
	return &ImagenProvider{client: client, model: model}
}

func (p *ImagenProvider) Name() string { return ProviderImagen }

func (p *ImagenProvider) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	resp, err := p.client.Models.GenerateImages(ctx, p.model, req.Prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    "1:1",
	})
	if err != nil {
		return nil, classify.Error(p.Name(), err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil ||
		len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		return nil, &story.ProviderError{Provider: p.Name(), Kind: story.KindEmpty, Err: errNoOutput}
	}

	img := resp.GeneratedImages[0].Image
	log.Debug().
		Str("model", p.model).
		Int("bytes", len(img.ImageBytes)).
		Dur("duration", time.Since(start)).
		Msg("Imagen image generated")

	return &Result{Provider: p.Name(), Data: img.ImageBytes, ContentType: img.MIMEType}, nil
}
