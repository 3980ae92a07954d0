// Package app assembles providers, stores and services from a Config.
// The Lambdas and the CLI share it so every entry point runs the same
// pipeline wiring.
package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/fpang/storyfairy/internal/artifact"
	"github.com/fpang/storyfairy/internal/auth"
	"github.com/fpang/storyfairy/internal/billing"
	"github.com/fpang/storyfairy/internal/config"
	"github.com/fpang/storyfairy/internal/httpapi"
	"github.com/fpang/storyfairy/internal/imagegen"
	"github.com/fpang/storyfairy/internal/logging"
	"github.com/fpang/storyfairy/internal/pacing"
	"github.com/fpang/storyfairy/internal/pipeline"
	"github.com/fpang/storyfairy/internal/regen"
	"github.com/fpang/storyfairy/internal/store"
	"github.com/fpang/storyfairy/internal/textgen"
)

// Backends are the storage implementations chosen by the entry point.
type Backends struct {
	Artifacts artifact.Store
	Stories   store.StoryStore
	Users     store.UserStore
}

// Services is everything a request handler needs.
type Services struct {
	Config       *config.Config
	Artifacts    artifact.Store
	Stories      store.StoryStore
	Users        store.UserStore
	Text         *textgen.Chain
	Images       *imagegen.Chain
	Orchestrator *pipeline.Orchestrator
	Regenerator  *regen.Regenerator

	// Auth is nil when no JWT secret is configured; authenticated
	// endpoints then answer 401.
	Auth auth.Authenticator
	Gate auth.SubscriptionGate
	// Billing is nil when no Stripe key is configured.
	Billing *billing.Client
}

// Build creates every provider whose credentials are present and wires
// them into the pipeline. It fails only when no text or no image provider
// could be built.
func Build(ctx context.Context, cfg *config.Config, b Backends) (*Services, error) {
	var gemini *genai.Client
	if cfg.Secrets.GeminiAPIKey != "" {
		c, err := textgen.NewGeminiClient(ctx, cfg.Secrets.GeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		gemini = c
	}

	textByName := map[string]textgen.Provider{}
	if gemini != nil {
		textByName[textgen.ProviderGemini] = textgen.NewGeminiProvider(gemini, cfg.GeminiModel)
	}
	if cfg.Secrets.OpenAIAPIKey != "" {
		textByName[textgen.ProviderOpenAI] = textgen.NewOpenAIProvider(cfg.Secrets.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	}
	textOrder := pick(cfg.TextProviders, textByName)
	if len(textOrder) == 0 {
		return nil, fmt.Errorf("no text provider has credentials (configured: %v)", cfg.TextProviders)
	}

	simplifierProvider := textByName[cfg.SimplifierProvider]
	if simplifierProvider == nil {
		simplifierProvider = textOrder[0]
	}

	imageByName := map[string]imagegen.Provider{}
	if cfg.Secrets.ReplicateAPIToken != "" {
		rc, err := imagegen.NewReplicateClient(cfg.Secrets.ReplicateAPIToken)
		if err != nil {
			return nil, err
		}
		imageByName[imagegen.ProviderFluxSchnell] = imagegen.FluxSchnell(rc)
		imageByName[imagegen.ProviderStableDiffusion3] = imagegen.StableDiffusion3(rc)
	}
	if gemini != nil {
		imageByName[imagegen.ProviderImagen] = imagegen.NewImagenProvider(gemini, cfg.ImagenModel)
	}
	imageOrder := pick(cfg.ImageProviders, imageByName)
	if len(imageOrder) == 0 {
		return nil, fmt.Errorf("no image provider has credentials (configured: %v)", cfg.ImageProviders)
	}

	var extras []imagegen.Provider
	for _, name := range config.ImageProviderNames {
		if p, ok := imageByName[name]; ok && !slices.Contains(cfg.ImageProviders, name) {
			extras = append(extras, p)
		}
	}

	text := textgen.NewChain(textOrder...).WithSentenceCount(cfg.SentenceCount)
	images := imagegen.NewChain(imageOrder...).WithExtra(extras...)
	fetcher := imagegen.NewHTTPFetcher()

	svc := &Services{
		Config:    cfg,
		Artifacts: b.Artifacts,
		Stories:   b.Stories,
		Users:     b.Users,
		Text:      text,
		Images:    images,
		Orchestrator: pipeline.New(pipeline.Deps{
			Text:       text,
			Simplifier: textgen.NewSimplifier(simplifierProvider),
			Images:     images,
			Artifacts:  b.Artifacts,
			Fetcher:    fetcher,
			NewPacer:   pacing.PerRun(cfg.ImagePacing),
		}),
	}
	if b.Stories != nil {
		svc.Regenerator = regen.New(b.Stories, images, b.Artifacts, fetcher)
	}
	if b.Users != nil {
		svc.Gate = auth.NewUserGate(b.Users)
	}

	if cfg.Secrets.AuthJWTSecret != "" {
		a, err := auth.NewJWTAuthenticator(cfg.Secrets.AuthJWTSecret)
		if err != nil {
			return nil, err
		}
		svc.Auth = a.WithIssuer(cfg.JWTIssuer).WithAudience(cfg.JWTAudience)
	}
	if cfg.Secrets.StripeSecretKey != "" {
		svc.Billing = billing.NewClient(cfg.Secrets.StripeSecretKey, cfg.SiteURL)
	}

	log.Debug().
		Strs("textProviders", text.Providers()).
		Strs("imageProviders", images.Providers()).
		Str("simplifier", simplifierProvider.Name()).
		Msg("Services built")
	return svc, nil
}

// APIDeps converts the services into HTTP server dependencies. Disabled
// features stay nil interfaces so the server can detect them.
func (s *Services) APIDeps() httpapi.Deps {
	deps := httpapi.Deps{
		Generator:    s.Orchestrator,
		Artifacts:    s.Artifacts,
		Stories:      s.Stories,
		Auth:         s.Auth,
		Gate:         s.Gate,
		OriginVerify: s.Config.OriginVerifySecret,
		DefaultStyle: s.Config.DefaultStyle,
	}
	if s.Users != nil {
		deps.Users = s.Users
	}
	if s.Regenerator != nil {
		deps.Regenerator = s.Regenerator
	}
	if s.Billing != nil {
		deps.Checkout = s.Billing
	}
	return deps
}

// Describe adds the provider chains and feature flags to a startup log.
func (s *Services) Describe(l *logging.StartupLogger) *logging.StartupLogger {
	return l.
		Providers(textgen.StageText, s.Text.Providers()).
		Providers(imagegen.StageImage, s.Images.Providers()).
		Feature("auth", s.Auth != nil).
		Feature("billing", s.Billing != nil).
		Feature("regeneration", s.Regenerator != nil).
		Config("sentenceCount", fmt.Sprint(s.Config.SentenceCount)).
		Config("imagePacing", s.Config.ImagePacing.String())
}

// pick returns the providers named in order, skipping names with no
// configured provider.
func pick[P any](order []string, byName map[string]P) []P {
	var out []P
	for _, name := range order {
		p, ok := byName[name]
		if !ok {
			log.Warn().Str("provider", name).Msg("Provider configured but has no credentials, skipping")
			continue
		}
		out = append(out, p)
	}
	return out
}
