// Package config holds the process configuration, parsed once from the
// environment at startup and passed to constructors.
package config

import (
	"fmt"
	"slices"
	"time"
)

// Known provider names.
var (
	TextProviderNames  = []string{"gemini", "openai"}
	ImageProviderNames = []string{"flux-schnell", "stable-diffusion-3", "imagen"}
)

// Secrets are provider and platform credentials. Empty values are filled
// from SSM Parameter Store in Lambda, or from the GPG credential file in
// the CLI.
type Secrets struct {
	GeminiAPIKey        string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey        string `env:"OPENAI_API_KEY"`
	ReplicateAPIToken   string `env:"REPLICATE_API_TOKEN"`
	StripeSecretKey     string `env:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	AuthJWTSecret       string `env:"AUTH_JWT_SECRET"`
}

// SSMParams are the Parameter Store paths the secrets are loaded from.
type SSMParams struct {
	GeminiAPIKey        string `env:"SSM_GEMINI_API_KEY_PARAM" envDefault:"/storyfairy/prod/gemini-api-key"`
	OpenAIAPIKey        string `env:"SSM_OPENAI_API_KEY_PARAM" envDefault:"/storyfairy/prod/openai-api-key"`
	ReplicateAPIToken   string `env:"SSM_REPLICATE_API_TOKEN_PARAM" envDefault:"/storyfairy/prod/replicate-api-token"`
	StripeSecretKey     string `env:"SSM_STRIPE_SECRET_KEY_PARAM" envDefault:"/storyfairy/prod/stripe-secret-key"`
	StripeWebhookSecret string `env:"SSM_STRIPE_WEBHOOK_SECRET_PARAM" envDefault:"/storyfairy/prod/stripe-webhook-secret"`
	AuthJWTSecret       string `env:"SSM_AUTH_JWT_SECRET_PARAM" envDefault:"/storyfairy/prod/auth-jwt-secret"`
}

// Config is the full runtime configuration.
type Config struct {
	TextProviders      []string      `env:"TEXT_PROVIDERS" envDefault:"gemini,openai" envSeparator:","`
	ImageProviders     []string      `env:"IMAGE_PROVIDERS" envDefault:"flux-schnell,stable-diffusion-3" envSeparator:","`
	SimplifierProvider string        `env:"SIMPLIFIER_PROVIDER" envDefault:"openai"`
	SentenceCount      int           `env:"STORY_SENTENCE_COUNT" envDefault:"5"`
	ImagePacing        time.Duration `env:"IMAGE_PACING" envDefault:"1s"`
	DefaultStyle       string        `env:"DEFAULT_IMAGE_STYLE" envDefault:"whimsical"`

	GeminiModel   string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	ImagenModel   string `env:"IMAGEN_MODEL" envDefault:"imagen-3.0-generate-002"`

	StoriesBucket       string `env:"STORIES_BUCKET_NAME"`
	ImagesBucket        string `env:"IMAGES_BUCKET_NAME"`
	ImagesPublicBaseURL string `env:"IMAGES_PUBLIC_BASE_URL"`
	TableName           string `env:"STORYFAIRY_TABLE_NAME"`

	OriginVerifySecret string `env:"ORIGIN_VERIFY_SECRET"`
	SiteURL            string `env:"SITE_URL" envDefault:"https://www.storyfairy.app"`
	JWTIssuer          string `env:"AUTH_JWT_ISSUER"`
	JWTAudience        string `env:"AUTH_JWT_AUDIENCE"`

	Secrets Secrets
	SSM     SSMParams
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown provider names and out-of-range values.
func (c *Config) Validate() error {
	if len(c.TextProviders) == 0 {
		return fmt.Errorf("TEXT_PROVIDERS must name at least one provider")
	}
	for _, p := range c.TextProviders {
		if !slices.Contains(TextProviderNames, p) {
			return fmt.Errorf("TEXT_PROVIDERS: unknown provider %q (known: %v)", p, TextProviderNames)
		}
	}
	if c.SimplifierProvider != "" && !slices.Contains(TextProviderNames, c.SimplifierProvider) {
		return fmt.Errorf("SIMPLIFIER_PROVIDER: unknown provider %q", c.SimplifierProvider)
	}
	if len(c.ImageProviders) == 0 {
		return fmt.Errorf("IMAGE_PROVIDERS must name at least one provider")
	}
	for _, p := range c.ImageProviders {
		if !slices.Contains(ImageProviderNames, p) {
			return fmt.Errorf("IMAGE_PROVIDERS: unknown provider %q (known: %v)", p, ImageProviderNames)
		}
	}
	if c.SentenceCount < 1 {
		return fmt.Errorf("STORY_SENTENCE_COUNT must be positive, got %d", c.SentenceCount)
	}
	if c.ImagePacing < 0 {
		return fmt.Errorf("IMAGE_PACING must not be negative, got %s", c.ImagePacing)
	}
	return nil
}
