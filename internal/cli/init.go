package cli

import (
	"github.com/rs/zerolog/log"

	"github.com/fpang/storyfairy/internal/auth"
	"github.com/fpang/storyfairy/internal/config"
)

// LoadLocalSecrets fills every empty secret in cfg from the environment or
// the GPG credential file. Missing secrets only disable the provider or
// feature that needs them.
func LoadLocalSecrets(cfg *config.Config) {
	secrets := []struct {
		name string
		dst  *string
	}{
		{"GEMINI_API_KEY", &cfg.Secrets.GeminiAPIKey},
		{"OPENAI_API_KEY", &cfg.Secrets.OpenAIAPIKey},
		{"REPLICATE_API_TOKEN", &cfg.Secrets.ReplicateAPIToken},
		{"STRIPE_SECRET_KEY", &cfg.Secrets.StripeSecretKey},
		{"STRIPE_WEBHOOK_SECRET", &cfg.Secrets.StripeWebhookSecret},
		{"AUTH_JWT_SECRET", &cfg.Secrets.AuthJWTSecret},
	}

	loaded := 0
	for _, s := range secrets {
		if *s.dst != "" {
			loaded++
			continue
		}
		v, err := auth.GetSecret(s.name)
		if err != nil {
			continue
		}
		*s.dst = v
		loaded++
	}
	log.Debug().Int("loaded", loaded).Int("total", len(secrets)).Msg("Local credentials resolved")
}
