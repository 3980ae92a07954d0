package app

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fpang/storyfairy/internal/artifact"
	"github.com/fpang/storyfairy/internal/config"
	"github.com/fpang/storyfairy/internal/store"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Secrets = config.Secrets{}
	return cfg
}

func TestBuildSkipsProvidersWithoutCredentials(t *testing.T) {
	cfg := testConfig(t)
	cfg.Secrets.OpenAIAPIKey = "sk-test"
	cfg.Secrets.ReplicateAPIToken = "r8-test"
	cfg.ImageProviders = []string{"stable-diffusion-3"}

	mem := store.NewMemoryStore()
	svc, err := Build(context.Background(), cfg, Backends{
		Artifacts: artifact.NewMemoryStore(),
		Stories:   mem,
		Users:     mem,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if got := svc.Text.Providers(); len(got) != 1 || got[0] != "openai" {
		t.Errorf("text providers = %v, want [openai]", got)
	}
	if got := svc.Images.Providers(); len(got) != 1 || got[0] != "stable-diffusion-3" {
		t.Errorf("image providers = %v, want [stable-diffusion-3]", got)
	}
	if svc.Images.Provider("flux-schnell") == nil {
		t.Error("flux-schnell should stay selectable by name for regeneration")
	}
	if svc.Images.Provider("imagen") != nil {
		t.Error("imagen has no credentials and should not be registered")
	}
	if svc.Auth != nil || svc.Billing != nil {
		t.Error("auth and billing should be disabled without secrets")
	}
	if svc.Regenerator == nil || svc.Gate == nil {
		t.Error("regenerator and gate should be wired when stores are present")
	}
}

func TestBuildOptionalFeatures(t *testing.T) {
	cfg := testConfig(t)
	cfg.Secrets.OpenAIAPIKey = "sk-test"
	cfg.Secrets.ReplicateAPIToken = "r8-test"
	cfg.Secrets.AuthJWTSecret = "jwt"
	cfg.Secrets.StripeSecretKey = "sk_test"

	svc, err := Build(context.Background(), cfg, Backends{Artifacts: artifact.NewMemoryStore()})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if svc.Auth == nil || svc.Billing == nil {
		t.Error("auth and billing should be enabled")
	}
	if svc.Regenerator != nil || svc.Gate != nil {
		t.Error("regeneration needs a story store")
	}
}

func TestBuildRequiresProviders(t *testing.T) {
	cfg := testConfig(t)
	if _, err := Build(context.Background(), cfg, Backends{}); err == nil {
		t.Error("expected an error with no text credentials")
	}

	cfg.Secrets.OpenAIAPIKey = "sk-test"
	if _, err := Build(context.Background(), cfg, Backends{}); err == nil {
		t.Error("expected an error with no image credentials")
	}
}

func TestAPIDepsLeavesDisabledFeaturesNil(t *testing.T) {
	cfg := testConfig(t)
	cfg.Secrets.OpenAIAPIKey = "sk-test"
	cfg.Secrets.ReplicateAPIToken = "r8-test"

	svc, err := Build(context.Background(), cfg, Backends{Artifacts: artifact.NewMemoryStore()})
	if err != nil {
		t.Fatal(err)
	}
	deps := svc.APIDeps()
	if deps.Regenerator != nil || deps.Checkout != nil || deps.Users != nil || deps.Auth != nil {
		t.Errorf("disabled features should be nil interfaces: %+v", deps)
	}
	if deps.Generator == nil || deps.Artifacts == nil {
		t.Error("generator and artifacts are required")
	}
}
