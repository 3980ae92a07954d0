package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fpang/storyfairy/internal/config"
	"github.com/fpang/storyfairy/internal/pipeline"
	"github.com/fpang/storyfairy/internal/story"
)

func TestFormatDurationShort(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{65 * time.Second, "1:05"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}
	for _, tt := range tests {
		if got := FormatDurationShort(tt.in); got != tt.want {
			t.Errorf("FormatDurationShort(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPromptForTopic(t *testing.T) {
	var out bytes.Buffer
	if got := PromptForTopic(strings.NewReader("  a brave dragon \n"), &out); got != "a brave dragon" {
		t.Errorf("got %q", got)
	}
	if !strings.Contains(out.String(), "Story topic") {
		t.Errorf("prompt not written: %q", out.String())
	}
	if got := PromptForTopic(strings.NewReader("no newline"), &out); got != "no newline" {
		t.Errorf("got %q", got)
	}
	if got := PromptForTopic(strings.NewReader(""), &out); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestPrintResult(t *testing.T) {
	res := &pipeline.Result{
		StoryText:        "Once upon a time.",
		StoryURL:         "file:///tmp/out/storyfairy-stories/dragon.txt",
		DetailedStoryURL: "file:///tmp/out/storyfairy-stories/dragon_detailed.txt",
		Images:           []story.ImageArtifact{{SentenceIndex: 0, URL: "file:///tmp/out/storyfairy-images/dragon-image1.png"}},
		Telemetry:        pipeline.Telemetry{SkippedIndices: []int{1}},
	}
	var buf bytes.Buffer
	PrintResult(&buf, res, 75*time.Second)
	out := buf.String()
	for _, want := range []string{"Once upon a time.", "dragon-image1.png", "Skipped sentences: [1]", "1:15"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestLoadLocalSecretsPrefersExistingAndEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("REPLICATE_API_TOKEN", "")

	cfg := &config.Config{}
	cfg.Secrets.GeminiAPIKey = "already-set"
	LoadLocalSecrets(cfg)

	if cfg.Secrets.GeminiAPIKey != "already-set" {
		t.Errorf("existing secret overwritten: %q", cfg.Secrets.GeminiAPIKey)
	}
	if cfg.Secrets.OpenAIAPIKey != "sk-env" {
		t.Errorf("env secret not loaded: %q", cfg.Secrets.OpenAIAPIKey)
	}
	if cfg.Secrets.ReplicateAPIToken != "" {
		t.Errorf("missing secret should stay empty, got %q", cfg.Secrets.ReplicateAPIToken)
	}
}
