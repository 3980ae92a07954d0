package story

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewNarrative_JoinLaw(t *testing.T) {
	texts := []string{"Leo found a map.", "He followed it.", "The treasure was friendship."}
	n := NewNarrative("gemini", texts)

	if n.Detailed != strings.Join(texts, " ") {
		t.Errorf("Detailed = %q, want join of sentences", n.Detailed)
	}
	if n.Simplified != n.Detailed {
		t.Errorf("Simplified should default to Detailed")
	}
	for i, s := range n.Sentences {
		if s.Index != i || s.Text != texts[i] {
			t.Errorf("sentence %d = %+v", i, s)
		}
	}
	if got := n.Texts(); strings.Join(got, " ") != n.Detailed {
		t.Errorf("Texts() does not round-trip: %v", got)
	}
}

func TestValidateTopic(t *testing.T) {
	if got, err := ValidateTopic("  a brave dragon  "); err != nil || got != "a brave dragon" {
		t.Errorf("ValidateTopic() = %q, %v", got, err)
	}
	for _, in := range []string{"", "   ", strings.Repeat("x", MaxTopicLength+1)} {
		if _, err := ValidateTopic(in); !errors.Is(err, ErrValidation) {
			t.Errorf("ValidateTopic(%q) error = %v, want ErrValidation", in, err)
		}
	}
}

func TestStyleSuffix(t *testing.T) {
	if got := StyleSuffix(""); got != "whimsical style, illustration, vibrant colors" {
		t.Errorf("StyleSuffix(\"\") = %q", got)
	}
	if got := StyleSuffix("watercolor"); got != "watercolor style, illustration, vibrant colors" {
		t.Errorf("StyleSuffix(watercolor) = %q", got)
	}
}

func TestKindOf(t *testing.T) {
	prov := &ProviderError{Provider: "gemini", Kind: KindQuota, Err: errors.New("429")}
	parse := &ParseError{Provider: "openai", Err: errors.New("bad json")}

	if KindOf(nil) != KindNone {
		t.Error("nil should have no kind")
	}
	if KindOf(fmt.Errorf("wrapped: %w", prov)) != KindQuota {
		t.Error("expected quota kind through wrapping")
	}
	if KindOf(parse) != KindParse {
		t.Error("expected parse kind")
	}
	if KindOf(errors.New("other")) != KindUnknown {
		t.Error("expected unknown kind")
	}
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"A brave dragon":          "a_brave_dragon",
		"  Leo's   Big Day!! ":    "leo_s_big_day",
		"Café au lait":            "caf_au_lait",
		"!!!":                     "story",
		strings.Repeat("ab ", 40): strings.TrimRight(strings.Repeat("ab_", 20), "_"),
	}
	for in, want := range tests {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestArtifactKeys(t *testing.T) {
	k := NewArtifactKeys("A brave dragon", "1234abcd-ef56-7890-abcd-ef1234567890")
	if got := k.Story(); got != "a_brave_dragon-1234abcd.txt" {
		t.Errorf("Story() = %q", got)
	}
	if got := k.DetailedStory(); got != "a_brave_dragon-1234abcd_detailed.txt" {
		t.Errorf("DetailedStory() = %q", got)
	}
	if got := k.Image(0); got != "a_brave_dragon-1234abcd-image1.png" {
		t.Errorf("Image(0) = %q", got)
	}

	other := NewArtifactKeys("A brave dragon", "99999999-0000-0000-0000-000000000000")
	if other.Story() == k.Story() {
		t.Error("different runs on the same topic must not share keys")
	}
}

func TestParseContainer(t *testing.T) {
	if c, err := ParseContainer(""); err != nil || c != ContainerImages {
		t.Errorf("ParseContainer(\"\") = %q, %v", c, err)
	}
	if c, err := ParseContainer("storyfairy-stories"); err != nil || c != ContainerStories {
		t.Errorf("ParseContainer(stories) = %q, %v", c, err)
	}
	if _, err := ParseContainer("secrets"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestKeyFromURLAndProxy(t *testing.T) {
	raw := "https://images.s3.us-east-1.amazonaws.com/a_brave_dragon-1234abcd-image2.png"
	key, err := KeyFromURL(raw)
	if err != nil || key != "a_brave_dragon-1234abcd-image2.png" {
		t.Fatalf("KeyFromURL() = %q, %v", key, err)
	}
	want := "/api/blob/a_brave_dragon-1234abcd-image2.png?container=storyfairy-images"
	if got := ProxyURL(raw, ContainerImages); got != want {
		t.Errorf("ProxyURL() = %q, want %q", got, want)
	}
	if _, err := KeyFromURL("https://host/"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for url without object name, got %v", err)
	}
}

func TestUserIsPremium(t *testing.T) {
	var nilUser *User
	if nilUser.IsPremium() {
		t.Error("nil user must not be premium")
	}
	if !(&User{SubscriptionStatus: SubscriptionActive}).IsPremium() {
		t.Error("active user should be premium")
	}
	if (&User{SubscriptionStatus: SubscriptionCancelled}).IsPremium() {
		t.Error("cancelled user should not be premium")
	}
}
