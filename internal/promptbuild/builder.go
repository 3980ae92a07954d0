// Package promptbuild assembles the image prompt for one sentence of a story.
package promptbuild

import (
	"strings"

	"github.com/fpang/storyfairy/internal/story"
	"github.com/fpang/storyfairy/internal/storycontext"
)

// Build returns the image prompt for sentences[index]. The prompt is the
// previous and current sentence, then the current sentence's scene phrase,
// then descriptors of characters named in the current sentence that it does
// not already describe, then the style tag.
func Build(index int, sentences []string, rc *storycontext.RunningContext, scene, style string) string {
	if index < 0 || index >= len(sentences) {
		return story.StyleSuffix(style)
	}
	current := sentences[index]
	previous := ""
	if index > 0 {
		previous = sentences[index-1]
	}

	parts := []string{strings.TrimSpace(previous + " " + current)}
	if scene = strings.TrimSpace(scene); scene != "" {
		parts = append(parts, scene)
	}
	if featured := featuring(current, rc); len(featured) > 0 {
		parts = append(parts, "featuring "+strings.Join(featured, " and "))
	}
	parts = append(parts, story.StyleSuffix(style))
	return strings.Join(parts, ", ")
}

func featuring(sentence string, rc *storycontext.RunningContext) []string {
	if rc == nil || rc.Len() == 0 {
		return nil
	}
	words := lowerWords(sentence)

	var out []string
	for _, c := range rc.Characters() {
		if !containsSeq(words, lowerWords(c.Name)) {
			continue
		}
		if containsSeq(words, lowerWords(c.Description)) {
			continue
		}
		out = append(out, c.Description+" "+c.Name)
	}
	return out
}

func lowerWords(s string) []string {
	tokens := storycontext.Words(s)
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = strings.ToLower(t.Text)
	}
	return out
}

func containsSeq(haystack, needle []string) bool {
	if len(needle) == 0 {
		return false
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j := range needle {
			if haystack[i+j] != needle[j] {
				continue outer
			}
		}
		return true
	}
	return false
}
