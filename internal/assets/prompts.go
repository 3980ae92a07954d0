// Package assets provides the prompt templates embedded at compile time.
// Templates live as text files under prompts/.
package assets

import (
	"bytes"
	_ "embed"
	"text/template"
)

// StorySystemPrompt is the system instruction for story generation.
//
//go:embed prompts/story-system.txt
var StorySystemPrompt string

// SimplifySystemPrompt is the system instruction for story simplification.
//
//go:embed prompts/simplify-system.txt
var SimplifySystemPrompt string

//go:embed prompts/story.txt
var storyTemplate string

//go:embed prompts/simplify.txt
var simplifyTemplate string

// DefaultSentenceCount is the number of sentences requested per story.
const DefaultSentenceCount = 5

// template.Must panics on malformed templates at startup rather than at call time.
var (
	storyTmpl    = template.Must(template.New("story").Parse(storyTemplate))
	simplifyTmpl = template.Must(template.New("simplify").Parse(simplifyTemplate))
)

// StoryPromptData is injected into the story template.
type StoryPromptData struct {
	Topic         string
	SentenceCount int
}

// RenderStoryPrompt renders the story request for a topic.
func RenderStoryPrompt(topic string, sentenceCount int) string {
	if sentenceCount <= 0 {
		sentenceCount = DefaultSentenceCount
	}
	return render(storyTmpl, StoryPromptData{Topic: topic, SentenceCount: sentenceCount})
}

// RenderSimplifyPrompt renders the simplification request for a detailed story.
func RenderSimplifyPrompt(story string) string {
	return render(simplifyTmpl, struct{ Story string }{Story: story})
}

func render(tmpl *template.Template, data any) string {
	var buf bytes.Buffer
	// Execution only fails on template/data mismatches, which the tests pin down.
	_ = tmpl.Execute(&buf, data)
	return buf.String()
}
