// Package story holds the domain types shared by every stage of the
// topic-to-illustrated-story pipeline.
package story

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxTopicLength bounds the topic in runes.
const MaxTopicLength = 200

// DefaultStyle is used when a request names no image style.
const DefaultStyle = "whimsical"

// Sentence is one ordered segment of a narrative. Index is zero-based and
// fixed at creation.
type Sentence struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Narrative is the text produced for a topic. Detailed is always the
// sentences joined by a single space; Simplified is never empty.
type Narrative struct {
	Detailed   string     `json:"detailed"`
	Simplified string     `json:"simplified"`
	Sentences  []Sentence `json:"sentences"`
	Provider   string     `json:"provider"`
}

// NewNarrative builds a Narrative from an ordered list of sentence texts.
func NewNarrative(provider string, texts []string) *Narrative {
	sentences := make([]Sentence, len(texts))
	for i, t := range texts {
		sentences[i] = Sentence{Index: i, Text: t}
	}
	detailed := strings.Join(texts, " ")
	return &Narrative{
		Detailed:   detailed,
		Simplified: detailed,
		Sentences:  sentences,
		Provider:   provider,
	}
}

// Texts returns the sentence texts in order.
func (n *Narrative) Texts() []string {
	out := make([]string, len(n.Sentences))
	for i, s := range n.Sentences {
		out[i] = s.Text
	}
	return out
}

// ImageArtifact is a persisted illustration for one sentence.
type ImageArtifact struct {
	SentenceIndex int    `json:"sentenceIndex"`
	Prompt        string `json:"prompt"`
	URL           string `json:"imageUrl"`
}

// ValidateTopic trims the topic and rejects empty or oversized input.
func ValidateTopic(topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", fmt.Errorf("%w: topic is required", ErrValidation)
	}
	if utf8.RuneCountInString(topic) > MaxTopicLength {
		return "", fmt.Errorf("%w: topic must be at most %d characters", ErrValidation, MaxTopicLength)
	}
	return topic, nil
}

// StyleSuffix is the style tag appended to every image prompt.
func StyleSuffix(style string) string {
	style = strings.TrimSpace(style)
	if style == "" {
		style = DefaultStyle
	}
	return style + " style, illustration, vibrant colors"
}
