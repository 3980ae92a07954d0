package storycontext

import (
	"strings"

	"golang.org/x/text/cases"
)

// SceneKeywords are checked in this order; the first keyword that occurs in
// a sentence decides its scene phrase.
var SceneKeywords = []string{"in a", "inside a", "at the", "on a", "beneath the", "above the"}

// Character is a named character and the adjective first used to describe it.
type Character struct {
	Name        string
	Description string
}

// RunningContext accumulates character descriptions across the sentences
// of one story. A name keeps the first description recorded for it.
type RunningContext struct {
	descriptions map[string]string
	order        []string
}

// NewRunningContext returns an empty context.
func NewRunningContext() *RunningContext {
	return &RunningContext{descriptions: make(map[string]string)}
}

// Describe records desc for name unless name already has a description.
// It reports whether the description was recorded.
func (rc *RunningContext) Describe(name, desc string) bool {
	if name == "" || desc == "" {
		return false
	}
	if _, ok := rc.descriptions[name]; ok {
		return false
	}
	rc.descriptions[name] = desc
	rc.order = append(rc.order, name)
	return true
}

// Description returns the recorded description for name.
func (rc *RunningContext) Description(name string) (string, bool) {
	d, ok := rc.descriptions[name]
	return d, ok
}

// Characters returns every described character in first-seen order.
func (rc *RunningContext) Characters() []Character {
	out := make([]Character, len(rc.order))
	for i, name := range rc.order {
		out[i] = Character{Name: name, Description: rc.descriptions[name]}
	}
	return out
}

// Len is the number of described characters.
func (rc *RunningContext) Len() int { return len(rc.order) }

// Extractor updates a RunningContext from one sentence at a time.
type Extractor struct {
	tagger Tagger
}

// NewExtractor creates an Extractor. A nil tagger selects the RuleTagger.
func NewExtractor(tagger Tagger) *Extractor {
	if tagger == nil {
		tagger = NewRuleTagger()
	}
	return &Extractor{tagger: tagger}
}

// Extract records character descriptions found in sentence into rc and
// returns the sentence's scene phrase, if any.
func (e *Extractor) Extract(sentence string, rc *RunningContext) (scene string, ok bool) {
	tokens := e.tagger.Tag(sentence)
	for _, span := range Spans(tokens, EntityPerson) {
		last := span[1] - 1
		if last == 0 {
			continue
		}
		prev := tokens[last-1]
		if prev.POS != POSAdjective {
			continue
		}
		names := make([]string, 0, span[1]-span[0])
		for _, t := range tokens[span[0]:span[1]] {
			names = append(names, t.Text)
		}
		rc.Describe(strings.Join(names, " "), strings.ToLower(prev.Text))
	}
	return ScenePhrase(sentence)
}

// ScenePhrase returns the text following the first scene keyword found in
// sentence. Keywords match case-insensitively on whole words only. If the
// first matching keyword ends the sentence there is no scene.
func ScenePhrase(sentence string) (string, bool) {
	words := Words(sentence)
	fold := cases.Fold()
	folded := make([]string, len(words))
	for i, w := range words {
		folded[i] = fold.String(w.Text)
	}

	for _, kw := range SceneKeywords {
		kwWords := strings.Fields(fold.String(kw))
		end, found := findWords(folded, words, kwWords)
		if !found {
			continue
		}
		phrase := strings.TrimRight(strings.TrimSpace(sentence[end:]), `.!?,;:"'”’)`)
		phrase = strings.TrimSpace(phrase)
		// Only the first matching keyword counts, even with nothing after it.
		return phrase, phrase != ""
	}
	return "", false
}

// findWords returns the byte offset just past the first occurrence of
// needle as consecutive words.
func findWords(folded []string, words []Token, needle []string) (int, bool) {
	if len(needle) == 0 {
		return 0, false
	}
outer:
	for i := 0; i+len(needle) <= len(folded); i++ {
		for j, n := range needle {
			if folded[i+j] != n {
				continue outer
			}
		}
		return words[i+len(needle)-1].End, true
	}
	return 0, false
}
