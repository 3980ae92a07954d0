// Package storycontext derives cross-sentence narrative context: which
// adjective describes each named character, and where each sentence is set.
package storycontext

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// POS is a coarse part-of-speech tag.
type POS int

const (
	POSOther POS = iota
	POSProperNoun
	POSAdjective
	POSDeterminer
	POSPreposition
	POSPronoun
)

func (p POS) String() string {
	switch p {
	case POSProperNoun:
		return "NNP"
	case POSAdjective:
		return "JJ"
	case POSDeterminer:
		return "DT"
	case POSPreposition:
		return "IN"
	case POSPronoun:
		return "PRP"
	default:
		return "X"
	}
}

// Entity is a named-entity label attached to proper-noun tokens.
type Entity int

const (
	EntityNone Entity = iota
	EntityPerson
	EntityLocation
)

// Token is one tagged word. Start and End are byte offsets into the sentence.
type Token struct {
	Text   string
	POS    POS
	Entity Entity
	Start  int
	End    int
}

// Tagger assigns part-of-speech and entity labels to the words of a sentence.
type Tagger interface {
	Tag(sentence string) []Token
}

var wordRe = regexp.MustCompile(`\p{L}[\p{L}\p{N}]*|\p{N}+`)

// Words splits a sentence into word tokens with byte offsets, untagged.
func Words(sentence string) []Token {
	idx := wordRe.FindAllStringIndex(sentence, -1)
	tokens := make([]Token, len(idx))
	for i, loc := range idx {
		tokens[i] = Token{Text: sentence[loc[0]:loc[1]], Start: loc[0], End: loc[1]}
	}
	return tokens
}

// RuleTagger is a lexicon and suffix based tagger tuned for short
// children's-story sentences.
type RuleTagger struct{}

// NewRuleTagger returns the default tagger.
func NewRuleTagger() RuleTagger { return RuleTagger{} }

func (RuleTagger) Tag(sentence string) []Token {
	tokens := Words(sentence)
	for i := range tokens {
		tokens[i].POS = tagWord(tokens[i].Text, i == 0)
	}
	labelEntities(tokens)
	return tokens
}

func tagWord(word string, sentenceInitial bool) POS {
	lower := strings.ToLower(word)
	if pos, ok := closedClass[lower]; ok {
		return pos
	}
	if adjectives[lower] {
		return POSAdjective
	}

	r, _ := utf8.DecodeRuneInString(word)
	if unicode.IsUpper(r) {
		if functionWords[lower] {
			return POSOther
		}
		if sentenceInitial {
			if hasAdjectiveSuffix(lower) {
				return POSAdjective
			}
			if strings.HasSuffix(lower, "ly") {
				return POSOther
			}
		}
		return POSProperNoun
	}

	if hasAdjectiveSuffix(lower) {
		return POSAdjective
	}
	return POSOther
}

func hasAdjectiveSuffix(lower string) bool {
	if len(lower) < 6 || suffixExceptions[lower] {
		return false
	}
	for _, suf := range adjectiveSuffixes {
		if strings.HasSuffix(lower, suf) {
			return true
		}
	}
	return false
}

// labelEntities marks contiguous proper-noun spans. A span directly after a
// location preposition is a place; every other span is a person.
func labelEntities(tokens []Token) {
	for i := 0; i < len(tokens); {
		if tokens[i].POS != POSProperNoun {
			i++
			continue
		}
		j := i
		for j < len(tokens) && tokens[j].POS == POSProperNoun {
			j++
		}
		label := EntityPerson
		if i > 0 && locationPrepositions[strings.ToLower(tokens[i-1].Text)] {
			label = EntityLocation
		}
		for k := i; k < j; k++ {
			tokens[k].Entity = label
		}
		i = j
	}
}

// Spans returns the contiguous runs of tokens labelled with entity, as
// [start, end) index pairs.
func Spans(tokens []Token, entity Entity) [][2]int {
	var spans [][2]int
	for i := 0; i < len(tokens); {
		if tokens[i].Entity != entity {
			i++
			continue
		}
		j := i
		for j < len(tokens) && tokens[j].Entity == entity {
			j++
		}
		spans = append(spans, [2]int{i, j})
		i = j
	}
	return spans
}
