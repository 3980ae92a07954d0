package storycontext

var closedClass = map[string]POS{
	"a": POSDeterminer, "an": POSDeterminer, "the": POSDeterminer, "this": POSDeterminer,
	"that": POSDeterminer, "these": POSDeterminer, "those": POSDeterminer, "every": POSDeterminer,
	"each": POSDeterminer, "some": POSDeterminer, "his": POSDeterminer, "her": POSDeterminer,
	"their": POSDeterminer, "its": POSDeterminer, "my": POSDeterminer, "our": POSDeterminer, "your": POSDeterminer,

	"in": POSPreposition, "inside": POSPreposition, "at": POSPreposition, "on": POSPreposition,
	"beneath": POSPreposition, "above": POSPreposition, "under": POSPreposition, "over": POSPreposition,
	"to": POSPreposition, "from": POSPreposition, "near": POSPreposition, "with": POSPreposition,
	"by": POSPreposition, "into": POSPreposition, "through": POSPreposition, "across": POSPreposition,
	"behind": POSPreposition, "of": POSPreposition, "for": POSPreposition, "upon": POSPreposition,

	"he": POSPronoun, "she": POSPronoun, "they": POSPronoun, "it": POSPronoun, "we": POSPronoun,
	"i": POSPronoun, "you": POSPronoun, "him": POSPronoun, "them": POSPronoun, "us": POSPronoun,
}

// functionWords are capitalised at sentence start but never names.
var functionWords = map[string]bool{
	"once": true, "one": true, "then": true, "when": true, "after": true, "before": true,
	"suddenly": true, "soon": true, "finally": true, "together": true, "there": true,
	"and": true, "but": true, "so": true, "as": true, "while": true, "later": true,
	"everyone": true, "nobody": true, "someday": true, "today": true, "tomorrow": true,
	"yesterday": true, "meanwhile": true, "now": true, "with": true, "all": true,
}

var locationPrepositions = map[string]bool{
	"in": true, "at": true, "to": true, "from": true, "near": true, "inside": true,
}

var adjectives = map[string]bool{
	"brave": true, "young": true, "old": true, "little": true, "big": true, "small": true,
	"tiny": true, "kind": true, "wise": true, "shy": true, "happy": true, "sad": true,
	"clever": true, "gentle": true, "bold": true, "proud": true, "lonely": true,
	"friendly": true, "sleepy": true, "grumpy": true, "silly": true, "fierce": true,
	"quiet": true, "loud": true, "tall": true, "short": true, "red": true, "blue": true,
	"green": true, "golden": true, "silver": true, "white": true, "black": true,
	"brown": true, "purple": true, "pink": true, "yellow": true, "bright": true,
	"dark": true, "sweet": true, "mighty": true, "noble": true, "lazy": true, "busy": true,
	"hungry": true, "lucky": true, "smart": true, "strong": true, "swift": true,
	"quick": true, "giant": true, "magical": true, "ancient": true, "shiny": true,
	"fluffy": true, "cozy": true, "clumsy": true, "daring": true,
	"eager": true, "fearless": true, "merry": true, "jolly": true, "calm": true,
	"sparkly": true, "tired": true, "wild": true, "warm": true, "cold": true, "snowy": true,
	"sunny": true, "rainy": true, "windy": true, "hollow": true, "wooden": true, "great": true,
}

var adjectiveSuffixes = []string{"ful", "ous", "ive", "ish", "less", "able", "ible"}

var suffixExceptions = map[string]bool{
	"finish": true, "polish": true, "publish": true, "punish": true, "vanish": true,
	"perish": true, "cherish": true, "relish": true, "nourish": true, "flourish": true,
	"arrive": true, "archive": true, "receive": true, "believe": true, "forgive": true,
	"unless": true, "table": true, "stable": true, "cable": true, "fable": true, "bible": true,
	"thrive": true, "survive": true, "deprive": true, "motive": true, "detective": true,
}
