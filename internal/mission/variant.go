package mission

import (
	"strings"

	"github.com/abhisek/missionkit/internal/content"
)

// GameType identifies a mini-game. The set is closed; see Variants.
type GameType string

const (
	GameWordCatcher     GameType = "word-catcher"
	GameGrammarGate     GameType = "grammar-gate"
	GameImageMatch      GameType = "image-match"
	GameSentenceBuilder GameType = "sentence-builder"
	GameMapExplorer     GameType = "map-explorer"
)

// Interaction is how a learner acts on a presented item.
type Interaction string

const (
	// InteractCatch: the learner catches items; distractors should be let go.
	InteractCatch Interaction = "catch"
	// InteractGate: the learner accepts or rejects each item at a gate.
	InteractGate Interaction = "gate"
	// InteractMatch: the learner pairs each item with its word.
	InteractMatch Interaction = "match"
	// InteractAssemble: the learner assembles the item's text from parts.
	InteractAssemble Interaction = "assemble"
)

// Variant is the per-game strategy selected once per session.
type Variant struct {
	Type            GameType
	Name            string
	ItemTypes       []content.ItemType
	UsesDistractors bool
	Interaction     Interaction
}

var variants = map[GameType]Variant{
	GameWordCatcher: {
		Type:            GameWordCatcher,
		Name:            "Word Catcher",
		ItemTypes:       []content.ItemType{content.TypeWord},
		UsesDistractors: true,
		Interaction:     InteractCatch,
	},
	GameGrammarGate: {
		Type:            GameGrammarGate,
		Name:            "Grammar Gate",
		ItemTypes:       []content.ItemType{content.TypeSentence, content.TypeWord},
		UsesDistractors: true,
		Interaction:     InteractGate,
	},
	GameImageMatch: {
		Type:            GameImageMatch,
		Name:            "Image Match",
		ItemTypes:       []content.ItemType{content.TypeImageWordPair},
		UsesDistractors: false,
		Interaction:     InteractMatch,
	},
	GameSentenceBuilder: {
		Type:            GameSentenceBuilder,
		Name:            "Sentence Builder",
		ItemTypes:       []content.ItemType{content.TypeSentence},
		UsesDistractors: false,
		Interaction:     InteractAssemble,
	},
	GameMapExplorer: {
		Type:            GameMapExplorer,
		Name:            "Map Explorer",
		ItemTypes:       []content.ItemType{content.TypeLocation},
		UsesDistractors: true,
		Interaction:     InteractCatch,
	},
}

// AllGameTypes returns the game types in display order.
func AllGameTypes() []GameType {
	return []GameType{GameWordCatcher, GameGrammarGate, GameImageMatch, GameSentenceBuilder, GameMapExplorer}
}

// LookupVariant returns the variant of gt. ok is false for unknown types.
func LookupVariant(gt GameType) (Variant, bool) {
	v, ok := variants[GameType(strings.ToLower(strings.TrimSpace(string(gt))))]
	return v, ok
}
