// Package content models the instructor-curated content bank that missions draw
// their challenge items from. The bank is owned elsewhere; everything here is
// read-only.
package content

import "strings"

// ItemType is the kind of challenge an item represents.
type ItemType string

const (
	TypeWord          ItemType = "word"
	TypeSentence      ItemType = "sentence"
	TypeLocation      ItemType = "location"
	TypeImageWordPair ItemType = "imageWordPair"
)

// AllTypes returns every known item type.
func AllTypes() []ItemType {
	return []ItemType{TypeWord, TypeSentence, TypeLocation, TypeImageWordPair}
}

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	for _, known := range AllTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Item is a single entry of a topic's content bank.
type Item struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	IsCorrect bool           `json:"isCorrect"`
	ImageURL  string         `json:"imageUrl,omitempty"`
	Type      ItemType       `json:"type"`
	RuleTag   string         `json:"ruleTag,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Tag returns the rule tag the item exercises. An explicit RuleTag wins,
// then a "ruleTag" or "rule" string in Metadata. Empty when none is set.
func (it Item) Tag() string {
	if t := strings.TrimSpace(it.RuleTag); t != "" {
		return t
	}
	for _, key := range []string{"ruleTag", "rule"} {
		if v, ok := it.Metadata[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Partition splits items into correct and distractor pools, keeping order.
func Partition(items []Item) (correct, distractors []Item) {
	for _, it := range items {
		if it.IsCorrect {
			correct = append(correct, it)
		} else {
			distractors = append(distractors, it)
		}
	}
	return correct, distractors
}

// FilterTypes keeps the items whose type is in accepted. A nil or empty
// accepted list keeps everything.
func FilterTypes(items []Item, accepted []ItemType) []Item {
	if len(accepted) == 0 {
		return items
	}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		for _, t := range accepted {
			if it.Type == t {
				out = append(out, it)
				break
			}
		}
	}
	return out
}
