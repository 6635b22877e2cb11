package dataset

import (
	"fmt"
	"strings"
)

// Reason identifies one way a content bank cannot support a session.
type Reason string

const (
	ReasonEmptyBank      Reason = "empty_bank"
	ReasonNoCorrectItems Reason = "no_correct_items"
	ReasonBankTooSmall   Reason = "bank_too_small"
)

// Message returns the instructor-facing description of r.
func (r Reason) Message() string {
	switch r {
	case ReasonEmptyBank:
		return "This topic has no content items for this game yet. Add items before starting the mission."
	case ReasonNoCorrectItems:
		return "This topic has no correct items for this game. Mark at least one item as correct."
	case ReasonBankTooSmall:
		return "This topic has fewer items than the mission asks for. Add items or lower the item count."
	}
	return string(r)
}

// ContentInsufficientError reports why a content bank cannot start a session.
type ContentInsufficientError struct {
	Reasons   []Reason
	Available int // accepted items in the bank
	Requested int // resolved item count
}

func (e *ContentInsufficientError) Error() string {
	msgs := make([]string, len(e.Reasons))
	for i, r := range e.Reasons {
		msgs[i] = string(r)
	}
	return fmt.Sprintf("content insufficient (%d available, %d requested): %s",
		e.Available, e.Requested, strings.Join(msgs, ", "))
}

// Has reports whether r is among the error's reasons.
func (e *ContentInsufficientError) Has(r Reason) bool {
	for _, got := range e.Reasons {
		if got == r {
			return true
		}
	}
	return false
}

// Messages returns the human-readable message of every reason, in order.
func (e *ContentInsufficientError) Messages() []string {
	out := make([]string, len(e.Reasons))
	for i, r := range e.Reasons {
		out[i] = r.Message()
	}
	return out
}
