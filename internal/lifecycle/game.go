package lifecycle

import (
	"time"

	"github.com/abhisek/missionkit/internal/dataset"
	"github.com/abhisek/missionkit/internal/mission"
	"github.com/abhisek/missionkit/internal/tracker"
)

// Action is a learner interaction with a live item.
type Action struct {
	// ItemID targets a live item. Empty targets the oldest live item.
	ItemID string
	// Accept is the gate decision: let the item through or block it.
	Accept bool
	// Answer is the chosen word (match) or assembled text (assemble).
	Answer   string
	Position *tracker.Position
}

// Game is the item-specific part of a mini-game. The lifecycle owns timers,
// pausing, scoring and ending; a Game only turns interactions into records.
type Game interface {
	Interaction() mission.Interaction

	// Lifetime is how long a presented item stays in play.
	Lifetime(rc mission.ResolvedConfig) time.Duration

	// Act records an active learner interaction with item.
	Act(t *tracker.Tracker, item dataset.PreparedItem, a Action) tracker.AnswerRecord

	// Expire records an item leaving play without interaction.
	Expire(t *tracker.Tracker, item dataset.PreparedItem) tracker.AnswerRecord
}

// ForVariant returns the handler of v's interaction. Unknown interactions
// fall back to catching.
func ForVariant(v mission.Variant) Game {
	switch v.Interaction {
	case mission.InteractGate:
		return gateGame{}
	case mission.InteractMatch:
		return matchGame{}
	case mission.InteractAssemble:
		return assembleGame{}
	default:
		return catchGame{}
	}
}

func scaled(base time.Duration, speed float64) time.Duration {
	if speed <= 0 {
		return base
	}
	return time.Duration(float64(base) / speed)
}

// expirePassive covers the shared rule: an expiring correct item is a miss,
// an expiring distractor is avoided.
func expirePassive(t *tracker.Tracker, item dataset.PreparedItem) tracker.AnswerRecord {
	if item.IsCorrect {
		return t.RecordMissedWord(item)
	}
	return t.RecordAvoidedDistractor(item)
}

// catchGame: catch correct items as they fall, let distractors go.
type catchGame struct{}

func (catchGame) Interaction() mission.Interaction { return mission.InteractCatch }

func (catchGame) Lifetime(rc mission.ResolvedConfig) time.Duration {
	return scaled(6*time.Second, rc.FallSpeed)
}

func (catchGame) Act(t *tracker.Tracker, item dataset.PreparedItem, a Action) tracker.AnswerRecord {
	if item.IsCorrect {
		return t.RecordCorrectCatch(item, a.Position)
	}
	return t.RecordDistractorCatch(item, a.Position)
}

func (catchGame) Expire(t *tracker.Tracker, item dataset.PreparedItem) tracker.AnswerRecord {
	return expirePassive(t, item)
}

// gateGame: accept correct items and block distractors at a gate.
type gateGame struct{}

func (gateGame) Interaction() mission.Interaction { return mission.InteractGate }

func (gateGame) Lifetime(rc mission.ResolvedConfig) time.Duration {
	return scaled(8*time.Second, rc.FallSpeed)
}

func (gateGame) Act(t *tracker.Tracker, item dataset.PreparedItem, a Action) tracker.AnswerRecord {
	switch {
	case a.Accept && item.IsCorrect:
		return t.RecordCorrectCatch(item, a.Position)
	case a.Accept:
		return t.RecordDistractorCatch(item, a.Position)
	case item.IsCorrect:
		return t.RecordMissedWord(item)
	default:
		return t.RecordAvoidedDistractor(item)
	}
}

func (gateGame) Expire(t *tracker.Tracker, item dataset.PreparedItem) tracker.AnswerRecord {
	return expirePassive(t, item)
}

// matchGame: pair each image with its word.
type matchGame struct{}

func (matchGame) Interaction() mission.Interaction { return mission.InteractMatch }

func (matchGame) Lifetime(rc mission.ResolvedConfig) time.Duration {
	return scaled(10*time.Second, rc.FallSpeed)
}

func (matchGame) Act(t *tracker.Tracker, item dataset.PreparedItem, a Action) tracker.AnswerRecord {
	return t.RecordMatchAttempt(item, a.Answer, a.Position)
}

func (matchGame) Expire(t *tracker.Tracker, item dataset.PreparedItem) tracker.AnswerRecord {
	return expirePassive(t, item)
}

// assembleGame: rebuild each sentence from its shuffled words.
type assembleGame struct{}

func (assembleGame) Interaction() mission.Interaction { return mission.InteractAssemble }

func (assembleGame) Lifetime(rc mission.ResolvedConfig) time.Duration {
	return scaled(20*time.Second, rc.FallSpeed)
}

func (assembleGame) Act(t *tracker.Tracker, item dataset.PreparedItem, a Action) tracker.AnswerRecord {
	return t.RecordMatchAttempt(item, a.Answer, a.Position)
}

func (assembleGame) Expire(t *tracker.Tracker, item dataset.PreparedItem) tracker.AnswerRecord {
	return expirePassive(t, item)
}
