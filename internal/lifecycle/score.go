package lifecycle

import "github.com/abhisek/missionkit/internal/mission"

// StreakStep is the streak length at whose multiples the bonus is paid.
const StreakStep = 3

// Outcome classifies a resolved item for scoring.
type Outcome int

const (
	OutcomeCorrect Outcome = iota // active, right
	OutcomeWrong                  // active, wrong
	OutcomeMissed                 // passive, a correct item expired
	OutcomeAvoided                // passive, a distractor expired
)

// Counts reports whether the outcome counts as correct.
func (o Outcome) Counts() bool {
	return o == OutcomeCorrect || o == OutcomeAvoided
}

// ScoreRules applies the uniform score accrual of every mini-game.
type ScoreRules struct {
	mission.Scoring
}

// Apply returns the score delta and the new streak for an outcome.
func (r ScoreRules) Apply(o Outcome, streak int) (delta, next int) {
	switch o {
	case OutcomeCorrect:
		next = streak + 1
		delta = r.CorrectPoints
		if r.StreakBonus > 0 && next%StreakStep == 0 {
			delta += r.StreakBonus
		}
		return delta, next
	case OutcomeWrong:
		return r.WrongPenalty, 0
	case OutcomeMissed:
		return r.MissPenalty, 0
	default:
		return 0, streak
	}
}

// Floor adds delta to score without going below zero.
func Floor(score, delta int) int {
	return max(0, score+delta)
}
