package evaluator

import "github.com/abhisek/missionkit/internal/tracker"

// Performance is a coarse accuracy bucket.
type Performance string

const (
	PerformanceExcellent Performance = "excellent"
	PerformanceGood      Performance = "good"
	PerformanceFair      Performance = "fair"
	PerformancePoor      Performance = "poor"
)

// Criteria are the thresholds a result is judged against. Start from
// DefaultCriteria and override what differs; zero values are used as given.
type Criteria struct {
	MinScoreToPass       float64
	MinAccuracyToPass    float64 // percent
	ExcellentThreshold   float64 // percent
	GoodThreshold        float64 // percent
	StrengthThreshold    float64 // tag accuracy percent at or above which a tag is a strength
	ImprovementThreshold float64 // tag accuracy percent below which a tag needs work
	DefaultTag           string

	// Tagger overrides how an answer is assigned a rule tag. Nil uses RuleTag.
	Tagger func(tracker.AnswerRecord) string
}

// DefaultCriteria returns the standard thresholds.
func DefaultCriteria() Criteria {
	return Criteria{
		MinScoreToPass:       50,
		MinAccuracyToPass:    60,
		ExcellentThreshold:   80,
		GoodThreshold:        65,
		StrengthThreshold:    80,
		ImprovementThreshold: 60,
		DefaultTag:           "general",
	}
}

// Input is the frozen outcome of a session.
type Input struct {
	Score           int
	Accuracy        float64 // percent; recomputed from counts when not finite
	CorrectCount    int
	WrongCount      int
	DurationSeconds float64
	Completed       bool
	Answers         []tracker.AnswerRecord
}

// Summary is the headline of a result.
type Summary struct {
	ScoreRaw        int         `json:"scoreRaw"`
	ScoreFinal      float64     `json:"scoreFinal"`
	DurationSeconds int         `json:"durationSeconds"`
	CorrectCount    int         `json:"correctCount"`
	WrongCount      int         `json:"wrongCount"`
	Accuracy        float64     `json:"accuracy"`
	Performance     Performance `json:"performance"`
	Passed          bool        `json:"passed"`
	Completed       bool        `json:"completed"`
}

// EventCounts counts records per event kind.
type EventCounts struct {
	Catch        int `json:"catch"`
	Miss         int `json:"miss"`
	Avoid        int `json:"avoid"`
	MatchAttempt int `json:"matchAttempt"`
}

// TagStat is the accuracy of one rule tag.
type TagStat struct {
	Tag      string  `json:"tag"`
	Attempts int     `json:"attempts"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// Breakdown details where the result came from.
type Breakdown struct {
	Events EventCounts `json:"events"`
	Tags   []TagStat   `json:"tags"`
}

// Review is the pedagogical part of a result.
type Review struct {
	Strengths           []string `json:"strengths"`
	Improvements        []string `json:"improvements"`
	RecommendedPractice string   `json:"recommendedPractice"`
	Mastered            bool     `json:"mastered"`
	CoachNote           string   `json:"coachNote,omitempty"`
}

// StandardizedDetails is the persisted evaluation of a session.
type StandardizedDetails struct {
	Summary   Summary                `json:"summary"`
	Breakdown Breakdown              `json:"breakdown"`
	Review    Review                 `json:"review"`
	Answers   []tracker.AnswerRecord `json:"answers"`
	Fallback  bool                   `json:"fallback,omitempty"`
}
