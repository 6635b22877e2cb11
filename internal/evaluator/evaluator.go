// Package evaluator turns the raw outcome of a session into a standardized
// result: a normalized score, a performance tier, pass or fail, and a review
// of strong and weak rule tags.
package evaluator

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/abhisek/missionkit/internal/tracker"
)

// MasteredMessage is the recommendation when no tag needs work.
const MasteredMessage = "All practiced rules look mastered. Try a harder mission."

// Evaluate derives StandardizedDetails from in. A nil criteria uses
// DefaultCriteria. It never panics: an internal failure yields the fallback
// result instead.
func Evaluate(in Input, criteria *Criteria) (out StandardizedDetails) {
	c := DefaultCriteria()
	if criteria != nil {
		c = *criteria
	}
	in = sanitize(in)

	defer func() {
		if r := recover(); r != nil {
			out = Fallback(in)
		}
	}()

	accuracy := in.Accuracy
	out.Summary = Summary{
		ScoreRaw:        in.Score,
		ScoreFinal:      FinalScore(in.CorrectCount, in.WrongCount),
		DurationSeconds: int(math.Round(in.DurationSeconds)),
		CorrectCount:    in.CorrectCount,
		WrongCount:      in.WrongCount,
		Accuracy:        round1(accuracy),
		Performance:     Tier(accuracy, c),
		Passed:          float64(in.Score) >= c.MinScoreToPass && accuracy >= c.MinAccuracyToPass,
		Completed:       in.Completed,
	}
	out.Breakdown = Breakdown{
		Events: countEvents(in.Answers),
		Tags:   tagStats(in.Answers, c),
	}
	out.Review = review(out.Breakdown.Tags, c)
	out.Answers = copyAnswers(in.Answers)
	return out
}

// Fallback is the conservative result used when evaluation fails: fair
// performance, not passed, raw score kept.
func Fallback(in Input) StandardizedDetails {
	return StandardizedDetails{
		Summary: Summary{
			ScoreRaw:        in.Score,
			ScoreFinal:      FinalScore(in.CorrectCount, in.WrongCount),
			DurationSeconds: int(math.Round(in.DurationSeconds)),
			CorrectCount:    in.CorrectCount,
			WrongCount:      in.WrongCount,
			Accuracy:        round1(in.Accuracy),
			Performance:     PerformanceFair,
			Completed:       in.Completed,
		},
		Breakdown: Breakdown{Tags: []TagStat{}},
		Review:    Review{Strengths: []string{}, Improvements: []string{}},
		Answers:   copyAnswers(in.Answers),
		Fallback:  true,
	}
}

// FinalScore is the correctness ratio on a 0 to 10 scale, one decimal.
func FinalScore(correct, wrong int) float64 {
	correct, wrong = max(0, correct), max(0, wrong)
	v := round1(float64(correct) / float64(max(1, correct+wrong)) * 10)
	return math.Max(0, v)
}

// Tier buckets an accuracy percentage.
func Tier(accuracy float64, c Criteria) Performance {
	switch {
	case accuracy >= c.ExcellentThreshold:
		return PerformanceExcellent
	case accuracy >= c.GoodThreshold:
		return PerformanceGood
	case accuracy >= c.MinAccuracyToPass:
		return PerformanceFair
	default:
		return PerformancePoor
	}
}

// Accuracy is correct/(correct+wrong) as a percentage, 0 when both are 0.
func Accuracy(correct, wrong int) float64 {
	total := correct + wrong
	if total <= 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

func sanitize(in Input) Input {
	in.CorrectCount = max(0, in.CorrectCount)
	in.WrongCount = max(0, in.WrongCount)
	in.Score = max(0, in.Score)
	if math.IsNaN(in.DurationSeconds) || math.IsInf(in.DurationSeconds, 0) || in.DurationSeconds < 0 {
		in.DurationSeconds = 0
	}
	if math.IsNaN(in.Accuracy) || math.IsInf(in.Accuracy, 0) {
		in.Accuracy = Accuracy(in.CorrectCount, in.WrongCount)
	}
	in.Accuracy = math.Min(100, math.Max(0, in.Accuracy))
	return in
}

func countEvents(answers []tracker.AnswerRecord) EventCounts {
	var e EventCounts
	for _, a := range answers {
		switch a.Event {
		case tracker.EventCatch:
			e.Catch++
		case tracker.EventMiss:
			e.Miss++
		case tracker.EventAvoid:
			e.Avoid++
		case tracker.EventMatchAttempt:
			e.MatchAttempt++
		}
	}
	return e
}

func tagStats(answers []tracker.AnswerRecord, c Criteria) []TagStat {
	defTag := strings.TrimSpace(c.DefaultTag)
	if defTag == "" {
		defTag = "general"
	}

	byTag := make(map[string]*TagStat)
	var order []string
	for _, a := range answers {
		tag := a.RuleTag
		if c.Tagger != nil {
			tag = c.Tagger(a)
		}
		tag = strings.TrimSpace(tag)
		if tag == "" {
			tag = defTag
		}
		st, ok := byTag[tag]
		if !ok {
			st = &TagStat{Tag: tag}
			byTag[tag] = st
			order = append(order, tag)
		}
		st.Attempts++
		if a.IsCorrect {
			st.Correct++
		}
	}

	slices.Sort(order)
	out := make([]TagStat, 0, len(order))
	for _, tag := range order {
		st := byTag[tag]
		st.Accuracy = round1(Accuracy(st.Correct, st.Attempts-st.Correct))
		out = append(out, *st)
	}
	return out
}

func review(tags []TagStat, c Criteria) Review {
	r := Review{Strengths: []string{}, Improvements: []string{}}
	var worst *TagStat
	for i := range tags {
		t := &tags[i]
		// Thresholds apply to the exact ratio; Accuracy is rounded for display.
		acc := exactAccuracy(t)
		switch {
		case acc >= c.StrengthThreshold:
			r.Strengths = append(r.Strengths, t.Tag)
		case acc < c.ImprovementThreshold:
			r.Improvements = append(r.Improvements, t.Tag)
			if worst == nil || worse(t, worst) {
				worst = t
			}
		}
	}
	if worst == nil {
		r.Mastered = true
		r.RecommendedPractice = MasteredMessage
		return r
	}
	r.RecommendedPractice = fmt.Sprintf("Practice %s next.", worst.Tag)
	return r
}

// worse orders by accuracy, then by more attempts, then by tag name.
func worse(a, b *TagStat) bool {
	if x, y := exactAccuracy(a), exactAccuracy(b); x != y {
		return x < y
	}
	if a.Attempts != b.Attempts {
		return a.Attempts > b.Attempts
	}
	return cmp.Less(a.Tag, b.Tag)
}

func exactAccuracy(t *TagStat) float64 {
	return Accuracy(t.Correct, t.Attempts-t.Correct)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func copyAnswers(answers []tracker.AnswerRecord) []tracker.AnswerRecord {
	if len(answers) == 0 {
		return []tracker.AnswerRecord{}
	}
	return tracker.Clone(answers)
}
