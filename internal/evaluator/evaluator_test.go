package evaluator

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"github.com/abhisek/missionkit/internal/tracker"
)

func answers(tag string, correct, wrong int) []tracker.AnswerRecord {
	var out []tracker.AnswerRecord
	for i := 0; i < correct; i++ {
		out = append(out, tracker.AnswerRecord{ItemID: tag, IsCorrect: true, Event: tracker.EventCatch, RuleTag: tag})
	}
	for i := 0; i < wrong; i++ {
		out = append(out, tracker.AnswerRecord{ItemID: tag, Event: tracker.EventMiss, RuleTag: tag})
	}
	return out
}

func TestEvaluate_SevenOfTen(t *testing.T) {
	in := Input{
		Score:           60,
		Accuracy:        70,
		CorrectCount:    7,
		WrongCount:      3,
		DurationSeconds: 42.6,
		Completed:       true,
		Answers:         answers("plural", 7, 3),
	}

	d := Evaluate(in, nil)
	if d.Summary.ScoreFinal != 7.0 {
		t.Errorf("score final = %v, want 7", d.Summary.ScoreFinal)
	}
	if d.Summary.Performance != PerformanceGood {
		t.Errorf("performance = %q, want good", d.Summary.Performance)
	}
	if !d.Summary.Passed {
		t.Error("expected passed")
	}
	if d.Summary.ScoreRaw != 60 || d.Summary.DurationSeconds != 43 {
		t.Errorf("summary = %+v", d.Summary)
	}
	if d.Fallback {
		t.Error("unexpected fallback")
	}

	in.Score = 40
	if Evaluate(in, nil).Summary.Passed {
		t.Error("raw score below 50 should fail")
	}
}

func TestTier(t *testing.T) {
	c := DefaultCriteria()
	tests := []struct {
		accuracy float64
		want     Performance
	}{
		{100, PerformanceExcellent},
		{80, PerformanceExcellent},
		{79.9, PerformanceGood},
		{65, PerformanceGood},
		{64.9, PerformanceFair},
		{60, PerformanceFair},
		{59.9, PerformancePoor},
		{0, PerformancePoor},
	}
	for _, tt := range tests {
		if got := Tier(tt.accuracy, c); got != tt.want {
			t.Errorf("Tier(%v) = %q, want %q", tt.accuracy, got, tt.want)
		}
	}
}

func TestFinalScore(t *testing.T) {
	tests := []struct {
		correct, wrong int
		want           float64
	}{
		{0, 0, 0},
		{4, 0, 10},
		{2, 1, 6.7},
		{1, 2, 3.3},
		{-3, 2, 0},
	}
	for _, tt := range tests {
		if got := FinalScore(tt.correct, tt.wrong); got != tt.want {
			t.Errorf("FinalScore(%d, %d) = %v, want %v", tt.correct, tt.wrong, got, tt.want)
		}
	}
}

func TestEvaluate_Review(t *testing.T) {
	var ans []tracker.AnswerRecord
	ans = append(ans, answers("plural", 9, 1)...)
	ans = append(ans, answers("past-tense", 1, 3)...)
	ans = append(ans, answers("articles", 2, 3)...)
	ans = append(ans, answers("", 2, 1)...)

	d := Evaluate(Input{Score: 100, CorrectCount: 14, WrongCount: 8, Accuracy: math.NaN(), Answers: ans}, nil)

	if !reflect.DeepEqual(d.Review.Strengths, []string{"plural"}) {
		t.Errorf("strengths = %v", d.Review.Strengths)
	}
	if !reflect.DeepEqual(d.Review.Improvements, []string{"articles", "past-tense"}) {
		t.Errorf("improvements = %v", d.Review.Improvements)
	}
	if d.Review.RecommendedPractice != "Practice past-tense next." {
		t.Errorf("recommended = %q", d.Review.RecommendedPractice)
	}
	if d.Review.Mastered {
		t.Error("should not be mastered")
	}

	tags := make([]string, len(d.Breakdown.Tags))
	for i, ts := range d.Breakdown.Tags {
		tags[i] = ts.Tag
	}
	if !reflect.DeepEqual(tags, []string{"articles", "general", "past-tense", "plural"}) {
		t.Errorf("tags = %v", tags)
	}
	if d.Breakdown.Tags[1].Accuracy != 66.7 {
		t.Errorf("general accuracy = %v, want 66.7", d.Breakdown.Tags[1].Accuracy)
	}
	if d.Summary.Accuracy != 63.6 {
		t.Errorf("NaN accuracy should be recomputed from counts, got %v", d.Summary.Accuracy)
	}
	if d.Breakdown.Events.Catch != 14 || d.Breakdown.Events.Miss != 8 {
		t.Errorf("events = %+v", d.Breakdown.Events)
	}
}

func TestEvaluate_ThresholdsUseExactTagAccuracy(t *testing.T) {
	// 1999/2500 is 79.96%, displayed as 80.0 but below the strength line.
	// 1499/2500 is 59.96%, displayed as 60.0 but below the improvement line.
	ans := append(answers("near-strength", 1999, 501), answers("near-pass", 1499, 1001)...)
	d := Evaluate(Input{Score: 100, CorrectCount: 3498, WrongCount: 1502, Accuracy: math.NaN(), Answers: ans}, nil)

	for _, ts := range d.Breakdown.Tags {
		if ts.Accuracy != 80.0 && ts.Accuracy != 60.0 {
			t.Errorf("%s displayed accuracy = %v", ts.Tag, ts.Accuracy)
		}
	}
	if len(d.Review.Strengths) != 0 {
		t.Errorf("79.96%% is not a strength: %v", d.Review.Strengths)
	}
	if !reflect.DeepEqual(d.Review.Improvements, []string{"near-pass"}) {
		t.Errorf("improvements = %v, want [near-pass]", d.Review.Improvements)
	}
}

func TestEvaluate_Mastered(t *testing.T) {
	d := Evaluate(Input{Score: 50, Accuracy: 100, CorrectCount: 5, Answers: answers("nouns", 5, 0)}, nil)
	if !d.Review.Mastered || d.Review.RecommendedPractice != MasteredMessage {
		t.Errorf("review = %+v", d.Review)
	}
	if d.Summary.Performance != PerformanceExcellent {
		t.Errorf("performance = %q", d.Summary.Performance)
	}
}

func TestEvaluate_EmptyInput(t *testing.T) {
	d := Evaluate(Input{}, nil)
	if d.Summary.ScoreFinal != 0 || d.Summary.Performance != PerformancePoor || d.Summary.Passed {
		t.Errorf("summary = %+v", d.Summary)
	}
	if d.Answers == nil || d.Breakdown.Tags == nil {
		t.Error("empty slices should serialize as [] not null")
	}
	if !d.Review.Mastered {
		t.Error("no weak tags means mastered")
	}
}

func TestEvaluate_MalformedInput(t *testing.T) {
	d := Evaluate(Input{
		Score:           -20,
		Accuracy:        math.Inf(1),
		CorrectCount:    -4,
		WrongCount:      2,
		DurationSeconds: math.NaN(),
	}, nil)
	s := d.Summary
	if s.ScoreRaw != 0 || s.CorrectCount != 0 || s.Accuracy != 0 || s.DurationSeconds != 0 || s.ScoreFinal != 0 {
		t.Errorf("malformed input not sanitized: %+v", s)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	in := Input{Score: 70, Accuracy: 75, CorrectCount: 6, WrongCount: 2, DurationSeconds: 30,
		Answers: append(answers("b", 3, 1), answers("a", 3, 1)...)}

	first := Evaluate(in, nil)
	second := Evaluate(in, nil)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("same input gave different details")
	}

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Errorf("JSON differs:\n%s\n%s", a, b)
	}
}

func TestEvaluate_DoesNotAliasAnswers(t *testing.T) {
	in := Input{CorrectCount: 1, Answers: answers("x", 1, 0)}
	d := Evaluate(in, nil)
	d.Answers[0].IsCorrect = false
	if !in.Answers[0].IsCorrect {
		t.Error("details share the answers slice with the input")
	}
}

func TestEvaluate_FallbackOnPanic(t *testing.T) {
	c := DefaultCriteria()
	c.Tagger = func(tracker.AnswerRecord) string { panic("bad tagger") }

	d := Evaluate(Input{Score: 35, Accuracy: 90, CorrectCount: 9, WrongCount: 1, Answers: answers("x", 9, 1)}, &c)
	if !d.Fallback {
		t.Fatal("expected fallback")
	}
	if d.Summary.Performance != PerformanceFair || d.Summary.ScoreRaw != 35 || d.Summary.Passed {
		t.Errorf("fallback summary = %+v", d.Summary)
	}
	if len(d.Answers) != 10 {
		t.Errorf("answers = %d, want 10", len(d.Answers))
	}
}

func TestEvaluate_CustomCriteria(t *testing.T) {
	c := DefaultCriteria()
	c.MinScoreToPass = 0
	c.MinAccuracyToPass = 40
	c.DefaultTag = "misc"

	d := Evaluate(Input{Score: 0, Accuracy: 50, CorrectCount: 1, WrongCount: 1, Answers: answers("", 1, 1)}, &c)
	if !d.Summary.Passed {
		t.Error("expected passed with relaxed criteria")
	}
	if d.Summary.Performance != PerformanceFair {
		t.Errorf("performance = %q", d.Summary.Performance)
	}
	if d.Breakdown.Tags[0].Tag != "misc" {
		t.Errorf("default tag = %q, want misc", d.Breakdown.Tags[0].Tag)
	}
}

func TestStandardizedDetails_JSONFieldNames(t *testing.T) {
	d := Evaluate(Input{Score: 10, CorrectCount: 1, Accuracy: 100, Answers: answers("x", 1, 0)}, nil)
	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	want := map[string][]string{
		"summary": {"scoreRaw", "scoreFinal", "durationSeconds", "correctCount", "wrongCount", "accuracy", "performance", "passed", "completed"},
		"review":  {"strengths", "improvements", "recommendedPractice"},
	}
	for section, keys := range want {
		var fields map[string]any
		if err := json.Unmarshal(m[section], &fields); err != nil {
			t.Fatalf("%s: %v", section, err)
		}
		for _, key := range keys {
			if _, ok := fields[key]; !ok {
				t.Errorf("%s missing %q", section, key)
			}
		}
	}
}
