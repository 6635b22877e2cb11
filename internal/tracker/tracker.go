// Package tracker records the learner interactions of one session as an
// append-only event log, independent of the game that produced them.
package tracker

import (
	"strings"
	"sync"
	"time"

	"github.com/abhisek/missionkit/internal/dataset"
)

// Event is the kind of learner interaction.
type Event string

const (
	EventCatch        Event = "catch"
	EventMiss         Event = "miss"
	EventAvoid        Event = "avoid"
	EventMatchAttempt Event = "matchAttempt"
)

// Position is where on the play field an interaction happened.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AnswerRecord is one logged interaction. Records are never modified after
// they are appended.
type AnswerRecord struct {
	ItemID        string    `json:"itemId"`
	Prompt        string    `json:"prompt"`
	StudentAnswer string    `json:"studentAnswer"`
	CorrectAnswer string    `json:"correctAnswer"`
	IsCorrect     bool      `json:"isCorrect"`
	Event         Event     `json:"event"`
	TimeMs        int64     `json:"timeMs"`
	Position      *Position `json:"position,omitempty"`
	RuleTag       string    `json:"ruleTag,omitempty"`
}

// Stats summarizes a log.
type Stats struct {
	Total             int     `json:"total"`
	Correct           int     `json:"correct"`
	Wrong             int     `json:"wrong"`
	Missed            int     `json:"missed"`
	Caught            int     `json:"caught"`
	DistractorCatches int     `json:"distractorCatches"`
	Accuracy          float64 `json:"accuracy"` // percent, 0 when Total is 0
}

// Tracker is the append-only recorder of one session.
type Tracker struct {
	mu      sync.Mutex
	now     func() time.Time
	start   time.Time
	answers []AnswerRecord
}

// New creates a Tracker whose clock starts at now(). A nil now uses time.Now.
func New(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{now: now, start: now()}
}

// Restart moves the session start to the current time. Records already
// logged keep their offsets.
func (t *Tracker) Restart() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.start = t.now()
}

// RecordCorrectCatch logs that the learner caught a correct item.
func (t *Tracker) RecordCorrectCatch(item dataset.PreparedItem, pos *Position) AnswerRecord {
	return t.append(AnswerRecord{
		ItemID:        item.ID,
		Prompt:        item.Text,
		StudentAnswer: item.Text,
		CorrectAnswer: item.Text,
		IsCorrect:     true,
		Event:         EventCatch,
		Position:      pos,
		RuleTag:       item.RuleTag,
	})
}

// RecordDistractorCatch logs that the learner caught a distractor.
func (t *Tracker) RecordDistractorCatch(item dataset.PreparedItem, pos *Position) AnswerRecord {
	return t.append(AnswerRecord{
		ItemID:        item.ID,
		Prompt:        item.Text,
		StudentAnswer: item.Text,
		IsCorrect:     false,
		Event:         EventCatch,
		Position:      pos,
		RuleTag:       item.RuleTag,
	})
}

// RecordMissedWord logs that a correct item expired uncaught.
func (t *Tracker) RecordMissedWord(item dataset.PreparedItem) AnswerRecord {
	return t.append(AnswerRecord{
		ItemID:        item.ID,
		Prompt:        item.Text,
		CorrectAnswer: item.Text,
		IsCorrect:     false,
		Event:         EventMiss,
		RuleTag:       item.RuleTag,
	})
}

// RecordAvoidedDistractor logs that a distractor expired uncaught.
func (t *Tracker) RecordAvoidedDistractor(item dataset.PreparedItem) AnswerRecord {
	return t.append(AnswerRecord{
		ItemID:    item.ID,
		Prompt:    item.Text,
		IsCorrect: true,
		Event:     EventAvoid,
		RuleTag:   item.RuleTag,
	})
}

// RecordMatchAttempt logs a pairing or assembly attempt. The attempt is
// correct when answer equals the item text, ignoring case and surrounding
// space.
func (t *Tracker) RecordMatchAttempt(item dataset.PreparedItem, answer string, pos *Position) AnswerRecord {
	prompt := item.Text
	if item.ImageURL != "" {
		prompt = item.ImageURL
	}
	return t.append(AnswerRecord{
		ItemID:        item.ID,
		Prompt:        prompt,
		StudentAnswer: answer,
		CorrectAnswer: item.Text,
		IsCorrect:     Matches(answer, item.Text),
		Event:         EventMatchAttempt,
		Position:      pos,
		RuleTag:       item.RuleTag,
	})
}

// Matches compares a learner answer with the expected text.
func Matches(answer, expected string) bool {
	return strings.EqualFold(normalize(answer), normalize(expected))
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (t *Tracker) append(rec AnswerRecord) AnswerRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec.TimeMs = max(0, t.now().Sub(t.start).Milliseconds())
	if rec.Position != nil {
		p := *rec.Position
		rec.Position = &p
	}
	t.answers = append(t.answers, rec)
	return rec
}

// Answers returns a copy of the log in chronological order.
func (t *Tracker) Answers() []AnswerRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Clone(t.answers)
}

// Len returns the number of records.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.answers)
}

// Stats derives summary counts from the log.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Summarize(t.answers)
}

// Summarize derives Stats from records.
func Summarize(records []AnswerRecord) Stats {
	var s Stats
	for _, r := range records {
		s.Total++
		if r.IsCorrect {
			s.Correct++
		} else {
			s.Wrong++
		}
		switch r.Event {
		case EventMiss:
			s.Missed++
		case EventCatch:
			s.Caught++
			if !r.IsCorrect {
				s.DistractorCatches++
			}
		}
	}
	if s.Total > 0 {
		s.Accuracy = float64(s.Correct) / float64(s.Total) * 100
	}
	return s
}

// Clone deep-copies records so the result shares no memory with the input.
func Clone(records []AnswerRecord) []AnswerRecord {
	if records == nil {
		return nil
	}
	out := make([]AnswerRecord, len(records))
	copy(out, records)
	for i := range out {
		if out[i].Position != nil {
			p := *out[i].Position
			out[i].Position = &p
		}
	}
	return out
}
