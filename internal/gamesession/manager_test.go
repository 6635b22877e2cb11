package gamesession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/abhisek/missionkit/internal/api"
	"github.com/abhisek/missionkit/internal/content"
	"github.com/abhisek/missionkit/internal/dataset"
	"github.com/abhisek/missionkit/internal/evaluator"
	"github.com/abhisek/missionkit/internal/lifecycle"
	"github.com/abhisek/missionkit/internal/mission"
	"github.com/abhisek/missionkit/internal/store"
	"github.com/abhisek/missionkit/internal/tracker"
)

type fakeStore struct {
	mu          sync.Mutex
	createErr   error
	finalizeErr []error // consumed one per call
	creates     []api.CreateSessionRequest
	finalized   []api.FinalizeSessionRequest
}

func (f *fakeStore) CreateSession(_ context.Context, req api.CreateSessionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.creates = append(f.creates, req)
	return fmt.Sprintf("sess-%d", len(f.creates)), nil
}

func (f *fakeStore) FinalizeSession(_ context.Context, _ string, req api.FinalizeSessionRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalized = append(f.finalized, req)
	if len(f.finalizeErr) > 0 {
		err := f.finalizeErr[0]
		f.finalizeErr = f.finalizeErr[1:]
		return err
	}
	return nil
}

// lostReplyStore stores the first finalize but reports a timeout for it,
// then answers like a real store would for a second finalize.
type lostReplyStore struct {
	fakeStore
	conflict error
	stored   bool
}

func (l *lostReplyStore) FinalizeSession(ctx context.Context, id string, req api.FinalizeSessionRequest) error {
	_ = l.fakeStore.FinalizeSession(ctx, id, req)
	if l.stored {
		return l.conflict
	}
	l.stored = true
	return fmt.Errorf("POST /sessions/%s/finalize: %w", id, os.ErrDeadlineExceeded)
}

type fakeCoach struct {
	note  string
	err   error
	delay time.Duration
}

func (c fakeCoach) Note(ctx context.Context, _ evaluator.StandardizedDetails) (string, error) {
	if c.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.delay):
		}
	}
	return c.note, c.err
}

var identity = Identity{StudentID: "stu-1", TopicID: "topic-1", GameTypeID: "word-catcher"}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryDelay = 0
	cfg.CoachTimeout = 50 * time.Millisecond
	return cfg
}

func newManager(store SessionStore, opts ...Option) (*Manager, *time.Time) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	opts = append([]Option{WithConfig(testConfig()), WithClock(func() time.Time { return now })}, opts...)
	return NewManager(store, opts...), &now
}

func mustStart(t *testing.T, m *Manager) string {
	t.Helper()
	id, err := m.StartSession(t.Context(), identity)
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	return id
}

func TestStartSession(t *testing.T) {
	store := &fakeStore{}
	m, _ := newManager(store)
	if m.Ready() {
		t.Fatal("expected not ready before start")
	}

	if id := mustStart(t, m); id != "sess-1" {
		t.Errorf("session id = %q, want sess-1", id)
	}
	if !m.Ready() {
		t.Error("expected ready after start")
	}
	if len(store.creates) != 1 {
		t.Fatalf("expected 1 create, got %d", len(store.creates))
	}
	if store.creates[0].StudentID != "stu-1" {
		t.Errorf("student = %q, want stu-1", store.creates[0].StudentID)
	}
	if string(store.creates[0].Details) != "{}" {
		t.Errorf("details = %s, want {}", store.creates[0].Details)
	}

	if _, err := m.StartSession(t.Context(), identity); !errors.Is(err, ErrSessionActive) {
		t.Errorf("second start err = %v, want ErrSessionActive", err)
	}
}

func TestStartSession_Failure(t *testing.T) {
	cause := &api.Error{Status: 500, Message: "db down"}
	m, _ := newManager(&fakeStore{createErr: cause})

	_, err := m.StartSession(t.Context(), identity)
	var sf *SessionStartFailure
	if !errors.As(err, &sf) {
		t.Fatalf("expected SessionStartFailure, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be wrapped, got %v", err)
	}
	if m.Ready() {
		t.Error("manager should not be ready after a failed start")
	}

	if err := m.UpdateScore(10, true); !errors.Is(err, ErrSessionNotStarted) {
		t.Errorf("UpdateScore err = %v", err)
	}
	if err := m.RecordItem(tracker.AnswerRecord{}); !errors.Is(err, ErrSessionNotStarted) {
		t.Errorf("RecordItem err = %v", err)
	}
}

func TestUpdateScore_FloorAndTallies(t *testing.T) {
	m, _ := newManager(&fakeStore{})
	mustStart(t, m)

	for _, step := range []struct {
		delta   int
		correct bool
	}{{5, true}, {-20, false}, {3, true}} {
		if err := m.UpdateScore(step.delta, step.correct); err != nil {
			t.Fatalf("UpdateScore(%d): %v", step.delta, err)
		}
	}

	snap, ok := m.Snapshot()
	if !ok {
		t.Fatal("expected a live snapshot")
	}
	if snap.Score != 3 {
		t.Errorf("score = %d, want 3 (floored at zero, then +3)", snap.Score)
	}
	if snap.CorrectCount != 2 || snap.WrongCount != 1 {
		t.Errorf("tallies = %d/%d, want 2/1", snap.CorrectCount, snap.WrongCount)
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	m, _ := newManager(&fakeStore{})
	mustStart(t, m)
	if err := m.RecordItem(tracker.AnswerRecord{ItemID: "a"}); err != nil {
		t.Fatal(err)
	}

	snap, _ := m.Snapshot()
	snap.Items[0].ItemID = "mutated"
	again, _ := m.Snapshot()
	if again.Items[0].ItemID != "a" {
		t.Errorf("snapshot shares items with the manager: %q", again.Items[0].ItemID)
	}
}

func TestEndSession_SubmitsEvaluatedDetails(t *testing.T) {
	store := &fakeStore{}
	m, now := newManager(store)
	mustStart(t, m)

	for i := 0; i < 7; i++ {
		_ = m.UpdateScore(10, true)
		_ = m.RecordItem(tracker.AnswerRecord{ItemID: fmt.Sprint(i), IsCorrect: true, Event: tracker.EventCatch, RuleTag: "nouns"})
	}
	for i := 0; i < 3; i++ {
		_ = m.UpdateScore(-2, false)
		_ = m.RecordItem(tracker.AnswerRecord{ItemID: fmt.Sprint(i + 7), Event: tracker.EventMiss, RuleTag: "verbs"})
	}
	*now = now.Add(95 * time.Second)

	details, err := m.EndSession(t.Context(), nil)
	if err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if details.Summary.ScoreFinal != 7.0 {
		t.Errorf("score final = %v, want 7", details.Summary.ScoreFinal)
	}
	if details.Summary.Performance != evaluator.PerformanceGood {
		t.Errorf("performance = %q, want good", details.Summary.Performance)
	}
	if !details.Summary.Passed {
		t.Error("expected passed")
	}
	if details.Summary.DurationSeconds != 95 {
		t.Errorf("duration = %d, want 95", details.Summary.DurationSeconds)
	}
	if !reflect.DeepEqual(details.Review.Strengths, []string{"nouns"}) {
		t.Errorf("strengths = %v", details.Review.Strengths)
	}
	if !reflect.DeepEqual(details.Review.Improvements, []string{"verbs"}) {
		t.Errorf("improvements = %v", details.Review.Improvements)
	}

	if len(store.finalized) != 1 {
		t.Fatalf("expected 1 finalize, got %d", len(store.finalized))
	}
	req := store.finalized[0]
	if req.Score != 64 || !req.Completed || req.DurationSeconds != 95 || req.CorrectCount != 7 || req.WrongCount != 3 {
		t.Errorf("unexpected finalize request: %+v", req)
	}

	var sent evaluator.StandardizedDetails
	if err := json.Unmarshal(req.Details, &sent); err != nil {
		t.Fatalf("details not JSON: %v", err)
	}
	if sent.Summary != details.Summary {
		t.Errorf("sent summary %+v, want %+v", sent.Summary, details.Summary)
	}

	if m.Ready() {
		t.Error("manager still ready after end")
	}
	if _, ok := m.Snapshot(); ok {
		t.Error("live data should be discarded after end")
	}
}

func TestEndSession_Twice(t *testing.T) {
	store := &fakeStore{}
	m, _ := newManager(store)
	mustStart(t, m)
	_ = m.UpdateScore(10, true)

	first, err := m.EndSession(t.Context(), nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.EndSession(t.Context(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("second end should return the first result")
	}
	if len(store.finalized) != 1 {
		t.Errorf("expected 1 finalize, got %d", len(store.finalized))
	}
}

func TestEndSession_NotStarted(t *testing.T) {
	m, _ := newManager(&fakeStore{})
	if _, err := m.EndSession(t.Context(), nil); !errors.Is(err, ErrSessionNotStarted) {
		t.Errorf("err = %v, want ErrSessionNotStarted", err)
	}
	if err := m.Abandon(t.Context()); err != nil {
		t.Errorf("Abandon without a session: %v", err)
	}
}

func TestEndSession_RetriesOnce(t *testing.T) {
	store := &fakeStore{finalizeErr: []error{&api.Error{Status: 503, Message: "busy"}}}
	m, _ := newManager(store)
	mustStart(t, m)

	if _, err := m.EndSession(t.Context(), nil); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if len(store.finalized) != 2 {
		t.Errorf("expected 2 finalize calls, got %d", len(store.finalized))
	}
}

func TestEndSession_FailureAfterRetry(t *testing.T) {
	boom := &api.Error{Status: 500, Message: "boom"}
	store := &fakeStore{finalizeErr: []error{boom, boom, boom}}
	m, _ := newManager(store)
	mustStart(t, m)
	_ = m.UpdateScore(10, true)

	details, err := m.EndSession(t.Context(), nil)
	var ef *SessionEndFailure
	if !errors.As(err, &ef) {
		t.Fatalf("expected SessionEndFailure, got %v", err)
	}
	if ef.Attempts != 2 || ef.SessionID != "sess-1" {
		t.Errorf("failure = %+v", ef)
	}
	if !errors.Is(err, boom) {
		t.Errorf("cause not wrapped: %v", err)
	}
	if details.Summary.ScoreRaw != 10 {
		t.Errorf("details should still be returned, score raw = %d", details.Summary.ScoreRaw)
	}
	if len(store.finalized) != 2 {
		t.Errorf("expected no more than one retry, got %d calls", len(store.finalized))
	}
	if m.Ready() {
		t.Error("local state should be discarded")
	}

	if _, again := m.EndSession(t.Context(), nil); again != err {
		t.Errorf("repeat end err = %v, want %v", again, err)
	}
	if len(store.finalized) != 2 {
		t.Errorf("repeat end should not submit, got %d calls", len(store.finalized))
	}

	if _, err := m.StartSession(t.Context(), identity); err != nil {
		t.Errorf("a new session may start after a failed end: %v", err)
	}
}

func TestEndSession_NoRetryOnClientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"bad request", &api.Error{Status: 400, Message: "score must be >= 0"}},
		{"not found", &api.Error{Status: 404, Message: "session not found"}},
		{"conflict on first attempt", &api.Error{Status: 409, Message: "session already finalized"}},
		{"plain error", errors.New("completed must be true")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{finalizeErr: []error{tt.err, tt.err}}
			m, _ := newManager(store)
			mustStart(t, m)

			_, err := m.EndSession(t.Context(), nil)
			var ef *SessionEndFailure
			if !errors.As(err, &ef) {
				t.Fatalf("expected SessionEndFailure, got %v", err)
			}
			if ef.Attempts != 1 || len(store.finalized) != 1 {
				t.Errorf("expected a single attempt, got %d (%d calls)", ef.Attempts, len(store.finalized))
			}
		})
	}
}

func TestEndSession_LostReplyThenConflict(t *testing.T) {
	tests := []struct {
		name     string
		conflict error
	}{
		{"remote", &api.Error{Status: 409, Message: "session already finalized"}},
		{"local", fmt.Errorf("finalize: %w", store.ErrAlreadyFinalized)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &lostReplyStore{conflict: tt.conflict}
			m, _ := newManager(store)
			mustStart(t, m)
			_ = m.UpdateScore(10, true)

			details, err := m.EndSession(t.Context(), nil)
			if err != nil {
				t.Fatalf("a result stored by the first attempt should count as submitted: %v", err)
			}
			if len(store.finalized) != 2 {
				t.Errorf("expected 2 finalize calls, got %d", len(store.finalized))
			}
			if details.Summary.ScoreRaw != 10 {
				t.Errorf("score raw = %d, want 10", details.Summary.ScoreRaw)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&api.Error{Status: 503}, true},
		{&api.Error{Status: 429}, true},
		{&api.Error{Status: 409}, false},
		{&api.Error{Status: 422}, false},
		{fmt.Errorf("POST /x: %w", os.ErrDeadlineExceeded), true},
		{errors.New("encode request: bad"), false},
	}
	for _, tt := range tests {
		if got := retryable(tt.err); got != tt.want {
			t.Errorf("retryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestEndSession_CoachNote(t *testing.T) {
	tests := []struct {
		name  string
		coach fakeCoach
		want  string
	}{
		{"note", fakeCoach{note: "Great catching!"}, "Great catching!"},
		{"error ignored", fakeCoach{err: errors.New("llm down")}, ""},
		{"timeout ignored", fakeCoach{note: "late", delay: time.Second}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newManager(&fakeStore{}, WithCoach(tt.coach))
			mustStart(t, m)

			details, err := m.EndSession(t.Context(), nil)
			if err != nil {
				t.Fatal(err)
			}
			if details.Review.CoachNote != tt.want {
				t.Errorf("coach note = %q, want %q", details.Review.CoachNote, tt.want)
			}
		})
	}
}

func TestAbandon_MarksIncomplete(t *testing.T) {
	store := &fakeStore{}
	m, _ := newManager(store)
	mustStart(t, m)

	if err := m.Abandon(t.Context()); err != nil {
		t.Fatalf("Abandon: %v", err)
	}
	if len(store.finalized) != 1 {
		t.Fatalf("expected 1 finalize, got %d", len(store.finalized))
	}

	var sent evaluator.StandardizedDetails
	if err := json.Unmarshal(store.finalized[0].Details, &sent); err != nil {
		t.Fatal(err)
	}
	if sent.Summary.Completed {
		t.Error("abandoned session should be marked incomplete in details")
	}
	if !store.finalized[0].Completed {
		t.Error("finalize request always carries completed=true")
	}
}

func TestAbandon_ReturnsSubmitFailure(t *testing.T) {
	boom := &api.Error{Status: 502, Message: "bad gateway"}
	m, _ := newManager(&fakeStore{finalizeErr: []error{boom, boom}})
	mustStart(t, m)

	err := m.Abandon(t.Context())
	var ef *SessionEndFailure
	if !errors.As(err, &ef) {
		t.Fatalf("Abandon should surface the failed flush, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("cause not wrapped: %v", err)
	}
}

// TestLifecycleFlow drives a real lifecycle with the manager as its sink.
func TestLifecycleFlow(t *testing.T) {
	var bank []content.Item
	for i := 0; i < 6; i++ {
		bank = append(bank, content.Item{ID: fmt.Sprintf("c%d", i), Text: fmt.Sprintf("good%d", i), IsCorrect: true, Type: content.TypeWord, RuleTag: "nouns"})
	}
	bank = append(bank, content.Item{ID: "d0", Text: "bad", Type: content.TypeWord, RuleTag: "spelling"})

	rc := mission.NewResolver(nil).Resolve(mission.MissionConfig{
		Difficulty: "easy",
		Tunables:   mission.Tunables{ItemCount: mission.Float(5)},
	}, mission.GameWordCatcher)
	ds, err := dataset.NewBuilder(dataset.WithSeed(11)).Build(bank, rc)
	if err != nil {
		t.Fatal(err)
	}
	if ds.Len() != 5 {
		t.Fatalf("dataset size = %d, want 5", ds.Len())
	}

	store := &fakeStore{}
	m, _ := newManager(store)

	var ended []lifecycle.Result
	s, err := lifecycle.New(rc, ds, m, lifecycle.WithCountdown(0), lifecycle.WithOnEnd(func(r lifecycle.Result) {
		ended = append(ended, r)
	}))
	if err != nil {
		t.Fatal(err)
	}

	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := s.Begin(start); !errors.Is(err, lifecycle.ErrNotReady) {
		t.Fatalf("Begin before start err = %v, want ErrNotReady", err)
	}

	mustStart(t, m)
	if err := s.Begin(start); err != nil {
		t.Fatal(err)
	}

	// Catch everything as soon as it appears.
	for i := 0; i < ds.Len(); i++ {
		at := start.Add(time.Duration(i) * rc.SpawnInterval)
		if _, err := s.Interact(at, lifecycle.Action{}); err != nil {
			t.Fatalf("Interact %d: %v", i, err)
		}
	}
	if s.State() != lifecycle.StateEnded {
		t.Fatalf("state = %v, want ended", s.State())
	}
	if len(ended) != 1 {
		t.Fatalf("expected 1 end callback, got %d", len(ended))
	}

	snap, ok := m.Snapshot()
	if !ok {
		t.Fatal("expected live snapshot before EndSession")
	}
	if snap.Score != ended[0].Score || snap.CorrectCount != ended[0].Correct || snap.WrongCount != ended[0].Wrong {
		t.Errorf("snapshot %+v disagrees with result %+v", snap, ended[0])
	}
	if len(snap.Items) != 5 {
		t.Errorf("recorded %d items, want 5", len(snap.Items))
	}

	details, err := m.EndSession(context.Background(), &EndExtras{Completed: ended[0].Reason.Completed(), Duration: ended[0].Elapsed})
	if err != nil {
		t.Fatal(err)
	}
	if !details.Summary.Completed {
		t.Error("expected completed")
	}
	if len(details.Answers) != 5 {
		t.Errorf("answers = %d, want 5", len(details.Answers))
	}
	if store.finalized[0].Score != ended[0].Score {
		t.Errorf("submitted score %d, want %d", store.finalized[0].Score, ended[0].Score)
	}
}
