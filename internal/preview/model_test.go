package preview

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/missionkit/internal/api"
	"github.com/abhisek/missionkit/internal/dataset"
	"github.com/abhisek/missionkit/internal/gamesession"
	"github.com/abhisek/missionkit/internal/lifecycle"
	"github.com/abhisek/missionkit/internal/mission"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu        sync.Mutex
	creates   int
	finalized []api.FinalizeSessionRequest
}

func (f *fakeStore) CreateSession(context.Context, api.CreateSessionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	return fmt.Sprintf("sess-%d", f.creates), nil
}

func (f *fakeStore) FinalizeSession(_ context.Context, _ string, req api.FinalizeSessionRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalized = append(f.finalized, req)
	return nil
}

func keyPress(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func specialKey(code rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: code}
}

func items(in ...dataset.PreparedItem) *dataset.GameDataset {
	ds := &dataset.GameDataset{Items: in}
	for _, it := range in {
		if it.IsCorrect {
			ds.CorrectCount++
		} else {
			ds.DistractorCount++
		}
	}
	return ds
}

func word(id, text string, correct bool) dataset.PreparedItem {
	role := dataset.RoleCorrect
	if !correct {
		role = dataset.RoleDistractor
	}
	return dataset.PreparedItem{ID: id, Text: text, IsCorrect: correct, Role: role}
}

func newModel(t *testing.T, gt mission.GameType, ds *dataset.GameDataset) (Model, *fakeStore) {
	t.Helper()
	rc := mission.NewResolver(nil).Resolve(mission.MissionConfig{
		Difficulty: "easy",
		Tunables: mission.Tunables{
			SpawnIntervalMs:  mission.Float(5000),
			TimeLimitSeconds: mission.Float(60),
		},
	}, gt)

	store := &fakeStore{}
	mgr := gamesession.NewManager(store, gamesession.WithClock(func() time.Time { return t0 }))
	s, err := lifecycle.New(rc, ds, mgr, lifecycle.WithCountdown(0))
	if err != nil {
		t.Fatalf("lifecycle.New: %v", err)
	}

	_, err = mgr.StartSession(t.Context(), gamesession.Identity{
		StudentID: "stu-1", TopicID: "topic-1", GameTypeID: string(gt),
	})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if err := s.Begin(t0); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	m := NewModel(s, mgr, WithClock(func() time.Time { return t0 }))
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model), store
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// drain runs cmd and feeds its message back, as the program loop would.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command, got nil")
	}
	msg := cmd()
	ended, ok := msg.(endedMsg)
	if !ok {
		t.Fatalf("expected endedMsg, got %T", msg)
	}
	m, _ = update(t, m, ended)
	return m
}

func TestCatch_EnterCatchesSelected(t *testing.T) {
	m, _ := newModel(t, mission.GameWordCatcher, items(word("w1", "cat", true), word("w2", "dog", true)))

	m, _ = update(t, m, specialKey(tea.KeyEnter))

	v := m.session.View()
	if v.Correct != 1 || v.Score <= 0 {
		t.Errorf("correct %d, score %d; want 1 and a positive score", v.Correct, v.Score)
	}
	if !m.lastOK || !strings.Contains(m.feedback, "+") {
		t.Errorf("feedback = %q (ok=%v)", m.feedback, m.lastOK)
	}
}

func TestPauseAndResume(t *testing.T) {
	m, _ := newModel(t, mission.GameWordCatcher, items(word("w1", "cat", true)))

	m, _ = update(t, m, specialKey(tea.KeyEscape))
	if got := m.session.State(); got != lifecycle.StatePaused {
		t.Fatalf("state = %v, want paused", got)
	}
	if body := m.body(m.session.View()); !strings.Contains(body, "Paused") {
		t.Errorf("paused body = %q", body)
	}

	// Interactions are ignored while paused.
	m, _ = update(t, m, specialKey(tea.KeyEnter))
	if got := m.session.View().Correct; got != 0 {
		t.Errorf("correct = %d while paused", got)
	}

	m, _ = update(t, m, specialKey(tea.KeyEscape))
	if got := m.session.State(); got != lifecycle.StateActive {
		t.Errorf("state = %v, want active", got)
	}
}

func TestQuitWhilePaused_FinalizesIncomplete(t *testing.T) {
	m, store := newModel(t, mission.GameWordCatcher, items(word("w1", "cat", true), word("w2", "dog", true)))

	m, _ = update(t, m, specialKey(tea.KeyEnter))
	m, _ = update(t, m, specialKey(tea.KeyEscape))
	m, cmd := update(t, m, keyPress('q'))
	if !m.ending {
		t.Fatal("q while paused should end the session")
	}

	m = drain(t, m, cmd)
	details, ok := m.Details()
	if !ok {
		t.Fatal("no details after the session ended")
	}
	if err := m.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if details.Summary.Completed || details.Summary.CorrectCount != 1 {
		t.Errorf("summary = %+v, want incomplete with 1 correct", details.Summary)
	}
	if len(store.finalized) != 1 {
		t.Fatalf("finalized %d times, want 1", len(store.finalized))
	}

	if body := m.body(m.session.View()); !strings.Contains(body, "Mission") {
		t.Errorf("results body = %q", body)
	}

	_, cmd = update(t, m, specialKey(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("enter on the results screen should quit")
	}
	if msg := cmd(); msg != (tea.QuitMsg{}) {
		t.Errorf("cmd() = %T, want tea.QuitMsg", msg)
	}
}

func TestGate_RejectDistractor(t *testing.T) {
	m, _ := newModel(t, mission.GameGrammarGate, items(word("g1", "he go", false), word("g2", "he goes", true)))

	m, _ = update(t, m, keyPress('r'))

	v := m.session.View()
	if v.Correct != 1 || v.Wrong != 0 {
		t.Errorf("correct %d, wrong %d; want 1, 0", v.Correct, v.Wrong)
	}
}

func TestMatch_TypedAnswer(t *testing.T) {
	m, _ := newModel(t, mission.GameImageMatch, items(word("m1", "cat", true), word("m2", "dog", true)))

	for _, r := range "cat" {
		m, _ = update(t, m, keyPress(r))
	}
	if got := m.input.Value(); got != "cat" {
		t.Fatalf("input = %q, want cat", got)
	}

	m, _ = update(t, m, specialKey(tea.KeyEnter))
	if got := m.session.View().Correct; got != 1 {
		t.Errorf("correct = %d, want 1", got)
	}
	if got := m.input.Value(); got != "" {
		t.Errorf("input not cleared: %q", got)
	}
}

func TestTick_EndsWhenExhausted(t *testing.T) {
	m, store := newModel(t, mission.GameWordCatcher, items(word("w1", "cat", true)))

	m, cmd := update(t, m, specialKey(tea.KeyEnter))
	if !m.ending {
		m, cmd = update(t, m, tickMsg(t0.Add(time.Minute)))
	}
	if !m.ending {
		t.Fatal("session should be ending")
	}

	m = drain(t, m, cmd)
	details, ok := m.Details()
	if !ok || !details.Summary.Completed {
		t.Errorf("details ok=%v, completed=%v; want both true", ok, details.Summary.Completed)
	}
	if len(store.finalized) != 1 {
		t.Errorf("finalized %d times, want 1", len(store.finalized))
	}

	// Late ticks are ignored.
	if _, cmd = update(t, m, tickMsg(t0.Add(2*time.Minute))); cmd != nil {
		t.Error("late tick produced a command")
	}
}

func TestPrompt_HidesTypedAnswers(t *testing.T) {
	it := word("m1", "apple", true)
	if got := prompt(mission.InteractMatch, it); got != "a____" {
		t.Errorf("match prompt = %q, want a____", got)
	}

	it.ImageURL = "https://cdn.example.com/apple.png"
	if got := prompt(mission.InteractMatch, it); !strings.Contains(got, "apple.png") {
		t.Errorf("match prompt with image = %q", got)
	}

	sentence := word("s1", "she reads books", true)
	if got := prompt(mission.InteractAssemble, sentence); got != "books / reads / she" {
		t.Errorf("assemble prompt = %q", got)
	}
	if got := prompt(mission.InteractCatch, sentence); got != "she reads books" {
		t.Errorf("catch prompt = %q", got)
	}
}

func TestHints_FollowInteraction(t *testing.T) {
	m, _ := newModel(t, mission.GameGrammarGate, items(word("g1", "he goes", true)))

	var keys []string
	for _, h := range m.hints(lifecycle.StateActive) {
		keys = append(keys, h.Key)
	}
	if !slices.Contains(keys, "a") || !slices.Contains(keys, "r") {
		t.Errorf("gate hints = %v, want a and r", keys)
	}
	if h := m.hints(lifecycle.StateCountdown); h != nil {
		t.Errorf("countdown hints = %v, want none", h)
	}
}
