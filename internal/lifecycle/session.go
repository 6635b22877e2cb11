// Package lifecycle runs a mission session through its state machine:
// init, countdown, active and paused, ended. It owns the clock, the item
// cadence and score accrual, and delegates item handling to a Game.
//
// The session never starts goroutines. Callers drive it with Tick from their
// own scheduler; every method takes the current time so that tests and
// simulations can use a virtual clock.
package lifecycle

import (
	"log/slog"
	"sync"
	"time"

	"github.com/abhisek/missionkit/internal/dataset"
	"github.com/abhisek/missionkit/internal/logging"
	"github.com/abhisek/missionkit/internal/mission"
	"github.com/abhisek/missionkit/internal/tracker"
)

// DefaultCountdown is the lead-in before play starts.
const DefaultCountdown = 3 * time.Second

// Sink receives score changes and records as they happen. It is usually a
// gamesession.Manager.
type Sink interface {
	// Ready reports whether the remote session exists and scoring may begin.
	Ready() bool
	UpdateScore(delta int, isCorrect bool) error
	RecordItem(rec tracker.AnswerRecord) error
}

// NopSink accepts everything. It is always ready.
type NopSink struct{}

func (NopSink) Ready() bool                           { return true }
func (NopSink) UpdateScore(int, bool) error           { return nil }
func (NopSink) RecordItem(tracker.AnswerRecord) error { return nil }

// Result is the frozen outcome of an ended session.
type Result struct {
	Reason     EndReason
	Score      int
	Correct    int
	Wrong      int
	BestStreak int
	Presented  int
	Elapsed    time.Duration // active play time, pauses excluded
	Answers    []tracker.AnswerRecord
}

// LiveItem is an item currently in play.
type LiveItem struct {
	Item      dataset.PreparedItem
	Remaining time.Duration
	Lifetime  time.Duration
}

// Progress is the fraction of the item's lifetime already spent, 0 to 1.
func (l LiveItem) Progress() float64 {
	if l.Lifetime <= 0 {
		return 1
	}
	return 1 - float64(l.Remaining)/float64(l.Lifetime)
}

// View is a snapshot for rendering.
type View struct {
	State              State
	Score              int
	Streak             int
	Correct            int
	Wrong              int
	TimeRemaining      time.Duration
	CountdownRemaining time.Duration
	Presented          int
	Total              int
	Live               []LiveItem
	Reason             EndReason
}

// OutcomeReport describes how one interaction was scored.
type OutcomeReport struct {
	Record  tracker.AnswerRecord
	Outcome Outcome
	Delta   int
	Score   int
	Streak  int
}

// Option configures a Session.
type Option func(*Session)

// WithCountdown overrides the lead-in. Zero starts play on Begin.
func WithCountdown(d time.Duration) Option {
	return func(s *Session) { s.countdown = max(0, d) }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithOnEnd registers a hook called exactly once when the session ends.
// It runs without the session lock held.
func WithOnEnd(fn func(Result)) Option {
	return func(s *Session) { s.onEnd = fn }
}

// WithGame overrides the handler chosen from the variant.
func WithGame(g Game) Option {
	return func(s *Session) { s.game = g }
}

type liveItem struct {
	item      dataset.PreparedItem
	remaining time.Duration
}

// Session is one run of a mini-game.
type Session struct {
	mu sync.Mutex

	cfg     mission.ResolvedConfig
	rules   ScoreRules
	items   []dataset.PreparedItem
	game    Game
	sink    Sink
	tracker *tracker.Tracker
	logger  *slog.Logger
	onEnd   func(Result)

	state     State
	countdown time.Duration
	lifetime  time.Duration

	cursor             time.Time // last instant the clock was advanced to
	countdownRemaining time.Duration
	timeRemaining      time.Duration
	spawnRemaining     time.Duration
	elapsed            time.Duration
	next               int
	live               []liveItem

	score      int
	streak     int
	bestStreak int
	correct    int
	wrong      int

	reason EndReason
	result *Result
	fired  bool
}

// New binds a dataset and configuration into a session in the Init state.
func New(cfg mission.ResolvedConfig, ds *dataset.GameDataset, sink Sink, opts ...Option) (*Session, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	if sink == nil {
		sink = NopSink{}
	}
	s := &Session{
		cfg:       cfg,
		rules:     ScoreRules{Scoring: cfg.Scoring},
		items:     append([]dataset.PreparedItem(nil), ds.Items...),
		sink:      sink,
		countdown: DefaultCountdown,
		state:     StateInit,
	}
	for _, o := range opts {
		o(s)
	}
	if s.game == nil {
		s.game = ForVariant(cfg.Variant)
	}
	s.logger = logging.OrDiscard(s.logger).With("game_type", string(cfg.GameType))
	s.lifetime = s.game.Lifetime(cfg)
	s.tracker = tracker.New(func() time.Time { return s.cursor })
	return s, nil
}

// Begin leaves Init for the countdown. It refuses while the sink is not
// ready, so nothing can be scored before the remote session exists.
func (s *Session) Begin(now time.Time) error {
	s.mu.Lock()
	if s.state != StateInit {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	if !s.sink.Ready() {
		s.mu.Unlock()
		return ErrNotReady
	}
	s.state = StateCountdown
	s.cursor = now
	s.countdownRemaining = s.countdown
	s.logger.Debug("session countdown started", "countdown", s.countdown)
	s.advance(now)
	res := s.takeResult()
	s.mu.Unlock()

	s.fire(res)
	return nil
}

// Tick advances the clocks to now and returns the resulting state. Ticks
// while paused or outside play are ignored.
func (s *Session) Tick(now time.Time) State {
	s.mu.Lock()
	s.advance(now)
	st, res := s.state, s.takeResult()
	s.mu.Unlock()

	s.fire(res)
	return st
}

// Pause freezes every timer at its current remainder.
func (s *Session) Pause(now time.Time) error {
	s.mu.Lock()
	s.advance(now)
	if s.state != StateActive {
		res := s.takeResult()
		s.mu.Unlock()
		s.fire(res)
		return ErrInvalidTransition
	}
	s.state = StatePaused
	s.mu.Unlock()
	return nil
}

// Resume continues from the frozen remainders. Time spent paused is neither
// charged nor credited.
func (s *Session) Resume(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return ErrInvalidTransition
	}
	s.state = StateActive
	s.cursor = now
	return nil
}

// Interact applies a learner action at now.
func (s *Session) Interact(now time.Time, a Action) (OutcomeReport, error) {
	s.mu.Lock()
	s.advance(now)
	if s.state != StateActive {
		res := s.takeResult()
		s.mu.Unlock()
		s.fire(res)
		return OutcomeReport{}, ErrNotActive
	}

	idx := s.findLive(a.ItemID)
	if idx < 0 {
		s.mu.Unlock()
		return OutcomeReport{}, ErrItemNotLive
	}
	item := s.live[idx].item
	s.live = append(s.live[:idx], s.live[idx+1:]...)

	rec := s.game.Act(s.tracker, item, a)
	o := OutcomeWrong
	if rec.IsCorrect {
		o = OutcomeCorrect
	}
	report := s.resolve(rec, o)
	s.checkTerminal()

	res := s.takeResult()
	s.mu.Unlock()
	s.fire(res)
	return report, nil
}

// Quit ends the session at the learner's request.
func (s *Session) Quit(now time.Time) bool {
	return s.End(now, EndQuit)
}

// End forces the session to end. It reports whether this call ended it;
// ending an ended session is a no-op.
func (s *Session) End(now time.Time, reason EndReason) bool {
	s.mu.Lock()
	s.advance(now)
	ended := false
	if s.state != StateEnded && s.state != StateInit {
		s.finish(reason)
		ended = true
	}
	res := s.takeResult()
	s.mu.Unlock()

	s.fire(res)
	return ended
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the frozen result once the session has ended.
func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return Result{}, false
	}
	r := *s.result
	r.Answers = tracker.Clone(r.Answers)
	return r, true
}

// Answers returns a copy of the interaction log so far.
func (s *Session) Answers() []tracker.AnswerRecord {
	return s.tracker.Answers()
}

// Config returns the resolved configuration the session runs with.
func (s *Session) Config() mission.ResolvedConfig {
	return s.cfg
}

// View returns a rendering snapshot.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		State:              s.state,
		Score:              s.score,
		Streak:             s.streak,
		Correct:            s.correct,
		Wrong:              s.wrong,
		TimeRemaining:      s.timeRemaining,
		CountdownRemaining: s.countdownRemaining,
		Presented:          s.next,
		Total:              len(s.items),
		Reason:             s.reason,
	}
	if s.state == StateInit || s.state == StateCountdown {
		v.TimeRemaining = s.cfg.TimeLimit
	}
	for _, l := range s.live {
		v.Live = append(v.Live, LiveItem{Item: l.item, Remaining: l.remaining, Lifetime: s.lifetime})
	}
	return v
}

// advance moves the clocks forward to now, processing every expiry, spawn
// and terminal condition in time order.
func (s *Session) advance(now time.Time) {
	dt := now.Sub(s.cursor)
	if dt < 0 {
		dt = 0
	}

	switch s.state {
	case StateCountdown:
		if dt < s.countdownRemaining {
			s.countdownRemaining -= dt
			s.cursor = now
			return
		}
		s.cursor = s.cursor.Add(s.countdownRemaining)
		dt -= s.countdownRemaining
		s.activate()
	case StateActive:
	default:
		return
	}

	for s.state == StateActive {
		s.processDue()
		if s.state != StateActive || dt <= 0 {
			break
		}
		step := min(dt, s.nextEvent())
		s.elapse(step)
		dt -= step
	}
}

func (s *Session) activate() {
	s.state = StateActive
	s.countdownRemaining = 0
	s.timeRemaining = s.cfg.TimeLimit
	s.spawnRemaining = 0
	s.tracker.Restart()
	s.logger.Info("session active",
		"items", len(s.items),
		"time_limit", s.cfg.TimeLimit,
		"spawn_interval", s.cfg.SpawnInterval,
		"item_lifetime", s.lifetime,
	)
}

// processDue handles everything due at the cursor: expiries first, then
// time-up, then the next spawn.
func (s *Session) processDue() {
	kept := s.live[:0]
	var expired []dataset.PreparedItem
	for _, l := range s.live {
		if l.remaining <= 0 {
			expired = append(expired, l.item)
			continue
		}
		kept = append(kept, l)
	}
	s.live = kept

	for _, item := range expired {
		rec := s.game.Expire(s.tracker, item)
		o := OutcomeMissed
		if rec.IsCorrect {
			o = OutcomeAvoided
		}
		s.resolve(rec, o)
		if s.checkGoal() {
			return
		}
	}

	if s.timeRemaining <= 0 {
		s.finish(EndTimeUp)
		return
	}

	if s.spawnRemaining <= 0 && s.next < len(s.items) {
		s.live = append(s.live, liveItem{item: s.items[s.next], remaining: s.lifetime})
		s.next++
		s.spawnRemaining = s.cfg.SpawnInterval
	}

	s.checkTerminal()
}

// nextEvent is the time until the earliest pending timer fires.
func (s *Session) nextEvent() time.Duration {
	d := s.timeRemaining
	if s.next < len(s.items) {
		d = min(d, s.spawnRemaining)
	}
	for _, l := range s.live {
		d = min(d, l.remaining)
	}
	return d
}

func (s *Session) elapse(d time.Duration) {
	s.cursor = s.cursor.Add(d)
	s.elapsed += d
	s.timeRemaining -= d
	if s.next < len(s.items) {
		s.spawnRemaining -= d
	}
	for i := range s.live {
		s.live[i].remaining -= d
	}
}

func (s *Session) resolve(rec tracker.AnswerRecord, o Outcome) OutcomeReport {
	delta, streak := s.rules.Apply(o, s.streak)
	s.streak = streak
	s.bestStreak = max(s.bestStreak, streak)
	s.score = Floor(s.score, delta)
	if o.Counts() {
		s.correct++
	} else {
		s.wrong++
	}

	if err := s.sink.UpdateScore(delta, o.Counts()); err != nil {
		s.logger.Warn("score update rejected", "item_id", rec.ItemID, "error", err)
	}
	if err := s.sink.RecordItem(rec); err != nil {
		s.logger.Warn("record item rejected", "item_id", rec.ItemID, "error", err)
	}

	return OutcomeReport{Record: rec, Outcome: o, Delta: delta, Score: s.score, Streak: s.streak}
}

func (s *Session) checkGoal() bool {
	if s.cfg.RequiredCorrect > 0 && s.correct >= s.cfg.RequiredCorrect {
		s.finish(EndGoalReached)
		return true
	}
	return false
}

func (s *Session) checkTerminal() {
	if s.state != StateActive {
		return
	}
	if s.checkGoal() {
		return
	}
	if s.next >= len(s.items) && len(s.live) == 0 {
		s.finish(EndExhausted)
	}
}

func (s *Session) findLive(id string) int {
	if len(s.live) == 0 {
		return -1
	}
	if id == "" {
		return 0
	}
	for i, l := range s.live {
		if l.item.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) finish(reason EndReason) {
	if s.state == StateEnded {
		return
	}
	s.state = StateEnded
	s.reason = reason
	s.result = &Result{
		Reason:     reason,
		Score:      s.score,
		Correct:    s.correct,
		Wrong:      s.wrong,
		BestStreak: s.bestStreak,
		Presented:  s.next,
		Elapsed:    s.elapsed,
		Answers:    s.tracker.Answers(),
	}
	s.logger.Info("session ended",
		"reason", string(reason),
		"score", s.score,
		"correct", s.correct,
		"wrong", s.wrong,
		"elapsed", s.elapsed,
	)
}

// takeResult hands out the result once, for the end hook.
func (s *Session) takeResult() *Result {
	if s.result == nil || s.fired {
		return nil
	}
	s.fired = true
	r := *s.result
	r.Answers = tracker.Clone(r.Answers)
	return &r
}

func (s *Session) fire(r *Result) {
	if r != nil && s.onEnd != nil {
		s.onEnd(*r)
	}
}
