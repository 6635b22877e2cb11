// Package simulate plays a session headlessly with a scripted learner on a
// virtual clock. It exercises the same lifecycle, evaluator and submission
// path as a real client.
package simulate

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/abhisek/missionkit/internal/dataset"
	"github.com/abhisek/missionkit/internal/evaluator"
	"github.com/abhisek/missionkit/internal/gamesession"
	"github.com/abhisek/missionkit/internal/lifecycle"
	"github.com/abhisek/missionkit/internal/logging"
	"github.com/abhisek/missionkit/internal/mission"
)

const (
	DefaultStep     = 100 * time.Millisecond
	DefaultReaction = 1200 * time.Millisecond

	// maxVirtual bounds sessions without a time limit.
	maxVirtual = 2 * time.Hour
)

// Learner is a scripted player.
type Learner struct {
	// Accuracy is the chance of handling an item the right way, 0 to 1.
	Accuracy float64
	// Reaction is how long an item is in play before the learner acts.
	Reaction time.Duration
	// QuitAfter quits once this much virtual time has passed. Zero plays to the end.
	QuitAfter time.Duration
	Seed      uint64
}

// Options configures a run.
type Options struct {
	Config   mission.ResolvedConfig
	Dataset  *dataset.GameDataset
	Manager  *gamesession.Manager
	Identity gamesession.Identity
	Learner  Learner
	Step     time.Duration
	Start    time.Time
	Logger   *slog.Logger
}

// Report is the outcome of a run.
type Report struct {
	SessionID string                        `json:"sessionId"`
	Result    lifecycle.Result              `json:"result"`
	Details   evaluator.StandardizedDetails `json:"details"`
	Actions   int                           `json:"actions"`
}

// Run plays one session to its end and finalizes it. A finalize failure is
// returned together with the evaluated report.
func Run(ctx context.Context, opts Options) (*Report, error) {
	logger := logging.OrDiscard(opts.Logger)
	step := opts.Step
	if step <= 0 {
		step = DefaultStep
	}
	start := opts.Start
	if start.IsZero() {
		start = time.Now()
	}
	learner := opts.Learner
	if learner.Reaction <= 0 {
		learner.Reaction = DefaultReaction
	}

	s, err := lifecycle.New(opts.Config, opts.Dataset, opts.Manager, lifecycle.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	sessionID, err := opts.Manager.StartSession(ctx, opts.Identity)
	if err != nil {
		return nil, err
	}
	if err := s.Begin(start); err != nil {
		if aerr := opts.Manager.Abandon(ctx); aerr != nil {
			logger.Warn("flushing unplayed session failed", "session_id", sessionID, "error", aerr)
		}
		return nil, fmt.Errorf("begin session: %w", err)
	}

	p := newPlayer(learner, opts.Config.Variant.Interaction)
	now := start
	for {
		now = now.Add(step)
		if s.Tick(now) == lifecycle.StateEnded {
			break
		}
		elapsed := now.Sub(start)
		if ctx.Err() != nil || (learner.QuitAfter > 0 && elapsed >= learner.QuitAfter) || elapsed >= maxVirtual {
			s.Quit(now)
			break
		}
		if s.State() != lifecycle.StateActive {
			continue
		}
		p.play(s, now, logger)
	}

	res, _ := s.Result()
	logger.Debug("simulated session ended", "session_id", sessionID, "reason", string(res.Reason), "score", res.Score)

	// The session may have been cut short by ctx; finalizing still gets its own budget.
	endCtx := context.WithoutCancel(ctx)
	details, err := opts.Manager.EndSession(endCtx, &gamesession.EndExtras{
		Completed: res.Reason.Completed(),
		Duration:  res.Elapsed,
	})
	return &Report{SessionID: sessionID, Result: res, Details: details, Actions: p.actions}, err
}

type player struct {
	learner     Learner
	interaction mission.Interaction
	rng         *rand.Rand
	seen        map[string]time.Time
	done        map[string]bool
	actions     int
}

func newPlayer(l Learner, in mission.Interaction) *player {
	return &player{
		learner:     l,
		interaction: in,
		rng:         rand.New(rand.NewPCG(l.Seed, l.Seed^0x9e3779b97f4a7c15)),
		seen:        make(map[string]time.Time),
		done:        make(map[string]bool),
	}
}

func (p *player) play(s *lifecycle.Session, now time.Time, logger *slog.Logger) {
	for _, li := range s.View().Live {
		id := li.Item.ID
		first, ok := p.seen[id]
		if !ok {
			p.seen[id] = now
			first = now
		}
		if p.done[id] || now.Sub(first) < p.learner.Reaction {
			continue
		}
		p.done[id] = true

		a, act := p.decide(li.Item)
		if !act {
			continue
		}
		a.ItemID = id
		if _, err := s.Interact(now, a); err != nil {
			logger.Debug("simulated interaction refused", "item_id", id, "error", err)
			continue
		}
		p.actions++
		if s.State() != lifecycle.StateActive {
			return
		}
	}
}

// decide picks the learner's action. act is false when the learner lets the
// item go by.
func (p *player) decide(item dataset.PreparedItem) (a lifecycle.Action, act bool) {
	right := p.rng.Float64() < p.learner.Accuracy
	switch p.interaction {
	case mission.InteractGate:
		return lifecycle.Action{Accept: item.IsCorrect == right}, true
	case mission.InteractMatch, mission.InteractAssemble:
		if right {
			return lifecycle.Action{Answer: item.Text}, true
		}
		return lifecycle.Action{Answer: wrongAnswer(item.Text)}, true
	default:
		// Catching a correct item or leaving a distractor is the right move.
		if item.IsCorrect == right {
			return lifecycle.Action{Accept: true}, true
		}
		return lifecycle.Action{}, false
	}
}

func wrongAnswer(text string) string {
	r := []rune(text)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	if out := string(r) + "?"; out != text {
		return out
	}
	return text + "x"
}
