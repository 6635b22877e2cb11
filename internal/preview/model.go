// Package preview plays a mission session in the terminal. It drives the
// same lifecycle and session manager as the web client, so a bank and
// mission config can be tried end to end before publishing.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/missionkit/internal/dataset"
	"github.com/abhisek/missionkit/internal/evaluator"
	"github.com/abhisek/missionkit/internal/gamesession"
	"github.com/abhisek/missionkit/internal/lifecycle"
	"github.com/abhisek/missionkit/internal/logging"
	"github.com/abhisek/missionkit/internal/mission"
	"github.com/abhisek/missionkit/internal/ui/components"
)

const (
	tickInterval = 100 * time.Millisecond
	endTimeout   = 15 * time.Second
)

type tickMsg time.Time

type endedMsg struct {
	details evaluator.StandardizedDetails
	err     error
}

// Model is the Bubble Tea model of a preview run.
type Model struct {
	session *lifecycle.Session
	manager *gamesession.Manager
	title   string
	now     func() time.Time
	logger  *slog.Logger

	selected int
	input    components.TextInput
	feedback string
	lastOK   bool

	ending  bool
	details *evaluator.StandardizedDetails
	endErr  error

	width  int
	height int
}

// Option configures a Model.
type Option func(*Model)

// WithClock sets the clock used for interactions.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) { m.logger = l }
}

// NewModel wraps a begun session. The manager must own the session's
// remote record.
func NewModel(s *lifecycle.Session, mgr *gamesession.Manager, opts ...Option) Model {
	m := Model{
		session: s,
		manager: mgr,
		title:   s.Config().Variant.Name,
		now:     time.Now,
		input:   components.NewTextInput("type your answer", 120),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.logger = logging.OrDiscard(m.logger)
	return m
}

// Details returns the evaluated result once the session has been finalized.
func (m Model) Details() (evaluator.StandardizedDetails, bool) {
	if m.details == nil {
		return evaluator.StandardizedDetails{}, false
	}
	return *m.details, true
}

// Err is the finalize error, if any.
func (m Model) Err() error { return m.endErr }

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tick()}
	if m.typed() {
		cmds = append(cmds, m.input.Init())
	}
	return tea.Batch(cmds...)
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		if m.ending || m.details != nil {
			return m, nil
		}
		if m.session.Tick(time.Time(msg)) == lifecycle.StateEnded {
			return m.finish()
		}
		m.clampSelection()
		return m, tick()

	case endedMsg:
		m.ending = false
		m.details = &msg.details
		m.endErr = msg.err
		if msg.err != nil {
			m.logger.Warn("session finalize failed", "error", msg.err)
		}
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		if m.details != nil || m.ending {
			return m, tea.Quit
		}
		m.session.Quit(m.now())
		next, cmd := m.finish()
		return next, tea.Sequence(cmd, tea.Quit)
	}

	if m.details != nil {
		switch key {
		case "enter", "q", "esc":
			return m, tea.Quit
		}
		return m, nil
	}
	if m.ending {
		return m, nil
	}

	switch m.session.State() {
	case lifecycle.StatePaused:
		switch key {
		case "esc", "p":
			if err := m.session.Resume(m.now()); err != nil {
				m.logger.Debug("resume refused", "error", err)
			}
		case "q":
			m.session.Quit(m.now())
			return m.finish()
		}
		return m, nil

	case lifecycle.StateActive:
		return m.handleActiveKey(msg)
	}
	return m, nil
}

func (m Model) handleActiveKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "esc":
		if err := m.session.Pause(m.now()); err != nil {
			m.logger.Debug("pause refused", "error", err)
		}
		return m, nil
	case "up":
		m.selected = max(0, m.selected-1)
		return m, nil
	case "down":
		m.selected++
		m.clampSelection()
		return m, nil
	}

	interaction := m.session.Config().Variant.Interaction
	switch interaction {
	case mission.InteractGate:
		switch key {
		case "a", "right":
			return m.act(lifecycle.Action{Accept: true})
		case "r", "left":
			return m.act(lifecycle.Action{Accept: false})
		}
	case mission.InteractMatch, mission.InteractAssemble:
		if key == "enter" {
			answer := m.input.Value()
			if answer == "" {
				return m, nil
			}
			m.input.Reset()
			return m.act(lifecycle.Action{Answer: answer})
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	default:
		if key == "space" || key == " " || key == "enter" {
			return m.act(lifecycle.Action{Accept: true})
		}
	}
	return m, nil
}

// act sends a to the selected live item.
func (m Model) act(a lifecycle.Action) (tea.Model, tea.Cmd) {
	live := m.session.View().Live
	if len(live) == 0 {
		return m, nil
	}
	m.selected = min(m.selected, len(live)-1)
	a.ItemID = live[m.selected].Item.ID

	rep, err := m.session.Interact(m.now(), a)
	if err != nil {
		m.logger.Debug("interaction refused", "item_id", a.ItemID, "error", err)
		return m, nil
	}
	m.lastOK = rep.Outcome.Counts()
	m.feedback = fmt.Sprintf("%+d", rep.Delta)
	m.clampSelection()

	if m.session.State() == lifecycle.StateEnded {
		return m.finish()
	}
	return m, nil
}

// finish hands the ended session to the manager in the background.
func (m Model) finish() (Model, tea.Cmd) {
	if m.ending || m.details != nil {
		return m, nil
	}
	m.ending = true
	res, _ := m.session.Result()
	mgr := m.manager
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), endTimeout)
		defer cancel()
		details, err := mgr.EndSession(ctx, &gamesession.EndExtras{
			Completed: res.Reason.Completed(),
			Duration:  res.Elapsed,
		})
		return endedMsg{details: details, err: err}
	}
}

func (m *Model) clampSelection() {
	n := len(m.session.View().Live)
	if n == 0 {
		m.selected = 0
		return
	}
	m.selected = min(m.selected, n-1)
}

func (m Model) typed() bool {
	switch m.session.Config().Variant.Interaction {
	case mission.InteractMatch, mission.InteractAssemble:
		return true
	}
	return false
}

// Run starts the remote session, begins play and blocks until the learner
// leaves the result screen.
func Run(ctx context.Context, rc mission.ResolvedConfig, ds *dataset.GameDataset, mgr *gamesession.Manager, id gamesession.Identity, logger *slog.Logger) (evaluator.StandardizedDetails, error) {
	logger = logging.OrDiscard(logger)

	s, err := lifecycle.New(rc, ds, mgr, lifecycle.WithLogger(logger))
	if err != nil {
		return evaluator.StandardizedDetails{}, err
	}
	sessionID, err := mgr.StartSession(ctx, id)
	if err != nil {
		return evaluator.StandardizedDetails{}, err
	}
	if err := s.Begin(time.Now()); err != nil {
		if aerr := mgr.Abandon(ctx); aerr != nil {
			logger.Warn("flushing unplayed session failed", "session_id", sessionID, "error", aerr)
		}
		return evaluator.StandardizedDetails{}, err
	}

	final, err := tea.NewProgram(NewModel(s, mgr, WithLogger(logger))).Run()
	if err != nil {
		return evaluator.StandardizedDetails{}, fmt.Errorf("running preview: %w", err)
	}
	fm := final.(Model)
	details, ok := fm.Details()
	if !ok {
		return evaluator.StandardizedDetails{}, errors.New("preview closed before the session was finalized")
	}
	return details, fm.Err()
}
