package preview

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/missionkit/internal/dataset"
	"github.com/abhisek/missionkit/internal/lifecycle"
	"github.com/abhisek/missionkit/internal/mission"
	"github.com/abhisek/missionkit/internal/ui/components"
	"github.com/abhisek/missionkit/internal/ui/layout"
	"github.com/abhisek/missionkit/internal/ui/theme"
)

func (m Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}
	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	sv := m.session.View()
	header := layout.RenderHeader(m.title, sv.Score, sv.Streak, m.width)
	footer := layout.RenderFooter(m.hints(sv.State), m.width)
	v.SetContent(layout.RenderFrame(header, m.body(sv), footer, m.width, m.height))
	return v
}

func (m Model) body(sv lifecycle.View) string {
	switch {
	case m.details != nil:
		return m.summaryView()
	case m.ending:
		return theme.Subtitle.Width(m.width).Render("\n\nSaving your result...")
	}

	switch sv.State {
	case lifecycle.StateCountdown:
		secs := int((sv.CountdownRemaining + time.Second - 1) / time.Second)
		return theme.Countdown.Width(m.width).Render(fmt.Sprintf("\n\nGet ready\n\n%d", max(1, secs)))
	case lifecycle.StatePaused:
		return theme.Paused.Width(m.width).Render("\n\nPaused\n\nesc to resume, q to quit")
	case lifecycle.StateActive:
		return m.activeView(sv)
	}
	return ""
}

func (m Model) activeView(sv lifecycle.View) string {
	var b strings.Builder
	rc := m.session.Config()
	width := min(m.width-4, 72)

	if rc.TimeLimit > 0 {
		left := float64(sv.TimeRemaining) / float64(rc.TimeLimit)
		bar := components.ProgressBar{
			Label:   fmt.Sprintf("%3ds", int(sv.TimeRemaining.Seconds())),
			Percent: 1 - left,
			Width:   width,
			Urgent:  true,
		}
		b.WriteString("  " + bar.View() + "\n")
	}
	b.WriteString(theme.Hint.Render(fmt.Sprintf("  %d/%d presented  ✓ %d  ✗ %d", sv.Presented, sv.Total, sv.Correct, sv.Wrong)))
	if m.feedback != "" {
		style := theme.Incorrect
		if m.lastOK {
			style = theme.Correct
		}
		b.WriteString("   " + style.Render(m.feedback))
	}
	b.WriteString("\n\n")

	if len(sv.Live) == 0 {
		b.WriteString(theme.Hint.Render("  waiting for the next item..."))
	}
	for i, li := range sv.Live {
		cursor := "  "
		style := theme.Unselected
		if i == m.selected {
			cursor = "▸ "
			style = theme.Selected
		}
		line := cursor + style.Render(prompt(rc.Variant.Interaction, li.Item))
		gap := max(1, width/2-lipgloss.Width(line))
		bar := components.ProgressBar{Percent: li.Progress(), Width: width / 2, Urgent: true}
		b.WriteString("  " + line + strings.Repeat(" ", gap) + bar.View() + "\n")
	}

	if m.typed() {
		b.WriteString("\n  " + m.input.View() + "\n")
	}
	return b.String()
}

func (m Model) summaryView() string {
	d := m.details
	var b strings.Builder

	b.WriteString(theme.Title.Width(m.width).Render(fmt.Sprintf("Mission %s", strings.ToUpper(string(d.Summary.Performance)))))
	b.WriteString("\n\n")
	b.WriteString(theme.Body.Render(fmt.Sprintf("  Score %d (final %.0f)   Accuracy %.1f%%   %ds",
		d.Summary.ScoreRaw, d.Summary.ScoreFinal, d.Summary.Accuracy, d.Summary.DurationSeconds)))
	b.WriteString("\n\n")

	if len(d.Review.Strengths) > 0 {
		b.WriteString(theme.Correct.Render("  Strengths") + "\n")
		for _, s := range d.Review.Strengths {
			b.WriteString("    " + s + "\n")
		}
	}
	if len(d.Review.Improvements) > 0 {
		b.WriteString(theme.Incorrect.Render("  To practice") + "\n")
		for _, s := range d.Review.Improvements {
			b.WriteString("    " + s + "\n")
		}
	}
	if d.Review.RecommendedPractice != "" {
		b.WriteString("\n  " + theme.Body.Render(d.Review.RecommendedPractice) + "\n")
	}
	if d.Review.CoachNote != "" {
		b.WriteString("\n" + theme.Card.Render(d.Review.CoachNote) + "\n")
	}
	if m.endErr != nil {
		b.WriteString("\n" + theme.Incorrect.Render("  Result not saved: "+m.endErr.Error()) + "\n")
	}
	return b.String()
}

func (m Model) hints(state lifecycle.State) []layout.KeyHint {
	if m.details != nil {
		return []layout.KeyHint{{Key: "enter", Description: "Done"}}
	}
	switch state {
	case lifecycle.StatePaused:
		return []layout.KeyHint{{Key: "esc", Description: "Resume"}, {Key: "q", Description: "Quit"}}
	case lifecycle.StateActive:
	default:
		return nil
	}

	hints := []layout.KeyHint{{Key: "↑↓", Description: "Select"}}
	switch m.session.Config().Variant.Interaction {
	case mission.InteractGate:
		hints = append(hints, layout.KeyHint{Key: "a", Description: "Let through"}, layout.KeyHint{Key: "r", Description: "Block"})
	case mission.InteractMatch, mission.InteractAssemble:
		hints = append(hints, layout.KeyHint{Key: "enter", Description: "Answer"})
	default:
		hints = append(hints, layout.KeyHint{Key: "space", Description: "Catch"})
	}
	return append(hints, layout.KeyHint{Key: "esc", Description: "Pause"})
}

// prompt renders an item without giving away typed answers.
func prompt(in mission.Interaction, item dataset.PreparedItem) string {
	switch in {
	case mission.InteractMatch:
		if item.ImageURL != "" {
			return "🖼  " + item.ImageURL
		}
		return maskWord(item.Text)
	case mission.InteractAssemble:
		words := strings.Fields(item.Text)
		sort.Strings(words)
		return strings.Join(words, " / ")
	}
	return item.Text
}

func maskWord(s string) string {
	r := []rune(s)
	if len(r) <= 1 {
		return "_"
	}
	return string(r[0]) + strings.Repeat("_", len(r)-1)
}
