package theme

import (
	"charm.land/lipgloss/v2"
)

// Palette: bright on a dark field so falling words stand out.
var (
	Primary   = lipgloss.Color("#8B5CF6")
	Secondary = lipgloss.Color("#14B8A6")
	Accent    = lipgloss.Color("#F97316")
	Success   = lipgloss.Color("#22C55E")
	Error     = lipgloss.Color("#F43F5E")
	Warning   = lipgloss.Color("#FACC15")
	Text      = lipgloss.Color("#F8FAFC")
	TextDim   = lipgloss.Color("#94A3B8")
	BgCard    = lipgloss.Color("#1E293B")
	Border    = lipgloss.Color("#334155")
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		Align(lipgloss.Center)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim).
			Align(lipgloss.Center)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Card = lipgloss.NewStyle().
		Background(BgCard).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)
)

var (
	Selected = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	Unselected = lipgloss.NewStyle().
			Foreground(Text)

	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	Countdown = lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true).
			Align(lipgloss.Center)

	Paused = lipgloss.NewStyle().
		Foreground(Warning).
		Bold(true).
		Align(lipgloss.Center)
)

// ProgressColor shifts from calm to urgent as an item's time runs out.
func ProgressColor(spent float64) lipgloss.Style {
	c := Secondary
	switch {
	case spent >= 0.8:
		c = Error
	case spent >= 0.5:
		c = Warning
	}
	return lipgloss.NewStyle().Background(c)
}
