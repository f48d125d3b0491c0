package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/runoshun/swarm-factory/internal/domain"
)

// Colors defines the color palette for the board.
var Colors = struct {
	Primary  lipgloss.Color
	Muted    lipgloss.Color
	Error    lipgloss.Color
	Success  lipgloss.Color
	Warning  lipgloss.Color
	Text     lipgloss.Color
	Selected lipgloss.Color
	Border   lipgloss.Color
}{
	Primary:  lipgloss.Color("#6C5CE7"), // Purple
	Muted:    lipgloss.Color("#636E72"), // Gray
	Error:    lipgloss.Color("#D63031"), // Red
	Success:  lipgloss.Color("#00B894"), // Green
	Warning:  lipgloss.Color("#FDCB6E"), // Yellow
	Text:     lipgloss.Color("#DFE6E9"), // Light gray
	Selected: lipgloss.Color("#FFEAA7"), // Pale yellow
	Border:   lipgloss.Color("#636E72"),
}

// Styles contains the lipgloss styles for the board.
type Styles struct {
	App lipgloss.Style

	// Header
	Header     lipgloss.Style
	HeaderMeta lipgloss.Style

	// Lanes
	Lane         lipgloss.Style
	LaneActive   lipgloss.Style
	LaneTitle    lipgloss.Style
	Card         lipgloss.Style
	CardSelected lipgloss.Style
	CardMeta     lipgloss.Style

	// Phase badges
	PhaseRunning  lipgloss.Style
	PhaseReview   lipgloss.Style
	PhaseDone     lipgloss.Style
	PhaseFailed   lipgloss.Style
	PhaseOverride lipgloss.Style

	// Detail pane
	Detail      lipgloss.Style
	DetailLabel lipgloss.Style

	ErrorMsg lipgloss.Style
	Footer   lipgloss.Style
}

// DefaultStyles returns the default styles for the board.
func DefaultStyles() Styles {
	lane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Colors.Border).
		Padding(0, 1)

	return Styles{
		App: lipgloss.NewStyle().Padding(1, 2),

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(Colors.Primary),
		HeaderMeta: lipgloss.NewStyle().
			Foreground(Colors.Muted),

		Lane:       lane,
		LaneActive: lane.BorderForeground(Colors.Primary),
		LaneTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(Colors.Text),
		Card: lipgloss.NewStyle().
			Foreground(Colors.Text),
		CardSelected: lipgloss.NewStyle().
			Bold(true).
			Foreground(Colors.Selected),
		CardMeta: lipgloss.NewStyle().
			Foreground(Colors.Muted),

		PhaseRunning:  lipgloss.NewStyle().Foreground(Colors.Primary),
		PhaseReview:   lipgloss.NewStyle().Foreground(Colors.Warning),
		PhaseDone:     lipgloss.NewStyle().Foreground(Colors.Success),
		PhaseFailed:   lipgloss.NewStyle().Foreground(Colors.Error),
		PhaseOverride: lipgloss.NewStyle().Foreground(Colors.Warning).Italic(true),

		Detail: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(Colors.Border).
			MarginTop(1),
		DetailLabel: lipgloss.NewStyle().
			Bold(true).
			Foreground(Colors.Muted).
			Width(12),

		ErrorMsg: lipgloss.NewStyle().Foreground(Colors.Error),
		Footer:   lipgloss.NewStyle().MarginTop(1),
	}
}

// PhaseStyle returns the badge style for a phase.
func (s Styles) PhaseStyle(phase domain.Phase, overridden bool) lipgloss.Style {
	switch {
	case overridden:
		return s.PhaseOverride
	case phase == domain.PhaseDone:
		return s.PhaseDone
	case phase == domain.PhaseFailed:
		return s.PhaseFailed
	case phase == domain.PhaseHumanReview:
		return s.PhaseReview
	default:
		return s.PhaseRunning
	}
}
