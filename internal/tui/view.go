package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/runoshun/swarm-factory/internal/domain"
)

const (
	minLaneWidth = 18
	maxCardRows  = 12
)

// View renders the board.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.headerView())
	b.WriteString("\n\n")

	switch {
	case m.board == nil && m.err != nil:
		b.WriteString(m.styles.ErrorMsg.Render("Error: " + m.err.Error()))
	case m.board == nil:
		b.WriteString(m.styles.CardMeta.Render("Loading..."))
	default:
		b.WriteString(m.lanesView())
		if m.detail {
			if v := m.Selected(); v != nil {
				b.WriteString("\n")
				b.WriteString(m.detailView(v))
			}
		}
		if m.err != nil {
			b.WriteString("\n")
			b.WriteString(m.styles.ErrorMsg.Render("Refresh failed: " + m.err.Error()))
		}
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Footer.Render(m.help.View(m.keys)))
	return m.styles.App.Render(b.String())
}

func (m *Model) headerView() string {
	title := m.styles.Header.Render("swarm board")
	if m.board == nil {
		return title
	}
	meta := fmt.Sprintf("%d runs · %d pending", m.board.Total, len(m.board.Pending))
	if m.board.Degraded > 0 {
		meta += fmt.Sprintf(" · %d without decisions", m.board.Degraded)
	}
	if !m.loadedAt.IsZero() {
		meta += " · updated " + m.loadedAt.Format("15:04:05")
	}
	return title + "  " + m.styles.HeaderMeta.Render(meta)
}

// laneWidth splits the terminal width evenly across lanes.
func (m *Model) laneWidth() int {
	n := len(m.board.Columns)
	if n == 0 || m.width == 0 {
		return minLaneWidth
	}
	// App padding (4) plus border and padding per lane (4).
	w := (m.width-4)/n - 4
	return max(w, minLaneWidth)
}

func (m *Model) lanesView() string {
	width := m.laneWidth()
	lanes := make([]string, 0, len(m.board.Columns))
	for i, col := range m.board.Columns {
		var rows []string
		rows = append(rows, m.styles.LaneTitle.Render(fmt.Sprintf("%s (%d)", col.Lane, len(col.Jobs))))
		for j, v := range col.Jobs {
			if j == maxCardRows {
				rows = append(rows, m.styles.CardMeta.Render(fmt.Sprintf("+%d more", len(col.Jobs)-maxCardRows)))
				break
			}
			rows = append(rows, m.cardView(v, width, i == m.lane && j == m.row))
		}
		style := m.styles.Lane
		if i == m.lane {
			style = m.styles.LaneActive
		}
		lanes = append(lanes, style.Width(width).Render(strings.Join(rows, "\n")))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, lanes...)
}

func (m *Model) cardView(v *domain.EffectiveView, width int, selected bool) string {
	title := m.styles.Card
	cursor := "  "
	if selected {
		title = m.styles.CardSelected
		cursor = "> "
	}
	phase := m.styles.PhaseStyle(v.EffectivePhase, v.PhaseOverridden).Render(string(v.EffectivePhase))
	return cursor + title.Render(truncate(cardTitle(v.Job), width-2)) + "\n  " + phase
}

func (m *Model) detailView(v *domain.EffectiveView) string {
	row := func(label, value string) string {
		return m.styles.DetailLabel.Render(label) + " " + value
	}
	rows := []string{
		row("Job", v.Job.JobID),
		row("Code", v.Job.Code),
		row("Title", cardTitle(v.Job)),
		row("Phase", string(v.EffectivePhase)),
		row("Stored", string(v.Job.Phase)),
	}
	if v.Assignment.Agent != nil {
		agent := string(*v.Assignment.Agent)
		if v.Assignment.Pipeline != nil && *v.Assignment.Pipeline {
			agent += " (pipeline)"
		}
		rows = append(rows, row("Agent", agent))
	}
	rows = append(rows, row("Decisions", fmt.Sprintf("%d", v.ArtifactSummary.DecisionCount)))
	if v.LatestDecision != nil && v.LatestDecision.Note != nil {
		rows = append(rows, row("Note", *v.LatestDecision.Note))
	}
	if v.DecisionsDegraded {
		rows = append(rows, m.styles.ErrorMsg.Render("decisions unavailable; showing stored record"))
	}
	return m.styles.Detail.Render(strings.Join(rows, "\n"))
}

// cardTitle returns the display title of a job.
func cardTitle(j *domain.Job) string {
	if j.Title != "" {
		return j.Title
	}
	if j.Code != "" {
		return j.Code
	}
	return j.JobID
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
