// Package tui provides the read-only board view for swarm-factory.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runoshun/swarm-factory/internal/domain"
	"github.com/runoshun/swarm-factory/internal/usecase"
)

// Loader fetches the current board.
type Loader func(ctx context.Context) (*usecase.BoardOutput, error)

// DefaultRefreshInterval is how often the board reloads on its own.
const DefaultRefreshInterval = 5 * time.Second

// Model is the bubbletea model of the board.
// Fields are ordered to minimize memory padding.
type Model struct {
	loadedAt time.Time
	err      error
	board    *usecase.BoardOutput
	load     Loader
	now      func() time.Time
	help     help.Model
	styles   Styles
	keys     KeyMap
	interval time.Duration
	width    int
	height   int
	lane     int // Selected lane index
	row      int // Selected job index within the lane
	detail   bool
	loading  bool
}

// New creates a board model. A non-positive interval disables auto refresh.
func New(load Loader, interval time.Duration) *Model {
	return &Model{
		load:     load,
		now:      time.Now,
		help:     help.New(),
		styles:   DefaultStyles(),
		keys:     DefaultKeyMap(),
		interval: interval,
		loading:  true,
	}
}

// Init starts the first load.
func (m *Model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m *Model) loadCmd() tea.Cmd {
	load, now := m.load, m.now
	return func() tea.Msg {
		board, err := load(context.Background())
		return MsgBoardLoaded{Board: board, Err: err, At: now()}
	}
}

func (m *Model) tickCmd() tea.Cmd {
	if m.interval <= 0 {
		return nil
	}
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return MsgTick{} })
}

// Update handles a message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case MsgBoardLoaded:
		m.loading = false
		m.loadedAt = msg.At
		m.err = msg.Err
		if msg.Err == nil {
			m.board = msg.Board
			m.clampCursor()
		}
		return m, m.tickCmd()

	case MsgTick:
		if m.loading {
			return m, nil
		}
		m.loading = true
		return m, m.loadCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.row > 0 {
			m.row--
		}
	case key.Matches(msg, m.keys.Down):
		if m.row < len(m.laneJobs())-1 {
			m.row++
		}
	case key.Matches(msg, m.keys.PrevLane):
		if m.lane > 0 {
			m.lane--
			m.clampCursor()
		}
	case key.Matches(msg, m.keys.NextLane):
		if m.board != nil && m.lane < len(m.board.Columns)-1 {
			m.lane++
			m.clampCursor()
		}
	case key.Matches(msg, m.keys.Detail):
		m.detail = !m.detail
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Refresh):
		if !m.loading {
			m.loading = true
			return m, m.loadCmd()
		}
	}
	return m, nil
}

// laneJobs returns the jobs of the selected lane.
func (m *Model) laneJobs() []*domain.EffectiveView {
	if m.board == nil || m.lane >= len(m.board.Columns) {
		return nil
	}
	return m.board.Columns[m.lane].Jobs
}

// Selected returns the selected job, or nil.
func (m *Model) Selected() *domain.EffectiveView {
	jobs := m.laneJobs()
	if m.row < 0 || m.row >= len(jobs) {
		return nil
	}
	return jobs[m.row]
}

// clampCursor keeps the cursor inside the board after a reload or lane change.
func (m *Model) clampCursor() {
	if m.board == nil {
		m.lane, m.row = 0, 0
		return
	}
	if m.lane >= len(m.board.Columns) {
		m.lane = max(len(m.board.Columns)-1, 0)
	}
	if n := len(m.laneJobs()); m.row >= n {
		m.row = max(n-1, 0)
	}
}
