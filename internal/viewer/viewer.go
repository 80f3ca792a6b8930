// Package viewer implements the history page TUI: every reading in a table
// with breaching rows highlighted, a cursor with per-reading detail and a
// scrubber. It reads from the backend or from local CSV exports.
package viewer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/luki/smartfarm/internal/api"
	"github.com/luki/smartfarm/internal/chart"
	"github.com/luki/smartfarm/internal/logging"
	"github.com/luki/smartfarm/internal/pipeline"
	"github.com/luki/smartfarm/internal/reading"
	"github.com/luki/smartfarm/internal/store"
)

// Source is the part of the backend client the history page reads from.
type Source interface {
	Readings(ctx context.Context, parameter string) ([]reading.SensorReading, error)
}

// Options wires the viewer. ExportDir may be empty, which disables the
// export source.
type Options struct {
	Context   context.Context
	Source    Source
	ExportDir string
	State     *pipeline.State
	Logger    *slog.Logger
}

// Run launches the history viewer TUI.
func Run(opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type sourceKind int

const (
	fromServer sourceKind = iota
	fromExports
)

// ── Messages ─────────────────────────────────────────────────────────

type loadedMsg struct {
	gen      uint64
	readings []reading.SensorReading
}

type errMsg struct {
	gen uint64
	err error
}

// ── Model ────────────────────────────────────────────────────────────

// Model is the BubbleTea model for the history page.
type Model struct {
	ctx       context.Context
	source    Source
	exportDir string
	state     *pipeline.State
	board     *chart.Board
	logger    *slog.Logger

	kind   sourceKind
	days   []string // export dates, newest first
	dayIdx int

	readings []reading.SensorReading
	table    pipeline.Table
	breaches int
	cursor   int // selected row
	scroll   int
	width    int
	height   int
	loading  bool
	err      error
}

// New creates the history page model. The filter defaults to all
// parameters.
func New(opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.State == nil {
		opts.State = pipeline.NewState(nil, pipeline.FilterAll)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return Model{
		ctx:       opts.Context,
		source:    opts.Source,
		exportDir: opts.ExportDir,
		state:     opts.State,
		board:     &chart.Board{},
		logger:    opts.Logger,
	}
}

// ── Commands ─────────────────────────────────────────────────────────

func (m *Model) load() tea.Cmd {
	gen := m.state.NextGeneration()
	m.loading = true

	if m.kind == fromExports {
		if len(m.days) == 0 {
			err := fmt.Errorf("no exports in %s", m.exportDir)
			return func() tea.Msg { return errMsg{gen: gen, err: err} }
		}
		path := filepath.Join(m.exportDir, m.days[m.dayIdx]+".csv")
		return func() tea.Msg {
			rows, err := store.LoadFile(path)
			if err != nil {
				return errMsg{gen: gen, err: err}
			}
			readings := make([]reading.SensorReading, len(rows))
			for i, r := range rows {
				readings[i] = r.Reading
			}
			return loadedMsg{gen: gen, readings: readings}
		}
	}

	ctx, src := m.ctx, m.source
	return func() tea.Msg {
		readings, err := src.Readings(ctx, "")
		if err != nil {
			return errMsg{gen: gen, err: err}
		}
		return loadedMsg{gen: gen, readings: readings}
	}
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "q", "ctrl+c":
			m.board.Destroy()
			return m, tea.Quit

		case "up", "k":
			m.moveCursor(-1)
		case "down", "j":
			m.moveCursor(1)
		case "pgup", "K":
			m.moveCursor(-10)
		case "pgdown", "J":
			m.moveCursor(10)
		case "home", "g":
			m.cursor = 0
			m.scroll = 0
		case "end", "G":
			m.cursor = len(m.table.Rows) - 1
			m.moveCursor(0)

		case "1", "2", "3", "4":
			m.state.SetFilter(pipeline.Filter(reading.Parameters()[key[0]-'1']))
			m.render()
		case "a":
			m.state.SetFilter(pipeline.FilterAll)
			m.render()

		case "r":
			cmd := m.load()
			return m, cmd

		case "x":
			if m.exportDir == "" {
				return m, nil
			}
			if m.kind == fromServer {
				days, err := store.ListDays(m.exportDir)
				if err != nil {
					m.logger.Warn("list exports", "dir", m.exportDir, "error", err)
				}
				m.kind, m.days, m.dayIdx = fromExports, days, 0
			} else {
				m.kind = fromServer
			}
			cmd := m.load()
			return m, cmd

		case "[":
			if m.kind == fromExports && m.dayIdx < len(m.days)-1 {
				m.dayIdx++
				cmd := m.load()
				return m, cmd
			}
		case "]":
			if m.kind == fromExports && m.dayIdx > 0 {
				m.dayIdx--
				cmd := m.load()
				return m, cmd
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.render()

	case loadedMsg:
		if !m.state.Current(msg.gen) {
			return m, nil
		}
		m.loading = false
		m.err = nil
		m.readings = msg.readings
		m.cursor = len(msg.readings) - 1
		m.render()
		m.moveCursor(0)

	case errMsg:
		if !m.state.Current(msg.gen) {
			return m, nil
		}
		m.loading = false
		m.logger.Error("history load failed", "error", msg.err)
		m.err = msg.err
	}

	return m, nil
}

// moveCursor clamps the cursor and keeps it inside the visible window.
func (m *Model) moveCursor(delta int) {
	n := len(m.table.Rows)
	m.cursor += delta
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	rows := m.visibleRows()
	if m.cursor < m.scroll {
		m.scroll = m.cursor
	}
	if m.cursor >= m.scroll+rows {
		m.scroll = m.cursor - rows + 1
	}
}

func (m *Model) render() {
	snap := m.state.Snapshot()
	m.table = pipeline.BuildTable(m.readings, snap)
	m.breaches = 0
	for _, r := range m.table.Rows {
		if r.Breach {
			m.breaches++
		}
	}
	if len(m.readings) > 0 {
		m.board.Draw(pipeline.RefreshChart(m.readings, snap), m.contentWidth()-4, 6)
	} else {
		m.board.Destroy()
	}
}

// describeErr maps load errors to the message shown on screen. Export
// errors are local file problems and are shown as they are.
func (m Model) describeErr() string {
	if m.kind == fromExports {
		return m.err.Error()
	}
	return api.Describe(m.err)
}
