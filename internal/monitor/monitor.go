// Package monitor implements the live Smart Farm dashboard TUI using
// BubbleTea: overview cards, a threshold-highlighted table, a chart with
// a threshold marker and device controls.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/luki/smartfarm/internal/api"
	"github.com/luki/smartfarm/internal/chart"
	"github.com/luki/smartfarm/internal/device"
	"github.com/luki/smartfarm/internal/history"
	"github.com/luki/smartfarm/internal/logging"
	"github.com/luki/smartfarm/internal/pipeline"
	"github.com/luki/smartfarm/internal/reading"
	"github.com/luki/smartfarm/internal/store"
)

const historySize = 600

// adjustStep is how far +/- move the simulated next reading.
var adjustStep = map[reading.Parameter]float64{
	reading.Temperature:    1,
	reading.Humidity:       5,
	reading.CO2:            100,
	reading.LightIntensity: 50,
}

// Source is the part of the backend client the dashboard reads from.
type Source interface {
	Readings(ctx context.Context, parameter string) ([]reading.SensorReading, error)
	Refresh(ctx context.Context) error
}

// Options wires the dashboard to its collaborators. Devices and Exporter
// may be nil; the matching keys then report that they are unavailable.
type Options struct {
	Context      context.Context
	Source       Source
	Devices      device.Controller
	DeviceLabel  string // "http" or the MQTT topic, shown in the title bar
	Exporter     *store.Exporter
	State        *pipeline.State
	PollInterval time.Duration // 0 disables polling
	Logger       *slog.Logger
}

// ── Messages ─────────────────────────────────────────────────────────

type tickMsg time.Time

type readingsMsg struct {
	gen      uint64
	readings []reading.SensorReading
	time     time.Time
}

type fetchErrMsg struct {
	gen uint64
	err error
}

type refreshedMsg struct{ err error }

type actionMsg struct {
	action device.Action
	text   string
	err    error
}

type exportMsg struct {
	path string
	rows int
	err  error
}

// ── Model ────────────────────────────────────────────────────────────

// Model is the BubbleTea model for the live dashboard. It is the single
// owner of the pipeline state and the chart board.
type Model struct {
	ctx      context.Context
	source   Source
	devices  device.Controller
	devLabel string
	exporter *store.Exporter
	state    *pipeline.State
	board    *chart.Board
	logger   *slog.Logger
	interval time.Duration

	readings []reading.SensorReading
	table    pipeline.Table
	cards    []pipeline.Card
	history  *history.Store
	alert    string
	status   string
	err      error
	loaded   bool
	answered uint64 // last generation whose response arrived

	editing bool
	input   string

	width     int
	height    int
	scroll    int
	lastPoll  time.Time
	startTime time.Time
	paused    bool
}

// New creates the initial model for the live dashboard.
func New(opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.State == nil {
		opts.State = pipeline.NewState(nil, "")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return Model{
		ctx:       opts.Context,
		source:    opts.Source,
		devices:   opts.Devices,
		devLabel:  opts.DeviceLabel,
		exporter:  opts.Exporter,
		state:     opts.State,
		board:     &chart.Board{},
		logger:    opts.Logger,
		interval:  opts.PollInterval,
		history:   history.NewStore(historySize),
		startTime: time.Now(),
	}
}

// ── Commands ─────────────────────────────────────────────────────────

func tickCmd(d time.Duration) tea.Cmd {
	if d <= 0 {
		return nil
	}
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetch starts a new request generation. Responses from older
// generations are dropped when they arrive.
func (m Model) fetch() tea.Cmd {
	gen := m.state.NextGeneration()
	ctx, src := m.ctx, m.source
	return func() tea.Msg {
		readings, err := src.Readings(ctx, "")
		if err != nil {
			return fetchErrMsg{gen: gen, err: err}
		}
		return readingsMsg{gen: gen, readings: readings, time: time.Now()}
	}
}

func (m Model) refresh() tea.Cmd {
	ctx, src := m.ctx, m.source
	return func() tea.Msg {
		return refreshedMsg{err: src.Refresh(ctx)}
	}
}

func (m Model) control(a device.Action) tea.Cmd {
	ctx, ctl := m.ctx, m.devices
	return func() tea.Msg {
		text, err := ctl.Do(ctx, a)
		return actionMsg{action: a, text: text, err: err}
	}
}

func (m Model) export() tea.Cmd {
	ex, snap := m.exporter, m.state.Snapshot()
	readings := m.readings
	return func() tea.Msg {
		now := time.Now()
		if err := ex.Write(readings, snap, now); err != nil {
			return exportMsg{err: err}
		}
		return exportMsg{path: ex.Path(now), rows: len(readings)}
	}
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), tickCmd(m.interval))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		if m.editing {
			return m.updateEdit(msg)
		}
		return m.updateKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.render()

	case tickMsg:
		// A poll never supersedes a fetch that is still outstanding.
		if m.paused || m.state.Generation() != m.answered {
			return m, tickCmd(m.interval)
		}
		return m, tea.Batch(m.fetch(), tickCmd(m.interval))

	case readingsMsg:
		if !m.state.Current(msg.gen) {
			m.logger.Debug("dropping stale response", "generation", msg.gen)
			return m, nil
		}
		m.answered = msg.gen
		m.readings = msg.readings
		m.lastPoll = msg.time
		m.loaded = true
		m.err = nil
		m.render()

	case fetchErrMsg:
		if !m.state.Current(msg.gen) {
			return m, nil
		}
		m.answered = msg.gen
		// Prior table, chart and cards stay on screen.
		m.logger.Error("fetch failed", "error", msg.err)
		m.err = msg.err
		m.alert = api.Describe(msg.err)

	case refreshedMsg:
		if msg.err != nil {
			m.logger.Error("refresh failed", "error", msg.err)
			m.err = msg.err
			m.alert = api.Describe(msg.err)
			return m, nil
		}
		m.status = "Sensor data refreshed"
		return m, m.fetch()

	case actionMsg:
		if msg.err != nil {
			m.logger.Error("device action failed", "action", msg.action, "error", msg.err)
			m.status = fmt.Sprintf("Action '%s' failed: %s", msg.action, api.Describe(msg.err))
			return m, nil
		}
		m.status = msg.text

	case exportMsg:
		if msg.err != nil {
			m.logger.Error("export failed", "error", msg.err)
			m.status = fmt.Sprintf("Export failed: %v", msg.err)
			return m, nil
		}
		m.logger.Info("exported readings", "path", msg.path, "rows", msg.rows)
		m.status = fmt.Sprintf("Exported %d rows to %s", msg.rows, msg.path)
	}

	return m, nil
}

var deviceKeys = map[string]device.Action{
	"w": device.OpenWindow,
	"W": device.CloseWindow,
	"l": device.LightOn,
	"L": device.LightOff,
	"f": device.OpenFan,
	"F": device.CloseFan,
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		m.board.Destroy()
		if m.exporter != nil {
			m.exporter.Close()
		}
		return m, tea.Quit
	case "up", "k":
		if m.scroll > 0 {
			m.scroll--
		}
	case "down", "j":
		m.scroll++
	case "home":
		m.scroll = 0
	case " ", "p":
		m.paused = !m.paused
	case "1", "2", "3", "4":
		p := reading.Parameters()[key[0]-'1']
		return m.setFilter(pipeline.Filter(p))
	case "a":
		return m.setFilter(pipeline.FilterAll)
	case "r":
		m.status = "Refreshing sensor data..."
		return m, m.refresh()
	case "t":
		if m.state.Filter() == pipeline.FilterAll {
			m.status = "Select a single parameter (1-4) to edit its threshold"
			return m, nil
		}
		m.editing = true
		m.input = ""
	case "+", "=", "-":
		return m.adjust(key != "-")
	case "e":
		if m.exporter == nil {
			m.status = "Export is not available"
			return m, nil
		}
		if len(m.readings) == 0 {
			m.status = "Nothing to export yet"
			return m, nil
		}
		return m, m.export()
	default:
		if a, ok := deviceKeys[key]; ok {
			if m.devices == nil {
				m.status = "Device control is not available"
				return m, nil
			}
			m.status = fmt.Sprintf("Sending %s...", a)
			return m, m.control(a)
		}
	}
	return m, nil
}

// setFilter re-renders from the cached readings straight away and
// refetches. Any fetch still in flight for the old filter is superseded.
func (m Model) setFilter(f pipeline.Filter) (tea.Model, tea.Cmd) {
	m.state.SetFilter(f)
	m.scroll = 0
	m.render()
	return m, m.fetch()
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.editing = false
		m.input = ""
	case tea.KeyEnter:
		p := reading.Parameter(m.state.Filter())
		if m.state.OverrideThreshold(p, m.input) {
			m.status = fmt.Sprintf("%s threshold set to %g", p.Label(), m.state.Threshold(p))
			m.logger.Info("threshold changed", "parameter", p, "value", m.state.Threshold(p))
		} else {
			m.status = fmt.Sprintf("Invalid threshold %q, keeping %g", m.input, m.state.Threshold(p))
		}
		m.editing = false
		m.input = ""
		m.render()
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeyRunes:
		if len(m.input) < 16 {
			m.input += string(msg.Runes)
		}
	}
	return m, nil
}

// adjust appends a simulated "Next Hour" reading for the filtered
// parameter. The next poll replaces it with real data.
func (m Model) adjust(up bool) (tea.Model, tea.Cmd) {
	f := m.state.Filter()
	if f == pipeline.FilterAll {
		m.status = "Select a single parameter (1-4) to simulate a change"
		return m, nil
	}
	p := reading.Parameter(f)
	delta := adjustStep[p]
	if !up {
		delta = -delta
	}
	m.readings = reading.Next(m.readings, p, delta)
	m.status = fmt.Sprintf("Simulated %s %+g", p.Label(), delta)
	m.render()
	return m, nil
}

// render runs the pipeline over the cached readings with the current
// snapshot and redraws the chart.
func (m *Model) render() {
	snap := m.state.Snapshot()

	m.table = pipeline.BuildTable(m.readings, snap)
	m.cards = pipeline.Overview(m.readings, snap)
	m.history = history.FromReadings(m.readings, historySize)
	if text, ok := pipeline.ComputeAlert(m.readings, snap); ok {
		m.alert = text
	} else {
		m.alert = ""
	}

	if !m.loaded && len(m.readings) == 0 {
		return
	}
	m.board.Draw(pipeline.RefreshChart(m.readings, snap), m.chartWidth(), chartHeight)
}

// Err returns the last fetch or refresh error, if any.
func (m Model) Err() error { return m.err }

// Unauthorized reports whether the last error was a rejected token.
func (m Model) Unauthorized() bool {
	var se *api.StatusError
	return errors.As(m.err, &se) && se.Code == 401
}
