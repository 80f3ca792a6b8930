package viewer

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/smartfarm/internal/chart"
	"github.com/luki/smartfarm/internal/pipeline"
	"github.com/luki/smartfarm/internal/reading"
)

const (
	labelW = 21
	cellW  = 10
)

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("22")
	colorTitleFg  = lipgloss.Color("156")
	colorBorder   = lipgloss.Color("65")
	colorHeading  = lipgloss.Color("147")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorCursor   = lipgloss.Color("214")
	colorCrit     = lipgloss.Color("196")
	colorBreachBg = lipgloss.Color("52")
)

// ── View ─────────────────────────────────────────────────────────────

func (m Model) contentWidth() int {
	w := m.width - 2
	if w < 40 {
		w = 40
	}
	return w
}

// visibleRows is how many table rows fit below the header sections.
func (m Model) visibleRows() int {
	rows := m.height - 22
	if rows < 5 {
		rows = 5
	}
	return rows
}

func (m Model) View() string {
	if m.width == 0 {
		return "  Loading..."
	}

	contentWidth := m.contentWidth()
	var sections []string

	sections = append(sections, m.renderTitle(contentWidth))

	if m.err != nil {
		errBox := lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Padding(0, 1).
			Render("ERROR: " + m.describeErr())
		sections = append(sections, errBox)
	}

	if len(m.table.Rows) == 0 {
		msg := "No data available."
		if m.loading {
			msg = "Loading..."
		}
		empty := lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(2, 0).
			Align(lipgloss.Center).
			Width(contentWidth).
			Render(msg)
		sections = append(sections, empty)
	} else {
		sections = append(sections, m.renderCursorInfo(contentWidth))
		sections = append(sections, m.panel(m.board.View(), contentWidth))
		sections = append(sections, m.panel(m.renderTable(), contentWidth))
	}

	sections = append(sections, m.renderFooter(contentWidth))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTitle(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("SMART FARM HISTORY")

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	var src string
	if m.kind == fromExports {
		day := "none"
		if len(m.days) > 0 {
			day = m.days[m.dayIdx]
		}
		src = lipgloss.NewStyle().Foreground(colorCursor).Bold(true).Render("export "+day) +
			dimS.Render(fmt.Sprintf("  [ %d/%d ]", m.dayIdx+1, len(m.days)))
	} else {
		src = lipgloss.NewStyle().Foreground(colorCursor).Bold(true).Render("server")
	}

	info := dimS.Render(fmt.Sprintf("  filter %s  (%d readings, %d over threshold)",
		m.state.Filter(), len(m.table.Rows), m.breaches))

	right := src + info

	gap := width - lipgloss.Width(logo) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}
	filler := strings.Repeat(" ", gap)

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + filler + right)
}

// renderCursorInfo shows every parameter of the selected reading,
// whatever the filter, plus the scrubber.
func (m Model) renderCursorInfo(width int) string {
	if m.cursor < 0 || m.cursor >= len(m.readings) {
		return ""
	}
	r := m.readings[m.cursor]
	snap := m.state.Snapshot()

	ts := lipgloss.NewStyle().Foreground(colorCursor).Bold(true).Render(r.Timestamp)
	pos := lipgloss.NewStyle().Foreground(colorDim).Render(fmt.Sprintf("  %d/%d", m.cursor+1, len(m.readings)))

	var vals []string
	for _, p := range reading.Parameters() {
		vals = append(vals, lipgloss.NewStyle().Foreground(colorDim).Render(shortName(p)+" ")+
			chart.RenderValue(r.Get(p), snap.Thresholds.Lookup(p)))
	}

	barWidth := width - 4
	if barWidth < 10 {
		barWidth = 10
	}
	return lipgloss.NewStyle().
		Padding(0, 1).
		Render(ts + pos + "  " + strings.Join(vals, "  ") + "\n" + m.renderScrubber(barWidth))
}

// renderScrubber marks the cursor position and every breaching reading.
func (m Model) renderScrubber(width int) string {
	n := len(m.table.Rows)
	if n == 0 || width <= 0 {
		return ""
	}

	pos := 0
	if n > 1 {
		pos = m.cursor * (width - 1) / (n - 1)
	}
	if pos >= width {
		pos = width - 1
	}

	var sb strings.Builder
	dimS := lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	curS := lipgloss.NewStyle().Foreground(colorCursor).Bold(true)
	hitS := lipgloss.NewStyle().Foreground(colorCrit)

	for i := 0; i < width; i++ {
		if i == pos {
			sb.WriteString(curS.Render("◆"))
			continue
		}
		idx := 0
		if n > 1 {
			idx = i * (n - 1) / (width - 1)
		}
		if m.table.Rows[idx].Breach {
			sb.WriteString(hitS.Render("│"))
		} else {
			sb.WriteString(dimS.Render("─"))
		}
	}
	return sb.String()
}

// renderTable highlights the whole row when any of its values breaches.
func (m Model) renderTable() string {
	headS := lipgloss.NewStyle().Foreground(colorHeading).Bold(true)
	header := "  " + headS.Width(labelW).Render("Time")
	for _, p := range m.table.Columns {
		header += headS.Width(cellW).Align(lipgloss.Right).Render(truncate(p.Label(), cellW))
	}

	lines := []string{header}
	end := m.scroll + m.visibleRows()
	if end > len(m.table.Rows) {
		end = len(m.table.Rows)
	}
	for i := m.scroll; i < end; i++ {
		lines = append(lines, m.renderRow(i, m.table.Rows[i]))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(i int, row pipeline.Row) string {
	base := lipgloss.NewStyle().Foreground(colorLabel)
	if row.Breach {
		base = base.Background(colorBreachBg).Foreground(colorCrit).Bold(true)
	}

	marker := "  "
	if i == m.cursor {
		marker = lipgloss.NewStyle().Foreground(colorCursor).Render("▶ ")
	}

	line := base.Width(labelW).Render(truncate(row.Label, labelW))
	for _, c := range row.Cells {
		line += base.Width(cellW).Align(lipgloss.Right).Render(c.Value.String())
	}
	return marker + line
}

func (m Model) panel(body string, width int) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width).
		Render(body)
}

func (m Model) renderFooter(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	keyS := lipgloss.NewStyle().Foreground(colorLabel)

	keys := dimS.Render("j/k") + keyS.Render(":move") +
		dimS.Render("  g/G") + keyS.Render(":first/last") +
		dimS.Render("  1-4/a") + keyS.Render(":filter") +
		dimS.Render("  r") + keyS.Render(":reload")
	if m.exportDir != "" {
		keys += dimS.Render("  x") + keyS.Render(":server/exports")
		if m.kind == fromExports {
			keys += dimS.Render("  [/]") + keyS.Render(":day")
		}
	}
	keys += dimS.Render("  q") + keyS.Render(":quit")

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(keys)
}

func shortName(p reading.Parameter) string {
	switch p {
	case reading.Temperature:
		return "temp"
	case reading.Humidity:
		return "hum"
	case reading.CO2:
		return "co2"
	case reading.LightIntensity:
		return "light"
	}
	return string(p)
}

func truncate(s string, w int) string {
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w <= 3 {
		return string(r[:w])
	}
	return string(r[:w-1]) + "…"
}
