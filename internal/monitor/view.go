package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/smartfarm/internal/chart"
	"github.com/luki/smartfarm/internal/pipeline"
	"github.com/luki/smartfarm/internal/reading"
)

const (
	chartHeight = 8
	cellW       = 10
	labelW      = 21
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
	colorOk       = lipgloss.Color("78")
	colorWarn     = lipgloss.Color("220")
	colorCrit     = lipgloss.Color("196")
	colorPaused   = lipgloss.Color("196")
)

// ── View ─────────────────────────────────────────────────────────────

func (m Model) contentWidth() int {
	w := m.width - 2
	if w < 40 {
		w = 40
	}
	return w
}

func (m Model) chartWidth() int {
	w := m.contentWidth() - 4
	if w > 160 {
		w = 160
	}
	return w
}

func (m Model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	contentWidth := m.contentWidth()
	var sections []string

	sections = append(sections, m.renderTitleBar(contentWidth))
	sections = append(sections, m.renderAlert(contentWidth))

	if m.editing {
		sections = append(sections, m.renderEditPrompt(contentWidth))
	} else if m.status != "" {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(colorLabel).
			Width(contentWidth).
			Padding(0, 1).
			Render(m.status))
	}

	if !m.loaded && len(m.readings) == 0 {
		waiting := lipgloss.NewStyle().
			Foreground(colorDim).
			Width(contentWidth).
			Align(lipgloss.Center).
			Padding(2, 0).
			Render("Waiting for sensor data...")
		sections = append(sections, waiting)
	} else {
		sections = append(sections, m.renderCards(contentWidth))
		sections = append(sections, m.panel("Chart", m.board.View(), contentWidth))
		sections = append(sections, m.panel("Readings", m.renderTable(), contentWidth))
		sections = append(sections, m.panel("Stats", m.renderStats(), contentWidth))
	}

	sections = append(sections, m.renderFooter(contentWidth))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	lines := strings.Split(content, "\n")
	visibleLines := m.height
	if visibleLines < 5 {
		visibleLines = 5
	}
	maxScroll := len(lines) - visibleLines
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.scroll > maxScroll {
		m.scroll = maxScroll
	}

	start := m.scroll
	end := start + visibleLines
	if end > len(lines) {
		end = len(lines)
	}

	return strings.Join(lines[start:end], "\n")
}

func (m Model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("SMART FARM")

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	var statusParts []string

	filter := lipgloss.NewStyle().Foreground(colorHeading).Render(filterName(m.state.Filter()))
	statusParts = append(statusParts, dimS.Render("filter ")+filter)
	statusParts = append(statusParts, dimS.Render(fmt.Sprintf("up %s", fmtDuration(time.Since(m.startTime)))))

	if !m.lastPoll.IsZero() {
		statusParts = append(statusParts, dimS.Render(m.lastPoll.Format("15:04:05")))
	}
	if m.devLabel != "" {
		statusParts = append(statusParts, dimS.Render("devices "+m.devLabel))
	}
	if m.paused {
		p := lipgloss.NewStyle().
			Foreground(colorPaused).
			Bold(true).
			Render("PAUSED")
		statusParts = append(statusParts, p)
	}

	sep := dimS.Render(" │ ")
	right := strings.Join(statusParts, sep)

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

func (m Model) renderAlert(width int) string {
	style := lipgloss.NewStyle().Width(width).Padding(0, 1)
	if m.alert == "" {
		return style.Foreground(colorOk).Render("✔ All readings within thresholds")
	}
	return style.Foreground(colorCrit).Bold(true).Render("⚠ " + m.alert)
}

func (m Model) renderEditPrompt(width int) string {
	p := reading.Parameter(m.state.Filter())
	prompt := fmt.Sprintf("New %s threshold (now %g): %s█", p.Label(), m.state.Threshold(p), m.input)
	hint := lipgloss.NewStyle().Foreground(colorDim).Render("  enter:apply esc:cancel")
	return lipgloss.NewStyle().
		Foreground(colorWarn).
		Width(width).
		Padding(0, 1).
		Render(prompt + hint)
}

func (m Model) renderCards(width int) string {
	if len(m.cards) == 0 {
		return ""
	}
	cardW := (width - 2) / len(m.cards)
	if cardW < 16 {
		cardW = 16
	}

	var cards []string
	for _, c := range m.cards {
		border := colorBorder
		if c.Breach {
			border = colorCrit
		}
		title := lipgloss.NewStyle().Foreground(colorHeading).Bold(true).Render(c.Parameter.Title())
		value := chart.RenderValue(reading.Num(c.Value), c.Threshold)
		limit := lipgloss.NewStyle().Foreground(colorDim).Render(fmt.Sprintf("limit %g", c.Threshold))
		body := lipgloss.JoinVertical(lipgloss.Left, title, value, limit)
		cards = append(cards, lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1).
			Width(cardW-2).
			Render(body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

// renderTable highlights breaching cells. Rows keep input order.
func (m Model) renderTable() string {
	if len(m.table.Rows) == 0 {
		return lipgloss.NewStyle().Foreground(colorDim).Render("No data available")
	}

	headS := lipgloss.NewStyle().Foreground(colorHeading).Bold(true)
	labelS := lipgloss.NewStyle().Foreground(colorLabel).Width(labelW)
	cellS := lipgloss.NewStyle().Width(cellW).Align(lipgloss.Right)
	breachS := cellS.Foreground(colorCrit).Bold(true).Reverse(true)

	header := headS.Width(labelW).Render("Time")
	for _, p := range m.table.Columns {
		header += headS.Width(cellW).Align(lipgloss.Right).Render(truncate(p.Label(), cellW))
	}

	lines := []string{header}
	for _, row := range m.table.Rows {
		line := labelS.Render(truncate(row.Label, labelW))
		for _, c := range row.Cells {
			if c.Breach {
				line += breachS.Render(c.Value.String())
			} else {
				line += cellS.Render(c.Value.String())
			}
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderStats() string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	nameS := lipgloss.NewStyle().Foreground(colorLabel).Width(labelW)

	var rows []string
	for _, p := range m.state.Filter().Parameters() {
		buf := m.history.Get(p)
		if buf == nil {
			rows = append(rows, nameS.Render(p.Title())+dimS.Render(" no data"))
			continue
		}
		last := buf.Last()
		rows = append(rows, nameS.Render(p.Title())+
			dimS.Render(" last")+valS.Render(fmt.Sprintf("%8.1f", last.Value))+
			dimS.Render(" @ "+chart.ShortLabel(last.Label))+
			dimS.Render(" avg")+valS.Render(fmt.Sprintf("%8.1f", buf.Avg()))+
			dimS.Render(" lo")+valS.Render(fmt.Sprintf("%8.1f", buf.Min))+
			dimS.Render(" pk")+valS.Render(fmt.Sprintf("%8.1f", buf.Peak))+
			dimS.Render(" n")+valS.Render(fmt.Sprintf("%4d", buf.Len())))
	}
	return strings.Join(rows, "\n")
}

func (m Model) panel(title, body string, width int) string {
	heading := lipgloss.NewStyle().Bold(true).Foreground(colorHeading).Render(title)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, heading, body))
}

func (m Model) renderFooter(width int) string {
	okS := lipgloss.NewStyle().Foreground(colorOk).Render("██")
	warnS := lipgloss.NewStyle().Foreground(colorWarn).Render("██")
	critS := lipgloss.NewStyle().Foreground(colorCrit).Render("██")

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	keyS := lipgloss.NewStyle().Foreground(colorLabel)
	legend := okS + dimS.Render(" ok ") +
		warnS + dimS.Render(" near ") +
		critS + dimS.Render(" over ")

	keys := dimS.Render("1-4/a") + keyS.Render(":filter") +
		dimS.Render("  t") + keyS.Render(":threshold") +
		dimS.Render("  r") + keyS.Render(":refresh") +
		dimS.Render("  w/l/f") + keyS.Render(":on") +
		dimS.Render(" W/L/F") + keyS.Render(":off") +
		dimS.Render("  +/-") + keyS.Render(":simulate") +
		dimS.Render("  e") + keyS.Render(":export") +
		dimS.Render("  p") + keyS.Render(":pause") +
		dimS.Render("  q") + keyS.Render(":quit")

	gap := width - lipgloss.Width(legend) - lipgloss.Width(keys) - 4
	if gap < 1 {
		gap = 1
	}
	filler := strings.Repeat(" ", gap)

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(legend + filler + keys)
}

func filterName(f pipeline.Filter) string {
	if f == pipeline.FilterAll {
		return "all"
	}
	return reading.Parameter(f).Label()
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

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}
