package chart

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/smartfarm/internal/pipeline"
	"github.com/luki/smartfarm/internal/reading"
)

const axisWidth = 7

// Chart is one rendered set of series. It is immutable once drawn.
type Chart struct {
	Series    pipeline.ChartSeries
	lines     []string
	destroyed bool
}

// Destroyed reports whether the chart has been torn down.
func (c *Chart) Destroyed() bool { return c.destroyed }

// String returns the rendered chart, or "" after teardown.
func (c *Chart) String() string {
	if c.destroyed {
		return ""
	}
	return strings.Join(c.lines, "\n")
}

// Board owns at most one live chart. Draw always tears down the previous
// chart first, so no stale series can remain visible.
type Board struct {
	current *Chart
}

// Draw replaces the live chart with one built from cs. A single series is
// drawn as a block plot of the given height; several series are drawn as
// one sparkline each.
func (b *Board) Draw(cs pipeline.ChartSeries, width, height int) *Chart {
	b.Destroy()

	c := &Chart{Series: cs}
	chartWidth := width - axisWidth - 1
	if chartWidth < 10 {
		chartWidth = 10
	}

	if len(cs.Series) == 1 {
		c.lines = renderSingle(cs.Series[0], cs.Labels, chartWidth, height)
	} else {
		c.lines = renderMulti(cs, chartWidth)
	}

	b.current = c
	return c
}

// Destroy tears down the live chart. Calling it with nothing drawn is a no-op.
func (b *Board) Destroy() {
	if b.current == nil {
		return
	}
	b.current.destroyed = true
	b.current.lines = nil
	b.current = nil
}

// Active returns the number of live charts, 0 or 1.
func (b *Board) Active() int {
	if b.current == nil {
		return 0
	}
	return 1
}

// Current returns the live chart, or nil.
func (b *Board) Current() *Chart { return b.current }

// View returns the rendered live chart, or "".
func (b *Board) View() string {
	if b.current == nil {
		return ""
	}
	return b.current.String()
}

func renderSingle(s pipeline.Series, labels []string, width, height int) []string {
	if height < 3 {
		height = 3
	}
	lo, hi := Range(s.Values, s.Threshold)

	var lines []string
	lines = append(lines, seriesHeader(s))

	plot := RenderPlot(s.Values, width, height, lo, hi, s.Threshold)
	axis := lipgloss.NewStyle().Foreground(colorTick).Width(axisWidth).Align(lipgloss.Right)
	for i, row := range plot {
		var tick string
		switch i {
		case 0:
			tick = formatAxis(hi)
		case len(plot) - 1:
			tick = formatAxis(lo)
		}
		lines = append(lines, axis.Render(tick)+" "+row)
	}

	pad := strings.Repeat(" ", axisWidth+1)
	if tl := RenderTimeline(labels, width); strings.TrimSpace(tl) != "" {
		lines = append(lines, pad+tl)
	}
	lines = append(lines, pad+RenderThresholdScale(last(s.Values), lo, hi, s.Threshold, width))
	return lines
}

func renderMulti(cs pipeline.ChartSeries, width int) []string {
	var lines []string
	labelS := lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Width(axisWidth).MaxWidth(axisWidth)

	for _, s := range cs.Series {
		lo, hi := Range(s.Values, s.Threshold)
		spark := RenderSparkline(s.Values, width, lo, hi, s.Threshold)
		lines = append(lines, labelS.Render(shortName(s.Parameter))+" "+spark+" "+thresholdTag(s.Threshold))
	}

	if tl := RenderTimeline(cs.Labels, width); strings.TrimSpace(tl) != "" {
		lines = append(lines, strings.Repeat(" ", axisWidth+1)+tl)
	}
	return lines
}

func seriesHeader(s pipeline.Series) string {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("147")).Render(s.Label)
	return title + "  " + thresholdTag(s.Threshold)
}

func thresholdTag(t float64) string {
	dim := lipgloss.NewStyle().Foreground(colorTick)
	return dim.Render("threshold ") + lipgloss.NewStyle().Foreground(colorMarker).Render(fmt.Sprintf("%g", t))
}

func shortName(p reading.Parameter) string {
	switch p {
	case reading.Temperature:
		return "temp"
	case reading.Humidity:
		return "humid"
	case reading.CO2:
		return "co2"
	case reading.LightIntensity:
		return "light"
	}
	return string(p)
}

func last(values []reading.Value) reading.Value {
	if len(values) == 0 {
		return reading.Value{}
	}
	return values[len(values)-1]
}
