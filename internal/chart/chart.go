// Package chart renders threshold-aware terminal charts: block plots with a
// horizontal threshold marker, sparklines, label timelines and threshold
// scale bars.
package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/smartfarm/internal/reading"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

var (
	colorOk     = lipgloss.Color("78")  // soft green
	colorNear   = lipgloss.Color("220") // yellow
	colorBreach = lipgloss.Color("196") // red
	colorMarker = lipgloss.Color("203")
	colorDim    = lipgloss.Color("236")
	colorTick   = lipgloss.Color("239")
)

// ValueColor returns the colour for v against a threshold: red above it,
// yellow within 15% below it, green otherwise.
func ValueColor(v, threshold float64) lipgloss.Color {
	switch {
	case v > threshold:
		return colorBreach
	case threshold > 0 && !math.IsInf(threshold, 1) && v >= threshold*0.85:
		return colorNear
	default:
		return colorOk
	}
}

// RenderValue renders a value with colour coding, bold when it breaches.
// Missing values render as a dim N/A.
func RenderValue(v reading.Value, threshold float64) string {
	if !v.Valid {
		return lipgloss.NewStyle().Foreground(colorTick).Render("N/A")
	}
	style := lipgloss.NewStyle().Foreground(ValueColor(v.Num, threshold))
	if v.Num > threshold {
		style = style.Bold(true)
	}
	return style.Render(v.String())
}

// Range returns a padded [min, max] covering the valid values and the
// threshold, so the marker is always inside the plot.
func Range(values []reading.Value, threshold float64) (float64, float64) {
	lo, hi := math.MaxFloat64, -math.MaxFloat64
	for _, v := range values {
		if !v.Valid {
			continue
		}
		lo = math.Min(lo, v.Num)
		hi = math.Max(hi, v.Num)
	}
	if !math.IsInf(threshold, 0) && !math.IsNaN(threshold) {
		lo = math.Min(lo, threshold)
		hi = math.Max(hi, threshold)
	}
	if lo > hi {
		return 0, 1
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = math.Max(math.Abs(hi)*0.1, 1)
	}
	lo -= pad
	if lo < 0 && lo+pad >= 0 {
		lo = 0
	}
	return lo, hi + pad
}

// RenderSparkline renders a one-line sparkline. Values above the threshold
// are drawn in the breach colour; missing values leave a dim gap.
func RenderSparkline(values []reading.Value, width int, rangeMin, rangeMax, threshold float64) string {
	if width <= 0 {
		return ""
	}

	dim := lipgloss.NewStyle().Foreground(colorDim)
	if len(values) == 0 {
		return dim.Render(strings.Repeat("╌", width))
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}

	var sb strings.Builder
	for i := 0; i < width-len(values); i++ {
		sb.WriteString(dim.Render("╌"))
	}
	for _, v := range values {
		if !v.Valid {
			sb.WriteString(dim.Render("╌"))
			continue
		}
		norm := math.Max(0, math.Min(1, (v.Num-rangeMin)/span))
		idx := int(norm * 7)
		if idx > 7 {
			idx = 7
		}
		style := lipgloss.NewStyle().Foreground(ValueColor(v.Num, threshold))
		if v.Num > threshold {
			style = style.Bold(true)
		}
		sb.WriteString(style.Render(string(sparkBlocks[idx])))
	}
	return sb.String()
}

// RenderPlot renders a block plot of the given height. The row holding the
// threshold is drawn as a dashed marker wherever a bar does not cover it.
func RenderPlot(values []reading.Value, width, height int, rangeMin, rangeMax, threshold float64) []string {
	if width <= 0 || height <= 0 {
		return nil
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}
	rowSpan := span / float64(height)

	markerRow := -1
	if threshold >= rangeMin && threshold <= rangeMax {
		markerRow = int((threshold - rangeMin) / rowSpan)
		if markerRow >= height {
			markerRow = height - 1
		}
	}

	marker := lipgloss.NewStyle().Foreground(colorMarker)
	pad := width - len(values)

	lines := make([]string, 0, height)
	for row := height - 1; row >= 0; row-- {
		low := rangeMin + rowSpan*float64(row)
		high := low + rowSpan

		var sb strings.Builder
		for col := 0; col < width; col++ {
			var ch rune = ' '
			var style *lipgloss.Style

			if col >= pad {
				v := values[col-pad]
				if v.Valid && v.Num > low {
					s := lipgloss.NewStyle().Foreground(ValueColor(v.Num, threshold))
					style = &s
					if v.Num >= high {
						ch = sparkBlocks[7]
					} else {
						idx := int((v.Num - low) / rowSpan * 8)
						if idx > 7 {
							idx = 7
						}
						ch = sparkBlocks[idx]
					}
				}
			}

			if ch == ' ' && row == markerRow {
				sb.WriteString(marker.Render("┄"))
				continue
			}
			if style == nil {
				sb.WriteRune(ch)
				continue
			}
			sb.WriteString(style.Render(string(ch)))
		}
		lines = append(lines, sb.String())
	}
	return lines
}

// RenderTimeline renders reading labels under a chart of the given width,
// skipping labels that would overlap their neighbour.
func RenderTimeline(labels []string, width int) string {
	if len(labels) == 0 || width <= 0 {
		return ""
	}
	if len(labels) > width {
		labels = labels[len(labels)-width:]
	}
	padLen := width - len(labels)

	line := make([]rune, width)
	for i := range line {
		line[i] = ' '
	}

	lastEnd := -1
	for i, l := range labels {
		label := []rune(ShortLabel(l))
		start := padLen + i
		end := start + len(label)
		if end > width || start <= lastEnd+1 {
			continue
		}
		copy(line[start:], label)
		lastEnd = end
	}

	return lipgloss.NewStyle().Foreground(colorTick).Render(string(line))
}

// ShortLabel trims a "date time" timestamp label to its time-of-day part.
// Other labels are only truncated.
func ShortLabel(s string) string {
	if i := strings.IndexAny(s, " T"); i > 0 && i < len(s)-1 && strings.Contains(s[:i], "-") {
		s = s[i+1:]
	}
	r := []rune(s)
	if len(r) > 9 {
		r = r[:9]
	}
	return string(r)
}

// RenderThresholdScale renders a scale bar showing the current value
// against the threshold position.
func RenderThresholdScale(current reading.Value, rangeMin, rangeMax, threshold float64, width int) string {
	if width <= 0 {
		return ""
	}

	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}
	pos := func(v float64) int {
		p := int(float64(width-1) * (v - rangeMin) / span)
		if p < 0 {
			return 0
		}
		if p >= width {
			return width - 1
		}
		return p
	}

	thrPos := -1
	if threshold >= rangeMin && threshold <= rangeMax {
		thrPos = pos(threshold)
	}
	curPos := -1
	if current.Valid {
		curPos = pos(current.Num)
	}

	var sb strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i == curPos:
			style := lipgloss.NewStyle().Foreground(ValueColor(current.Num, threshold)).Bold(true)
			sb.WriteString(style.Render("◆"))
		case i == thrPos:
			sb.WriteString(lipgloss.NewStyle().Foreground(colorMarker).Render("▪"))
		default:
			sb.WriteString(lipgloss.NewStyle().Foreground(colorDim).Render("·"))
		}
	}
	return sb.String()
}

// formatAxis prints an axis value compactly.
func formatAxis(v float64) string {
	if math.Abs(v) >= 100 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}
