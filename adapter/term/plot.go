package term

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/NimbleMarkets/ntcharts/linechart"
	tslc "github.com/NimbleMarkets/ntcharts/linechart/timeserieslinechart"
	"github.com/charmbracelet/lipgloss"

	"github.com/spektr-org/chartkit/coerce"
	"github.com/spektr-org/chartkit/engine"
)

const noData = "(no data)"

// ============================================================================
// LINES
// ============================================================================

// plotLines draws every series as a braille line. A single time series
// uses the time series chart so the x axis shows dates.
func (a *Adapter) plotLines(ds *engine.Dataset, tree *coerce.Map, colors []string) string {
	if ds.PointCount() == 0 {
		return mutedStyle.Render(noData)
	}
	lo, hi := valueRange(tree, ds)
	if ds.KeyType == engine.KeyDateTime && len(ds.Series) == 1 {
		return a.timeSeries(ds.Series[0], lo, hi, colorFor(colors, 0))
	}

	xs, labels := xPositions(ds)
	minX, maxX := math.Inf(1), math.Inf(-1)
	for _, row := range xs {
		for _, x := range row {
			minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		}
	}
	if maxX <= minX {
		maxX = minX + 1
	}

	m := linechart.New(a.width, a.height, minX, maxX, lo, hi)
	m.AxisStyle = axisStyle
	m.LabelStyle = labelStyle
	m.XLabelFormatter = xFormatter(ds.KeyType, labels)
	m.DrawXYAxisAndLabel()

	for i, s := range ds.Series {
		style := colorFor(colors, i)
		for j, p := range s.Points {
			cur := canvas.Float64Point{X: xs[i][j], Y: clamp(p.Value, lo, hi)}
			if j == 0 {
				if len(s.Points) == 1 {
					m.DrawRuneWithStyle(cur, '•', style)
				}
				continue
			}
			prev := canvas.Float64Point{X: xs[i][j-1], Y: clamp(s.Points[j-1].Value, lo, hi)}
			m.DrawBrailleLineWithStyle(prev, cur, style)
		}
	}
	return m.View()
}

func (a *Adapter) timeSeries(s engine.Series, lo, hi float64, style lipgloss.Style) string {
	start, end := s.Points[0].Key.Time, s.Points[len(s.Points)-1].Key.Time
	if !end.After(start) {
		end = start.Add(24 * time.Hour)
	}

	chart := tslc.New(a.width, a.height)
	chart.SetXStep(2)
	chart.SetYStep(2)
	chart.SetStyle(style)
	chart.AxisStyle = axisStyle
	chart.LabelStyle = labelStyle
	chart.SetTimeRange(start, end)
	chart.SetViewTimeRange(start, end)
	chart.SetYRange(lo, hi)
	chart.SetViewYRange(lo, hi)
	for _, p := range s.Points {
		chart.Push(tslc.TimePoint{Time: p.Key.Time, Value: clamp(p.Value, lo, hi)})
	}
	chart.DrawBraille()
	return chart.View()
}

// xPositions maps point keys onto the x axis: unix seconds for datetimes,
// the number itself for numbers, and the first appearance index for
// strings.
func xPositions(ds *engine.Dataset) ([][]float64, []string) {
	var labels []string
	index := make(map[string]int)
	out := make([][]float64, len(ds.Series))
	for i, s := range ds.Series {
		out[i] = make([]float64, len(s.Points))
		for j, p := range s.Points {
			switch ds.KeyType {
			case engine.KeyDateTime:
				out[i][j] = float64(p.Key.Time.Unix())
			case engine.KeyNumber:
				out[i][j] = p.Key.Number
			default:
				pos, ok := index[p.Key.Text]
				if !ok {
					pos = len(labels)
					index[p.Key.Text] = pos
					labels = append(labels, p.Key.Text)
				}
				out[i][j] = float64(pos)
			}
		}
	}
	return out, labels
}

func xFormatter(kt engine.KeyType, labels []string) linechart.LabelFormatter {
	switch kt {
	case engine.KeyDateTime:
		return func(_ int, v float64) string {
			return time.Unix(int64(v), 0).UTC().Format("01/02")
		}
	case engine.KeyString:
		return func(_ int, v float64) string {
			i := int(math.Round(v))
			if i < 0 || i >= len(labels) {
				return ""
			}
			return labels[i]
		}
	}
	return linechart.DefaultLabelFormatter()
}

// plotScatter marks every point.
func (a *Adapter) plotScatter(ds *engine.Dataset, tree *coerce.Map, colors []string) string {
	if ds.PointCount() == 0 {
		return mutedStyle.Render(noData)
	}
	lo, hi := valueRange(tree, ds)
	minX, maxX := math.Inf(1), math.Inf(-1)
	for _, s := range ds.Series {
		for _, p := range s.Points {
			minX, maxX = math.Min(minX, p.Key.Number), math.Max(maxX, p.Key.Number)
		}
	}
	if maxX <= minX {
		maxX = minX + 1
	}

	m := linechart.New(a.width, a.height, minX, maxX, lo, hi)
	m.AxisStyle = axisStyle
	m.LabelStyle = labelStyle
	m.DrawXYAxisAndLabel()
	for i, s := range ds.Series {
		style := colorFor(colors, i)
		for _, p := range s.Points {
			m.DrawRuneWithStyle(canvas.Float64Point{X: p.Key.Number, Y: clamp(p.Value, lo, hi)}, '•', style)
		}
	}
	return m.View()
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ============================================================================
// BARS
// ============================================================================

// grid aligns series values on the union of their keys. Missing values
// are NaN.
type grid struct {
	labels []string
	values [][]float64
}

func align(ds *engine.Dataset) grid {
	var g grid
	index := make(map[string]int)
	g.values = make([][]float64, len(ds.Series))
	for i, s := range ds.Series {
		for _, p := range s.Points {
			label := p.Key.Format("")
			pos, ok := index[label]
			if !ok {
				pos = len(g.labels)
				index[label] = pos
				g.labels = append(g.labels, label)
				for j := range g.values {
					g.values[j] = append(g.values[j], math.NaN())
				}
			}
			g.values[i][pos] = p.Value
		}
	}
	return g
}

// scale maps v in [lo, hi] onto 0..n cells.
func scale(v, lo, hi float64, n int) int {
	if math.IsNaN(v) {
		return 0
	}
	cells := int(math.Round((v - lo) / (hi - lo) * float64(n)))
	return max(0, min(n, cells))
}

type segment struct {
	cells int
	style lipgloss.Style
}

// columns draws vertical bars, one per series per key or one stack per
// key when stacked.
func (a *Adapter) columns(ds *engine.Dataset, tree *coerce.Map, colors []string) string {
	g := align(ds)
	if len(g.labels) == 0 {
		return mutedStyle.Render(noData)
	}
	lo, hi := valueRange(tree, ds)
	stacked, _ := tree.Get("stacked").(bool)

	var cols [][]segment // nil entries are gaps
	for r := range g.labels {
		if stacked {
			var col []segment
			sum, used := 0.0, 0
			for i := range g.values {
				v := g.values[i][r]
				if math.IsNaN(v) {
					continue
				}
				sum += v
				top := scale(sum, lo, hi, a.height)
				col = append(col, segment{cells: max(0, top-used), style: colorFor(colors, i)})
				used = max(used, top)
			}
			cols = append(cols, col)
		} else {
			for i := range g.values {
				cols = append(cols, []segment{{cells: scale(g.values[i][r], lo, hi, a.height), style: colorFor(colors, i)}})
			}
		}
		cols = append(cols, nil)
	}

	var b strings.Builder
	for row := a.height; row >= 1; row-- {
		for _, col := range cols {
			b.WriteString(cell(col, row))
		}
		b.WriteByte('\n')
	}
	b.WriteString(axisStyle.Render(strings.Repeat("─", len(cols))))
	b.WriteByte('\n')
	b.WriteString(labelStyle.Render(strings.Join(g.labels, " ")))
	return b.String()
}

// cell returns the character drawn at height row of a column.
func cell(col []segment, row int) string {
	base := 0
	for _, seg := range col {
		if row > base && row <= base+seg.cells {
			return seg.style.Render("█")
		}
		base += seg.cells
	}
	return " "
}

// bars draws horizontal bars with the label on the left and the value on
// the right.
func (a *Adapter) bars(ds *engine.Dataset, tree *coerce.Map, colors []string) string {
	g := align(ds)
	if len(g.labels) == 0 {
		return mutedStyle.Render(noData)
	}
	lo, hi := valueRange(tree, ds)
	stacked, _ := tree.Get("stacked").(bool)

	width := 0
	for _, l := range g.labels {
		width = max(width, lipgloss.Width(l))
	}
	pad := func(s string) string { return s + strings.Repeat(" ", width-lipgloss.Width(s)) }

	var lines []string
	for r, label := range g.labels {
		if stacked {
			var bar strings.Builder
			total, used := 0.0, 0
			for i := range g.values {
				v := g.values[i][r]
				if math.IsNaN(v) {
					continue
				}
				total += v
				end := scale(total, lo, hi, a.width)
				bar.WriteString(colorFor(colors, i).Render(strings.Repeat("█", max(0, end-used))))
				used = max(used, end)
			}
			lines = append(lines, labelStyle.Render(pad(label))+" "+bar.String()+" "+coerce.ToText(total))
			continue
		}
		for i := range g.values {
			v := g.values[i][r]
			name := ""
			if i == 0 {
				name = label
			}
			bar := colorFor(colors, i).Render(strings.Repeat("█", scale(v, lo, hi, a.width)))
			value := ""
			if !math.IsNaN(v) {
				value = coerce.ToText(v)
			}
			lines = append(lines, labelStyle.Render(pad(name))+" "+bar+" "+value)
		}
	}
	return strings.Join(lines, "\n")
}

// shares draws one bar per slice sized by its share of the total.
func (a *Adapter) shares(ds *engine.Dataset, colors []string) string {
	if len(ds.Slices) == 0 {
		return mutedStyle.Render(noData)
	}
	total, width := 0.0, 0
	for _, s := range ds.Slices {
		total += math.Max(s.Value, 0)
		width = max(width, lipgloss.Width(s.Label))
	}
	if total == 0 {
		total = 1
	}

	lines := make([]string, len(ds.Slices))
	for i, s := range ds.Slices {
		share := math.Max(s.Value, 0) / total
		bar := colorFor(colors, i).Render(strings.Repeat("█", scale(share, 0, 1, a.width)))
		label := s.Label + strings.Repeat(" ", width-lipgloss.Width(s.Label))
		lines[i] = fmt.Sprintf("%s %s %.1f%%", labelStyle.Render(label), bar, share*100)
	}
	return strings.Join(lines, "\n")
}

// gauges draws a filled track per slice between lo and hi.
func (a *Adapter) gauges(ds *engine.Dataset, lo, hi float64, colors []string) string {
	if len(ds.Slices) == 0 {
		return mutedStyle.Render(noData)
	}
	if hi <= lo {
		hi = lo + 1
	}
	lines := make([]string, len(ds.Slices))
	for i, s := range ds.Slices {
		filled := scale(clamp(s.Value, lo, hi), lo, hi, a.width)
		track := colorFor(colors, i).Render(strings.Repeat("█", filled)) +
			mutedStyle.Render(strings.Repeat("░", a.width-filled))
		lines[i] = fmt.Sprintf("%s [%s] %s", s.Label, track, coerce.ToText(s.Value))
	}
	return strings.Join(lines, "\n")
}
