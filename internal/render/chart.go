package render

import (
	"hash/fnv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"resxwatch/internal/valuation"
)

// palette is fixed; a symbol always hashes to the same entry.
var palette = []lipgloss.Color{
	"#FF6384", "#36A2EB", "#FFCE56", "#4BC0C0",
	"#9966FF", "#FF9F40", "#C9CBCF", "#7CB342",
}

// ColorFor maps a symbol to its palette color (FNV-1a).
func ColorFor(symbol string) lipgloss.Color {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return palette[h.Sum32()%uint32(len(palette))]
}

const barWidth = 30

type Segment struct {
	Symbol  string
	Name    string
	Value   decimal.Decimal
	Percent decimal.Decimal
	Color   lipgloss.Color
}

// Chart is one built allocation chart. It is never mutated after Build.
type Chart struct {
	Segments []Segment
	Total    decimal.Decimal
}

func buildChart(slices []valuation.Slice) *Chart {
	c := &Chart{}
	for _, s := range slices {
		c.Total = c.Total.Add(s.Value)
	}
	for _, s := range slices {
		pct := decimal.Zero
		if !c.Total.IsZero() {
			pct = s.Value.Div(c.Total).Mul(decimal.NewFromInt(100))
		}
		c.Segments = append(c.Segments, Segment{
			Symbol:  s.Symbol,
			Name:    s.Name,
			Value:   s.Value,
			Percent: pct,
			Color:   ColorFor(s.Symbol),
		})
	}
	return c
}

// ChartAdapter owns the current chart and replaces it on every render.
type ChartAdapter struct {
	fmt     Formatter
	current *Chart
}

func NewChartAdapter(f Formatter) *ChartAdapter {
	return &ChartAdapter{fmt: f}
}

// Current returns the chart built by the last Render.
func (a *ChartAdapter) Current() *Chart {
	return a.current
}

// Render drops the previous chart and draws a new one.
func (a *ChartAdapter) Render(slices []valuation.Slice) string {
	a.current = buildChart(slices)
	return a.draw(a.current)
}

func (a *ChartAdapter) draw(c *Chart) string {
	if len(c.Segments) == 0 {
		return cellStyle.Render("Allocation: nothing held.")
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("Allocation"))
	b.WriteString("\n")
	for _, s := range c.Segments {
		n := int(s.Percent.Mul(decimal.NewFromInt(barWidth)).Div(decimal.NewFromInt(100)).Round(0).IntPart())
		if n == 0 && s.Value.IsPositive() {
			n = 1
		}
		bar := lipgloss.NewStyle().Foreground(s.Color).Render(strings.Repeat("█", n))
		b.WriteString(" ")
		b.WriteString(lipgloss.NewStyle().Width(4).Render(s.Symbol))
		b.WriteString(" ")
		b.WriteString(bar)
		b.WriteString(strings.Repeat(" ", barWidth-n))
		b.WriteString(" ")
		b.WriteString(lipgloss.NewStyle().Width(7).Align(lipgloss.Right).Render(s.Percent.StringFixed(1) + "%"))
		b.WriteString("  ")
		b.WriteString(a.fmt.Money(s.Value))
		b.WriteString("\n")
	}
	return b.String()
}
