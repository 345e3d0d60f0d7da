package render

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"resxwatch/internal/valuation"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	gainStyle   = cellStyle.Foreground(lipgloss.Color("10"))
	lossStyle   = cellStyle.Foreground(lipgloss.Color("9"))
	staleStyle  = cellStyle.Foreground(lipgloss.Color("11"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

var holdingsHeaders = []string{"Symbol", "Name", "Qty", "Avg Price", "Price", "Value", "P&L", "P&L %"}

const (
	colPrice = 4
	colPL    = 6
	colPLPct = 7
)

// PortfolioView renders the holdings table. Every call rebuilds the whole
// table from its input.
type PortfolioView struct {
	fmt Formatter
}

func NewPortfolioView(f Formatter) *PortfolioView {
	return &PortfolioView{fmt: f}
}

// Rows builds the table body, skipping fully sold positions.
func (v *PortfolioView) Rows(valued []valuation.ValuedPosition) [][]string {
	rows := make([][]string, 0, len(valued))
	for _, vp := range valued {
		if vp.IsEmpty() {
			continue
		}
		price := v.fmt.Money(vp.Price)
		if vp.Stale {
			price += "*"
		}
		rows = append(rows, []string{
			vp.ResourceSymbol,
			vp.Name,
			Quantity(vp.Quantity),
			v.fmt.Money(vp.AveragePrice),
			price,
			v.fmt.Money(vp.CurrentValue),
			v.fmt.SignedMoney(vp.ProfitLoss),
			Percent(vp.ProfitLossPercent),
		})
	}
	return rows
}

func (v *PortfolioView) Render(valued []valuation.ValuedPosition) string {
	visible := make([]valuation.ValuedPosition, 0, len(valued))
	for _, vp := range valued {
		if !vp.IsEmpty() {
			visible = append(visible, vp)
		}
	}
	if len(visible) == 0 {
		return cellStyle.Render("No holdings yet.")
	}

	rows := v.Rows(visible)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(holdingsHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			vp := visible[row]
			switch {
			case col == colPrice && vp.Stale:
				return staleStyle
			case col == colPL || col == colPLPct:
				if vp.ProfitLoss.IsNegative() {
					return lossStyle
				}
				if vp.ProfitLoss.IsPositive() {
					return gainStyle
				}
			}
			return cellStyle
		})
	return t.String()
}
