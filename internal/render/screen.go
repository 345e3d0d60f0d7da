package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"resxwatch/internal/app"
)

const recentTransactions = 8

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")).Padding(0, 1)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Screen composes full frames and writes them to an output. It implements
// app.Publisher.
type Screen struct {
	mu    sync.Mutex
	out   io.Writer
	clear bool
	fmt   Formatter
	view  *PortfolioView
	chart *ChartAdapter
}

// NewScreen writes frames to out. With clear set each frame starts with
// an ANSI home+clear sequence.
func NewScreen(out io.Writer, currency string, clear bool) *Screen {
	f := NewFormatter(currency)
	return &Screen{
		out:   out,
		clear: clear,
		fmt:   f,
		view:  NewPortfolioView(f),
		chart: NewChartAdapter(f),
	}
}

func (s *Screen) Publish(u app.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := s.frame(u)
	if s.clear {
		frame = "\033[H\033[2J" + frame
	}
	fmt.Fprint(s.out, frame)
}

// Frame renders one update without writing it.
func (s *Screen) Frame(u app.Update) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame(u)
}

func (s *Screen) frame(u app.Update) string {
	var b strings.Builder

	title := "resxwatch"
	if u.HasUser {
		title += " | " + u.User.Username + " | cash " + s.fmt.Money(u.User.Balance)
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%s tick at %s", u.Kind, u.At.Local().Format("15:04:05"))))
	b.WriteString("\n")
	if u.PricesFallback {
		b.WriteString(warnStyle.Render("exchange unreachable: showing fallback prices"))
		b.WriteString("\n")
	}
	if u.Valuation.Stale > 0 {
		b.WriteString(warnStyle.Render(fmt.Sprintf("%d position(s) valued at a carried-forward price (*)", u.Valuation.Stale)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(s.view.Render(u.Valuation.Positions))
	b.WriteString("\n")

	totals := u.Valuation.Totals
	b.WriteString(fmt.Sprintf(" Total value %s   P&L %s (%s)\n\n",
		s.fmt.Money(totals.Value), s.fmt.SignedMoney(totals.ProfitLoss), Percent(totals.ProfitLossPercent)))

	b.WriteString(s.chart.Render(u.Valuation.Allocation))
	b.WriteString("\n")

	if len(u.Transactions) > 0 {
		b.WriteString(headerStyle.Render("Recent transactions"))
		b.WriteString("\n")
		n := len(u.Transactions)
		if n > recentTransactions {
			n = recentTransactions
		}
		for _, tx := range u.Transactions[:n] {
			b.WriteString(fmt.Sprintf(" %s  %-4s %-4s %s @ %s = %s\n",
				tx.Timestamp.Local().Format("01-02 15:04"), strings.ToUpper(string(tx.Side)), tx.Symbol,
				Quantity(tx.Quantity), s.fmt.Money(tx.Price), s.fmt.Money(tx.TotalValue)))
		}
	}
	return b.String()
}
