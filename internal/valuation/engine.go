// Package valuation recomputes derived position metrics from the current
// holdings and price snapshot. It performs no I/O.
package valuation

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"resxwatch/internal/memorystore"
	"resxwatch/internal/model"
)

var hundred = decimal.NewFromInt(100)

// ValuedPosition is a Position plus the metrics derived from a price.
type ValuedPosition struct {
	model.Position
	Price             decimal.Decimal `json:"price"`
	CurrentValue      decimal.Decimal `json:"current_value"`
	ProfitLoss        decimal.Decimal `json:"profit_loss"`
	ProfitLossPercent decimal.Decimal `json:"profit_loss_percent"`
	// Stale is set when the symbol was missing from the snapshot and a
	// carried-forward price was used.
	Stale bool `json:"stale"`
}

// Slice is one segment of the allocation chart.
type Slice struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Value  decimal.Decimal `json:"value"`
}

// Totals summarizes the whole portfolio.
type Totals struct {
	Value             decimal.Decimal `json:"value"`
	Cost              decimal.Decimal `json:"cost"`
	ProfitLoss        decimal.Decimal `json:"profit_loss"`
	ProfitLossPercent decimal.Decimal `json:"profit_loss_percent"`
}

// Report is the output of one revaluation pass.
type Report struct {
	Positions  []ValuedPosition `json:"positions"`
	Allocation []Slice          `json:"allocation"`
	Totals     Totals           `json:"totals"`
	Stale      int              `json:"stale"`
}

// Engine carries the last price it saw per symbol so a position whose
// symbol drops out of a snapshot keeps its previous valuation.
type Engine struct {
	mu        sync.Mutex
	lastPrice map[string]decimal.Decimal
}

func NewEngine() *Engine {
	return &Engine{lastPrice: make(map[string]decimal.Decimal)}
}

// Revalue values every position against prices. It never fails: a symbol
// absent from prices uses the last price seen for it, or the position's
// average price if none was ever seen.
func (e *Engine) Revalue(positions []model.Position, prices *memorystore.PriceSnapshot) []ValuedPosition {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range prices.Resources() {
		e.lastPrice[r.Symbol] = r.CurrentPrice
	}

	out := make([]ValuedPosition, 0, len(positions))
	for _, p := range positions {
		vp := ValuedPosition{Position: p}

		if r, ok := prices.Resource(p.ResourceSymbol); ok {
			vp.Price = r.CurrentPrice
			if vp.Name == "" {
				vp.Name = r.Name
			}
		} else if last, ok := e.lastPrice[p.ResourceSymbol]; ok {
			vp.Price = last
			vp.Stale = true
		} else {
			vp.Price = p.AveragePrice
			vp.Stale = true
		}

		vp.CurrentValue, vp.ProfitLoss, vp.ProfitLossPercent = Metrics(p.Quantity, p.AveragePrice, vp.Price)
		out = append(out, vp)
	}
	return out
}

// Metrics computes value, P&L and P&L percent for one holding. The percent
// is zero when the cost basis is zero.
func Metrics(quantity, averagePrice, price decimal.Decimal) (value, pl, pct decimal.Decimal) {
	value = quantity.Mul(price)
	cost := quantity.Mul(averagePrice)
	pl = value.Sub(cost)
	pct = percentOf(pl, cost)
	return value, pl, pct
}

// Aggregate sums value per symbol for the allocation chart, skipping empty
// positions. The result is sorted by symbol.
func Aggregate(valued []ValuedPosition) []Slice {
	bySymbol := make(map[string]*Slice)
	for _, vp := range valued {
		if vp.IsEmpty() {
			continue
		}
		s, ok := bySymbol[vp.ResourceSymbol]
		if !ok {
			s = &Slice{Symbol: vp.ResourceSymbol, Name: vp.Name}
			bySymbol[vp.ResourceSymbol] = s
		}
		s.Value = s.Value.Add(vp.CurrentValue)
	}

	out := make([]Slice, 0, len(bySymbol))
	for _, s := range bySymbol {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Summarize totals the non-empty positions.
func Summarize(valued []ValuedPosition) Totals {
	var t Totals
	for _, vp := range valued {
		if vp.IsEmpty() {
			continue
		}
		t.Value = t.Value.Add(vp.CurrentValue)
		t.Cost = t.Cost.Add(vp.CostBasis())
	}
	t.ProfitLoss = t.Value.Sub(t.Cost)
	t.ProfitLossPercent = percentOf(t.ProfitLoss, t.Cost)
	return t
}

// Build runs Revalue, Aggregate and Summarize in one pass.
func (e *Engine) Build(positions []model.Position, prices *memorystore.PriceSnapshot) Report {
	valued := e.Revalue(positions, prices)
	r := Report{
		Positions:  valued,
		Allocation: Aggregate(valued),
		Totals:     Summarize(valued),
	}
	for _, vp := range valued {
		if vp.Stale && !vp.IsEmpty() {
			r.Stale++
		}
	}
	return r
}

// Reset forgets carried-forward prices. Called on sign-out.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastPrice = make(map[string]decimal.Decimal)
}

func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}
