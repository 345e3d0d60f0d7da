package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"resxwatch/internal/app"
	"resxwatch/internal/model"
	"resxwatch/internal/valuation"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func valued(symbol, qty, avg, price string) valuation.ValuedPosition {
	p := model.Position{ResourceSymbol: symbol, Name: symbol + " name", Quantity: d(qty), AveragePrice: d(avg)}
	v, pl, pct := valuation.Metrics(p.Quantity, p.AveragePrice, d(price))
	return valuation.ValuedPosition{Position: p, Price: d(price), CurrentValue: v, ProfitLoss: pl, ProfitLossPercent: pct}
}

// go test -v --run TestFormatter
func TestFormatter(t *testing.T) {
	f := NewFormatter("USD")
	tests := []struct {
		in, want string
	}{
		{"550", "$550.00"},
		{"1234.5", "$1,234.50"},
		{"0.005", "$0.01"},
		{"0", "$0.00"},
	}
	for _, tt := range tests {
		if got := f.Money(d(tt.in)); got != tt.want {
			t.Errorf("Money(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := f.SignedMoney(d("100")); got != "+$100.00" {
		t.Errorf("SignedMoney = %q", got)
	}
	if got := Percent(d("11.1111")); got != "+11.1%" {
		t.Errorf("Percent = %q", got)
	}
	if got := Percent(d("-25")); got != "-25.0%" {
		t.Errorf("Percent = %q", got)
	}
	if got := Percent(d("0")); got != "0.0%" {
		t.Errorf("Percent = %q", got)
	}
}

// go test -v --run TestPortfolioViewSkipsEmpty
func TestPortfolioViewSkipsEmpty(t *testing.T) {
	view := NewPortfolioView(NewFormatter("USD"))
	in := []valuation.ValuedPosition{
		valued("MET", "2", "150", "160"),
		valued("ENG", "0", "90", "100"),
	}

	rows := view.Rows(in)
	if len(rows) != 1 || rows[0][0] != "MET" {
		t.Fatalf("expected only MET, got %v", rows)
	}
	if rows[0][5] != "$320.00" || rows[0][6] != "+$20.00" {
		t.Errorf("unexpected MET row: %v", rows[0])
	}

	out := view.Render(in)
	if strings.Contains(out, "ENG") {
		t.Error("zero-quantity position rendered")
	}
	if !strings.Contains(out, "MET") {
		t.Error("MET missing from table")
	}

	if got := view.Render([]valuation.ValuedPosition{valued("ENG", "0", "90", "100")}); !strings.Contains(got, "No holdings") {
		t.Errorf("expected empty-table message, got %q", got)
	}
}

// go test -v --run TestStaleMarker
func TestStaleMarker(t *testing.T) {
	vp := valued("ENG", "1", "90", "110")
	vp.Stale = true
	rows := NewPortfolioView(NewFormatter("USD")).Rows([]valuation.ValuedPosition{vp})
	if rows[0][colPrice] != "$110.00*" {
		t.Errorf("stale price cell = %q", rows[0][colPrice])
	}
}

// go test -v --run TestColorForDeterministic
func TestColorForDeterministic(t *testing.T) {
	for _, sym := range []string{"ENG", "DTA", "CRY", "BIO", "MET"} {
		first := ColorFor(sym)
		for i := 0; i < 10; i++ {
			if ColorFor(sym) != first {
				t.Fatalf("color for %s changed", sym)
			}
		}
	}
}

// go test -v --run TestChartAdapterRebuilds
func TestChartAdapterRebuilds(t *testing.T) {
	a := NewChartAdapter(NewFormatter("USD"))
	slices := []valuation.Slice{
		{Symbol: "CRY", Name: "Crypto Crystals", Value: d("190")},
		{Symbol: "MET", Name: "Rare Metals", Value: d("310")},
	}

	a.Render(slices)
	first := a.Current()
	a.Render(slices[1:])
	second := a.Current()

	if first == second {
		t.Fatal("chart must be rebuilt on every render")
	}
	if len(first.Segments) != 2 || len(second.Segments) != 1 {
		t.Fatalf("unexpected segment counts: %d, %d", len(first.Segments), len(second.Segments))
	}
	if first.Segments[1].Color != second.Segments[0].Color {
		t.Error("MET color differs between renders")
	}
	if !first.Segments[1].Percent.Equal(d("62")) {
		t.Errorf("MET share = %s, want 62", first.Segments[1].Percent)
	}
	if !second.Segments[0].Percent.Equal(d("100")) {
		t.Errorf("single segment share = %s, want 100", second.Segments[0].Percent)
	}

	if out := a.Render(nil); !strings.Contains(out, "nothing held") {
		t.Errorf("unexpected empty chart: %q", out)
	}
}

// go test -v --run TestScreenFrame
func TestScreenFrame(t *testing.T) {
	var buf bytes.Buffer
	screen := NewScreen(&buf, "USD", false)

	positions := []valuation.ValuedPosition{valued("ENG", "5", "90", "110")}
	u := app.Update{
		Kind:           app.FastTick,
		At:             time.Now(),
		HasUser:        true,
		User:           model.User{Username: "testuser", Balance: d("9500")},
		PricesFallback: true,
		Valuation: valuation.Report{
			Positions:  positions,
			Allocation: valuation.Aggregate(positions),
			Totals:     valuation.Summarize(positions),
		},
		Transactions: []model.Transaction{{Symbol: "ENG", Side: model.Buy, Quantity: d("5"), Price: d("90"), TotalValue: d("450"), Timestamp: time.Now()}},
	}
	screen.Publish(u)

	out := buf.String()
	for _, want := range []string{"testuser", "$9,500.00", "fallback prices", "$550.00", "+$100.00", "+22.2%", "BUY"} {
		if !strings.Contains(out, want) {
			t.Errorf("frame missing %q", want)
		}
	}
}
