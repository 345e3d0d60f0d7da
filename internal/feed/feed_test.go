package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"resxwatch/pkg/exchange"
	"resxwatch/pkg/exchange/exchangetest"
)

func newFeeds(t *testing.T) (*Feeds, *exchangetest.Server) {
	t.Helper()
	srv := exchangetest.NewServer()
	t.Cleanup(srv.Close)
	return New(exchange.NewClient(srv.URL, 2*time.Second), zap.NewNop()), srv
}

// go test -v --run TestFetchPrices
func TestFetchPrices(t *testing.T) {
	f, srv := newFeeds(t)
	srv.SetPrice("ENG", decimal.RequireFromString("123.45"))

	snap := f.FetchPrices(context.Background())
	if snap.IsFallback() {
		t.Fatal("live fetch should not be flagged as fallback")
	}
	if p, ok := snap.Price("ENG"); !ok || !p.Equal(decimal.RequireFromString("123.45")) {
		t.Errorf("ENG = %v, %v", p, ok)
	}
	if snap.Len() != 5 {
		t.Errorf("expected 5 resources, got %d", snap.Len())
	}
}

// go test -v --run TestFetchPricesFallback
func TestFetchPricesFallback(t *testing.T) {
	f, srv := newFeeds(t)
	srv.SetFailures(func(s *exchangetest.Server) { s.FailResources = true })

	snap := f.FetchPrices(context.Background())
	if snap == nil || !snap.IsFallback() {
		t.Fatal("expected fallback snapshot")
	}
	want := map[string]int64{"ENG": 100, "DTA": 50, "CRY": 200, "BIO": 75, "MET": 150}
	if snap.Len() != len(want) {
		t.Fatalf("fallback has %d resources, want %d", snap.Len(), len(want))
	}
	for sym, price := range want {
		if p, ok := snap.Price(sym); !ok || !p.Equal(decimal.NewFromInt(price)) {
			t.Errorf("%s = %v, want %d", sym, p, price)
		}
	}
}

// go test -v --run TestFetchPricesUnreachable
func TestFetchPricesUnreachable(t *testing.T) {
	srv := exchangetest.NewServer()
	url := srv.URL
	srv.Close()

	f := New(exchange.NewClient(url, time.Second), zap.NewNop())
	if snap := f.FetchPrices(context.Background()); !snap.IsFallback() {
		t.Error("expected fallback when the server is unreachable")
	}
}

// go test -v --run TestFetchPositionsUnchangedOnFailure
func TestFetchPositionsUnchangedOnFailure(t *testing.T) {
	f, srv := newFeeds(t)
	ctx := context.Background()

	got, ok := f.FetchPositions(ctx, exchangetest.Token)
	if !ok || got == nil || len(got) != 0 {
		t.Fatalf("empty holdings should be ([], true), got (%v, %v)", got, ok)
	}

	srv.SetPosition("ENG", decimal.NewFromInt(5), decimal.NewFromInt(90))
	got, ok = f.FetchPositions(ctx, exchangetest.Token)
	if !ok || len(got) != 1 || got[0].ResourceSymbol != "ENG" || got[0].Name != "Energy Units" {
		t.Fatalf("unexpected positions: %+v", got)
	}

	srv.SetFailures(func(s *exchangetest.Server) { s.FailPositions = true })
	got, ok = f.FetchPositions(ctx, exchangetest.Token)
	if ok || got != nil {
		t.Errorf("failure should report unchanged, got (%v, %v)", got, ok)
	}

	if _, ok := f.FetchPositions(ctx, "bad-token"); ok {
		t.Error("rejected token should report unchanged")
	}
}

// go test -v --run TestFetchTransactionsAndProfile
func TestFetchTransactionsAndProfile(t *testing.T) {
	f, srv := newFeeds(t)
	ctx := context.Background()
	client := exchange.NewClient(srv.URL, time.Second)

	if _, err := client.Trade(ctx, exchangetest.Token, exchange.TradeRequest{
		ResourceSymbol: "DTA", Quantity: decimal.NewFromInt(2), TradeType: "buy",
	}); err != nil {
		t.Fatalf("trade: %v", err)
	}

	txs, ok := f.FetchTransactions(ctx, exchangetest.Token)
	if !ok || len(txs) != 1 {
		t.Fatalf("unexpected transactions: %v, %v", txs, ok)
	}
	if txs[0].Symbol != "DTA" || txs[0].Side != "buy" || !txs[0].TotalValue.Equal(decimal.NewFromInt(100)) {
		t.Errorf("unexpected transaction: %+v", txs[0])
	}

	user, ok := f.FetchProfile(ctx, exchangetest.Token)
	if !ok || user.Username != exchangetest.Username || !user.Balance.Equal(decimal.NewFromInt(9900)) {
		t.Errorf("unexpected profile: %+v, %v", user, ok)
	}

	srv.SetFailures(func(s *exchangetest.Server) {
		s.FailTransactions = true
		s.FailMe = true
	})
	if _, ok := f.FetchTransactions(ctx, exchangetest.Token); ok {
		t.Error("transaction failure should report unchanged")
	}
	if _, ok := f.FetchProfile(ctx, exchangetest.Token); ok {
		t.Error("profile failure should report unchanged")
	}
}

// go test -v --run TestUpdatePrices
func TestUpdatePrices(t *testing.T) {
	f, srv := newFeeds(t)
	ctx := context.Background()

	if err := f.UpdatePrices(ctx, exchangetest.Token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p, _ := f.FetchPrices(ctx).Price("ENG"); !p.Equal(decimal.NewFromInt(101)) {
		t.Errorf("ENG after step = %s, want 101", p)
	}

	srv.SetFailures(func(s *exchangetest.Server) { s.FailUpdate = true })
	if err := f.UpdatePrices(ctx, exchangetest.Token); !exchange.IsRejected(err) {
		t.Errorf("expected rejected error, got %v", err)
	}
}

type stubAPI struct {
	resources []exchange.Resource
	positions []exchange.Position
}

func (s stubAPI) Resources(context.Context) ([]exchange.Resource, error) { return s.resources, nil }
func (s stubAPI) Positions(context.Context, string) ([]exchange.Position, error) {
	return s.positions, nil
}
func (stubAPI) Transactions(context.Context, string) ([]exchange.Transaction, error) {
	return nil, errors.New("not implemented")
}
func (stubAPI) Me(context.Context, string) (*exchange.User, error) {
	return nil, errors.New("not implemented")
}
func (stubAPI) UpdatePrices(context.Context, string) (*exchange.UpdatePricesResponse, error) {
	return nil, errors.New("not implemented")
}

// go test -v --run TestInvalidRowsSkipped
func TestInvalidRowsSkipped(t *testing.T) {
	api := stubAPI{
		resources: []exchange.Resource{
			{Symbol: "ENG", CurrentPrice: decimal.NewFromInt(100)},
			{Symbol: "BAD", CurrentPrice: decimal.NewFromInt(-1)},
			{Symbol: "", CurrentPrice: decimal.NewFromInt(1)},
		},
		positions: []exchange.Position{
			{Resource: exchange.ResourceRef{Symbol: "ENG"}, Quantity: decimal.NewFromInt(1), AveragePrice: decimal.NewFromInt(90)},
			{Resource: exchange.ResourceRef{Symbol: "DTA"}, Quantity: decimal.NewFromInt(-2), AveragePrice: decimal.NewFromInt(50)},
		},
	}
	f := New(api, zap.NewNop())

	snap := f.FetchPrices(context.Background())
	if snap.Len() != 1 || snap.IsFallback() {
		t.Errorf("expected only ENG, got %v", snap.Symbols())
	}

	positions, ok := f.FetchPositions(context.Background(), "t")
	if !ok || len(positions) != 1 || positions[0].ResourceSymbol != "ENG" {
		t.Errorf("expected only ENG position, got %+v", positions)
	}
}
