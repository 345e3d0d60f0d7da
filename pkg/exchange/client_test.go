package exchange_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"resxwatch/pkg/exchange"
	"resxwatch/pkg/exchange/exchangetest"
)

func newClient(t *testing.T) (*exchange.Client, *exchangetest.Server) {
	t.Helper()
	srv := exchangetest.NewServer()
	t.Cleanup(srv.Close)
	return exchange.NewClient(srv.URL+"/", 5*time.Second), srv
}

// go test -v --run TestLogin
func TestLogin(t *testing.T) {
	client, _ := newClient(t)
	ctx := context.Background()

	resp, err := client.Login(ctx, exchangetest.Username, exchangetest.Password)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.AccessToken != exchangetest.Token {
		t.Errorf("token = %q", resp.AccessToken)
	}

	_, err = client.Login(ctx, exchangetest.Username, "wrong")
	detail, ok := exchange.RejectionDetail(err)
	if !ok || detail != "Incorrect username or password" {
		t.Errorf("expected server detail, got %v", err)
	}
}

// go test -v --run TestResources
func TestResources(t *testing.T) {
	client, _ := newClient(t)

	resources, err := client.Resources(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resources) != 5 {
		t.Fatalf("expected 5 resources, got %d", len(resources))
	}
	if resources[0].Symbol != "ENG" || !resources[0].CurrentPrice.Equal(decimal.NewFromInt(100)) {
		t.Errorf("unexpected first resource: %+v", resources[0])
	}
}

// go test -v --run TestAuthRequired
func TestAuthRequired(t *testing.T) {
	client, _ := newClient(t)

	_, err := client.Positions(context.Background(), "")
	var re *exchange.RejectedError
	if !errors.As(err, &re) || re.Status != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

// go test -v --run TestTradeRoundTrip
func TestTradeRoundTrip(t *testing.T) {
	client, srv := newClient(t)
	ctx := context.Background()

	resp, err := client.Trade(ctx, exchangetest.Token, exchange.TradeRequest{
		ResourceSymbol: "ENG",
		Quantity:       decimal.NewFromInt(5),
		TradeType:      "buy",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Balance == nil || !resp.Balance.Equal(decimal.NewFromInt(9500)) {
		t.Errorf("balance = %v, want 9500", resp.Balance)
	}

	positions, err := client.Positions(ctx, exchangetest.Token)
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	if len(positions) != 1 || positions[0].Resource.Symbol != "ENG" {
		t.Fatalf("unexpected positions: %+v", positions)
	}

	txs, err := client.Transactions(ctx, exchangetest.Token)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 1 || txs[0].ResourceSymbol() != "ENG" || txs[0].TransactionType != "buy" {
		t.Fatalf("unexpected transactions: %+v", txs)
	}

	srv.SetFailures(func(s *exchangetest.Server) { s.OmitTradeBalance = true })
	resp, err = client.Trade(ctx, exchangetest.Token, exchange.TradeRequest{
		ResourceSymbol: "ENG", Quantity: decimal.NewFromInt(1), TradeType: "sell",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Balance != nil {
		t.Errorf("expected absent balance, got %v", resp.Balance)
	}
}

// go test -v --run TestTransportError
func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := exchange.NewClient(url, time.Second)
	_, err := client.Resources(context.Background())
	if !exchange.IsTransport(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

// go test -v --run TestValidationDetail
func TestValidationDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"loc":["body","quantity"],"msg":"field required"}]}`))
	}))
	defer srv.Close()

	client := exchange.NewClient(srv.URL, time.Second)
	_, err := client.Trade(context.Background(), "t", exchange.TradeRequest{})
	if detail, _ := exchange.RejectionDetail(err); detail != "field required" {
		t.Errorf("detail = %q, want %q", detail, "field required")
	}
}

// go test -v --run TestTimestampLayouts
func TestTimestampLayouts(t *testing.T) {
	cases := map[string]time.Time{
		`"2025-03-01 12:30:45"`:        time.Date(2025, 3, 1, 12, 30, 45, 0, time.UTC),
		`"2025-03-01T12:30:45.500000"`: time.Date(2025, 3, 1, 12, 30, 45, 500000000, time.UTC),
		`"2025-03-01T12:30:45Z"`:       time.Date(2025, 3, 1, 12, 30, 45, 0, time.UTC),
	}
	for in, want := range cases {
		var ts exchange.Timestamp
		if err := ts.UnmarshalJSON([]byte(in)); err != nil {
			t.Errorf("%s: %v", in, err)
			continue
		}
		if !ts.Equal(want) {
			t.Errorf("%s: got %s, want %s", in, ts.Time, want)
		}
	}

	var ts exchange.Timestamp
	if err := ts.UnmarshalJSON([]byte(`"yesterday"`)); err == nil {
		t.Error("expected error for garbage timestamp")
	}
}
