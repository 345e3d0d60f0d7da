// Package trading submits buy and sell orders and turns failures into
// messages a user can act on.
package trading

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"resxwatch/internal/app"
	"resxwatch/internal/metrics"
	"resxwatch/internal/model"
	"resxwatch/pkg/exchange"
)

// ConnectivityMessage is shown when the exchange could not be reached or
// gave no reason.
const ConnectivityMessage = "Could not reach the exchange. Check your connection and try again."

type API interface {
	Trade(ctx context.Context, token string, req exchange.TradeRequest) (*exchange.TradeResponse, error)
}

// Refresher runs a full refresh; *scheduler.Scheduler implements it.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type Order struct {
	Symbol   string
	Quantity decimal.Decimal
	Side     model.TradeSide
}

// InvalidOrderError is returned before anything is sent.
type InvalidOrderError struct {
	Reason string
}

func (e *InvalidOrderError) Error() string {
	return "invalid order: " + e.Reason
}

func (o Order) Validate() error {
	switch {
	case strings.TrimSpace(o.Symbol) == "":
		return &InvalidOrderError{Reason: "resource symbol is required"}
	case !o.Side.Valid():
		return &InvalidOrderError{Reason: fmt.Sprintf("trade type must be buy or sell, got %q", o.Side)}
	case !o.Quantity.IsPositive():
		return &InvalidOrderError{Reason: "quantity must be greater than zero"}
	}
	return nil
}

type Result struct {
	Message       string
	TransactionID int64
	// Balance is nil when the exchange did not report one.
	Balance *decimal.Decimal
}

type Trader struct {
	api       API
	state     *app.State
	refresher Refresher
	logger    *zap.Logger
}

func NewTrader(api API, state *app.State, refresher Refresher, logger *zap.Logger) *Trader {
	return &Trader{api: api, state: state, refresher: refresher, logger: logger}
}

// Submit sends one order. It never retries. On success the cached balance
// is updated only if the response carried one, then a full refresh runs.
func (t *Trader) Submit(ctx context.Context, o Order) (*Result, error) {
	o.Symbol = strings.ToUpper(strings.TrimSpace(o.Symbol))
	if err := o.Validate(); err != nil {
		metrics.Trades.WithLabelValues(string(o.Side), "invalid").Inc()
		return nil, err
	}
	token, ok := t.state.Token()
	if !ok {
		return nil, app.ErrSignedOut
	}

	resp, err := t.api.Trade(ctx, token, exchange.TradeRequest{
		ResourceSymbol: o.Symbol,
		Quantity:       o.Quantity,
		TradeType:      string(o.Side),
	})
	if err != nil {
		outcome := "failed"
		if exchange.IsRejected(err) {
			outcome = "rejected"
		}
		metrics.Trades.WithLabelValues(string(o.Side), outcome).Inc()
		t.logger.Warn("trade failed", zap.String("symbol", o.Symbol),
			zap.String("side", string(o.Side)), zap.Error(err))
		return nil, err
	}
	metrics.Trades.WithLabelValues(string(o.Side), "ok").Inc()

	t.state.User.ApplyBalance(resp.Balance)
	t.logger.Info("trade executed", zap.String("symbol", o.Symbol),
		zap.String("side", string(o.Side)), zap.String("quantity", o.Quantity.String()),
		zap.Int64("transaction_id", resp.TransactionID))

	if t.refresher != nil {
		if err := t.refresher.Refresh(ctx); err != nil {
			t.logger.Warn("post-trade refresh failed", zap.Error(err))
		}
	}
	return &Result{Message: resp.Message, TransactionID: resp.TransactionID, Balance: resp.Balance}, nil
}

// UserMessage returns the server's reason for a rejection, the validation
// reason for a bad order, or a generic connectivity message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var invalid *InvalidOrderError
	if errors.As(err, &invalid) {
		return invalid.Reason
	}
	if errors.Is(err, app.ErrSignedOut) {
		return "Please sign in first."
	}
	if detail, ok := exchange.RejectionDetail(err); ok && detail != "" {
		return detail
	}
	return ConnectivityMessage
}
