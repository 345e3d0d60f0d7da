// Package model defines the client-side domain types. All prices and
// quantities are shopspring/decimal values.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Resource is a tradable instrument with a simulated price.
type Resource struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	LastUpdated  time.Time       `json:"last_updated"`
}

// Position is a holding in one resource: quantity plus cost basis.
// ResourceSymbol keys into the current price snapshot.
type Position struct {
	ResourceSymbol string          `json:"resource_symbol"`
	Name           string          `json:"name"`
	Quantity       decimal.Decimal `json:"quantity"`
	AveragePrice   decimal.Decimal `json:"average_price"`
}

// IsEmpty reports a fully sold position. Valid in the store, hidden on screen.
func (p Position) IsEmpty() bool {
	return p.Quantity.IsZero()
}

// CostBasis is quantity × average price.
func (p Position) CostBasis() decimal.Decimal {
	return p.Quantity.Mul(p.AveragePrice)
}

type TradeSide string

const (
	Buy  TradeSide = "buy"
	Sell TradeSide = "sell"
)

func (s TradeSide) Valid() bool {
	return s == Buy || s == Sell
}

// Transaction is one executed trade from the history feed.
type Transaction struct {
	Symbol     string          `json:"symbol"`
	Name       string          `json:"name"`
	Side       TradeSide       `json:"transaction_type"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	TotalValue decimal.Decimal `json:"total_value"`
	Timestamp  time.Time       `json:"timestamp"`
}

// User is the last-known account record.
type User struct {
	Username string          `json:"username"`
	Email    string          `json:"email"`
	Balance  decimal.Decimal `json:"balance"`
}
