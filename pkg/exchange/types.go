package exchange

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Resource is a tradable instrument as listed by GET /api/resources.
type Resource struct {
	ID           int64           `json:"id"`
	Symbol       string          `json:"symbol"`        // e.g., "ENG"
	Name         string          `json:"name"`          // e.g., "Energy Units"
	CurrentPrice decimal.Decimal `json:"current_price"` // simulated price
	Volatility   decimal.Decimal `json:"volatility"`
	LastUpdated  Timestamp       `json:"last_updated"`
}

// ResourceRef is the resource summary nested in position and transaction rows.
type ResourceRef struct {
	ID           int64           `json:"id"`
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	CurrentPrice decimal.Decimal `json:"current_price"`
}

// Position is one holding row from GET /api/positions. CurrentValue and
// ProfitLoss are server-side hints and may be absent.
type Position struct {
	ID           int64            `json:"id"`
	Resource     ResourceRef      `json:"resource"`
	Quantity     decimal.Decimal  `json:"quantity"`
	AveragePrice decimal.Decimal  `json:"average_price"`
	CurrentValue *decimal.Decimal `json:"current_value,omitempty"`
	ProfitLoss   *decimal.Decimal `json:"profit_loss,omitempty"`
	CreatedAt    Timestamp        `json:"created_at"`
}

// Transaction is one row of GET /api/transactions. The server flattens the
// resource into symbol/name; a nested resource object is accepted as well.
type Transaction struct {
	ID              int64           `json:"id"`
	Resource        *ResourceRef    `json:"resource,omitempty"`
	Symbol          string          `json:"symbol"`
	Name            string          `json:"name"`
	TransactionType string          `json:"transaction_type"` // "buy" or "sell"
	Quantity        decimal.Decimal `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	TotalValue      decimal.Decimal `json:"total_value"`
	Timestamp       Timestamp       `json:"timestamp"`
}

// ResourceSymbol returns the symbol whichever shape the row used.
func (t Transaction) ResourceSymbol() string {
	if t.Symbol == "" && t.Resource != nil {
		return t.Resource.Symbol
	}
	return t.Symbol
}

// ResourceName returns the display name whichever shape the row used.
func (t Transaction) ResourceName() string {
	if t.Name == "" && t.Resource != nil {
		return t.Resource.Name
	}
	return t.Name
}

// User is the account record returned by /api/me, /api/login and /api/register.
type User struct {
	ID        int64           `json:"id"`
	Username  string          `json:"username"`
	Email     string          `json:"email"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt Timestamp       `json:"created_at"`
}

type meResponse struct {
	User User `json:"user"`
}

// LoginResponse is returned by POST /api/login.
type LoginResponse struct {
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        *User  `json:"user,omitempty"`
}

// RegisterRequest is the JSON body of POST /api/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse is returned by POST /api/register.
type RegisterResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    *User  `json:"user,omitempty"`
}

// TradeRequest is the JSON body of POST /api/trade.
type TradeRequest struct {
	ResourceSymbol string          `json:"resource_symbol"`
	Quantity       decimal.Decimal `json:"quantity"`
	TradeType      string          `json:"trade_type"` // "buy" or "sell"
}

// TradeResponse is returned by POST /api/trade. Balance is optional: callers
// must keep their cached balance when it is nil.
type TradeResponse struct {
	Message       string           `json:"message"`
	TransactionID int64            `json:"transaction_id"`
	Balance       *decimal.Decimal `json:"balance,omitempty"`
}

// UpdatePricesResponse is returned by POST /api/update-prices.
type UpdatePricesResponse struct {
	Message      string `json:"message"`
	UpdatedCount int    `json:"updated_count"`
}

// errorResponse is the FastAPI error envelope. Detail is a string for
// HTTPException and a list of objects for validation errors.
type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// Timestamp accepts the datetime shapes the simulator emits: sqlite
// CURRENT_TIMESTAMP ("2006-01-02 15:04:05"), python isoformat with or
// without fractional seconds, and RFC 3339. Zone-less values are UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
