package postgres

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValuationRecord is one revalued position captured by a full refresh.
// All rows written by the same refresh share a BatchID.
type ValuationRecord struct {
	ID uint `gorm:"primaryKey"`

	BatchID  string `gorm:"type:uuid;not null;index:idx_valuation_batch"`
	Username string `gorm:"type:text;not null;index:idx_valuation_user_time"`
	Symbol   string `gorm:"type:varchar(16);not null"`

	Quantity          decimal.Decimal `gorm:"type:numeric;not null"`
	AveragePrice      decimal.Decimal `gorm:"type:numeric;not null"`
	Price             decimal.Decimal `gorm:"type:numeric;not null"`
	Value             decimal.Decimal `gorm:"type:numeric;not null"`
	ProfitLoss        decimal.Decimal `gorm:"type:numeric;not null"`
	ProfitLossPercent decimal.Decimal `gorm:"type:numeric;not null"`
	Stale             bool            `gorm:"not null"`
	FallbackPrices    bool            `gorm:"not null"`

	RecordedAt time.Time `gorm:"not null;index:idx_valuation_user_time"`
}

// TableName overrides the default table name for GORM.
func (ValuationRecord) TableName() string {
	return "valuation_record"
}

// TransactionRecord mirrors one row of the exchange's trade history.
type TransactionRecord struct {
	ID uint `gorm:"primaryKey"`

	// unique index
	Username  string          `gorm:"type:text;not null;index:idx_tx_identity,unique"`
	Symbol    string          `gorm:"type:varchar(16);not null;index:idx_tx_identity,unique"`
	Side      string          `gorm:"type:varchar(4);not null;index:idx_tx_identity,unique"`
	Quantity  decimal.Decimal `gorm:"type:numeric;not null;index:idx_tx_identity,unique"`
	Price     decimal.Decimal `gorm:"type:numeric;not null;index:idx_tx_identity,unique"`
	Timestamp time.Time       `gorm:"not null;index:idx_tx_identity,unique"`

	Name       string          `gorm:"type:text"`
	TotalValue decimal.Decimal `gorm:"type:numeric;not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

func (TransactionRecord) TableName() string {
	return "transaction_record"
}

// ValuationBatch groups the rows of one refresh.
type ValuationBatch struct {
	BatchID    string
	RecordedAt time.Time
	Records    []ValuationRecord
}

// Total sums the batch's position values.
func (b ValuationBatch) Total() decimal.Decimal {
	total := decimal.Zero
	for _, r := range b.Records {
		total = total.Add(r.Value)
	}
	return total
}
