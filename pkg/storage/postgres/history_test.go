package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"resxwatch/pkg/storage/postgres"
)

// go test -v --run TestValuationHistory
func TestValuationHistory(t *testing.T) {
	cfg := testConfig(t, "resxwatch")

	client, err := postgres.InitializeAndMigrate(cfg, "dev", true)
	if err != nil {
		t.Fatalf("failed to connect to DB: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	user := "history-" + uuid.NewString()[:8]
	now := time.Now().UTC().Truncate(time.Millisecond)

	// Create two batches
	for i, price := range []int64{100, 110} {
		batch := uuid.NewString()
		err := client.InsertValuationBatch(ctx, []postgres.ValuationRecord{{
			BatchID:      batch,
			Username:     user,
			Symbol:       "ENG",
			Quantity:     decimal.NewFromInt(5),
			AveragePrice: decimal.NewFromInt(90),
			Price:        decimal.NewFromInt(price),
			Value:        decimal.NewFromInt(5 * price),
			ProfitLoss:   decimal.NewFromInt(5*price - 450),
			RecordedAt:   now.Add(time.Duration(i) * time.Second),
		}})
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	// Read newest first
	batches, err := client.LatestBatches(ctx, user, 5)
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if !batches[0].Total().Equal(decimal.NewFromInt(550)) {
		t.Errorf("newest total = %s, want 550", batches[0].Total())
	}

	// Delete
	if _, err := client.DeleteValuationsBefore(ctx, now.Add(time.Hour)); err != nil {
		t.Errorf("delete failed: %v", err)
	}
}

// go test -v --run TestUpsertTransactions
func TestUpsertTransactions(t *testing.T) {
	cfg := testConfig(t, "resxwatch")

	client, err := postgres.InitializeAndMigrate(cfg, "dev", true)
	if err != nil {
		t.Fatalf("failed to connect to DB: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	rec := postgres.TransactionRecord{
		Username:   "tx-" + uuid.NewString()[:8],
		Symbol:     "DTA",
		Side:       "buy",
		Quantity:   decimal.NewFromInt(2),
		Price:      decimal.NewFromInt(50),
		TotalValue: decimal.NewFromInt(100),
		Timestamp:  time.Now().UTC().Truncate(time.Second),
	}

	n, err := client.UpsertTransactions(ctx, []postgres.TransactionRecord{rec})
	if err != nil || n != 1 {
		t.Fatalf("first upsert = %d, %v", n, err)
	}
	n, err = client.UpsertTransactions(ctx, []postgres.TransactionRecord{rec})
	if err != nil || n != 0 {
		t.Errorf("duplicate should be skipped, got %d, %v", n, err)
	}

	rows, err := client.RecentTransactions(ctx, rec.Username, 10)
	if err != nil || len(rows) != 1 {
		t.Errorf("recent = %v, %v", rows, err)
	}
}
