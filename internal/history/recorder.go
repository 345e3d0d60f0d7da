// Package history records full-refresh valuations and mirrors trade
// history into Postgres.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"resxwatch/internal/app"
	"resxwatch/pkg/storage/postgres"
)

// Store is the subset of *postgres.PostgresClient the recorder writes to.
type Store interface {
	InsertValuationBatch(ctx context.Context, records []postgres.ValuationRecord) error
	UpsertTransactions(ctx context.Context, records []postgres.TransactionRecord) (int64, error)
}

// Recorder implements app.Publisher. Fast ticks are ignored; full refreshes
// are queued and written by a single worker so a slow database never holds
// up the refresh loop.
type Recorder struct {
	store   Store
	logger  *zap.Logger
	timeout time.Duration

	ch       chan app.Update
	wg       sync.WaitGroup
	closeOne sync.Once
}

func NewRecorder(store Store, logger *zap.Logger, buffer int) *Recorder {
	return &Recorder{
		store:   store,
		logger:  logger,
		timeout: 5 * time.Second,
		ch:      make(chan app.Update, buffer),
	}
}

// StartWorker launches the goroutine that drains the queue.
func (r *Recorder) StartWorker() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for u := range r.ch {
			r.write(u)
		}
	}()
}

func (r *Recorder) Publish(u app.Update) {
	if u.Kind == app.FastTick || !u.HasUser {
		return
	}
	select {
	case r.ch <- u:
	default:
		r.logger.Warn("history queue full, dropping refresh", zap.String("tick", u.TickID))
	}
}

// Close stops accepting updates and waits for queued writes.
func (r *Recorder) Close() {
	r.closeOne.Do(func() { close(r.ch) })
	r.wg.Wait()
}

func (r *Recorder) write(u app.Update) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	batch := ValuationRecords(uuid.NewString(), u)
	if err := r.store.InsertValuationBatch(ctx, batch); err != nil {
		r.logger.Warn("failed to insert valuation batch", zap.String("tick", u.TickID), zap.Error(err))
	}

	n, err := r.store.UpsertTransactions(ctx, TransactionRecords(u))
	if err != nil {
		r.logger.Warn("failed to mirror transactions", zap.String("tick", u.TickID), zap.Error(err))
		return
	}
	if n > 0 {
		r.logger.Info("mirrored new transactions", zap.Int64("count", n))
	}
}

// ValuationRecords converts the non-empty positions of an update.
func ValuationRecords(batchID string, u app.Update) []postgres.ValuationRecord {
	out := make([]postgres.ValuationRecord, 0, len(u.Valuation.Positions))
	for _, vp := range u.Valuation.Positions {
		if vp.IsEmpty() {
			continue
		}
		out = append(out, postgres.ValuationRecord{
			BatchID:           batchID,
			Username:          u.User.Username,
			Symbol:            vp.ResourceSymbol,
			Quantity:          vp.Quantity,
			AveragePrice:      vp.AveragePrice,
			Price:             vp.Price,
			Value:             vp.CurrentValue,
			ProfitLoss:        vp.ProfitLoss,
			ProfitLossPercent: vp.ProfitLossPercent.Round(4),
			Stale:             vp.Stale,
			FallbackPrices:    u.PricesFallback,
			RecordedAt:        u.At,
		})
	}
	return out
}

func TransactionRecords(u app.Update) []postgres.TransactionRecord {
	out := make([]postgres.TransactionRecord, 0, len(u.Transactions))
	for _, tx := range u.Transactions {
		out = append(out, postgres.TransactionRecord{
			Username:   u.User.Username,
			Symbol:     tx.Symbol,
			Side:       string(tx.Side),
			Quantity:   tx.Quantity,
			Price:      tx.Price,
			Timestamp:  tx.Timestamp,
			Name:       tx.Name,
			TotalValue: tx.TotalValue,
		})
	}
	return out
}
