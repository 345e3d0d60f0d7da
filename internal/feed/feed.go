// Package feed wraps the exchange API with the partial-failure rules of the
// refresh loops: the price feed degrades to fallback data, every other feed
// reports "unchanged" so callers keep what they had.
package feed

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"resxwatch/internal/memorystore"
	"resxwatch/internal/metrics"
	"resxwatch/internal/model"
	"resxwatch/pkg/exchange"
)

// API is the subset of *exchange.Client the feeds use.
type API interface {
	Resources(ctx context.Context) ([]exchange.Resource, error)
	Positions(ctx context.Context, token string) ([]exchange.Position, error)
	Transactions(ctx context.Context, token string) ([]exchange.Transaction, error)
	Me(ctx context.Context, token string) (*exchange.User, error)
	UpdatePrices(ctx context.Context, token string) (*exchange.UpdatePricesResponse, error)
}

type Feeds struct {
	api    API
	logger *zap.Logger
	now    func() time.Time
}

func New(api API, logger *zap.Logger) *Feeds {
	return &Feeds{api: api, logger: logger, now: time.Now}
}

// fallbackResources mirrors the simulator's seed data.
var fallbackResources = []struct {
	symbol, name string
	price        int64
}{
	{"ENG", "Energy Units", 100},
	{"DTA", "Digital Tokens", 50},
	{"CRY", "Crypto Crystals", 200},
	{"BIO", "Bio Materials", 75},
	{"MET", "Rare Metals", 150},
}

// FallbackSnapshot returns the fixed five-resource price set.
func FallbackSnapshot(at time.Time) *memorystore.PriceSnapshot {
	resources := make([]model.Resource, 0, len(fallbackResources))
	for _, r := range fallbackResources {
		resources = append(resources, model.Resource{
			Symbol:       r.symbol,
			Name:         r.name,
			CurrentPrice: decimal.NewFromInt(r.price),
			LastUpdated:  at,
		})
	}
	return memorystore.NewPriceSnapshot(resources, at, true)
}

// FetchPrices never returns nil. Any failure yields FallbackSnapshot.
func (f *Feeds) FetchPrices(ctx context.Context) *memorystore.PriceSnapshot {
	now := f.now()
	list, err := f.api.Resources(ctx)
	if err != nil {
		f.logger.Warn("price feed failed, using fallback prices", zap.Error(err))
		metrics.FetchFailures.WithLabelValues("prices").Inc()
		metrics.FallbackActivations.Inc()
		return FallbackSnapshot(now)
	}

	resources := make([]model.Resource, 0, len(list))
	for _, r := range list {
		if r.Symbol == "" || r.CurrentPrice.IsNegative() {
			f.logger.Warn("skipping invalid resource", zap.String("symbol", r.Symbol),
				zap.String("price", r.CurrentPrice.String()))
			continue
		}
		resources = append(resources, model.Resource{
			Symbol:       r.Symbol,
			Name:         r.Name,
			CurrentPrice: r.CurrentPrice,
			LastUpdated:  r.LastUpdated.Time,
		})
	}
	return memorystore.NewPriceSnapshot(resources, now, false)
}

// FetchPositions returns (nil, false) on failure so the caller keeps its
// previous holdings. An empty successful answer is ([], true).
func (f *Feeds) FetchPositions(ctx context.Context, token string) ([]model.Position, bool) {
	list, err := f.api.Positions(ctx, token)
	if err != nil {
		f.logger.Warn("position feed failed, keeping previous holdings", zap.Error(err))
		metrics.FetchFailures.WithLabelValues("positions").Inc()
		return nil, false
	}

	out := make([]model.Position, 0, len(list))
	for _, p := range list {
		if p.Quantity.IsNegative() || p.AveragePrice.IsNegative() {
			f.logger.Warn("skipping invalid position", zap.String("symbol", p.Resource.Symbol),
				zap.String("quantity", p.Quantity.String()),
				zap.String("average_price", p.AveragePrice.String()))
			continue
		}
		out = append(out, model.Position{
			ResourceSymbol: p.Resource.Symbol,
			Name:           p.Resource.Name,
			Quantity:       p.Quantity,
			AveragePrice:   p.AveragePrice,
		})
	}
	return out, true
}

// FetchTransactions follows the position rule: failure means unchanged.
func (f *Feeds) FetchTransactions(ctx context.Context, token string) ([]model.Transaction, bool) {
	list, err := f.api.Transactions(ctx, token)
	if err != nil {
		f.logger.Warn("transaction feed failed, keeping previous history", zap.Error(err))
		metrics.FetchFailures.WithLabelValues("transactions").Inc()
		return nil, false
	}

	out := make([]model.Transaction, 0, len(list))
	for _, tx := range list {
		out = append(out, model.Transaction{
			Symbol:     tx.ResourceSymbol(),
			Name:       tx.ResourceName(),
			Side:       model.TradeSide(tx.TransactionType),
			Quantity:   tx.Quantity,
			Price:      tx.Price,
			TotalValue: tx.TotalValue,
			Timestamp:  tx.Timestamp.Time,
		})
	}
	return out, true
}

// FetchProfile returns false on failure; the cached user record stays.
func (f *Feeds) FetchProfile(ctx context.Context, token string) (model.User, bool) {
	u, err := f.api.Me(ctx, token)
	if err != nil {
		f.logger.Warn("profile fetch failed, keeping cached user", zap.Error(err))
		metrics.FetchFailures.WithLabelValues("profile").Inc()
		return model.User{}, false
	}
	return ToUser(*u), true
}

// UpdatePrices triggers one server-side price step.
func (f *Feeds) UpdatePrices(ctx context.Context, token string) error {
	resp, err := f.api.UpdatePrices(ctx, token)
	if err != nil {
		metrics.FetchFailures.WithLabelValues("update_prices").Inc()
		return err
	}
	f.logger.Debug("price simulation stepped", zap.Int("updated", resp.UpdatedCount))
	return nil
}

// ToUser converts the wire user record.
func ToUser(u exchange.User) model.User {
	return model.User{Username: u.Username, Email: u.Email, Balance: u.Balance}
}
