package memorystore

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"resxwatch/internal/model"
)

// PriceSnapshot is an immutable point-in-time read of the price feed.
// All methods are safe on a nil snapshot, which behaves as empty.
type PriceSnapshot struct {
	resources map[string]model.Resource
	symbols   []string
	fetchedAt time.Time
	fallback  bool
}

// NewPriceSnapshot copies resources into a new snapshot. A later entry for
// the same symbol wins.
func NewPriceSnapshot(resources []model.Resource, fetchedAt time.Time, fallback bool) *PriceSnapshot {
	s := &PriceSnapshot{
		resources: make(map[string]model.Resource, len(resources)),
		fetchedAt: fetchedAt,
		fallback:  fallback,
	}
	for _, r := range resources {
		s.resources[r.Symbol] = r
	}
	s.symbols = make([]string, 0, len(s.resources))
	for sym := range s.resources {
		s.symbols = append(s.symbols, sym)
	}
	sort.Strings(s.symbols)
	return s
}

// Price returns the current price for symbol.
func (s *PriceSnapshot) Price(symbol string) (decimal.Decimal, bool) {
	if s == nil {
		return decimal.Zero, false
	}
	r, ok := s.resources[symbol]
	return r.CurrentPrice, ok
}

// Resource returns the full resource for symbol.
func (s *PriceSnapshot) Resource(symbol string) (model.Resource, bool) {
	if s == nil {
		return model.Resource{}, false
	}
	r, ok := s.resources[symbol]
	return r, ok
}

// Symbols returns every symbol, sorted.
func (s *PriceSnapshot) Symbols() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// Resources returns every resource sorted by symbol.
func (s *PriceSnapshot) Resources() []model.Resource {
	if s == nil {
		return nil
	}
	out := make([]model.Resource, 0, len(s.symbols))
	for _, sym := range s.symbols {
		out = append(out, s.resources[sym])
	}
	return out
}

func (s *PriceSnapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.resources)
}

// IsFallback reports whether the snapshot is the built-in fallback set
// rather than live feed data.
func (s *PriceSnapshot) IsFallback() bool {
	return s != nil && s.fallback
}

func (s *PriceSnapshot) FetchedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.fetchedAt
}

// PriceBoard holds the current PriceSnapshot. Replace swaps the pointer, so
// readers see either the old snapshot or the new one, never a mix.
type PriceBoard struct {
	cur atomic.Pointer[PriceSnapshot]
}

func NewPriceBoard() *PriceBoard {
	b := &PriceBoard{}
	b.Clear()
	return b
}

// Replace installs snap wholesale. Last write wins.
func (b *PriceBoard) Replace(snap *PriceSnapshot) {
	if snap == nil {
		snap = NewPriceSnapshot(nil, time.Time{}, false)
	}
	b.cur.Store(snap)
}

// Current never returns nil.
func (b *PriceBoard) Current() *PriceSnapshot {
	return b.cur.Load()
}

func (b *PriceBoard) Clear() {
	b.cur.Store(NewPriceSnapshot(nil, time.Time{}, false))
}
