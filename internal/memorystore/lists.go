package memorystore

import (
	"sync/atomic"
	"time"

	"resxwatch/internal/model"
)

type listVersion[T any] struct {
	items     []T
	updatedAt time.Time
}

// listStore keeps an ordered list that is only ever replaced as a whole.
type listStore[T any] struct {
	cur atomic.Pointer[listVersion[T]]
}

func (s *listStore[T]) replace(items []T, at time.Time) {
	cp := make([]T, len(items))
	copy(cp, items)
	s.cur.Store(&listVersion[T]{items: cp, updatedAt: at})
}

func (s *listStore[T]) current() []T {
	v := s.cur.Load()
	if v == nil {
		return []T{}
	}
	out := make([]T, len(v.items))
	copy(out, v.items)
	return out
}

func (s *listStore[T]) updatedAt() time.Time {
	if v := s.cur.Load(); v != nil {
		return v.updatedAt
	}
	return time.Time{}
}

func (s *listStore[T]) clear() {
	s.cur.Store(nil)
}

// PositionStore holds the last known holdings list.
type PositionStore struct {
	list listStore[model.Position]
}

func NewPositionStore() *PositionStore {
	return &PositionStore{}
}

// Replace installs positions wholesale. Callers that failed to fetch must
// not call Replace; an empty slice means "the user holds nothing".
func (s *PositionStore) Replace(positions []model.Position) {
	s.list.replace(positions, time.Now())
}

// Current returns a copy of the stored positions.
func (s *PositionStore) Current() []model.Position {
	return s.list.current()
}

// UpdatedAt is the time of the last successful replace, zero if none.
func (s *PositionStore) UpdatedAt() time.Time {
	return s.list.updatedAt()
}

func (s *PositionStore) Clear() {
	s.list.clear()
}

// TransactionStore holds the last known trade history.
type TransactionStore struct {
	list listStore[model.Transaction]
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{}
}

func (s *TransactionStore) Replace(txs []model.Transaction) {
	s.list.replace(txs, time.Now())
}

func (s *TransactionStore) Current() []model.Transaction {
	return s.list.current()
}

func (s *TransactionStore) UpdatedAt() time.Time {
	return s.list.updatedAt()
}

func (s *TransactionStore) Clear() {
	s.list.clear()
}
