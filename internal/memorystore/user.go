package memorystore

import (
	"sync/atomic"

	"github.com/shopspring/decimal"

	"resxwatch/internal/model"
)

// UserCache keeps the last-known user record.
type UserCache struct {
	cur atomic.Pointer[model.User]
}

func NewUserCache() *UserCache {
	return &UserCache{}
}

func (c *UserCache) Set(u model.User) {
	c.cur.Store(&u)
}

// Get returns the cached user and whether one is cached.
func (c *UserCache) Get() (model.User, bool) {
	u := c.cur.Load()
	if u == nil {
		return model.User{}, false
	}
	return *u, true
}

// ApplyBalance updates the cached balance when the server reported one.
// A nil balance leaves the cache untouched.
func (c *UserCache) ApplyBalance(balance *decimal.Decimal) {
	if balance == nil {
		return
	}
	for {
		old := c.cur.Load()
		if old == nil {
			return
		}
		next := *old
		next.Balance = *balance
		if c.cur.CompareAndSwap(old, &next) {
			return
		}
	}
}

func (c *UserCache) Clear() {
	c.cur.Store(nil)
}
