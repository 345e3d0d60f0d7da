package app

import (
	"time"

	"resxwatch/internal/model"
	"resxwatch/internal/valuation"
)

type TickKind string

const (
	FastTick   TickKind = "fast"
	SlowTick   TickKind = "slow"
	ManualTick TickKind = "manual"
)

// Update is one render pass worth of data.
type Update struct {
	TickID         string              `json:"tick_id"`
	Kind           TickKind            `json:"kind"`
	At             time.Time           `json:"at"`
	Valuation      valuation.Report    `json:"valuation"`
	User           model.User          `json:"user"`
	HasUser        bool                `json:"has_user"`
	Transactions   []model.Transaction `json:"transactions"`
	PricesFallback bool                `json:"prices_fallback"`
	PricesAt       time.Time           `json:"prices_at"`
}

// Publisher receives every Update the scheduler produces.
type Publisher interface {
	Publish(u Update)
}

type PublisherFunc func(u Update)

func (f PublisherFunc) Publish(u Update) { f(u) }

// Publishers fans an Update out in order.
type Publishers []Publisher

func (ps Publishers) Publish(u Update) {
	for _, p := range ps {
		if p != nil {
			p.Publish(u)
		}
	}
}
