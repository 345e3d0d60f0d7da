// Package scheduler drives the two refresh loops: a fast price tick and a
// slow full refresh. Both run independently and are never serialized
// against each other; correctness relies on wholesale store replacement.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"resxwatch/internal/app"
	"resxwatch/internal/memorystore"
	"resxwatch/internal/metrics"
	"resxwatch/internal/model"
)

// ErrDiscarded is returned by Refresh when the session changed mid-flight.
var ErrDiscarded = errors.New("refresh discarded: session changed")

type State int

const (
	Suspended State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "suspended"
}

// Source is what the ticks fetch from. *feed.Feeds implements it.
type Source interface {
	FetchPrices(ctx context.Context) *memorystore.PriceSnapshot
	FetchPositions(ctx context.Context, token string) ([]model.Position, bool)
	FetchTransactions(ctx context.Context, token string) ([]model.Transaction, bool)
	FetchProfile(ctx context.Context, token string) (model.User, bool)
	UpdatePrices(ctx context.Context, token string) error
}

type Scheduler struct {
	src    Source
	state  *app.State
	pub    app.Publisher
	logger *zap.Logger

	fastInterval time.Duration
	slowInterval time.Duration

	mu       sync.Mutex
	signedIn bool
	visible  bool
	cancel   context.CancelFunc

	// gen changes on every start and stop. A tick only applies results
	// while the generation it started under is still current.
	gen atomic.Uint64
	// applyMu is held for reading while a tick mutates stores and
	// publishes; stop takes it for writing so nothing lands after Suspend.
	applyMu sync.RWMutex
	wg      sync.WaitGroup
}

func New(src Source, state *app.State, pub app.Publisher, logger *zap.Logger, fast, slow time.Duration) *Scheduler {
	if pub == nil {
		pub = app.Publishers{}
	}
	return &Scheduler{
		src:          src,
		state:        state,
		pub:          pub,
		logger:       logger,
		fastInterval: fast,
		slowInterval: slow,
		visible:      true,
	}
}

// Activate is called after a successful sign-in.
func (s *Scheduler) Activate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signedIn = true
	s.reconcileLocked()
}

// Suspend is called on sign-out. When it returns no tick will touch the
// stores or publish again.
func (s *Scheduler) Suspend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signedIn = false
	s.reconcileLocked()
}

// SetVisible pauses the loops while nobody is looking.
func (s *Scheduler) SetVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = visible
	s.reconcileLocked()
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return Active
	}
	return Suspended
}

// Close suspends and waits for in-flight runs to return.
func (s *Scheduler) Close() {
	s.Suspend()
	s.wg.Wait()
}

func (s *Scheduler) reconcileLocked() {
	want := s.signedIn && s.visible
	running := s.cancel != nil

	switch {
	case want && !running:
		s.start()
	case !want && running:
		s.stop()
	}
}

func (s *Scheduler) start() {
	gen := s.gen.Add(1)
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	Task{Name: string(app.FastTick), Interval: s.fastInterval, Run: func(ctx context.Context) {
		s.fastTick(ctx, gen)
	}}.Start(ctx, &s.wg)
	Task{Name: string(app.SlowTick), Interval: s.slowInterval, Run: func(ctx context.Context) {
		s.slowTick(ctx, gen, app.SlowTick)
	}}.Start(ctx, &s.wg)

	s.logger.Info("refresh loops started",
		zap.Duration("fast", s.fastInterval), zap.Duration("slow", s.slowInterval))
}

func (s *Scheduler) stop() {
	s.applyMu.Lock()
	s.gen.Add(1)
	s.applyMu.Unlock()

	s.cancel()
	s.cancel = nil
	s.logger.Info("refresh loops suspended")
}

// Refresh runs one full refresh synchronously. It works while suspended as
// long as a token is present, and is discarded if the session changes
// before the results land.
func (s *Scheduler) Refresh(ctx context.Context) error {
	gen := s.gen.Load()
	if _, ok := s.guard(gen); !ok {
		return app.ErrSignedOut
	}
	if !s.slowTick(ctx, gen, app.ManualTick) {
		return ErrDiscarded
	}
	return nil
}

// guard reports the token when the generation is still current.
func (s *Scheduler) guard(gen uint64) (string, bool) {
	if s.gen.Load() != gen {
		return "", false
	}
	return s.state.Token()
}

// apply mutates the stores and publishes under the guard.
func (s *Scheduler) apply(gen uint64, tickID string, kind app.TickKind, mutate func()) bool {
	s.applyMu.RLock()
	defer s.applyMu.RUnlock()

	if _, ok := s.guard(gen); !ok {
		return false
	}
	mutate()
	u := s.state.Compose(tickID, kind)
	metrics.PortfolioValue.Set(u.Valuation.Totals.Value.InexactFloat64())
	s.pub.Publish(u)
	return true
}

func (s *Scheduler) fastTick(ctx context.Context, gen uint64) bool {
	tickID := uuid.NewString()
	start := time.Now()
	logger := s.logger.With(zap.String("tick", tickID), zap.String("kind", string(app.FastTick)))

	token, ok := s.guard(gen)
	if !ok {
		return s.discard(logger, app.FastTick)
	}
	if err := s.src.UpdatePrices(ctx, token); err != nil {
		logger.Warn("price simulation step failed", zap.Error(err))
	}

	if _, ok := s.guard(gen); !ok {
		return s.discard(logger, app.FastTick)
	}
	snap := s.src.FetchPrices(ctx)

	if !s.apply(gen, tickID, app.FastTick, func() { s.state.Prices.Replace(snap) }) {
		return s.discard(logger, app.FastTick)
	}
	s.finish(logger, app.FastTick, start)
	return true
}

func (s *Scheduler) slowTick(ctx context.Context, gen uint64, kind app.TickKind) bool {
	tickID := uuid.NewString()
	start := time.Now()
	logger := s.logger.With(zap.String("tick", tickID), zap.String("kind", string(kind)))

	if _, ok := s.guard(gen); !ok {
		return s.discard(logger, kind)
	}
	snap := s.src.FetchPrices(ctx)

	token, ok := s.guard(gen)
	if !ok {
		return s.discard(logger, kind)
	}
	positions, positionsOK := s.src.FetchPositions(ctx, token)

	if token, ok = s.guard(gen); !ok {
		return s.discard(logger, kind)
	}
	txs, txsOK := s.src.FetchTransactions(ctx, token)

	if token, ok = s.guard(gen); !ok {
		return s.discard(logger, kind)
	}
	user, userOK := s.src.FetchProfile(ctx, token)

	applied := s.apply(gen, tickID, kind, func() {
		s.state.Prices.Replace(snap)
		if positionsOK {
			s.state.Positions.Replace(positions)
		}
		if txsOK {
			s.state.Transactions.Replace(txs)
		}
		if userOK {
			s.state.User.Set(user)
		}
	})
	if !applied {
		return s.discard(logger, kind)
	}

	logger.Debug("full refresh applied",
		zap.Bool("positions", positionsOK), zap.Bool("transactions", txsOK),
		zap.Bool("profile", userOK), zap.Bool("fallback_prices", snap.IsFallback()))
	s.finish(logger, kind, start)
	return true
}

func (s *Scheduler) discard(logger *zap.Logger, kind app.TickKind) bool {
	metrics.DiscardedTicks.WithLabelValues(string(kind)).Inc()
	logger.Debug("tick discarded")
	return false
}

func (s *Scheduler) finish(logger *zap.Logger, kind app.TickKind, start time.Time) {
	metrics.Ticks.WithLabelValues(string(kind)).Inc()
	metrics.TickDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	logger.Debug("tick complete", zap.Duration("took", time.Since(start)))
}
