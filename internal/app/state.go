// Package app holds the per-session application state shared by the
// scheduler, the trader and the views.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"resxwatch/internal/memorystore"
	"resxwatch/internal/model"
	"resxwatch/internal/session"
	"resxwatch/internal/valuation"
)

// ErrSignedOut is returned by operations that need a token.
var ErrSignedOut = errors.New("not signed in")

// State owns every mutable piece of the client. Each store is replaced
// wholesale so readers never see a half-updated value.
type State struct {
	Prices       *memorystore.PriceBoard
	Positions    *memorystore.PositionStore
	Transactions *memorystore.TransactionStore
	User         *memorystore.UserCache
	Engine       *valuation.Engine

	sessions session.Store

	mu    sync.RWMutex
	token string
}

func NewState(sessions session.Store) *State {
	if sessions == nil {
		sessions = session.NewMemoryStore()
	}
	return &State{
		Prices:       memorystore.NewPriceBoard(),
		Positions:    memorystore.NewPositionStore(),
		Transactions: memorystore.NewTransactionStore(),
		User:         memorystore.NewUserCache(),
		Engine:       valuation.NewEngine(),
		sessions:     sessions,
	}
}

// Token returns the bearer token, or false when signed out.
func (s *State) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// SignIn stores the token and, when known, the user record.
func (s *State) SignIn(ctx context.Context, token string, user *model.User) error {
	if token == "" {
		return errors.New("empty token")
	}
	sess := session.Session{Token: token, SavedAt: time.Now().UTC()}
	if user != nil {
		sess.Username = user.Username
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	if user != nil {
		s.User.Set(*user)
	}
	return nil
}

// Restore picks up a token saved by an earlier run.
func (s *State) Restore(ctx context.Context) (bool, error) {
	sess, err := s.sessions.Load(ctx)
	if errors.Is(err, session.ErrNoSession) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	s.token = sess.Token
	s.mu.Unlock()
	return true, nil
}

// SignOut drops the token and empties every store.
func (s *State) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()

	s.Prices.Clear()
	s.Positions.Clear()
	s.Transactions.Clear()
	s.User.Clear()
	s.Engine.Reset()

	if err := s.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// Compose revalues the current stores into an Update.
func (s *State) Compose(tickID string, kind TickKind) Update {
	prices := s.Prices.Current()
	u := Update{
		TickID:         tickID,
		Kind:           kind,
		At:             time.Now().UTC(),
		Valuation:      s.Engine.Build(s.Positions.Current(), prices),
		Transactions:   s.Transactions.Current(),
		PricesFallback: prices.IsFallback(),
		PricesAt:       prices.FetchedAt(),
	}
	u.User, u.HasUser = s.User.Get()
	return u
}
