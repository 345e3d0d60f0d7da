// Package session persists the bearer token between runs.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoSession is returned by Load when nothing is stored.
var ErrNoSession = errors.New("no stored session")

// Session is what survives a restart: the token and who it belongs to.
type Session struct {
	Token    string    `json:"token"`
	Username string    `json:"username"`
	SavedAt  time.Time `json:"saved_at"`
}

type Store interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the session for the lifetime of the process.
type MemoryStore struct {
	mu  sync.Mutex
	cur *Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return Session{}, ErrNoSession
	}
	return *m.cur, nil
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cur = &s
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cur = nil
	return nil
}
