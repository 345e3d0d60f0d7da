// Package account signs users in and out and registers new accounts.
package account

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"resxwatch/internal/app"
	"resxwatch/internal/feed"
	"resxwatch/internal/model"
	"resxwatch/pkg/exchange"
)

type API interface {
	Login(ctx context.Context, username, password string) (*exchange.LoginResponse, error)
	Register(ctx context.Context, req exchange.RegisterRequest) (*exchange.RegisterResponse, error)
	Me(ctx context.Context, token string) (*exchange.User, error)
}

// Suspender stops the refresh loops; *scheduler.Scheduler implements it.
type Suspender interface {
	Suspend()
}

type Service struct {
	api    API
	state  *app.State
	logger *zap.Logger
}

func NewService(api API, state *app.State, logger *zap.Logger) *Service {
	return &Service{api: api, state: state, logger: logger}
}

// Login exchanges credentials for a token and caches the user record. The
// caller activates the scheduler afterwards.
func (s *Service) Login(ctx context.Context, username, password string) (model.User, error) {
	resp, err := s.api.Login(ctx, strings.TrimSpace(username), password)
	if err != nil {
		return model.User{}, err
	}

	var user model.User
	if resp.User != nil {
		user = feed.ToUser(*resp.User)
	} else {
		me, err := s.api.Me(ctx, resp.AccessToken)
		if err != nil {
			return model.User{}, fmt.Errorf("load profile: %w", err)
		}
		user = feed.ToUser(*me)
	}

	if err := s.state.SignIn(ctx, resp.AccessToken, &user); err != nil {
		return model.User{}, err
	}
	s.logger.Info("signed in", zap.String("username", user.Username))
	return user, nil
}

// Register creates an account. It does not sign in.
func (s *Service) Register(ctx context.Context, username, email, password string) (string, error) {
	req := exchange.RegisterRequest{
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return "", fmt.Errorf("username, email and password are required")
	}
	resp, err := s.api.Register(ctx, req)
	if err != nil {
		return "", err
	}
	s.logger.Info("account registered", zap.String("username", req.Username))
	return resp.Message, nil
}

// Resume restores a saved token and checks it against the exchange. A
// token the exchange rejects is dropped.
func (s *Service) Resume(ctx context.Context) (bool, error) {
	ok, err := s.state.Restore(ctx)
	if err != nil || !ok {
		return false, err
	}
	token, _ := s.state.Token()
	me, err := s.api.Me(ctx, token)
	if exchange.IsRejected(err) {
		s.logger.Info("saved session expired")
		return false, s.state.SignOut(ctx)
	}
	if err != nil {
		// exchange unreachable: keep the token, the slow tick will retry
		s.logger.Warn("could not verify saved session", zap.Error(err))
		return true, nil
	}
	s.state.User.Set(feed.ToUser(*me))
	return true, nil
}

// Logout suspends the loops first so no tick lands on cleared stores.
func (s *Service) Logout(ctx context.Context, loops Suspender) error {
	if loops != nil {
		loops.Suspend()
	}
	if err := s.state.SignOut(ctx); err != nil {
		return err
	}
	s.logger.Info("signed out")
	return nil
}
