package account

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"resxwatch/internal/app"
	"resxwatch/internal/session"
	"resxwatch/pkg/exchange"
	"resxwatch/pkg/exchange/exchangetest"
)

type fakeLoops struct{ suspended bool }

func (f *fakeLoops) Suspend() { f.suspended = true }

func newService(t *testing.T, sessions session.Store) (*Service, *app.State, *exchangetest.Server) {
	t.Helper()
	srv := exchangetest.NewServer()
	t.Cleanup(srv.Close)
	st := app.NewState(sessions)
	return NewService(exchange.NewClient(srv.URL, 2*time.Second), st, zap.NewNop()), st, srv
}

// go test -v --run TestLoginLogout
func TestLoginLogout(t *testing.T) {
	svc, st, _ := newService(t, nil)
	ctx := context.Background()

	user, err := svc.Login(ctx, exchangetest.Username, exchangetest.Password)
	if err != nil {
		t.Fatal(err)
	}
	if user.Username != exchangetest.Username {
		t.Errorf("username = %q", user.Username)
	}
	if tok, ok := st.Token(); !ok || tok != exchangetest.Token {
		t.Errorf("token = %q, %v", tok, ok)
	}

	loops := &fakeLoops{}
	if err := svc.Logout(ctx, loops); err != nil {
		t.Fatal(err)
	}
	if !loops.suspended {
		t.Error("logout should suspend the loops")
	}
	if _, ok := st.Token(); ok {
		t.Error("token should be cleared")
	}
}

// go test -v --run TestLoginRejected
func TestLoginRejected(t *testing.T) {
	svc, st, _ := newService(t, nil)

	_, err := svc.Login(context.Background(), exchangetest.Username, "nope")
	if detail, ok := exchange.RejectionDetail(err); !ok || detail != "Incorrect username or password" {
		t.Errorf("expected rejection detail, got %v", err)
	}
	if _, ok := st.Token(); ok {
		t.Error("failed login must not store a token")
	}
}

// go test -v --run TestRegister
func TestRegister(t *testing.T) {
	svc, _, _ := newService(t, nil)
	ctx := context.Background()

	msg, err := svc.Register(ctx, "newuser", "new@example.com", "secret")
	if err != nil || msg != "User created successfully" {
		t.Errorf("register = %q, %v", msg, err)
	}

	_, err = svc.Register(ctx, exchangetest.Username, "x@example.com", "secret")
	if detail, _ := exchange.RejectionDetail(err); detail != "Username already registered" {
		t.Errorf("expected duplicate rejection, got %v", err)
	}

	if _, err := svc.Register(ctx, " ", "x@example.com", "secret"); err == nil {
		t.Error("blank username should fail locally")
	}
}

// go test -v --run TestResume
func TestResume(t *testing.T) {
	ctx := context.Background()
	sessions := session.NewMemoryStore()

	_ = sessions.Save(ctx, session.Session{Token: exchangetest.Token})
	svc, st, _ := newService(t, sessions)
	ok, err := svc.Resume(ctx)
	if err != nil || !ok {
		t.Fatalf("resume = %v, %v", ok, err)
	}
	if u, ok := st.User.Get(); !ok || u.Username != exchangetest.Username {
		t.Errorf("profile not loaded: %+v", u)
	}

	expired := session.NewMemoryStore()
	_ = expired.Save(ctx, session.Session{Token: "stale-token"})
	svc, st, _ = newService(t, expired)
	ok, err = svc.Resume(ctx)
	if err != nil || ok {
		t.Fatalf("expired resume = %v, %v", ok, err)
	}
	if _, ok := st.Token(); ok {
		t.Error("rejected token should be dropped")
	}
}
