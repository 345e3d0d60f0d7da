package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"resxwatch/internal/app"
)

func newTestServer(t *testing.T, onCount func(int)) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(zap.NewNop(), onCount)
	srv := httptest.NewServer(NewRouter(hub))
	t.Cleanup(func() {
		srv.Close()
		hub.Close()
	})
	return hub, srv
}

// go test -v --run TestPortfolioEndpoint
func TestPortfolioEndpoint(t *testing.T) {
	hub, srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/portfolio")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status before first update = %d", resp.StatusCode)
	}

	hub.Publish(app.Update{TickID: "t-1", Kind: app.SlowTick})

	resp, err = http.Get(srv.URL + "/api/portfolio")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got app.Update
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.TickID != "t-1" || got.Kind != app.SlowTick {
		t.Errorf("unexpected update: %+v", got)
	}
}

// go test -v --run TestHealthAndMetrics
func TestHealthAndMetrics(t *testing.T) {
	_, srv := newTestServer(t, nil)

	for _, path := range []string{"/health", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d", path, resp.StatusCode)
		}
		if path == "/metrics" && !strings.Contains(string(body), "resxwatch_") {
			t.Error("metrics output missing resxwatch series")
		}
	}
}

// go test -v --run TestWebSocketBroadcast
func TestWebSocketBroadcast(t *testing.T) {
	counts := make(chan int, 8)
	hub, srv := newTestServer(t, func(n int) { counts <- n })
	hub.Publish(app.Update{TickID: "first"})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}

	select {
	case n := <-counts:
		if n != 1 {
			t.Errorf("client count = %d, want 1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("visibility callback not called")
	}

	read := func() app.Update {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var u app.Update
		if err := conn.ReadJSON(&u); err != nil {
			t.Fatal(err)
		}
		return u
	}

	if u := read(); u.TickID != "first" {
		t.Errorf("expected latest frame on connect, got %q", u.TickID)
	}
	hub.Publish(app.Update{TickID: "second"})
	if u := read(); u.TickID != "second" {
		t.Errorf("expected broadcast frame, got %q", u.TickID)
	}

	conn.Close()
	select {
	case n := <-counts:
		if n != 0 {
			t.Errorf("client count after close = %d, want 0", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect not observed")
	}
}

// go test -v --run TestFollowerReceivesAndStops
func TestFollowerReceivesAndStops(t *testing.T) {
	hub, srv := newTestServer(t, nil)
	hub.Publish(app.Update{TickID: "latest"})

	got := make(chan string, 4)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	f := NewFollower(url, func(u app.Update) { got <- u.TickID }, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	select {
	case id := <-got:
		if id != "latest" {
			t.Errorf("first update = %q, want latest", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("follower received nothing")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("follower did not stop")
	}
}
