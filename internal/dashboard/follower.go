package dashboard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"resxwatch/internal/app"
)

// Follower subscribes to a running dashboard and hands every update to a
// handler, reconnecting until its context ends.
type Follower struct {
	url     string
	handler func(app.Update)
	logger  *zap.Logger
	backoff time.Duration
}

func NewFollower(url string, handler func(app.Update), logger *zap.Logger) *Follower {
	return &Follower{url: url, handler: handler, logger: logger, backoff: 3 * time.Second}
}

// Run blocks until ctx is cancelled.
func (f *Follower) Run(ctx context.Context) error {
	for {
		err := f.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		f.logger.Warn("dashboard connection lost, retrying", zap.String("url", f.url), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(f.backoff):
		}
	}
}

func (f *Follower) listen(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return err
	}
	f.logger.Info("dashboard connected", zap.String("url", f.url))

	// unblock ReadMessage when the caller gives up
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		stop()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var u app.Update
		if err := json.Unmarshal(msg, &u); err != nil {
			f.logger.Warn("skipping malformed update", zap.Error(err))
			continue
		}
		if f.handler != nil {
			f.handler(u)
		}
	}
}
