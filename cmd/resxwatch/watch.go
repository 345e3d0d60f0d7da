package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"resxwatch/internal/app"
	"resxwatch/internal/dashboard"
	"resxwatch/internal/feed"
	"resxwatch/internal/history"
	"resxwatch/internal/render"
	"resxwatch/internal/scheduler"
	"resxwatch/pkg/storage/postgres"
)

type watchCmd struct {
	creds     credentials
	headless  bool
	dashboard string
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "live portfolio valuation" }
func (*watchCmd) Usage() string {
	return `resxwatch watch [-u <user> [-p <password>]] [-headless] [-dashboard <addr>]

  Polls prices every refresh.fast_interval and the full account every
  refresh.slow_interval, redrawing the portfolio after every tick.
  With -headless nothing is drawn; the loops then run only while at least
  one dashboard client is connected.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	c.creds.setFlags(f)
	f.BoolVar(&c.headless, "headless", false, "Do not draw to the terminal.")
	f.StringVar(&c.dashboard, "dashboard", "", "Serve the dashboard on this address (overrides dashboard.addr).")
}

func (c *watchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, err := newRuntime()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer rt.Close()

	if err := rt.signIn(ctx, c.creds); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", userMessage(err))
		return subcommands.ExitFailure
	}

	cfg := rt.cfg
	terminal := cfg.Display.Terminal && !c.headless
	if c.dashboard != "" {
		cfg.Dashboard.Enabled = true
		cfg.Dashboard.Addr = c.dashboard
	}

	var pubs app.Publishers
	if terminal {
		pubs = append(pubs, render.NewScreen(os.Stdout, cfg.Display.Currency, true))
	} else {
		pubs = append(pubs, app.PublisherFunc(func(u app.Update) { logTotals(rt.log, u) }))
	}

	var sched *scheduler.Scheduler
	var hub *dashboard.Hub
	if cfg.Dashboard.Enabled {
		hub = dashboard.NewHub(rt.log, func(n int) {
			// a headless watcher has no viewer besides dashboard clients
			if !terminal {
				sched.SetVisible(n > 0)
			}
		})
		defer hub.Close()
		pubs = append(pubs, hub)
	}

	if cfg.Postgres.Enabled {
		client, err := postgres.InitializeAndMigrate(cfg.Postgres, cfg.Log.Environment, true)
		if err != nil {
			rt.log.Error("history disabled: postgres unavailable", zap.Error(err))
		} else {
			defer client.Close()
			recorder := history.NewRecorder(client, rt.log, 16)
			recorder.StartWorker()
			defer recorder.Close()
			pubs = append(pubs, recorder)
		}
	}

	feeds := feed.New(rt.client, rt.log)
	sched = scheduler.New(feeds, rt.state, pubs, rt.log, cfg.Refresh.FastInterval, cfg.Refresh.SlowInterval)
	defer sched.Close()

	if hub != nil {
		if !terminal {
			sched.SetVisible(false)
		}
		srv := dashboard.NewServer(cfg.Dashboard.Addr, hub, rt.log)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				rt.log.Warn("dashboard shutdown error", zap.Error(err))
			}
		}()
	}

	sched.Activate()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	rt.log.Info("shutting down watcher")
	return subcommands.ExitSuccess
}

func logTotals(log *zap.Logger, u app.Update) {
	if u.Kind == app.FastTick {
		return
	}
	t := u.Valuation.Totals
	log.Info("portfolio revalued",
		zap.String("tick", u.TickID),
		zap.String("value", t.Value.StringFixed(2)),
		zap.String("profit_loss", t.ProfitLoss.StringFixed(2)),
		zap.String("profit_loss_percent", t.ProfitLossPercent.StringFixed(1)),
		zap.Int("positions", len(u.Valuation.Allocation)),
		zap.Bool("fallback_prices", u.PricesFallback),
		zap.Int("stale", u.Valuation.Stale))
}
