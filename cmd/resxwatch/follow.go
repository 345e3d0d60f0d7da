package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/subcommands"

	"resxwatch/internal/dashboard"
	"resxwatch/internal/render"
)

type followCmd struct {
	url string
}

func (*followCmd) Name() string     { return "follow" }
func (*followCmd) Synopsis() string { return "render the portfolio of a running headless watcher" }
func (*followCmd) Usage() string {
	return `resxwatch follow [-url ws://host:port/ws]

  Connects to the dashboard of 'watch -headless' and redraws every update.
  While at least one follower is connected the watcher keeps refreshing.
`
}

func (c *followCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.url, "url", "", "Dashboard WebSocket URL. Defaults to dashboard.addr.")
}

func (c *followCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, err := newRuntime()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer rt.Close()

	url := c.url
	if url == "" {
		addr := rt.cfg.Dashboard.Addr
		if strings.HasPrefix(addr, ":") {
			addr = "localhost" + addr
		}
		url = "ws://" + addr + "/ws"
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	screen := render.NewScreen(os.Stdout, rt.cfg.Display.Currency, true)
	if err := dashboard.NewFollower(url, screen.Publish, rt.log).Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
