package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"resxwatch/internal/feed"
	"resxwatch/internal/model"
	"resxwatch/internal/render"
	"resxwatch/internal/scheduler"
	"resxwatch/internal/trading"
)

type tradeCmd struct {
	creds    credentials
	symbol   string
	quantity string
	side     string
}

func (*tradeCmd) Name() string     { return "trade" }
func (*tradeCmd) Synopsis() string { return "buy or sell a resource" }
func (*tradeCmd) Usage() string {
	return `resxwatch trade -s <symbol> -q <quantity> [-side buy|sell] [-u <user> [-p <password>]]

  Submits one order, then prints the refreshed portfolio. Rejections are
  shown with the exchange's reason. Orders are never retried.
`
}

func (c *tradeCmd) SetFlags(f *flag.FlagSet) {
	c.creds.setFlags(f)
	f.StringVar(&c.symbol, "s", "", "Resource symbol, e.g. ENG.")
	f.StringVar(&c.quantity, "q", "", "Quantity to trade.")
	f.StringVar(&c.side, "side", "buy", "buy or sell.")
}

func (c *tradeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	qty, err := decimal.NewFromString(c.quantity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid quantity %q\n", c.quantity)
		return subcommands.ExitUsageError
	}

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

	// the post-trade refresh publishes one frame to stdout
	screen := render.NewScreen(os.Stdout, rt.cfg.Display.Currency, false)
	sched := scheduler.New(feed.New(rt.client, rt.log), rt.state, screen, rt.log,
		rt.cfg.Refresh.FastInterval, rt.cfg.Refresh.SlowInterval)
	defer sched.Close()

	trader := trading.NewTrader(rt.client, rt.state, sched, rt.log)
	res, err := trader.Submit(ctx, trading.Order{
		Symbol:   c.symbol,
		Quantity: qty,
		Side:     model.TradeSide(strings.ToLower(c.side)),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Trade failed:", trading.UserMessage(err))
		return subcommands.ExitFailure
	}

	fmt.Println(res.Message)
	if res.Balance != nil {
		fmt.Println("Cash balance:", render.NewFormatter(rt.cfg.Display.Currency).Money(*res.Balance))
	}
	return subcommands.ExitSuccess
}
