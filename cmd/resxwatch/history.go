package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"resxwatch/internal/render"
	"resxwatch/pkg/storage/postgres"
)

type historyCmd struct {
	creds credentials
	user  string
	limit int
	txs   bool
	prune time.Duration
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list recorded portfolio valuations" }
func (*historyCmd) Usage() string {
	return `resxwatch history [-user <name>] [-n <rows>] [-tx] [-prune <age>]

  Reads the valuations written by 'watch' on every full refresh. Requires
  postgres.enabled. Without -user the signed-in account is used.
  -tx lists the mirrored trades instead. -prune deletes valuations older
  than the given age (e.g. 720h) and exits.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	c.creds.setFlags(f)
	f.StringVar(&c.user, "user", "", "Account to report on.")
	f.IntVar(&c.limit, "n", 10, "Number of refreshes (or trades with -tx) to show.")
	f.BoolVar(&c.txs, "tx", false, "List recorded trades.")
	f.DurationVar(&c.prune, "prune", 0, "Delete valuations older than this age.")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, err := newRuntime()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer rt.Close()

	if !rt.cfg.Postgres.Enabled {
		fmt.Fprintln(os.Stderr, "Error: postgres.enabled is false, no history is recorded")
		return subcommands.ExitFailure
	}

	if c.prune > 0 {
		return c.runPrune(ctx, rt)
	}

	username := c.user
	if username == "" {
		if err := rt.signIn(ctx, c.creds); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", userMessage(err))
			return subcommands.ExitUsageError
		}
		u, ok := rt.state.User.Get()
		if !ok {
			fmt.Fprintln(os.Stderr, "Error: could not determine the signed-in user, pass -user")
			return subcommands.ExitFailure
		}
		username = u.Username
	}

	client, err := postgres.InitializeAndMigrate(rt.cfg.Postgres, rt.cfg.Log.Environment, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer client.Close()

	f := render.NewFormatter(rt.cfg.Display.Currency)
	if c.txs {
		return printTransactions(ctx, client, f, username, c.limit)
	}

	batches, err := client.LatestBatches(ctx, username, c.limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if len(batches) == 0 {
		fmt.Println("No valuations recorded yet.")
		return subcommands.ExitSuccess
	}

	for _, b := range batches {
		fmt.Printf("%s  total %s\n", b.RecordedAt.Local().Format("2006-01-02 15:04:05"), f.Money(b.Total()))
		for _, r := range b.Records {
			marker := ""
			if r.Stale || r.FallbackPrices {
				marker = " *"
			}
			fmt.Printf("    %-4s %10s @ %-12s %12s  %s%s\n", r.Symbol, render.Quantity(r.Quantity),
				f.Money(r.Price), f.Money(r.Value), f.SignedMoney(r.ProfitLoss), marker)
		}
	}
	return subcommands.ExitSuccess
}

func (c *historyCmd) runPrune(ctx context.Context, rt *runtime) subcommands.ExitStatus {
	client, err := postgres.InitializeAndMigrate(rt.cfg.Postgres, rt.cfg.Log.Environment, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer client.Close()

	n, err := client.DeleteValuationsBefore(ctx, time.Now().Add(-c.prune))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("Deleted %d valuation rows older than %s\n", n, c.prune)
	return subcommands.ExitSuccess
}

func printTransactions(ctx context.Context, client *postgres.PostgresClient, f render.Formatter,
	username string, limit int) subcommands.ExitStatus {
	rows, err := client.RecentTransactions(ctx, username, limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if len(rows) == 0 {
		fmt.Println("No trades recorded yet.")
		return subcommands.ExitSuccess
	}
	for _, r := range rows {
		fmt.Printf("%s  %-4s %-4s %10s @ %-12s %12s\n", r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			strings.ToUpper(r.Side), r.Symbol, render.Quantity(r.Quantity), f.Money(r.Price), f.Money(r.TotalValue))
	}
	return subcommands.ExitSuccess
}
