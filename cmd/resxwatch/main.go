package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&watchCmd{}, "")
	commander.Register(&tradeCmd{}, "")
	commander.Register(&historyCmd{}, "")
	commander.Register(&followCmd{}, "")

	commander.Register(&loginCmd{}, "account")
	commander.Register(&registerCmd{}, "account")
	commander.Register(&logoutCmd{}, "account")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
