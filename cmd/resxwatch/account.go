package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"resxwatch/internal/render"
)

type loginCmd struct {
	creds credentials
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "sign in and save the session" }
func (*loginCmd) Usage() string {
	return `resxwatch login -u <user> [-p <password>]

  Saves the bearer token in the configured session store. With the memory
  backend the session ends with the process; use session.backend=redis to
  share it between commands.
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) { c.creds.setFlags(f) }

func (c *loginCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.creds.username == "" {
		fmt.Fprintln(os.Stderr, "Error: -u is required")
		return subcommands.ExitUsageError
	}
	rt, err := newRuntime()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer rt.Close()

	user, err := rt.accounts.Login(ctx, c.creds.username, c.creds.pass())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Login failed:", userMessage(err))
		return subcommands.ExitFailure
	}
	fmt.Printf("Signed in as %s (cash %s)\n", user.Username,
		render.NewFormatter(rt.cfg.Display.Currency).Money(user.Balance))
	if rt.cfg.Session.Backend == "memory" {
		fmt.Fprintln(os.Stderr, "note: session.backend is memory, the session is not kept after exit")
	}
	return subcommands.ExitSuccess
}

type registerCmd struct {
	username string
	email    string
	password string
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "create an exchange account" }
func (*registerCmd) Usage() string {
	return `resxwatch register -u <user> -email <email> [-p <password>]
`
}

func (c *registerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "u", "", "Username.")
	f.StringVar(&c.email, "email", "", "Email address.")
	f.StringVar(&c.password, "p", "", "Password. Defaults to $RESXWATCH_PASSWORD.")
}

func (c *registerCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, err := newRuntime()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer rt.Close()

	password := c.password
	if password == "" {
		password = os.Getenv("RESXWATCH_PASSWORD")
	}
	msg, err := rt.accounts.Register(ctx, c.username, c.email, password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Registration failed:", userMessage(err))
		return subcommands.ExitFailure
	}
	fmt.Println(msg)
	return subcommands.ExitSuccess
}

type logoutCmd struct{}

func (*logoutCmd) Name() string             { return "logout" }
func (*logoutCmd) Synopsis() string         { return "forget the saved session" }
func (*logoutCmd) Usage() string            { return "resxwatch logout\n" }
func (*logoutCmd) SetFlags(_ *flag.FlagSet) {}

func (*logoutCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	rt, err := newRuntime()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer rt.Close()

	if err := rt.accounts.Logout(ctx, nil); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Println("Signed out.")
	return subcommands.ExitSuccess
}
