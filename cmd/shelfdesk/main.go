package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/shelfdesk/shelfdesk/pkg/client"
	"github.com/shelfdesk/shelfdesk/pkg/version"
	"github.com/urfave/cli/v2"
)

const defaultServer = "http://localhost:3000"

var (
	errNotLoggedIn     = errors.New("not logged in, run `shelfdesk login`")
	errAlreadyLoggedIn = errors.New("already logged in, run `shelfdesk logout` first")
)

// app is shared by every command. Before fills it in once flags are parsed.
type app struct {
	session *client.Session
	client  *client.Client
}

func main() {
	a := &app{}

	cliApp := &cli.App{
		Name:    "shelfdesk",
		Usage:   "manage a shelfdesk library from the terminal",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "API base URL",
				EnvVars: []string{"SHELFDESK_SERVER"},
			},
			&cli.StringFlag{
				Name:    "credentials",
				Usage:   "path of the credentials file",
				EnvVars: []string{"SHELFDESK_CREDENTIALS"},
			},
		},
		Before: a.setup,
		Commands: []*cli.Command{
			{
				Name:   "register",
				Usage:  "create an admin account and log in",
				Flags:  []cli.Flag{emailFlag(), nameFlag(true), passwordFlag()},
				Action: a.guest(a.register),
			},
			{
				Name:   "login",
				Usage:  "log in as an admin",
				Flags:  []cli.Flag{emailFlag(), passwordFlag()},
				Action: a.guest(a.login),
			},
			{
				Name:   "logout",
				Usage:  "forget the stored credentials",
				Action: a.authed(a.logout),
			},
			{
				Name:   "whoami",
				Usage:  "show the logged in admin",
				Action: a.authed(a.whoami),
			},
			{
				Name:   "stats",
				Usage:  "show library counts",
				Action: a.authed(a.stats),
			},
			a.authorsCommand(),
			a.booksCommand(),
			a.usersCommand(),
			a.borrowsCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func (a *app) setup(c *cli.Context) error {
	path := c.String("credentials")
	if path == "" {
		p, err := client.DefaultCredentialsPath()
		if err != nil {
			return err
		}
		path = p
	}

	session, err := client.NewSession(client.NewFileStore(path))
	if err != nil {
		return err
	}

	a.session = session
	a.client = client.New(resolveServer(c.String("server"), session.Credentials()), session)
	return nil
}

// resolveServer prefers an explicit flag, then the server the stored session
// was started against.
func resolveServer(flag string, creds *client.Credentials) string {
	if flag != "" {
		return flag
	}
	if creds != nil && creds.Server != "" {
		return creds.Server
	}
	return defaultServer
}

func (a *app) authed(action cli.ActionFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		return client.RequireCredential(
			a.session.HasCredential,
			func() error { return errNotLoggedIn },
			func() error { return action(c) },
		)
	}
}

func (a *app) guest(action cli.ActionFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		return client.RedirectIfAuthenticated(
			a.session.HasCredential,
			func() error { return errAlreadyLoggedIn },
			func() error { return action(c) },
		)
	}
}
