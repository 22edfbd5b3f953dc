package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

func emailFlag() cli.Flag {
	return &cli.StringFlag{Name: "email", Usage: "admin email", Required: true}
}

func nameFlag(required bool) cli.Flag {
	return &cli.StringFlag{Name: "name", Usage: "display name", Required: required}
}

func passwordFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "password",
		Usage:   "password, prompted for when not set",
		EnvVars: []string{"SHELFDESK_PASSWORD"},
	}
}

func (a *app) register(c *cli.Context) error {
	password, err := readPassword(c)
	if err != nil {
		return err
	}

	profile, err := a.client.Register(c.Context, c.String("email"), c.String("name"), password)
	if err != nil {
		return err
	}

	fmt.Printf("Registered and logged in as %s <%s>\n", profile.Name, profile.Email)
	return nil
}

func (a *app) login(c *cli.Context) error {
	password, err := readPassword(c)
	if err != nil {
		return err
	}

	profile, err := a.client.Login(c.Context, c.String("email"), password)
	if err != nil {
		return err
	}

	fmt.Printf("Logged in as %s <%s>\n", profile.Name, profile.Email)
	return nil
}

func (a *app) logout(c *cli.Context) error {
	if err := a.client.Logout(c.Context); err != nil {
		// The local session is gone either way.
		fmt.Fprintf(os.Stderr, "warning: %s\n", err)
	}
	fmt.Println("Logged out")
	return nil
}

func (a *app) whoami(c *cli.Context) error {
	profile, err := a.client.Me(c.Context)
	if err != nil {
		return err
	}

	fmt.Printf("%s <%s>\n", profile.Name, profile.Email)
	fmt.Printf("id:     %s\n", profile.ID)
	fmt.Printf("server: %s\n", a.client.BaseURL())
	return nil
}

func (a *app) stats(c *cli.Context) error {
	s, err := a.client.Stats(c.Context)
	if err != nil {
		return err
	}

	w := newTable()
	fmt.Fprintf(w, "Authors\t%d\n", s.Authors)
	fmt.Fprintf(w, "Books\t%d\n", s.Books)
	fmt.Fprintf(w, "Borrowed books\t%d\n", s.BorrowedBooks)
	fmt.Fprintf(w, "Members\t%d\n", s.Users)
	fmt.Fprintf(w, "Active borrows\t%d\n", s.ActiveBorrows)
	fmt.Fprintf(w, "Overdue borrows\t%d\n", s.OverdueBorrows)
	return w.Flush()
}

func readPassword(c *cli.Context) (string, error) {
	if p := c.String("password"); p != "" {
		return p, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", errors.Wrap(err, "reading password from stdin")
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return string(b), nil
}
