package main

import (
	"fmt"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/shelfdesk/shelfdesk/pkg/client"
	"github.com/shelfdesk/shelfdesk/pkg/models"
	"github.com/urfave/cli/v2"
)

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
}

func listFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "limit", Usage: "page size (max 100)"},
		&cli.IntFlag{Name: "offset", Usage: "rows to skip"},
		&cli.StringFlag{Name: "search", Aliases: []string{"q"}, Usage: "case-insensitive substring filter"},
	}
}

func listParams(c *cli.Context) client.ListParams {
	return client.ListParams{
		Limit:  c.Int("limit"),
		Offset: c.Int("offset"),
		Search: c.String("search"),
	}
}

// optional returns nil for flags the user didn't pass so that edits only send
// the fields being changed.
func optional(c *cli.Context, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	v := c.String(name)
	return &v
}

func requireArg(c *cli.Context, what string) (string, error) {
	id := c.Args().First()
	if id == "" {
		return "", errors.Errorf("missing %s argument", what)
	}
	return id, nil
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func printFooter(shown, total int) {
	fmt.Printf("\n%d of %d\n", shown, total)
}

func (a *app) authorsCommand() *cli.Command {
	return &cli.Command{
		Name:  "authors",
		Usage: "manage authors",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list authors",
				Flags: listFlags(),
				Action: a.authed(func(c *cli.Context) error {
					authors, total, err := a.client.ListAuthors(c.Context, listParams(c))
					if err != nil {
						return err
					}
					w := newTable()
					fmt.Fprintln(w, "ID\tNAME\tBOOKS")
					for _, author := range authors {
						fmt.Fprintf(w, "%s\t%s\t%d\n", author.ID, author.Name, author.BookCount)
					}
					if err := w.Flush(); err != nil {
						return err
					}
					printFooter(len(authors), total)
					return nil
				}),
			},
			{
				Name:  "add",
				Usage: "add an author",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "bio"},
				},
				Action: a.authed(func(c *cli.Context) error {
					author, err := a.client.CreateAuthor(c.Context, client.AuthorInput{
						Name: optional(c, "name"),
						Bio:  optional(c, "bio"),
					})
					if err != nil {
						return err
					}
					fmt.Printf("Created author %s (%s)\n", author.Name, author.ID)
					return nil
				}),
			},
			{
				Name:      "edit",
				Usage:     "change an author",
				ArgsUsage: "AUTHOR_ID",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "bio"},
				},
				Action: a.authed(func(c *cli.Context) error {
					id, err := requireArg(c, "AUTHOR_ID")
					if err != nil {
						return err
					}
					author, err := a.client.UpdateAuthor(c.Context, id, client.AuthorInput{
						Name: optional(c, "name"),
						Bio:  optional(c, "bio"),
					})
					if err != nil {
						return err
					}
					fmt.Printf("Updated author %s (%s)\n", author.Name, author.ID)
					return nil
				}),
			},
			{
				Name:      "rm",
				Usage:     "delete an author and their books",
				ArgsUsage: "AUTHOR_ID",
				Action: a.authed(func(c *cli.Context) error {
					id, err := requireArg(c, "AUTHOR_ID")
					if err != nil {
						return err
					}
					if err := a.client.DeleteAuthor(c.Context, id); err != nil {
						return err
					}
					fmt.Printf("Deleted author %s\n", id)
					return nil
				}),
			},
		},
	}
}

func bookFlags(required bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Required: required},
		&cli.StringFlag{Name: "author", Usage: "author ID", Required: required},
		&cli.StringFlag{Name: "isbn"},
		&cli.StringFlag{Name: "description"},
		&cli.StringFlag{Name: "published", Usage: "publication date, YYYY-MM-DD"},
	}
}

func bookInput(c *cli.Context) client.BookInput {
	return client.BookInput{
		Title:       optional(c, "title"),
		AuthorID:    optional(c, "author"),
		ISBN:        optional(c, "isbn"),
		Description: optional(c, "description"),
		PublishedAt: optional(c, "published"),
	}
}

func (a *app) booksCommand() *cli.Command {
	return &cli.Command{
		Name:  "books",
		Usage: "manage books",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list books",
				Flags: append(listFlags(),
					&cli.StringFlag{Name: "author", Usage: "only books by this author ID"},
					&cli.BoolFlag{Name: "borrowed", Usage: "only books that are out"},
					&cli.BoolFlag{Name: "available", Usage: "only books on the shelf"},
				),
				Action: a.authed(func(c *cli.Context) error {
					params := listParams(c)
					params.Extra = url.Values{}
					if author := c.String("author"); author != "" {
						params.Extra.Set("authorId", author)
					}
					switch {
					case c.Bool("borrowed"):
						params.Extra.Set("isBorrowed", "true")
					case c.Bool("available"):
						params.Extra.Set("isBorrowed", "false")
					}

					books, total, err := a.client.ListBooks(c.Context, params)
					if err != nil {
						return err
					}
					w := newTable()
					fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tBORROWED")
					for _, book := range books {
						author := "-"
						if book.Author != nil {
							author = book.Author.Name
						}
						fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", book.ID, book.Title, author, book.IsBorrowed)
					}
					if err := w.Flush(); err != nil {
						return err
					}
					printFooter(len(books), total)
					return nil
				}),
			},
			{
				Name:      "show",
				Usage:     "show one book",
				ArgsUsage: "BOOK_ID",
				Action: a.authed(func(c *cli.Context) error {
					id, err := requireArg(c, "BOOK_ID")
					if err != nil {
						return err
					}
					book, err := a.client.GetBook(c.Context, id)
					if err != nil {
						return err
					}
					author := book.AuthorID
					if book.Author != nil {
						author = book.Author.Name
					}
					w := newTable()
					fmt.Fprintf(w, "ID\t%s\n", book.ID)
					fmt.Fprintf(w, "Title\t%s\n", book.Title)
					fmt.Fprintf(w, "Author\t%s\n", author)
					fmt.Fprintf(w, "ISBN\t%s\n", deref(book.ISBN))
					fmt.Fprintf(w, "Published\t%s\n", client.FormatDate(book.PublishedAt))
					fmt.Fprintf(w, "Borrowed\t%t\n", book.IsBorrowed)
					fmt.Fprintf(w, "Description\t%s\n", deref(book.Description))
					return w.Flush()
				}),
			},
			{
				Name:  "add",
				Usage: "add a book",
				Flags: bookFlags(true),
				Action: a.authed(func(c *cli.Context) error {
					book, err := a.client.CreateBook(c.Context, bookInput(c))
					if err != nil {
						return err
					}
					fmt.Printf("Created book %s (%s)\n", book.Title, book.ID)
					return nil
				}),
			},
			{
				Name:      "edit",
				Usage:     "change a book",
				ArgsUsage: "BOOK_ID",
				Flags:     bookFlags(false),
				Action: a.authed(func(c *cli.Context) error {
					id, err := requireArg(c, "BOOK_ID")
					if err != nil {
						return err
					}
					book, err := a.client.UpdateBook(c.Context, id, bookInput(c))
					if err != nil {
						return err
					}
					fmt.Printf("Updated book %s (%s)\n", book.Title, book.ID)
					return nil
				}),
			},
			{
				Name:      "rm",
				Usage:     "delete a book",
				ArgsUsage: "BOOK_ID",
				Action: a.authed(func(c *cli.Context) error {
					id, err := requireArg(c, "BOOK_ID")
					if err != nil {
						return err
					}
					if err := a.client.DeleteBook(c.Context, id); err != nil {
						return err
					}
					fmt.Printf("Deleted book %s\n", id)
					return nil
				}),
			},
		},
	}
}

func userFlags(required bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name", Required: required},
		&cli.StringFlag{Name: "email", Required: required},
		&cli.StringFlag{Name: "phone"},
	}
}

func userInput(c *cli.Context) client.UserInput {
	return client.UserInput{
		Name:  optional(c, "name"),
		Email: optional(c, "email"),
		Phone: optional(c, "phone"),
	}
}

func (a *app) usersCommand() *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "manage library members",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list members",
				Flags: listFlags(),
				Action: a.authed(func(c *cli.Context) error {
					users, total, err := a.client.ListUsers(c.Context, listParams(c))
					if err != nil {
						return err
					}
					w := newTable()
					fmt.Fprintln(w, "ID\tNAME\tEMAIL\tACTIVE\tTOTAL")
					for _, user := range users {
						fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", user.ID, user.Name, user.Email, user.ActiveBorrowCount, user.BorrowCount)
					}
					if err := w.Flush(); err != nil {
						return err
					}
					printFooter(len(users), total)
					return nil
				}),
			},
			{
				Name:  "add",
				Usage: "add a member",
				Flags: userFlags(true),
				Action: a.authed(func(c *cli.Context) error {
					user, err := a.client.CreateUser(c.Context, userInput(c))
					if err != nil {
						return err
					}
					fmt.Printf("Created member %s (%s)\n", user.Name, user.ID)
					return nil
				}),
			},
			{
				Name:      "edit",
				Usage:     "change a member",
				ArgsUsage: "USER_ID",
				Flags:     userFlags(false),
				Action: a.authed(func(c *cli.Context) error {
					id, err := requireArg(c, "USER_ID")
					if err != nil {
						return err
					}
					user, err := a.client.UpdateUser(c.Context, id, userInput(c))
					if err != nil {
						return err
					}
					fmt.Printf("Updated member %s (%s)\n", user.Name, user.ID)
					return nil
				}),
			},
			{
				Name:      "rm",
				Usage:     "delete a member and their borrow history",
				ArgsUsage: "USER_ID",
				Action: a.authed(func(c *cli.Context) error {
					id, err := requireArg(c, "USER_ID")
					if err != nil {
						return err
					}
					if err := a.client.DeleteUser(c.Context, id); err != nil {
						return err
					}
					fmt.Printf("Deleted member %s\n", id)
					return nil
				}),
			},
			{
				Name:      "borrows",
				Usage:     "list what a member currently has out",
				ArgsUsage: "USER_ID",
				Action: a.authed(func(c *cli.Context) error {
					id, err := requireArg(c, "USER_ID")
					if err != nil {
						return err
					}
					borrows, err := a.client.ListUserBorrows(c.Context, id)
					if err != nil {
						return err
					}
					return printBorrows(borrows)
				}),
			},
		},
	}
}

func (a *app) borrowsCommand() *cli.Command {
	return &cli.Command{
		Name:  "borrows",
		Usage: "lend and take back books",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list borrows",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit"},
					&cli.IntFlag{Name: "offset"},
					&cli.StringFlag{Name: "status", Usage: "active, returned, or all", Value: "active"},
					&cli.BoolFlag{Name: "overdue", Usage: "only active borrows past their due date"},
				},
				Action: a.authed(func(c *cli.Context) error {
					borrows, total, err := a.client.ListBorrows(c.Context, client.BorrowFilter{
						ListParams: client.ListParams{Limit: c.Int("limit"), Offset: c.Int("offset")},
						Status:     c.String("status"),
						Overdue:    c.Bool("overdue"),
					})
					if err != nil {
						return err
					}
					if err := printBorrows(borrows); err != nil {
						return err
					}
					printFooter(len(borrows), total)
					return nil
				}),
			},
			{
				Name:  "borrow",
				Usage: "lend a book to a member",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Usage: "member ID", Required: true},
					&cli.StringFlag{Name: "book", Usage: "book ID", Required: true},
					&cli.StringFlag{Name: "due", Usage: "YYYY-MM-DD or RFC 3339"},
				},
				Action: a.authed(func(c *cli.Context) error {
					borrow, err := a.client.Borrow(c.Context, client.BorrowInput{
						UserID: c.String("user"),
						BookID: c.String("book"),
						DueAt:  c.String("due"),
					})
					if err != nil {
						return err
					}
					fmt.Printf("Borrow %s created, due %s\n", borrow.ID, client.FormatDate(borrow.DueAt))
					return nil
				}),
			},
			{
				Name:      "return",
				Usage:     "take a book back",
				ArgsUsage: "BORROW_ID",
				Action: a.authed(func(c *cli.Context) error {
					id, err := requireArg(c, "BORROW_ID")
					if err != nil {
						return err
					}
					borrow, err := a.client.Return(c.Context, id)
					if err != nil {
						return err
					}
					fmt.Printf("Borrow %s returned on %s\n", borrow.ID, client.FormatDate(borrow.ReturnedAt))
					return nil
				}),
			},
		},
	}
}

func printBorrows(borrows []*models.Borrow) error {
	w := newTable()
	fmt.Fprintln(w, "ID\tBOOK\tMEMBER\tBORROWED\tDUE\tRETURNED\tOVERDUE")
	for _, b := range borrows {
		book, member := b.BookID, b.UserID
		if b.Book != nil {
			book = b.Book.Title
		}
		if b.User != nil {
			member = b.User.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
			b.ID, book, member,
			client.FormatDate(&b.BorrowedAt), client.FormatDate(b.DueAt), client.FormatDate(b.ReturnedAt),
			b.IsOverdue)
	}
	return w.Flush()
}
