package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shelfdesk/shelfdesk/pkg/models"
	"github.com/shelfdesk/shelfdesk/pkg/stats"
)

type sessionResponse struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}

// ListParams are the paging and filter parameters shared by list calls. Zero
// values are left out of the query.
type ListParams struct {
	Limit  int
	Offset int
	Search string
	Extra  url.Values
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		v.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	for k, vals := range p.Extra {
		for _, val := range vals {
			v.Add(k, val)
		}
	}
	return v
}

// Register creates an admin account and starts a session for it.
func (c *Client) Register(ctx context.Context, email, name, password string) (*Profile, error) {
	resp := sessionResponse{}
	body := map[string]string{"email": email, "name": name, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, body, &resp); err != nil {
		return nil, err
	}
	return c.startSession(resp)
}

// Login exchanges credentials for a token and starts a session.
func (c *Client) Login(ctx context.Context, email, password string) (*Profile, error) {
	resp := sessionResponse{}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &resp); err != nil {
		return nil, err
	}
	return c.startSession(resp)
}

func (c *Client) startSession(resp sessionResponse) (*Profile, error) {
	if c.session == nil {
		return &resp.User, nil
	}
	err := c.session.Start(&Credentials{Server: c.baseURL, Token: resp.Token, Admin: resp.User})
	if err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Logout ends the local session. The server call only clears its cookie, so a
// failure there doesn't keep the session alive.
func (c *Client) Logout(ctx context.Context) error {
	serverErr := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
	if c.session != nil {
		if err := c.session.End(); err != nil {
			return err
		}
	}
	return serverErr
}

func (c *Client) Me(ctx context.Context) (*Profile, error) {
	p := &Profile{}
	return p, c.do(ctx, http.MethodGet, "/auth/me", nil, nil, p)
}

func (c *Client) Stats(ctx context.Context) (*stats.Stats, error) {
	s := &stats.Stats{}
	return s, c.do(ctx, http.MethodGet, "/stats", nil, nil, s)
}

// Authors

type AuthorInput struct {
	Name *string `json:"name,omitempty"`
	Bio  *string `json:"bio,omitempty"`
}

func (c *Client) ListAuthors(ctx context.Context, params ListParams) ([]*models.Author, int, error) {
	resp := struct {
		Authors []*models.Author `json:"authors"`
		Total   int              `json:"total"`
	}{}
	err := c.do(ctx, http.MethodGet, "/authors", params.values(), nil, &resp)
	return resp.Authors, resp.Total, err
}

func (c *Client) GetAuthor(ctx context.Context, id string) (*models.Author, error) {
	a := &models.Author{}
	return a, c.do(ctx, http.MethodGet, "/authors/"+url.PathEscape(id), nil, nil, a)
}

func (c *Client) CreateAuthor(ctx context.Context, in AuthorInput) (*models.Author, error) {
	a := &models.Author{}
	return a, c.do(ctx, http.MethodPost, "/authors", nil, in, a)
}

func (c *Client) UpdateAuthor(ctx context.Context, id string, in AuthorInput) (*models.Author, error) {
	a := &models.Author{}
	return a, c.do(ctx, http.MethodPatch, "/authors/"+url.PathEscape(id), nil, in, a)
}

func (c *Client) DeleteAuthor(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/authors/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) ListAuthorBooks(ctx context.Context, id string) ([]*models.Book, error) {
	resp := struct {
		Books []*models.Book `json:"books"`
	}{}
	err := c.do(ctx, http.MethodGet, "/authors/"+url.PathEscape(id)+"/books", nil, nil, &resp)
	return resp.Books, err
}

// Books

type BookInput struct {
	Title       *string `json:"title,omitempty"`
	AuthorID    *string `json:"authorId,omitempty"`
	ISBN        *string `json:"isbn,omitempty"`
	Description *string `json:"description,omitempty"`
	// PublishedAt is YYYY-MM-DD.
	PublishedAt *string `json:"publishedAt,omitempty"`
}

func (c *Client) ListBooks(ctx context.Context, params ListParams) ([]*models.Book, int, error) {
	resp := struct {
		Books []*models.Book `json:"books"`
		Total int            `json:"total"`
	}{}
	err := c.do(ctx, http.MethodGet, "/books", params.values(), nil, &resp)
	return resp.Books, resp.Total, err
}

func (c *Client) GetBook(ctx context.Context, id string) (*models.Book, error) {
	b := &models.Book{}
	return b, c.do(ctx, http.MethodGet, "/books/"+url.PathEscape(id), nil, nil, b)
}

func (c *Client) CreateBook(ctx context.Context, in BookInput) (*models.Book, error) {
	b := &models.Book{}
	return b, c.do(ctx, http.MethodPost, "/books", nil, in, b)
}

func (c *Client) UpdateBook(ctx context.Context, id string, in BookInput) (*models.Book, error) {
	b := &models.Book{}
	return b, c.do(ctx, http.MethodPatch, "/books/"+url.PathEscape(id), nil, in, b)
}

func (c *Client) DeleteBook(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/books/"+url.PathEscape(id), nil, nil, nil)
}

// Users

type UserInput struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

func (c *Client) ListUsers(ctx context.Context, params ListParams) ([]*models.User, int, error) {
	resp := struct {
		Users []*models.User `json:"users"`
		Total int            `json:"total"`
	}{}
	err := c.do(ctx, http.MethodGet, "/users", params.values(), nil, &resp)
	return resp.Users, resp.Total, err
}

func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	u := &models.User{}
	return u, c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, nil, u)
}

func (c *Client) CreateUser(ctx context.Context, in UserInput) (*models.User, error) {
	u := &models.User{}
	return u, c.do(ctx, http.MethodPost, "/users", nil, in, u)
}

func (c *Client) UpdateUser(ctx context.Context, id string, in UserInput) (*models.User, error) {
	u := &models.User{}
	return u, c.do(ctx, http.MethodPatch, "/users/"+url.PathEscape(id), nil, in, u)
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil, nil)
}

// Borrows

type BorrowInput struct {
	UserID string `json:"userId"`
	BookID string `json:"bookId"`
	// DueAt is YYYY-MM-DD or RFC 3339.
	DueAt string `json:"dueAt,omitempty"`
}

type BorrowFilter struct {
	ListParams
	// Status is active, returned or all. The server defaults to active.
	Status  string
	Overdue bool
}

func (c *Client) Borrow(ctx context.Context, in BorrowInput) (*models.Borrow, error) {
	b := &models.Borrow{}
	return b, c.do(ctx, http.MethodPost, "/borrows/borrow", nil, in, b)
}

func (c *Client) Return(ctx context.Context, borrowID string) (*models.Borrow, error) {
	b := &models.Borrow{}
	return b, c.do(ctx, http.MethodPost, "/borrows/return/"+url.PathEscape(borrowID), nil, nil, b)
}

func (c *Client) GetBorrow(ctx context.Context, id string) (*models.Borrow, error) {
	b := &models.Borrow{}
	return b, c.do(ctx, http.MethodGet, "/borrows/"+url.PathEscape(id), nil, nil, b)
}

func (c *Client) ListBorrows(ctx context.Context, filter BorrowFilter) ([]*models.Borrow, int, error) {
	q := filter.values()
	if filter.Status != "" {
		q.Set("status", filter.Status)
	}
	if filter.Overdue {
		q.Set("overdue", "true")
	}

	resp := struct {
		Borrows []*models.Borrow `json:"borrows"`
		Total   int              `json:"total"`
	}{}
	err := c.do(ctx, http.MethodGet, "/borrows", q, nil, &resp)
	return resp.Borrows, resp.Total, err
}

func (c *Client) ListUserBorrows(ctx context.Context, userID string) ([]*models.Borrow, error) {
	resp := struct {
		Borrows []*models.Borrow `json:"borrows"`
	}{}
	err := c.do(ctx, http.MethodGet, "/borrows/users/"+url.PathEscape(userID)+"/borrowed", nil, nil, &resp)
	return resp.Borrows, err
}

// FormatDate renders an optional time as YYYY-MM-DD, or "-".
func FormatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format("2006-01-02")
}
