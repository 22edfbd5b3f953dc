package books

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfdesk/shelfdesk/pkg/auth"
	"github.com/shelfdesk/shelfdesk/pkg/models"
)

const dateLayout = "2006-01-02"

type handler struct {
	bookService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	adminID, err := auth.AdminID(c)
	if err != nil {
		return err
	}

	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	book := &models.Book{
		Title:       params.Title,
		AuthorID:    params.AuthorID,
		AdminID:     adminID,
		ISBN:        nilIfEmpty(params.ISBN),
		Description: nilIfEmpty(params.Description),
		PublishedAt: parseDate(params.PublishedAt),
	}
	if err := h.bookService.CreateBook(ctx, book); err != nil {
		return errors.WithStack(err)
	}

	book, err = h.bookService.RetrieveBook(ctx, RetrieveBookOptions{ID: book.ID, AdminID: adminID})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, book))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	adminID, err := auth.AdminID(c)
	if err != nil {
		return err
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID:      c.Param("id"),
		AdminID: adminID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	adminID, err := auth.AdminID(c)
	if err != nil {
		return err
	}

	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	books, total, err := h.bookService.ListBooksWithTotal(ctx, ListBooksOptions{
		Limit:      &params.Limit,
		Offset:     &params.Offset,
		AdminID:    adminID,
		AuthorID:   params.AuthorID,
		IsBorrowed: params.IsBorrowed,
		Search:     params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Books []*models.Book `json:"books"`
		Total int            `json:"total"`
	}{books, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	adminID, err := auth.AdminID(c)
	if err != nil {
		return err
	}

	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := RetrieveBookOptions{ID: c.Param("id"), AdminID: adminID}
	book, err := h.bookService.RetrieveBook(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	update := UpdateBookOptions{Columns: []string{}}
	if params.Title != nil && *params.Title != book.Title {
		book.Title = *params.Title
		update.Columns = append(update.Columns, "title")
	}
	if params.AuthorID != nil && *params.AuthorID != book.AuthorID {
		book.AuthorID = *params.AuthorID
		update.Columns = append(update.Columns, "author_id")
	}
	if params.ISBN != nil {
		book.ISBN = nilIfEmpty(params.ISBN)
		update.Columns = append(update.Columns, "isbn")
	}
	if params.Description != nil {
		book.Description = nilIfEmpty(params.Description)
		update.Columns = append(update.Columns, "description")
	}
	if params.PublishedAt != nil {
		book.PublishedAt = parseDate(params.PublishedAt)
		update.Columns = append(update.Columns, "published_at")
	}

	if err := h.bookService.UpdateBook(ctx, book, update); err != nil {
		return errors.WithStack(err)
	}

	book, err = h.bookService.RetrieveBook(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()

	adminID, err := auth.AdminID(c)
	if err != nil {
		return err
	}

	if err := h.bookService.DeleteBook(ctx, c.Param("id"), adminID); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func nilIfEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// parseDate expects a value that already passed the date validator.
func parseDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.ParseInLocation(dateLayout, *s, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}
