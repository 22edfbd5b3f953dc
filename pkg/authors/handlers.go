package authors

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfdesk/shelfdesk/pkg/auth"
	"github.com/shelfdesk/shelfdesk/pkg/models"
)

type handler struct {
	authorService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	adminID, err := auth.AdminID(c)
	if err != nil {
		return err
	}

	params := CreateAuthorPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	author := &models.Author{
		Name:    params.Name,
		Bio:     params.Bio,
		AdminID: adminID,
	}
	if err := h.authorService.CreateAuthor(ctx, author); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, author))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	adminID, err := auth.AdminID(c)
	if err != nil {
		return err
	}

	author, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{
		ID:      c.Param("id"),
		AdminID: adminID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, author))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	adminID, err := auth.AdminID(c)
	if err != nil {
		return err
	}

	params := ListAuthorsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	authors, total, err := h.authorService.ListAuthorsWithTotal(ctx, ListAuthorsOptions{
		Limit:   &params.Limit,
		Offset:  &params.Offset,
		AdminID: adminID,
		Search:  params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Authors []*models.Author `json:"authors"`
		Total   int              `json:"total"`
	}{authors, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	adminID, err := auth.AdminID(c)
	if err != nil {
		return err
	}

	params := UpdateAuthorPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := RetrieveAuthorOptions{ID: c.Param("id"), AdminID: adminID}
	author, err := h.authorService.RetrieveAuthor(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	update := UpdateAuthorOptions{Columns: []string{}}
	if params.Name != nil && *params.Name != author.Name {
		author.Name = *params.Name
		update.Columns = append(update.Columns, "name")
	}
	if params.Bio != nil {
		author.Bio = params.Bio
		if *params.Bio == "" {
			author.Bio = nil
		}
		update.Columns = append(update.Columns, "bio")
	}

	if err := h.authorService.UpdateAuthor(ctx, author, update); err != nil {
		return errors.WithStack(err)
	}

	author, err = h.authorService.RetrieveAuthor(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, author))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()

	adminID, err := auth.AdminID(c)
	if err != nil {
		return err
	}

	if err := h.authorService.DeleteAuthor(ctx, c.Param("id"), adminID); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) books(c echo.Context) error {
	ctx := c.Request().Context()

	adminID, err := auth.AdminID(c)
	if err != nil {
		return err
	}

	books, err := h.authorService.ListAuthorBooks(ctx, RetrieveAuthorOptions{
		ID:      c.Param("id"),
		AdminID: adminID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Books []*models.Book `json:"books"`
		Total int            `json:"total"`
	}{books, len(books)}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
