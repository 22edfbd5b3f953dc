package users

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfdesk/shelfdesk/pkg/auth"
	"github.com/shelfdesk/shelfdesk/pkg/models"
)

type handler struct {
	userService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	adminID, err := auth.AdminID(c)
	if err != nil {
		return err
	}

	params := CreateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user := &models.User{
		Name:    params.Name,
		Email:   params.Email,
		Phone:   params.Phone,
		AdminID: adminID,
	}
	if user.Phone != nil && *user.Phone == "" {
		user.Phone = nil
	}
	if err := h.userService.CreateUser(ctx, user); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, user))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	adminID, err := auth.AdminID(c)
	if err != nil {
		return err
	}

	user, err := h.userService.RetrieveUser(ctx, RetrieveUserOptions{
		ID:      c.Param("id"),
		AdminID: adminID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, user))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	adminID, err := auth.AdminID(c)
	if err != nil {
		return err
	}

	params := ListUsersQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	users, total, err := h.userService.ListUsersWithTotal(ctx, ListUsersOptions{
		Limit:   &params.Limit,
		Offset:  &params.Offset,
		AdminID: adminID,
		Search:  params.Search,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Users []*models.User `json:"users"`
		Total int            `json:"total"`
	}{users, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	adminID, err := auth.AdminID(c)
	if err != nil {
		return err
	}

	params := UpdateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := RetrieveUserOptions{ID: c.Param("id"), AdminID: adminID}
	user, err := h.userService.RetrieveUser(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	update := UpdateUserOptions{Columns: []string{}}
	if params.Name != nil && *params.Name != user.Name {
		user.Name = *params.Name
		update.Columns = append(update.Columns, "name")
	}
	if params.Email != nil && *params.Email != user.Email {
		user.Email = *params.Email
		update.Columns = append(update.Columns, "email")
	}
	if params.Phone != nil {
		user.Phone = params.Phone
		if *params.Phone == "" {
			user.Phone = nil
		}
		update.Columns = append(update.Columns, "phone")
	}

	if err := h.userService.UpdateUser(ctx, user, update); err != nil {
		return errors.WithStack(err)
	}

	user, err = h.userService.RetrieveUser(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, user))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()

	adminID, err := auth.AdminID(c)
	if err != nil {
		return err
	}

	if err := h.userService.DeleteUser(ctx, c.Param("id"), adminID); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
