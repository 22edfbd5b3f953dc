package testutils

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfdesk/shelfdesk/pkg/models"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

type handler struct {
	db *bun.DB
}

type createAdminRequest struct {
	Email    string `json:"email" mod:"trim,lcase" validate:"required,email"`
	Name     string `json:"name" mod:"trim"`
	Password string `json:"password" validate:"required"`
}

type createAdminResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// createAdmin inserts an admin without going through registration.
// POST /test/admins.
func (h *handler) createAdmin(c echo.Context) error {
	ctx := c.Request().Context()

	var req createAdminRequest
	if err := c.Bind(&req); err != nil {
		return errors.WithStack(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}

	name := req.Name
	if name == "" {
		name = strings.SplitN(req.Email, "@", 2)[0]
	}

	now := time.Now().UTC()
	admin := &models.Admin{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Email:        req.Email,
		Name:         name,
		PasswordHash: string(hash),
	}
	if _, err := h.db.NewInsert().Model(admin).Exec(ctx); err != nil {
		return errors.Wrap(err, "failed to create admin")
	}

	return errors.WithStack(c.JSON(http.StatusCreated, createAdminResponse{
		ID:    admin.ID,
		Email: admin.Email,
	}))
}

type deleteAllDataResponse struct {
	Deleted map[string]int64 `json:"deleted"`
}

// deleteAllData empties every table, children first.
// DELETE /test/data.
func (h *handler) deleteAllData(c echo.Context) error {
	ctx := c.Request().Context()

	resp := deleteAllDataResponse{Deleted: map[string]int64{}}
	tables := []struct {
		name  string
		model any
	}{
		{"events", (*models.Event)(nil)},
		{"borrows", (*models.Borrow)(nil)},
		{"books", (*models.Book)(nil)},
		{"authors", (*models.Author)(nil)},
		{"users", (*models.User)(nil)},
		{"admins", (*models.Admin)(nil)},
	}
	for _, table := range tables {
		res, err := h.db.NewDelete().Model(table.model).Where("1=1").Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		n, _ := res.RowsAffected()
		resp.Deleted[table.name] = n
	}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
