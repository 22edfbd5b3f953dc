package borrows

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfdesk/shelfdesk/pkg/auth"
	"github.com/shelfdesk/shelfdesk/pkg/errcodes"
	"github.com/shelfdesk/shelfdesk/pkg/models"
)

const dateLayout = "2006-01-02"

type handler struct {
	borrowService *Service
}

func (h *handler) borrow(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	adminID, err := auth.AdminID(c)
	if err != nil {
		return err
	}

	params := BorrowPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	dueAt, err := parseDueAt(params.DueAt)
	if err != nil {
		return err
	}

	borrow, err := h.borrowService.BorrowBook(ctx, BorrowBookOptions{
		BookID:  params.BookID,
		UserID:  params.UserID,
		AdminID: adminID,
		DueAt:   dueAt,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	log.Info("book borrowed", logger.Data{"borrow_id": borrow.ID, "book_id": borrow.BookID, "user_id": borrow.UserID})

	return errors.WithStack(c.JSON(http.StatusCreated, borrow))
}

func (h *handler) giveBack(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	adminID, err := auth.AdminID(c)
	if err != nil {
		return err
	}

	borrow, err := h.borrowService.ReturnBook(ctx, RetrieveBorrowOptions{
		ID:      c.Param("id"),
		AdminID: adminID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	log.Info("book returned", logger.Data{"borrow_id": borrow.ID, "book_id": borrow.BookID})

	return errors.WithStack(c.JSON(http.StatusOK, borrow))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	adminID, err := auth.AdminID(c)
	if err != nil {
		return err
	}

	borrow, err := h.borrowService.RetrieveBorrow(ctx, RetrieveBorrowOptions{
		ID:      c.Param("id"),
		AdminID: adminID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, borrow))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	adminID, err := auth.AdminID(c)
	if err != nil {
		return err
	}

	params := ListBorrowsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	borrows, total, err := h.borrowService.ListBorrowsWithTotal(ctx, ListBorrowsOptions{
		Limit:   &params.Limit,
		Offset:  &params.Offset,
		AdminID: adminID,
		Status:  params.Status,
		Overdue: params.Overdue,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Borrows []*models.Borrow `json:"borrows"`
		Total   int              `json:"total"`
	}{borrows, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) userBorrowed(c echo.Context) error {
	ctx := c.Request().Context()

	adminID, err := auth.AdminID(c)
	if err != nil {
		return err
	}

	borrows, err := h.borrowService.ListUserActiveBorrows(ctx, c.Param("userId"), adminID)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Borrows []*models.Borrow `json:"borrows"`
		Total   int              `json:"total"`
	}{borrows, len(borrows)}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

// parseDueAt expects a value that already passed the datetime validator. A
// bare date means the end of that day in UTC.
func parseDueAt(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}

	if t, err := time.ParseInLocation(dateLayout, *s, time.UTC); err == nil {
		due := t.Add(24*time.Hour - time.Second)
		return &due, nil
	}

	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, errcodes.ValidationError(`"dueAt" must be a date (YYYY-MM-DD) or an RFC 3339 timestamp`)
	}
	t = t.UTC()
	return &t, nil
}
