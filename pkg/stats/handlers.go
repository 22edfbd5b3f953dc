package stats

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfdesk/shelfdesk/pkg/auth"
)

type handler struct {
	statsService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	adminID, err := auth.AdminID(c)
	if err != nil {
		return err
	}

	s, err := h.statsService.RetrieveStats(ctx, adminID, time.Now())
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, s))
}
