package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfdesk/shelfdesk/pkg/errcodes"
	"github.com/shelfdesk/shelfdesk/pkg/models"
)

const CookieName = "shelfdesk_session"

type handler struct {
	authService *Service
	cookieTTL   time.Duration
}

func newProfile(admin *models.Admin) ProfileResponse {
	return ProfileResponse{
		ID:    admin.ID,
		Email: admin.Email,
		Name:  admin.Name,
	}
}

func (h *handler) register(c echo.Context) error {
	ctx := c.Request().Context()

	params := RegisterPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	admin, err := h.authService.Register(ctx, RegisterOptions(params))
	if err != nil {
		return errors.WithStack(err)
	}
	logger.FromContext(ctx).Info("admin registered", logger.Data{"admin_id": admin.ID})

	return h.startSession(c, http.StatusCreated, admin)
}

func (h *handler) login(c echo.Context) error {
	ctx := c.Request().Context()

	params := LoginPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	admin, err := h.authService.Authenticate(ctx, params.Email, params.Password)
	if err != nil {
		return errors.WithStack(err)
	}

	return h.startSession(c, http.StatusOK, admin)
}

func (h *handler) startSession(c echo.Context, status int, admin *models.Admin) error {
	token, err := h.authService.GenerateToken(admin)
	if err != nil {
		return errors.WithStack(err)
	}

	c.SetCookie(h.cookie(c, token, int(h.cookieTTL.Seconds())))

	return errors.WithStack(c.JSON(status, SessionResponse{
		Token: token,
		User:  newProfile(admin),
	}))
}

// logout only clears the cookie. Issued tokens stay valid until they expire.
func (h *handler) logout(c echo.Context) error {
	c.SetCookie(h.cookie(c, "", -1))
	return c.NoContent(http.StatusNoContent)
}

func (h *handler) me(c echo.Context) error {
	admin, ok := AdminFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required.")
	}
	return errors.WithStack(c.JSON(http.StatusOK, newProfile(admin)))
}

func (h *handler) cookie(c echo.Context, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Request().TLS != nil || c.Request().Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	}
}
