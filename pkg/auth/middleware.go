package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shelfdesk/shelfdesk/pkg/errcodes"
	"github.com/shelfdesk/shelfdesk/pkg/models"
)

const (
	contextKeyAdminID = "admin_id"
	contextKeyAdmin   = "admin"

	bearerPrefix = "Bearer "
)

type Middleware struct {
	authService *Service
}

func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{authService: authService}
}

// Authenticate requires a valid token, taken from the Authorization header or
// else the session cookie, that belongs to an admin that still exists. The
// admin is stored on the context for handlers to scope their queries with.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		token := tokenFromRequest(c)
		if token == "" {
			return errcodes.Unauthorized("Authentication required.")
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			return errcodes.Unauthorized("Invalid or expired token.")
		}

		admin, err := m.authService.RetrieveAdmin(ctx, claims.AdminID)
		if errors.Is(err, errcodes.NotFound("Admin")) {
			return errcodes.Unauthorized("Invalid or expired token.")
		}
		if err != nil {
			return errors.WithStack(err)
		}

		c.Set(contextKeyAdminID, admin.ID)
		c.Set(contextKeyAdmin, admin)

		return next(c)
	}
}

func tokenFromRequest(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(header) > len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(header[len(bearerPrefix):])
	}

	cookie, err := c.Cookie(CookieName)
	if err == nil {
		return cookie.Value
	}
	return ""
}

// AdminID returns the id of the authenticated admin. Handlers behind
// Authenticate can rely on it being set.
func AdminID(c echo.Context) (string, error) {
	id, ok := c.Get(contextKeyAdminID).(string)
	if !ok || id == "" {
		return "", errcodes.Unauthorized("Authentication required.")
	}
	return id, nil
}

func AdminFromContext(c echo.Context) (*models.Admin, bool) {
	admin, ok := c.Get(contextKeyAdmin).(*models.Admin)
	return admin, ok
}
