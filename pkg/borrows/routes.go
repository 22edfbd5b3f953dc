package borrows

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers the borrow and return routes on a group
// that already requires authentication.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		borrowService: NewService(db),
	}

	g.GET("", h.list)
	g.POST("/borrow", h.borrow)
	g.POST("/return/:id", h.giveBack)
	g.GET("/users/:userId/borrowed", h.userBorrowed)
	g.GET("/:id", h.retrieve)
}
