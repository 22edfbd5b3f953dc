package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is a library member. Members never log in; they are managed by the
// admin that owns them.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        string    `bun:",pk" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Name      string    `bun:",notnull" json:"name"`
	Email     string    `bun:",notnull" json:"email"`
	Phone     *string   `json:"phone"`
	AdminID   string    `bun:",notnull" json:"adminId"`

	BorrowCount       int `bun:",scanonly" json:"borrowCount"`
	ActiveBorrowCount int `bun:",scanonly" json:"activeBorrowCount"`
}
