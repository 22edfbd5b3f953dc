package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Author struct {
	bun.BaseModel `bun:"table:authors,alias:a"`

	ID        string    `bun:",pk" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Name      string    `bun:",notnull" json:"name"`
	Bio       *string   `json:"bio"`
	AdminID   string    `bun:",notnull" json:"adminId"`

	BookCount int `bun:",scanonly" json:"bookCount"`
}
