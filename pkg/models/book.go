package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID          string     `bun:",pk" json:"id"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Title       string     `bun:",notnull" json:"title"`
	ISBN        *string    `bun:"isbn" json:"isbn"`
	Description *string    `json:"description"`
	PublishedAt *time.Time `json:"publishedAt"`
	AuthorID    string     `bun:",notnull" json:"authorId"`
	AdminID     string     `bun:",notnull" json:"adminId"`
	// IsBorrowed is true exactly when an unreturned borrow exists for the book.
	// Only the borrow and return flows write it.
	IsBorrowed bool `bun:",notnull" json:"isBorrowed"`

	// Relations
	Author *Author `bun:"rel:belongs-to,join:author_id=id" json:"author,omitempty"`
}
