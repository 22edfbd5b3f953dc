package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	BorrowStatusActive   = "active"
	BorrowStatusReturned = "returned"
	BorrowStatusAll      = "all"
)

type Borrow struct {
	bun.BaseModel `bun:"table:borrows,alias:br"`

	ID         string     `bun:",pk" json:"id"`
	UserID     string     `bun:",notnull" json:"userId"`
	BookID     string     `bun:",notnull" json:"bookId"`
	BorrowedAt time.Time  `bun:",notnull" json:"borrowedAt"`
	DueAt      *time.Time `json:"dueAt"`
	ReturnedAt *time.Time `json:"returnedAt"`

	IsOverdue bool `bun:"-" json:"isOverdue"`

	// Relations
	Book *Book `bun:"rel:belongs-to,join:book_id=id" json:"book,omitempty"`
	User *User `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
}

func (br *Borrow) IsActive() bool {
	return br.ReturnedAt == nil
}

// MarkOverdue sets IsOverdue for an open borrow whose due date is before now.
func (br *Borrow) MarkOverdue(now time.Time) {
	br.IsOverdue = br.IsActive() && br.DueAt != nil && br.DueAt.Before(now)
}
