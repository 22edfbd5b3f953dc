package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Admin is an operator account. Every author, book, and library member
// belongs to exactly one admin.
type Admin struct {
	bun.BaseModel `bun:"table:admins,alias:ad"`

	ID           string    `bun:",pk" json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Email        string    `bun:",notnull" json:"email"`
	Name         string    `bun:",notnull" json:"name"`
	PasswordHash string    `bun:",notnull" json:"-"` // Never expose password hash
}
