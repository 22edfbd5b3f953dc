package testutils

import (
	"testing"

	"github.com/shelfdesk/shelfdesk/pkg/models"
	"github.com/uptrace/bun"
)

// Fixtures binds the Create helpers to one test and database.
type Fixtures struct {
	t  testing.TB
	db *bun.DB
}

func NewFixtures(t testing.TB, db *bun.DB) *Fixtures {
	return &Fixtures{t: t, db: db}
}

func (f *Fixtures) DB() *bun.DB {
	return f.db
}

func (f *Fixtures) Admin(email string) *models.Admin {
	return CreateAdmin(f.t, f.db, email)
}

func (f *Fixtures) Author(adminID, name string) *models.Author {
	return CreateAuthor(f.t, f.db, adminID, name)
}

func (f *Fixtures) Book(adminID, authorID, title string) *models.Book {
	return CreateBook(f.t, f.db, adminID, authorID, title)
}

func (f *Fixtures) User(adminID, name string) *models.User {
	return CreateUser(f.t, f.db, adminID, name)
}
