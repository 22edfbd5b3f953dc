package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shelfdesk/shelfdesk/pkg/config"
	"github.com/shelfdesk/shelfdesk/pkg/database"
	"github.com/shelfdesk/shelfdesk/pkg/migrations"
	"github.com/shelfdesk/shelfdesk/pkg/models"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"
)

// NewTestDB returns a migrated in-memory database that is closed when the test
// finishes.
func NewTestDB(t testing.TB) *bun.DB {
	t.Helper()

	db, err := database.New(config.NewForTest())
	require.NoError(t, err)

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func CreateAdmin(t testing.TB, db *bun.DB, email string) *models.Admin {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)

	now := time.Now().UTC()
	admin := &models.Admin{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		UpdatedAt:    now,
		Email:        email,
		Name:         email,
		PasswordHash: string(hash),
	}
	_, err = db.NewInsert().Model(admin).Exec(context.Background())
	require.NoError(t, err)
	return admin
}

func CreateAuthor(t testing.TB, db *bun.DB, adminID, name string) *models.Author {
	t.Helper()

	now := time.Now().UTC()
	author := &models.Author{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Name:      name,
		AdminID:   adminID,
	}
	_, err := db.NewInsert().Model(author).Exec(context.Background())
	require.NoError(t, err)
	return author
}

func CreateBook(t testing.TB, db *bun.DB, adminID, authorID, title string) *models.Book {
	t.Helper()

	now := time.Now().UTC()
	book := &models.Book{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Title:     title,
		AuthorID:  authorID,
		AdminID:   adminID,
	}
	_, err := db.NewInsert().Model(book).Exec(context.Background())
	require.NoError(t, err)
	return book
}

func CreateUser(t testing.TB, db *bun.DB, adminID, name string) *models.User {
	t.Helper()

	now := time.Now().UTC()
	user := &models.User{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Name:      name,
		Email:     name + "@example.com",
		AdminID:   adminID,
	}
	_, err := db.NewInsert().Model(user).Exec(context.Background())
	require.NoError(t, err)
	return user
}
