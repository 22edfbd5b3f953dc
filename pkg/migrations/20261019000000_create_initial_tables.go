package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE admins (
				id TEXT PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL,
				email TEXT NOT NULL,
				name TEXT NOT NULL,
				password_hash TEXT NOT NULL
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_admins_email ON admins (email)`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`
			CREATE TABLE authors (
				id TEXT PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL,
				name TEXT NOT NULL,
				bio TEXT,
				admin_id TEXT NOT NULL REFERENCES admins (id) ON DELETE CASCADE
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_authors_admin_id ON authors (admin_id)`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`
			CREATE TABLE books (
				id TEXT PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL,
				title TEXT NOT NULL,
				isbn TEXT,
				description TEXT,
				published_at TIMESTAMPTZ,
				author_id TEXT NOT NULL REFERENCES authors (id),
				admin_id TEXT NOT NULL REFERENCES admins (id) ON DELETE CASCADE,
				is_borrowed BOOLEAN NOT NULL DEFAULT FALSE
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_books_admin_id ON books (admin_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_books_author_id ON books (author_id)`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`
			CREATE TABLE users (
				id TEXT PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL,
				name TEXT NOT NULL,
				email TEXT NOT NULL,
				phone TEXT,
				admin_id TEXT NOT NULL REFERENCES admins (id) ON DELETE CASCADE
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_users_admin_id ON users (admin_id)`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`
			CREATE TABLE borrows (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL REFERENCES users (id),
				book_id TEXT NOT NULL REFERENCES books (id),
				borrowed_at TIMESTAMPTZ NOT NULL,
				due_at TIMESTAMPTZ,
				returned_at TIMESTAMPTZ
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_borrows_user_id ON borrows (user_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		// At most one open borrow per book.
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_borrows_active_book_id ON borrows (book_id) WHERE returned_at IS NULL`)
		if err != nil {
			return errors.WithStack(err)
		}

		return nil
	}

	down := func(_ context.Context, db *bun.DB) error {
		for _, table := range []string{"borrows", "users", "books", "authors", "admins"} {
			_, err := db.Exec("DROP TABLE IF EXISTS " + table)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	Migrations.MustRegister(up, down)
}
