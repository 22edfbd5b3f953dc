package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE events (
				id TEXT PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL,
				type TEXT NOT NULL,
				admin_id TEXT NOT NULL,
				payload TEXT NOT NULL,
				published_at TIMESTAMPTZ,
				attempts INTEGER NOT NULL DEFAULT 0,
				last_error TEXT
			)
		`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`CREATE INDEX ix_events_pending ON events (created_at) WHERE published_at IS NULL`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`DROP TABLE IF EXISTS events`)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
