package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE media (
				id INTEGER PRIMARY KEY,
				kind TEXT NOT NULL CHECK (kind IN ('video', 'audio')),
				filename TEXT NOT NULL,
				title TEXT,
				tags TEXT,
				credit TEXT,
				UNIQUE (kind, filename)
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_media_filename_nocase ON media (filename COLLATE NOCASE)`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("DROP TABLE IF EXISTS media")
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
