package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("ALTER TABLE media ADD COLUMN mime_type TEXT")
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("ALTER TABLE media DROP COLUMN mime_type")
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
