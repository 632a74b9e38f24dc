// Package testutils provides database fixtures shared by package tests.
package testutils

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/looplet/looplet/pkg/config"
	"github.com/looplet/looplet/pkg/database"
	"github.com/looplet/looplet/pkg/migrations"
	"github.com/looplet/looplet/pkg/models"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

// NewDB opens a migrated SQLite database in a temp directory that is removed
// when the test finishes.
func NewDB(t *testing.T) *bun.DB {
	t.Helper()

	cfg := config.NewForTest()
	cfg.DatabaseFilePath = filepath.Join(t.TempDir(), "looplet.sqlite")

	db, err := database.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	return db
}

// InsertMedia inserts rows directly, bypassing the media service, and
// returns them with their assigned IDs.
func InsertMedia(t *testing.T, db *bun.DB, rows ...*models.Media) []*models.Media {
	t.Helper()

	for _, m := range rows {
		if m.Tags == nil {
			m.Tags = models.Tags{}
		}
		_, err := db.NewInsert().Model(m).Exec(context.Background())
		require.NoError(t, err)
	}
	return rows
}

// CountMedia returns the number of rows in the media table.
func CountMedia(t *testing.T, db *bun.DB) int {
	t.Helper()

	count, err := db.NewSelect().Model((*models.Media)(nil)).Count(context.Background())
	require.NoError(t, err)
	return count
}
