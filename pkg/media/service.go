package media

import (
	"context"
	"database/sql"

	"github.com/looplet/looplet/pkg/errcodes"
	"github.com/looplet/looplet/pkg/models"
	"github.com/looplet/looplet/pkg/syncutil"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveMediaOptions struct {
	ID *int
}

type UpdateMediaOptions struct {
	Columns []string
}

// UpdateMediaFields holds the user-editable fields of a media record. Nil
// fields are left untouched.
type UpdateMediaFields struct {
	Title     *string
	Tags      []string
	Credit    *string
	CreatedAt *string
}

// Service is the catalog store. Writes are serialized on the service's lock
// so scan and upload batches never interleave.
type Service struct {
	db *bun.DB
	mu syncutil.Mutex
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

// UpsertMedia inserts m unless a record with the same kind and filename
// already exists, in which case the existing record is left exactly as it
// is. It reports whether a row was inserted; m.ID is only set when it was.
func (svc *Service) UpsertMedia(ctx context.Context, m *models.Media) (bool, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	return upsert(ctx, svc.db, m)
}

// UpsertMediaBatch upserts every record in a single transaction. Either all
// of them are applied or, on any failure, none are. It returns the number of
// rows actually inserted.
func (svc *Service) UpsertMediaBatch(ctx context.Context, items []*models.Media) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	inserted := 0
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, m := range items {
			ok, err := upsert(ctx, tx, m)
			if err != nil {
				return errors.Wrapf(err, "upsert %s/%s", m.Kind, m.Filename)
			}
			if ok {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return inserted, nil
}

func upsert(ctx context.Context, db bun.IDB, m *models.Media) (bool, error) {
	if m.Tags == nil {
		m.Tags = models.Tags{}
	}

	res, err := db.NewInsert().
		Model(m).
		On("CONFLICT (kind, filename) DO NOTHING").
		Returning("NULL").
		Exec(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.WithStack(err)
	}
	if n == 0 {
		// The driver's last insert id belongs to some earlier row.
		m.ID = 0
		return false, nil
	}
	return true, nil
}

func (svc *Service) RetrieveMedia(ctx context.Context, opts RetrieveMediaOptions) (*models.Media, error) {
	return retrieve(ctx, svc.db, opts)
}

func retrieve(ctx context.Context, db bun.IDB, opts RetrieveMediaOptions) (*models.Media, error) {
	m := &models.Media{}

	q := db.NewSelect().
		Model(m)

	if opts.ID != nil {
		q = q.Where("m.id = ?", *opts.ID)
	}

	err := q.Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Media")
		}
		return nil, errors.WithStack(err)
	}

	return m, nil
}

func (svc *Service) ListMedia(ctx context.Context, opts ListMediaOptions) ([]*models.Media, error) {
	items := []*models.Media{}

	q := svc.db.
		NewSelect().
		Model(&items)
	q = applyListFilters(q, opts)

	if err := q.Scan(ctx); err != nil {
		return nil, errors.WithStack(err)
	}

	return items, nil
}

// UpdateMedia writes the named columns of m.
func (svc *Service) UpdateMedia(ctx context.Context, m *models.Media, opts UpdateMediaOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	return update(ctx, svc.db, m, opts)
}

func update(ctx context.Context, db bun.IDB, m *models.Media, opts UpdateMediaOptions) error {
	res, err := db.NewUpdate().
		Model(m).
		Column(opts.Columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errcodes.NotFound("Media")
	}
	return nil
}

// UpdateMediaFields applies the non-nil fields to the record with the given
// id and returns the stored result. A CreatedAt that doesn't parse as a date
// is ignored and the previous value kept.
func (svc *Service) UpdateMediaFields(ctx context.Context, id int, fields UpdateMediaFields) (*models.Media, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	var updated *models.Media
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		m, err := retrieve(ctx, tx, RetrieveMediaOptions{ID: &id})
		if err != nil {
			return err
		}

		columns := []string{}
		if fields.Title != nil {
			m.Title = *fields.Title
			columns = append(columns, "title")
		}
		if fields.Tags != nil {
			m.Tags = models.Tags(fields.Tags)
			columns = append(columns, "tags")
		}
		if fields.Credit != nil {
			m.Credit = fields.Credit
			columns = append(columns, "credit")
		}
		if fields.CreatedAt != nil {
			if ts, ok := models.ParseTimestamp(*fields.CreatedAt); ok {
				m.CreatedAt = &ts
				columns = append(columns, "created_at")
			}
		}

		if len(columns) > 0 {
			if err := update(ctx, tx, m, UpdateMediaOptions{Columns: columns}); err != nil {
				return err
			}
		}

		updated, err = retrieve(ctx, tx, RetrieveMediaOptions{ID: &id})
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteMedia removes the record with the given id and returns it as it was
// before removal.
func (svc *Service) DeleteMedia(ctx context.Context, id int) (*models.Media, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	var removed *models.Media
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		m, err := retrieve(ctx, tx, RetrieveMediaOptions{ID: &id})
		if err != nil {
			return err
		}

		_, err = tx.NewDelete().
			Model(m).
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		removed = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
