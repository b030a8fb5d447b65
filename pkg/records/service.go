package records

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/syncdeck/syncdeck/pkg/errcodes"
	"github.com/syncdeck/syncdeck/pkg/models"
	"github.com/uptrace/bun"
)

type ListRecordsOptions struct {
	SyncID int
	UserID int
	Limit  *int
	Offset *int
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// Upsert inserts a record or, if one already exists for the same
// (external_id, user_id, sync_id), replaces its name and field data. The pull
// worker calls this for every record it fetches.
func (svc *Service) Upsert(ctx context.Context, record *models.Record) error {
	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	if err := record.MarshalData(); err != nil {
		return err
	}

	_, err := svc.db.
		NewInsert().
		Model(record).
		On("CONFLICT (external_id, user_id, sync_id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Retrieve fetches a record by external id, scoped to the requesting user and
// sync so other tenants' records are unreachable.
func (svc *Service) Retrieve(ctx context.Context, externalID string, userID, syncID int) (*models.Record, error) {
	record := &models.Record{}

	err := svc.db.
		NewSelect().
		Model(record).
		Where("r.external_id = ?", externalID).
		Where("r.user_id = ?", userID).
		Where("r.sync_id = ?", syncID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Record")
		}
		return nil, errors.WithStack(err)
	}

	if err := record.UnmarshalData(); err != nil {
		return nil, err
	}

	return record, nil
}

// UpdateFields applies a shallow merge of fields onto the record's stored
// data and persists it. Applying the same fields twice is a no-op.
func (svc *Service) UpdateFields(ctx context.Context, record *models.Record, fields map[string]interface{}) error {
	if err := record.MergeFields(fields); err != nil {
		return err
	}
	record.UpdatedAt = time.Now()

	_, err := svc.db.
		NewUpdate().
		Model(record).
		Column("data", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// DeleteBySync removes every record under a sync for the given user. Resync
// uses this as a full invalidation before re-pulling.
func (svc *Service) DeleteBySync(ctx context.Context, syncID, userID int) error {
	_, err := svc.db.
		NewDelete().
		Model((*models.Record)(nil)).
		Where("sync_id = ?", syncID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// CountBySync returns how many records a sync currently holds.
func (svc *Service) CountBySync(ctx context.Context, syncID, userID int) (int, error) {
	count, err := svc.db.
		NewSelect().
		Model((*models.Record)(nil)).
		Where("sync_id = ?", syncID).
		Where("user_id = ?", userID).
		Count(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return count, nil
}

// List returns a page of records for a sync, scoped to the owning user.
func (svc *Service) List(ctx context.Context, opts ListRecordsOptions) ([]*models.Record, error) {
	records := []*models.Record{}

	q := svc.db.
		NewSelect().
		Model(&records).
		Where("r.sync_id = ?", opts.SyncID).
		Where("r.user_id = ?", opts.UserID).
		Order("r.name ASC", "r.id ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	err := q.Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for _, record := range records {
		if err := record.UnmarshalData(); err != nil {
			return nil, err
		}
	}

	return records, nil
}
