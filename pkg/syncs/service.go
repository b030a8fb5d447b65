package syncs

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/syncdeck/syncdeck/pkg/activities"
	"github.com/syncdeck/syncdeck/pkg/auth"
	"github.com/syncdeck/syncdeck/pkg/dispatch"
	"github.com/syncdeck/syncdeck/pkg/errcodes"
	"github.com/syncdeck/syncdeck/pkg/models"
	"github.com/syncdeck/syncdeck/pkg/records"
	"github.com/uptrace/bun"
)

type UpdateSyncOptions struct {
	Columns []string
}

type Service struct {
	db              *bun.DB
	activityService *activities.Service
	recordService   *records.Service
	trigger         *dispatch.Trigger
}

func NewService(db *bun.DB, trigger *dispatch.Trigger) *Service {
	return &Service{
		db:              db,
		activityService: activities.NewService(db),
		recordService:   records.NewService(db),
		trigger:         trigger,
	}
}

// Create persists a new sync for the caller and dispatches the initial pull.
func (svc *Service) Create(ctx context.Context, identity *auth.Identity, sync *models.Sync) error {
	now := time.Now()
	sync.CreatedAt = now
	sync.UpdatedAt = now
	sync.UserID = identity.UserID
	sync.Status = models.SyncStatusInProgress

	_, err := svc.db.
		NewInsert().
		Model(sync).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	svc.activityService.Record(ctx, &models.SyncActivity{
		SyncID: sync.ID,
		UserID: identity.UserID,
		Type:   models.ActivityTypeSyncStarted,
	})

	return svc.trigger.TriggerPullRecords(ctx, dispatch.PullRecordsParams{
		UserID:         identity.UserID,
		Token:          identity.AccessToken,
		IntegrationKey: sync.IntegrationKey,
		ActionKey:      sync.AppObjectKey,
		SyncID:         sync.ID,
		InstanceKey:    sync.InstanceKey,
	})
}

// Retrieve fetches a sync by id, scoped to the owning user. A sync owned by
// another user and a missing sync are both a not-found; callers can't tell
// them apart.
func (svc *Service) Retrieve(ctx context.Context, id, userID int) (*models.Sync, error) {
	sync := &models.Sync{}

	err := svc.db.
		NewSelect().
		Model(sync).
		Where("s.id = ?", id).
		Where("s.user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Sync")
		}
		return nil, errors.WithStack(err)
	}

	return sync, nil
}

// RetrieveByInstanceKey fetches a sync by its integration instance key,
// scoped to the owning user. The webhook ingester resolves syncs this way.
func (svc *Service) RetrieveByInstanceKey(ctx context.Context, instanceKey string, userID int) (*models.Sync, error) {
	sync := &models.Sync{}

	err := svc.db.
		NewSelect().
		Model(sync).
		Where("s.instance_key = ?", instanceKey).
		Where("s.user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Sync")
		}
		return nil, errors.WithStack(err)
	}

	return sync, nil
}

// List returns all of a user's syncs, newest first.
func (svc *Service) List(ctx context.Context, userID int) ([]*models.Sync, error) {
	syncs := []*models.Sync{}

	err := svc.db.
		NewSelect().
		Model(&syncs).
		Where("s.user_id = ?", userID).
		Order("s.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return syncs, nil
}

func (svc *Service) UpdateSync(ctx context.Context, sync *models.Sync, opts UpdateSyncOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	sync.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(sync).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Resync re-pulls a sync from scratch: it flips the sync back to in_progress,
// clears any prior pull error, records the trigger in the activity trail,
// drops every record under the sync, and dispatches a fresh pull. The status
// flip and activity entry are committed before the delete and dispatch so a
// concurrent reader never sees completed-stage data for a sync whose records
// are mid-deletion. If the dispatch fails after the delete, the sync stays
// in_progress with no pending job; the error is surfaced rather than claiming
// success.
func (svc *Service) Resync(ctx context.Context, identity *auth.Identity, id int) error {
	sync, err := svc.Retrieve(ctx, id, identity.UserID)
	if err != nil {
		return err
	}

	previousSyncCount := sync.SyncCount

	sync.Status = models.SyncStatusInProgress
	sync.PullError = nil
	err = svc.UpdateSync(ctx, sync, UpdateSyncOptions{
		Columns: []string{"status", "pull_error"},
	})
	if err != nil {
		return err
	}

	svc.activityService.Record(ctx, &models.SyncActivity{
		SyncID: sync.ID,
		UserID: identity.UserID,
		Type:   models.ActivityTypeSyncResyncTriggered,
		MetadataParsed: map[string]interface{}{
			"previous_sync_count": previousSyncCount,
		},
	})

	err = svc.recordService.DeleteBySync(ctx, sync.ID, identity.UserID)
	if err != nil {
		return err
	}

	return svc.trigger.TriggerPullRecords(ctx, dispatch.PullRecordsParams{
		UserID:         identity.UserID,
		Token:          identity.AccessToken,
		IntegrationKey: sync.IntegrationKey,
		ActionKey:      sync.AppObjectKey,
		SyncID:         sync.ID,
		InstanceKey:    sync.InstanceKey,
	})
}
