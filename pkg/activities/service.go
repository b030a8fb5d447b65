package activities

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/syncdeck/syncdeck/pkg/models"
	"github.com/uptrace/bun"
)

// DefaultListLimit bounds activity listings when the caller doesn't supply a
// limit.
const DefaultListLimit = 50

type Service struct {
	db  *bun.DB
	log logger.Logger
}

func NewService(db *bun.DB) *Service {
	return &Service{db: db, log: logger.New()}
}

// Record appends an activity entry. Activity tracking is best-effort
// observability: failures are logged and swallowed so they never fail the
// operation that produced them.
func (svc *Service) Record(ctx context.Context, activity *models.SyncActivity) {
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now()
	}

	if err := activity.MarshalMetadata(); err != nil {
		svc.log.Err(err).Error("marshal activity metadata error", logger.Data{"sync_id": activity.SyncID, "type": activity.Type})
		return
	}

	_, err := svc.db.
		NewInsert().
		Model(activity).
		Returning("*").
		Exec(ctx)
	if err != nil {
		svc.log.Err(errors.WithStack(err)).Error("record activity error", logger.Data{"sync_id": activity.SyncID, "type": activity.Type})
	}
}

// List returns the newest activities for a sync, newest first. Read failures
// yield an empty slice, never an error.
func (svc *Service) List(ctx context.Context, syncID, userID, limit int) []*models.SyncActivity {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	activities := []*models.SyncActivity{}
	err := svc.db.
		NewSelect().
		Model(&activities).
		Where("sa.sync_id = ?", syncID).
		Where("sa.user_id = ?", userID).
		Order("sa.created_at DESC", "sa.id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		svc.log.Err(errors.WithStack(err)).Error("list activities error", logger.Data{"sync_id": syncID})
		return []*models.SyncActivity{}
	}

	for _, activity := range activities {
		if err := activity.UnmarshalMetadata(); err != nil {
			svc.log.Err(err).Error("unmarshal activity metadata error", logger.Data{"activity_id": activity.ID})
		}
	}

	return activities
}
