package worker

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/syncdeck/syncdeck/pkg/errcodes"
	"github.com/syncdeck/syncdeck/pkg/models"
	"github.com/syncdeck/syncdeck/pkg/syncs"
)

// ProcessPullRecordsJob executes a dispatched pull: it fetches every record
// for the sync from the integration platform and writes them into the record
// store, then finalizes the sync's status.
func (w *Worker) ProcessPullRecordsJob(ctx context.Context, job *models.Job) error {
	if job.DataParsed == nil {
		return errors.New("pull job has no payload")
	}
	return w.executePull(ctx, job.DataParsed)
}

// ProcessSyncRecordsJob handles the older record-sync flow. The payload
// predates instance keys but the pull is otherwise the same.
func (w *Worker) ProcessSyncRecordsJob(ctx context.Context, job *models.Job) error {
	if job.DataParsed == nil {
		return errors.New("sync job has no payload")
	}
	return w.executePull(ctx, job.DataParsed)
}

func (w *Worker) executePull(ctx context.Context, data *models.JobSyncData) error {
	log := logger.FromContext(ctx)

	sync, err := w.syncService.Retrieve(ctx, data.SyncID, data.UserID)
	if err != nil {
		var e *errcodes.Error
		if errors.As(err, &e) && e.HTTPCode == http.StatusNotFound {
			// The sync was deleted after the job was dispatched. Nothing
			// to pull into.
			log.Warn("sync gone before pull ran", logger.Data{"sync_id": data.SyncID})
			return nil
		}
		return err
	}

	externalRecords, err := w.platform.ListRecords(ctx, data.Token, data.IntegrationKey, data.ActionKey, data.InstanceKey)
	if err != nil {
		return w.finalizeFailed(ctx, sync, err)
	}

	for _, ext := range externalRecords {
		record := &models.Record{
			ExternalID: ext.ID,
			SyncID:     sync.ID,
			UserID:     sync.UserID,
			RecordType: sync.RecordType,
			Name:       ext.Name,
			DataParsed: ext.Fields,
		}
		if err := w.recordService.Upsert(ctx, record); err != nil {
			return w.finalizeFailed(ctx, sync, err)
		}
	}

	sync.Status = models.SyncStatusCompleted
	sync.SyncCount = len(externalRecords)
	sync.PullError = nil
	err = w.syncService.UpdateSync(ctx, sync, syncs.UpdateSyncOptions{
		Columns: []string{"status", "sync_count", "pull_error"},
	})
	if err != nil {
		return err
	}

	w.activityService.Record(ctx, &models.SyncActivity{
		SyncID: sync.ID,
		UserID: sync.UserID,
		Type:   models.ActivityTypeSyncCompleted,
		MetadataParsed: map[string]interface{}{
			"record_count": len(externalRecords),
		},
	})

	return nil
}

// finalizeFailed marks the sync failed with the pull error. The job itself
// still completes; the failure belongs to the sync, where the dashboard
// surfaces it.
func (w *Worker) finalizeFailed(ctx context.Context, sync *models.Sync, pullErr error) error {
	msg := pullErr.Error()
	sync.Status = models.SyncStatusFailed
	sync.PullError = &msg
	err := w.syncService.UpdateSync(ctx, sync, syncs.UpdateSyncOptions{
		Columns: []string{"status", "pull_error"},
	})
	if err != nil {
		return err
	}

	w.activityService.Record(ctx, &models.SyncActivity{
		SyncID: sync.ID,
		UserID: sync.UserID,
		Type:   models.ActivityTypeSyncFailed,
		MetadataParsed: map[string]interface{}{
			"error": msg,
		},
	})

	return nil
}
