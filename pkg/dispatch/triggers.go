package dispatch

import (
	"context"

	"github.com/syncdeck/syncdeck/pkg/models"
)

// PullRecordsParams carries everything the job runner needs to pull records
// for a sync. InstanceKey identifies the connected integration instance.
type PullRecordsParams struct {
	UserID         int
	Token          string
	IntegrationKey string
	ActionKey      string
	SyncID         int
	InstanceKey    string
}

// SyncRecordsParams is the older sync flow's payload; it predates instance
// keys.
type SyncRecordsParams struct {
	UserID         int
	Token          string
	IntegrationKey string
	ActionKey      string
	SyncID         int
}

// Trigger builds and dispatches the typed events the job runner consumes.
type Trigger struct {
	dispatcher Dispatcher
}

func NewTrigger(dispatcher Dispatcher) *Trigger {
	return &Trigger{dispatcher: dispatcher}
}

// TriggerPullRecords dispatches a pull for a sync's records.
func (t *Trigger) TriggerPullRecords(ctx context.Context, params PullRecordsParams) error {
	return t.dispatcher.Dispatch(ctx, Event{
		Name: models.JobTypePullRecords,
		Payload: models.JobSyncData{
			UserID:         params.UserID,
			Token:          params.Token,
			IntegrationKey: params.IntegrationKey,
			ActionKey:      params.ActionKey,
			SyncID:         params.SyncID,
			InstanceKey:    params.InstanceKey,
		},
	})
}

// TriggerSyncRecords dispatches a sync via the older record-sync flow.
func (t *Trigger) TriggerSyncRecords(ctx context.Context, params SyncRecordsParams) error {
	return t.dispatcher.Dispatch(ctx, Event{
		Name: models.JobTypeSyncRecords,
		Payload: models.JobSyncData{
			UserID:         params.UserID,
			Token:          params.Token,
			IntegrationKey: params.IntegrationKey,
			ActionKey:      params.ActionKey,
			SyncID:         params.SyncID,
		},
	})
}
