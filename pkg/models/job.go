package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

const (
	JobStatusPending    = "pending"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

const (
	JobTypePullRecords = "records/pull.requested"
	JobTypeSyncRecords = "records/sync.requested"
)

type Job struct {
	bun.BaseModel `bun:"table:jobs,alias:j"`

	ID         int          `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	Type       string       `bun:",nullzero" json:"type"`
	Status     string       `bun:",nullzero" json:"status"`
	Data       string       `bun:",nullzero" json:"-"`
	DataParsed *JobSyncData `bun:"-" json:"data"`
	Progress   int          `json:"progress"`
	ProcessID  *string      `json:"process_id,omitempty"`
}

func (job *Job) UnmarshalData() error {
	job.DataParsed = &JobSyncData{}
	err := json.Unmarshal([]byte(job.Data), job.DataParsed)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// JobSyncData is the payload the job runner needs to execute a pull against
// the integration platform on behalf of a user.
type JobSyncData struct {
	UserID         int    `json:"user_id"`
	Token          string `json:"token"`
	IntegrationKey string `json:"integration_key"`
	ActionKey      string `json:"action_key"`
	SyncID         int    `json:"sync_id"`
	InstanceKey    string `json:"instance_key,omitempty"`
}
