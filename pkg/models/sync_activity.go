package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

const (
	ActivityTypeSyncStarted         = "sync_started"
	ActivityTypeSyncResyncTriggered = "sync_resync_triggered"
	ActivityTypeSyncCompleted       = "sync_completed"
	ActivityTypeSyncFailed          = "sync_failed"
	ActivityTypeRecordUpdated       = "record_updated"
)

// SyncActivity is an append-only audit entry describing something that
// happened to a sync. Entries are never mutated or deleted.
type SyncActivity struct {
	bun.BaseModel `bun:"table:sync_activities,alias:sa"`

	ID             int                    `bun:",pk,nullzero" json:"id"`
	CreatedAt      time.Time              `json:"created_at"`
	SyncID         int                    `bun:",nullzero" json:"sync_id"`
	UserID         int                    `bun:",nullzero" json:"user_id"`
	Type           string                 `bun:",nullzero" json:"type"`
	RecordID       *int                   `json:"record_id,omitempty"`
	Metadata       *string                `bun:"metadata" json:"-"`
	MetadataParsed map[string]interface{} `bun:"-" json:"metadata,omitempty"`
}

func (a *SyncActivity) UnmarshalMetadata() error {
	if a.Metadata == nil || *a.Metadata == "" {
		return nil
	}
	a.MetadataParsed = map[string]interface{}{}
	err := json.Unmarshal([]byte(*a.Metadata), &a.MetadataParsed)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func (a *SyncActivity) MarshalMetadata() error {
	if a.MetadataParsed == nil {
		return nil
	}
	data, err := json.Marshal(a.MetadataParsed)
	if err != nil {
		return errors.WithStack(err)
	}
	s := string(data)
	a.Metadata = &s
	return nil
}
