package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	SyncStatusPending    = "pending"
	SyncStatusInProgress = "in_progress"
	SyncStatusCompleted  = "completed"
	SyncStatusFailed     = "failed"
)

// Sync is one user's subscription to pull a single object type from a
// connected integration.
type Sync struct {
	bun.BaseModel `bun:"table:syncs,alias:s"`

	ID              int       `bun:",pk,nullzero" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	UserID          int       `bun:",nullzero" json:"user_id"`
	IntegrationKey  string    `bun:",nullzero" json:"integration_key"`
	IntegrationName string    `bun:",nullzero" json:"integration_name"`
	AppObjectKey    string    `bun:",nullzero" json:"app_object_key"`
	RecordType      string    `bun:",nullzero" json:"record_type"`
	InstanceKey     string    `bun:",nullzero" json:"instance_key"`
	Status          string    `bun:",nullzero" json:"status"`
	SyncCount       int       `json:"sync_count"`
	PullError       *string   `json:"pull_error,omitempty"`

	User *User `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
}
