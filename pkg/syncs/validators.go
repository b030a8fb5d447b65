package syncs

import "github.com/syncdeck/syncdeck/pkg/models"

// CreateSyncPayload starts syncing one integration object type.
type CreateSyncPayload struct {
	IntegrationKey  string `json:"integration_key" mod:"trim" validate:"required,max=100"`
	IntegrationName string `json:"integration_name" mod:"trim" validate:"required,max=100"`
	AppObjectKey    string `json:"app_object_key" mod:"trim" validate:"required,max=100"`
	RecordType      string `json:"record_type" mod:"trim" validate:"required,max=100"`
	InstanceKey     string `json:"instance_key" mod:"trim" validate:"required,max=100"`
}

type ListActivitiesQuery struct {
	Limit int `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=200"`
}

type ListRecordsQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=200"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}

// SyncSummary is the abbreviated sync representation returned alongside its
// activity trail.
type SyncSummary struct {
	ID              int    `json:"id"`
	IntegrationName string `json:"integration_name"`
	Status          string `json:"status"`
}

type ListActivitiesResponse struct {
	Success    bool                   `json:"success"`
	Activities []*models.SyncActivity `json:"activities"`
	Sync       SyncSummary            `json:"sync"`
}

type ResyncResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
