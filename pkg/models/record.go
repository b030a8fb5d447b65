package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

// Record is one synchronized external object. The integration's field map is
// stored as a JSON string in Data; DataParsed is the working representation.
// Records are unique per (external_id, user_id, sync_id).
type Record struct {
	bun.BaseModel `bun:"table:records,alias:r"`

	ID         int                    `bun:",pk,nullzero" json:"id"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
	ExternalID string                 `bun:",nullzero" json:"external_id"`
	SyncID     int                    `bun:",nullzero" json:"sync_id"`
	UserID     int                    `bun:",nullzero" json:"user_id"`
	RecordType string                 `bun:",nullzero" json:"record_type"`
	Name       string                 `json:"name"`
	Data       string                 `bun:",nullzero" json:"-"`
	DataParsed map[string]interface{} `bun:"-" json:"data"`
}

func (r *Record) UnmarshalData() error {
	r.DataParsed = map[string]interface{}{}
	if r.Data == "" {
		return nil
	}
	err := json.Unmarshal([]byte(r.Data), &r.DataParsed)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func (r *Record) MarshalData() error {
	if r.DataParsed == nil {
		r.DataParsed = map[string]interface{}{}
	}
	data, err := json.Marshal(r.DataParsed)
	if err != nil {
		return errors.WithStack(err)
	}
	r.Data = string(data)
	return nil
}

// MergeFields applies a shallow overwrite of the given fields onto the
// record's field map. Existing keys not present in fields are kept.
func (r *Record) MergeFields(fields map[string]interface{}) error {
	if r.DataParsed == nil {
		if err := r.UnmarshalData(); err != nil {
			return err
		}
	}
	for k, v := range fields {
		r.DataParsed[k] = v
	}
	return r.MarshalData()
}
