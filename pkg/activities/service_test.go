package activities

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncdeck/syncdeck/pkg/migrations"
	"github.com/syncdeck/syncdeck/pkg/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func seedSync(ctx context.Context, t *testing.T, db *bun.DB) *models.Sync {
	t.Helper()

	user := &models.User{AuthUserID: "auth|act", FullName: "Test User"}
	_, err := db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)

	sync := &models.Sync{
		UserID:          user.ID,
		IntegrationKey:  "airtable",
		IntegrationName: "Airtable",
		AppObjectKey:    "contacts/list",
		RecordType:      "contact",
		InstanceKey:     "inst-1",
		Status:          models.SyncStatusInProgress,
	}
	_, err = db.NewInsert().Model(sync).Exec(ctx)
	require.NoError(t, err)
	return sync
}

func TestServiceRecord(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	sync := seedSync(ctx, t, db)

	svc.Record(ctx, &models.SyncActivity{
		SyncID: sync.ID,
		UserID: sync.UserID,
		Type:   models.ActivityTypeSyncResyncTriggered,
		MetadataParsed: map[string]interface{}{
			"previous_sync_count": 3,
		},
	})

	list := svc.List(ctx, sync.ID, sync.UserID, 0)
	require.Len(t, list, 1)
	assert.Equal(t, models.ActivityTypeSyncResyncTriggered, list[0].Type)
	assert.Equal(t, map[string]interface{}{"previous_sync_count": float64(3)}, list[0].MetadataParsed)
	assert.False(t, list[0].CreatedAt.IsZero())
}

func TestServiceRecord_FailureIsSwallowed(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	sync := seedSync(ctx, t, db)

	// Drop the table so the insert fails. Record must not panic or surface
	// the error.
	_, err := db.ExecContext(ctx, "DROP TABLE sync_activities")
	require.NoError(t, err)

	svc.Record(ctx, &models.SyncActivity{
		SyncID: sync.ID,
		UserID: sync.UserID,
		Type:   models.ActivityTypeSyncStarted,
	})

	list := svc.List(ctx, sync.ID, sync.UserID, 0)
	assert.Empty(t, list)
}

func TestServiceList_NewestFirst(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	sync := seedSync(ctx, t, db)
	base := time.Now().Add(-time.Hour)

	types := []string{
		models.ActivityTypeSyncStarted,
		models.ActivityTypeSyncCompleted,
		models.ActivityTypeRecordUpdated,
	}
	for i, typ := range types {
		svc.Record(ctx, &models.SyncActivity{
			SyncID:    sync.ID,
			UserID:    sync.UserID,
			Type:      typ,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	list := svc.List(ctx, sync.ID, sync.UserID, 0)
	require.Len(t, list, 3)
	assert.Equal(t, models.ActivityTypeRecordUpdated, list[0].Type)
	assert.Equal(t, models.ActivityTypeSyncCompleted, list[1].Type)
	assert.Equal(t, models.ActivityTypeSyncStarted, list[2].Type)
}

func TestServiceList_Limit(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	sync := seedSync(ctx, t, db)
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 60; i++ {
		svc.Record(ctx, &models.SyncActivity{
			SyncID:    sync.ID,
			UserID:    sync.UserID,
			Type:      models.ActivityTypeRecordUpdated,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	// Zero falls back to the default limit.
	assert.Len(t, svc.List(ctx, sync.ID, sync.UserID, 0), DefaultListLimit)
	assert.Len(t, svc.List(ctx, sync.ID, sync.UserID, 10), 10)
}

func TestServiceList_ScopesByUser(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	sync := seedSync(ctx, t, db)

	svc.Record(ctx, &models.SyncActivity{
		SyncID: sync.ID,
		UserID: sync.UserID,
		Type:   models.ActivityTypeSyncStarted,
	})

	assert.Len(t, svc.List(ctx, sync.ID, sync.UserID, 0), 1)
	assert.Empty(t, svc.List(ctx, sync.ID, sync.UserID+1, 0))
}
