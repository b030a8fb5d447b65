package syncs

import (
	"context"
	"database/sql"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncdeck/syncdeck/pkg/auth"
	"github.com/syncdeck/syncdeck/pkg/dispatch"
	"github.com/syncdeck/syncdeck/pkg/errcodes"
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

// fakeDispatcher records dispatched events and can be told to fail.
type fakeDispatcher struct {
	events []dispatch.Event
	err    error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, event dispatch.Event) error {
	if d.err != nil {
		return d.err
	}
	d.events = append(d.events, event)
	return nil
}

func createTestUser(ctx context.Context, t *testing.T, db *bun.DB, authUserID string) *models.User {
	t.Helper()

	user := &models.User{AuthUserID: authUserID, FullName: "Test User"}
	_, err := db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)
	return user
}

func createTestSync(ctx context.Context, t *testing.T, db *bun.DB, userID int, status string, syncCount int) *models.Sync {
	t.Helper()

	sync := &models.Sync{
		UserID:          userID,
		IntegrationKey:  "airtable",
		IntegrationName: "Airtable",
		AppObjectKey:    "contacts/list",
		RecordType:      "contact",
		InstanceKey:     "inst-" + authKeySuffix(userID),
		Status:          status,
		SyncCount:       syncCount,
	}
	_, err := db.NewInsert().Model(sync).Exec(ctx)
	require.NoError(t, err)
	return sync
}

func authKeySuffix(userID int) string {
	return string(rune('a' + userID%26))
}

func createTestRecord(ctx context.Context, t *testing.T, db *bun.DB, sync *models.Sync, externalID string) *models.Record {
	t.Helper()

	record := &models.Record{
		ExternalID: externalID,
		SyncID:     sync.ID,
		UserID:     sync.UserID,
		RecordType: sync.RecordType,
		Name:       "Record " + externalID,
		Data:       `{"status":"active"}`,
	}
	_, err := db.NewInsert().Model(record).Exec(ctx)
	require.NoError(t, err)
	return record
}

func testIdentity(user *models.User) *auth.Identity {
	return &auth.Identity{
		AuthUserID:  user.AuthUserID,
		UserID:      user.ID,
		FullName:    user.FullName,
		AccessToken: "test-access-token",
	}
}

func TestServiceRetrieve_ScopesByOwner(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db, dispatch.NewTrigger(&fakeDispatcher{}))
	ctx := context.Background()

	owner := createTestUser(ctx, t, db, "auth|owner")
	other := createTestUser(ctx, t, db, "auth|other")
	sync := createTestSync(ctx, t, db, owner.ID, models.SyncStatusCompleted, 3)

	found, err := svc.Retrieve(ctx, sync.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, sync.ID, found.ID)

	// Another user's sync and a missing sync produce the same error.
	_, crossErr := svc.Retrieve(ctx, sync.ID, other.ID)
	_, missingErr := svc.Retrieve(ctx, 999999, owner.ID)
	require.Error(t, crossErr)
	require.Error(t, missingErr)
	assert.True(t, errors.Is(crossErr, errcodes.NotFound("Sync")))
	assert.True(t, errors.Is(missingErr, errcodes.NotFound("Sync")))
}

func TestServiceResync_FullInvalidation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	dispatcher := &fakeDispatcher{}
	svc := NewService(db, dispatch.NewTrigger(dispatcher))
	ctx := context.Background()

	user := createTestUser(ctx, t, db, "auth|resync")
	sync := createTestSync(ctx, t, db, user.ID, models.SyncStatusCompleted, 3)
	createTestRecord(ctx, t, db, sync, "rec-1")
	createTestRecord(ctx, t, db, sync, "rec-2")
	createTestRecord(ctx, t, db, sync, "rec-3")

	err := svc.Resync(ctx, testIdentity(user), sync.ID)
	require.NoError(t, err)

	updated, err := svc.Retrieve(ctx, sync.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusInProgress, updated.Status)
	assert.Nil(t, updated.PullError)

	// All records under the sync are gone.
	count, err := db.NewSelect().
		Model((*models.Record)(nil)).
		Where("sync_id = ?", sync.ID).
		Where("user_id = ?", user.ID).
		Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	// One activity entry captured the prior sync count.
	activity := &models.SyncActivity{}
	err = db.NewSelect().
		Model(activity).
		Where("sa.sync_id = ?", sync.ID).
		Where("sa.type = ?", models.ActivityTypeSyncResyncTriggered).
		Scan(ctx)
	require.NoError(t, err)
	require.NoError(t, activity.UnmarshalMetadata())
	assert.EqualValues(t, 3, activity.MetadataParsed["previous_sync_count"])

	// Exactly one pull was dispatched with the sync's integration key.
	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, models.JobTypePullRecords, dispatcher.events[0].Name)
	assert.Equal(t, "airtable", dispatcher.events[0].Payload.IntegrationKey)
	assert.Equal(t, sync.ID, dispatcher.events[0].Payload.SyncID)
	assert.Equal(t, "test-access-token", dispatcher.events[0].Payload.Token)
}

func TestServiceResync_ClearsPriorError(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := NewService(db, dispatch.NewTrigger(&fakeDispatcher{}))
	ctx := context.Background()

	user := createTestUser(ctx, t, db, "auth|failed")

	for _, status := range []string{models.SyncStatusPending, models.SyncStatusCompleted, models.SyncStatusFailed} {
		sync := createTestSync(ctx, t, db, user.ID, status, 1)
		msg := "pull blew up"
		sync.PullError = &msg
		err := svc.UpdateSync(ctx, sync, UpdateSyncOptions{Columns: []string{"pull_error"}})
		require.NoError(t, err)

		err = svc.Resync(ctx, testIdentity(user), sync.ID)
		require.NoError(t, err)

		updated, err := svc.Retrieve(ctx, sync.ID, user.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SyncStatusInProgress, updated.Status)
		assert.Nil(t, updated.PullError)
	}
}

func TestServiceResync_DispatchFailureSurfaces(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	dispatcher := &fakeDispatcher{err: errors.New("runner unavailable")}
	svc := NewService(db, dispatch.NewTrigger(dispatcher))
	ctx := context.Background()

	user := createTestUser(ctx, t, db, "auth|dispatchfail")
	sync := createTestSync(ctx, t, db, user.ID, models.SyncStatusCompleted, 2)
	createTestRecord(ctx, t, db, sync, "rec-1")

	err := svc.Resync(ctx, testIdentity(user), sync.ID)
	require.Error(t, err)

	// The sync stays in_progress and the delete is not rolled back; the
	// caller sees the failure instead of a silent success.
	updated, retrieveErr := svc.Retrieve(ctx, sync.ID, user.ID)
	require.NoError(t, retrieveErr)
	assert.Equal(t, models.SyncStatusInProgress, updated.Status)

	count, countErr := db.NewSelect().
		Model((*models.Record)(nil)).
		Where("sync_id = ?", sync.ID).
		Count(ctx)
	require.NoError(t, countErr)
	assert.Zero(t, count)
}

func TestServiceResync_WrongOwnerIsNotFound(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	dispatcher := &fakeDispatcher{}
	svc := NewService(db, dispatch.NewTrigger(dispatcher))
	ctx := context.Background()

	owner := createTestUser(ctx, t, db, "auth|o1")
	other := createTestUser(ctx, t, db, "auth|o2")
	sync := createTestSync(ctx, t, db, owner.ID, models.SyncStatusCompleted, 5)
	createTestRecord(ctx, t, db, sync, "rec-1")

	err := svc.Resync(ctx, testIdentity(other), sync.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errcodes.NotFound("Sync")))

	// Nothing happened: no dispatch, records intact, status untouched.
	assert.Empty(t, dispatcher.events)

	updated, err := svc.Retrieve(ctx, sync.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusCompleted, updated.Status)

	count, err := db.NewSelect().
		Model((*models.Record)(nil)).
		Where("sync_id = ?", sync.ID).
		Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestServiceCreate_DispatchesInitialPull(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	dispatcher := &fakeDispatcher{}
	svc := NewService(db, dispatch.NewTrigger(dispatcher))
	ctx := context.Background()

	user := createTestUser(ctx, t, db, "auth|create")
	sync := &models.Sync{
		IntegrationKey:  "hubspot",
		IntegrationName: "HubSpot",
		AppObjectKey:    "deals/list",
		RecordType:      "deal",
		InstanceKey:     "inst-create",
	}

	err := svc.Create(ctx, testIdentity(user), sync)
	require.NoError(t, err)

	assert.NotZero(t, sync.ID)
	assert.Equal(t, models.SyncStatusInProgress, sync.Status)
	assert.Equal(t, user.ID, sync.UserID)

	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, "hubspot", dispatcher.events[0].Payload.IntegrationKey)
	assert.Equal(t, "inst-create", dispatcher.events[0].Payload.InstanceKey)

	activity := &models.SyncActivity{}
	err = db.NewSelect().
		Model(activity).
		Where("sa.sync_id = ?", sync.ID).
		Where("sa.type = ?", models.ActivityTypeSyncStarted).
		Scan(ctx)
	require.NoError(t, err)
}
