package auth

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syncdeck/syncdeck/pkg/config"
	"github.com/syncdeck/syncdeck/pkg/migrations"
	"github.com/syncdeck/syncdeck/pkg/models"
	"github.com/syncdeck/syncdeck/pkg/platform"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const testSessionSecret = "test-session-secret"

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

func newTestService(t *testing.T, db *bun.DB) *Service {
	t.Helper()

	cfg := &config.Config{
		PlatformAPIURL:   "http://localhost:0",
		PlatformSecret:   "test-platform-secret",
		PlatformTimeout:  time.Second,
		PlatformTokenTTL: time.Minute,
	}
	return NewService(db, platform.NewClient(cfg), testSessionSecret)
}

func TestSessionTokenRoundTrip(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestDB(t))

	token, err := svc.GenerateSessionToken("auth|123", "Dana Scully", pointerutil.String("dana@example.com"))
	require.NoError(t, err)

	claims, err := svc.ValidateSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "auth|123", claims.AuthUserID)
	assert.Equal(t, "Dana Scully", claims.FullName)
	require.NotNil(t, claims.Email)
	assert.Equal(t, "dana@example.com", *claims.Email)
}

func TestValidateSessionToken_Garbage(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, newTestDB(t))

	_, err := svc.ValidateSessionToken("not-a-token")
	assert.Error(t, err)
}

func TestValidateSessionToken_WrongSecret(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	other := NewService(db, nil, "a-different-secret")
	token, err := other.GenerateSessionToken("auth|123", "Dana Scully", nil)
	require.NoError(t, err)

	_, err = svc.ValidateSessionToken(token)
	assert.Error(t, err)
}

func TestResolveIdentity_CreatesUserOnFirstSight(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	claims := &SessionClaims{
		AuthUserID: "auth|new",
		FullName:   "Fox Mulder",
		Email:      pointerutil.String("fox@example.com"),
	}

	identity, err := svc.ResolveIdentity(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, "auth|new", identity.AuthUserID)
	assert.Equal(t, "Fox Mulder", identity.FullName)
	assert.NotZero(t, identity.UserID)
	assert.NotEmpty(t, identity.AccessToken)

	user := &models.User{}
	err = db.NewSelect().Model(user).Where("u.auth_user_id = ?", "auth|new").Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, identity.UserID, user.ID)
	require.NotNil(t, user.Email)
	assert.Equal(t, "fox@example.com", *user.Email)
}

func TestResolveIdentity_ReusesExistingUser(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	claims := &SessionClaims{AuthUserID: "auth|repeat", FullName: "Fox Mulder"}

	first, err := svc.ResolveIdentity(ctx, claims)
	require.NoError(t, err)
	second, err := svc.ResolveIdentity(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, first.UserID, second.UserID)

	count, err := db.NewSelect().Model((*models.User)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	m := NewMiddleware(svc)

	next := func(c echo.Context) error {
		identity, ok := IdentityFromContext(c)
		require.True(t, ok)
		return c.JSON(http.StatusOK, identity)
	}

	token, err := svc.GenerateSessionToken("auth|mw", "Dana Scully", nil)
	require.NoError(t, err)

	t.Run("accepts the session cookie", func(t *testing.T) {
		c, rr := newEchoContext(t)
		c.Request().AddCookie(&http.Cookie{Name: CookieName, Value: token})

		err := m.Authenticate(next)(c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("accepts a bearer header", func(t *testing.T) {
		c, rr := newEchoContext(t)
		c.Request().Header.Set("Authorization", "Bearer "+token)

		err := m.Authenticate(next)(c)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("rejects a missing token", func(t *testing.T) {
		c, _ := newEchoContext(t)

		err := m.Authenticate(next)(c)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Authentication required")
	})

	t.Run("rejects an invalid token", func(t *testing.T) {
		c, _ := newEchoContext(t)
		c.Request().Header.Set("Authorization", "Bearer nope")

		err := m.Authenticate(next)(c)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid or expired token")
	})
}

func newEchoContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr), rr
}
