package webhooks

import (
	"github.com/labstack/echo/v4"
	"github.com/syncdeck/syncdeck/pkg/activities"
	"github.com/syncdeck/syncdeck/pkg/dispatch"
	"github.com/syncdeck/syncdeck/pkg/platform"
	"github.com/syncdeck/syncdeck/pkg/records"
	"github.com/syncdeck/syncdeck/pkg/syncs"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers webhook routes. These are authenticated by the
// platform-signed token, not by a dashboard session.
func RegisterRoutes(e *echo.Echo, db *bun.DB, platformClient *platform.Client, trigger *dispatch.Trigger) {
	h := &handler{
		platform:        platformClient,
		syncService:     syncs.NewService(db, trigger),
		recordService:   records.NewService(db),
		activityService: activities.NewService(db),
	}

	e.POST("/api/webhooks/on-update", h.onUpdate)
}
