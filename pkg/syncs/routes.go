package syncs

import (
	"github.com/labstack/echo/v4"
	"github.com/syncdeck/syncdeck/pkg/activities"
	"github.com/syncdeck/syncdeck/pkg/dispatch"
	"github.com/syncdeck/syncdeck/pkg/records"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers sync routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, trigger *dispatch.Trigger) {
	h := &handler{
		syncService:     NewService(db, trigger),
		activityService: activities.NewService(db),
		recordService:   records.NewService(db),
	}

	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.retrieve)
	g.POST("/:id/resync", h.resync)
	g.GET("/:id/activities", h.listActivities)
	g.GET("/:id/records", h.listRecords)
}
