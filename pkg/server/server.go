package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/syncdeck/syncdeck/pkg/auth"
	"github.com/syncdeck/syncdeck/pkg/binder"
	"github.com/syncdeck/syncdeck/pkg/config"
	"github.com/syncdeck/syncdeck/pkg/dispatch"
	"github.com/syncdeck/syncdeck/pkg/errcodes"
	"github.com/syncdeck/syncdeck/pkg/platform"
	"github.com/syncdeck/syncdeck/pkg/syncs"
	"github.com/syncdeck/syncdeck/pkg/webhooks"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB, platformClient *platform.Client) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	trigger := dispatch.NewTrigger(dispatch.NewOutboxDispatcher(db))

	// Register auth routes and get the auth service
	authService := auth.RegisterRoutes(e, db, platformClient, cfg.SessionSecret)
	authMiddleware := auth.NewMiddleware(authService)

	// Sync routes require a dashboard session.
	syncsGroup := e.Group("/api/syncs")
	syncsGroup.Use(authMiddleware.Authenticate)
	syncs.RegisterRoutesWithGroup(syncsGroup, db, trigger)

	// Webhook routes are authenticated by the platform-signed token instead.
	webhooks.RegisterRoutes(e, db, platformClient, trigger)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
