package syncs

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/syncdeck/syncdeck/pkg/activities"
	"github.com/syncdeck/syncdeck/pkg/auth"
	"github.com/syncdeck/syncdeck/pkg/errcodes"
	"github.com/syncdeck/syncdeck/pkg/models"
	"github.com/syncdeck/syncdeck/pkg/records"
)

type handler struct {
	syncService     *Service
	activityService *activities.Service
	recordService   *records.Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	params := CreateSyncPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	sync := &models.Sync{
		IntegrationKey:  params.IntegrationKey,
		IntegrationName: params.IntegrationName,
		AppObjectKey:    params.AppObjectKey,
		RecordType:      params.RecordType,
		InstanceKey:     params.InstanceKey,
	}

	err := h.syncService.Create(ctx, identity, sync)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, sync))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	syncs, err := h.syncService.List(ctx, identity.UserID)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Syncs []*models.Sync `json:"syncs"`
	}{syncs}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Sync")
	}

	sync, err := h.syncService.Retrieve(ctx, id, identity.UserID)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, sync))
}

// resync re-triggers a full pull for a sync the caller owns. The response
// shape is {success} rather than the shared error envelope; the dashboard
// keys off that flag.
func (h *handler) resync(c echo.Context) error {
	ctx := c.Request().Context()

	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, ResyncResponse{Success: false, Message: "Sync not found."})
	}

	err = h.syncService.Resync(ctx, identity, id)
	if err != nil {
		var e *errcodes.Error
		if errors.As(err, &e) && e.HTTPCode == http.StatusNotFound {
			return c.JSON(http.StatusNotFound, ResyncResponse{Success: false, Message: "Sync not found."})
		}

		logger.FromContext(ctx).Err(err).Error("resync error")
		return c.JSON(http.StatusInternalServerError, ResyncResponse{Success: false, Message: "Failed to resync."})
	}

	return errors.WithStack(c.JSON(http.StatusOK, ResyncResponse{Success: true}))
}

func (h *handler) listActivities(c echo.Context) error {
	ctx := c.Request().Context()

	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Sync")
	}

	params := ListActivitiesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	sync, err := h.syncService.Retrieve(ctx, id, identity.UserID)
	if err != nil {
		return errors.WithStack(err)
	}

	list := h.activityService.List(ctx, sync.ID, identity.UserID, params.Limit)

	return errors.WithStack(c.JSON(http.StatusOK, ListActivitiesResponse{
		Success:    true,
		Activities: list,
		Sync: SyncSummary{
			ID:              sync.ID,
			IntegrationName: sync.IntegrationName,
			Status:          sync.Status,
		},
	}))
}

func (h *handler) listRecords(c echo.Context) error {
	ctx := c.Request().Context()

	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Sync")
	}

	params := ListRecordsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	sync, err := h.syncService.Retrieve(ctx, id, identity.UserID)
	if err != nil {
		return errors.WithStack(err)
	}

	list, err := h.recordService.List(ctx, records.ListRecordsOptions{
		SyncID: sync.ID,
		UserID: identity.UserID,
		Limit:  &params.Limit,
		Offset: &params.Offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	total, err := h.recordService.CountBySync(ctx, sync.ID, identity.UserID)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Records []*models.Record `json:"records"`
		Total   int              `json:"total"`
	}{list, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
