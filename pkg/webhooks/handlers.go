package webhooks

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/syncdeck/syncdeck/pkg/activities"
	"github.com/syncdeck/syncdeck/pkg/errcodes"
	"github.com/syncdeck/syncdeck/pkg/models"
	"github.com/syncdeck/syncdeck/pkg/platform"
	"github.com/syncdeck/syncdeck/pkg/records"
	"github.com/syncdeck/syncdeck/pkg/syncs"
)

// TokenHeader carries the platform-signed token on inbound webhooks.
const TokenHeader = "X-Platform-Token"

type handler struct {
	platform        *platform.Client
	syncService     *syncs.Service
	recordService   *records.Service
	activityService *activities.Service
}

// onUpdate applies a single record's field changes. Webhooks can arrive after
// a resync deleted the records, or out of order relative to a pull; a
// vanished sync or record is a successful no-op, never an error. Only auth
// and validation failures, the conditions under the sender's control, fail
// the request.
func (h *handler) onUpdate(c echo.Context) error {
	ctx := c.Request().Context()

	claims, err := h.platform.VerifyWebhookToken(c.Request().Header.Get(TokenHeader))
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
	}

	params := OnUpdatePayload{}
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid webhook payload"})
	}

	sync, err := h.syncService.RetrieveByInstanceKey(ctx, params.InstanceKey, claims.UserID)
	if err != nil {
		var e *errcodes.Error
		if errors.As(err, &e) && e.HTTPCode == http.StatusNotFound {
			// Expected race: the sync was deleted before in-flight
			// webhooks drained.
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Sync not found"})
		}
		return errors.WithStack(err)
	}

	record, err := h.recordService.Retrieve(ctx, params.ExternalRecordID, claims.UserID, sync.ID)
	if err != nil {
		var e *errcodes.Error
		if errors.As(err, &e) && e.HTTPCode == http.StatusNotFound {
			// The record was deleted (e.g. by a resync) before this
			// webhook landed. Non-fatal.
			return c.JSON(http.StatusOK, map[string]string{"message": "Document not found"})
		}
		return errors.WithStack(err)
	}

	err = h.recordService.UpdateFields(ctx, record, params.Data.Fields)
	if err != nil {
		logger.FromContext(ctx).Err(err).Error("webhook update error")
		return errors.WithStack(err)
	}

	h.activityService.Record(ctx, &models.SyncActivity{
		SyncID:   sync.ID,
		UserID:   claims.UserID,
		Type:     models.ActivityTypeRecordUpdated,
		RecordID: &record.ID,
	})

	return errors.WithStack(c.JSON(http.StatusOK, map[string]string{"message": "ok"}))
}
