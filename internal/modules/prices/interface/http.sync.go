package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"gridfeed/internal/modules/prices/application/port"
	"gridfeed/internal/modules/prices/application/usecase"
	"gridfeed/internal/platform/broker"
	"gridfeed/internal/shared/auth"
	"gridfeed/internal/shared/credentials"
	"gridfeed/internal/shared/httputil"
)

type syncResponse struct {
	RunID     string    `json:"runId"`
	Processed int       `json:"processed"`
	Elapsed   string    `json:"elapsed"`
	SyncedAt  time.Time `json:"syncedAt"`
}

var syncErrors = httputil.NewErrorMapper().
	WithMapping(port.ErrUnauthorized, http.StatusUnauthorized, "unauthorized").
	WithMapping(credentials.ErrIncomplete, http.StatusInternalServerError, "broker credentials incomplete").
	WithMapping(broker.ErrNoBrokers, http.StatusInternalServerError, "broker endpoints not configured").
	WithMapping(broker.ErrNoTopics, http.StatusInternalServerError, "broker topics not configured").
	WithMapping(port.ErrStoreUnavailable, http.StatusServiceUnavailable, "cache unavailable").
	WithDefault(http.StatusBadGateway, "broker sync failed")

// NewSyncHandler exposes POST /internal/sync for the scheduler that keeps the
// durable cache warm. The whole replay happens inside the request: the job's
// own budget keeps the response inside the scheduler's timeout.
func NewSyncHandler(job *usecase.SyncJob) func(echo.Context) error {
	return func(c echo.Context) error {
		presented := auth.ExtractBearerToken(c.Request())

		report, err := job.Run(c.Request().Context(), presented)
		if err != nil {
			info := syncErrors.Map(err)
			if info.Status >= http.StatusInternalServerError {
				slog.Error("sync handler run failed", slog.Int("status", info.Status), slog.Any("error", err))
			} else {
				slog.Warn("sync handler run rejected", slog.Int("status", info.Status), slog.Any("error", err))
			}
			return c.JSON(info.Status, echo.Map{"error": info.Message})
		}

		return c.JSON(http.StatusOK, syncResponse{
			RunID:     report.RunID,
			Processed: report.Processed,
			Elapsed:   report.Elapsed.String(),
			SyncedAt:  report.SyncedAt,
		})
	}
}
