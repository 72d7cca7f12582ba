package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"gridfeed/internal/modules/prices/application/port"
	"gridfeed/internal/modules/prices/application/usecase"
	"gridfeed/internal/modules/prices/domain"
)

const readTimeout = 5 * time.Second

type statusResponse struct {
	Status         string                    `json:"status"`
	LastMessageAt  *time.Time                `json:"lastMessageAt"`
	CachedEntries  int                       `json:"cachedEntries"`
	AvailableDates map[domain.Topic][]string `json:"availableDates"`
}

// missResponse is the 200 body served when nothing is cached for the
// requested day: an empty data array plus the days that do exist.
type missResponse struct {
	Date           string   `json:"date"`
	Source         string   `json:"source"`
	Data           []any    `json:"data"`
	AvailableDates []string `json:"available_dates"`
}

// NewStatusHandler expone GET /status con el estado del consumo y las fechas cacheadas.
func NewStatusHandler(status *usecase.StatusAggregator) func(echo.Context) error {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), readTimeout)
		defer cancel()

		snap, err := status.Snapshot(ctx)
		if err != nil {
			slog.Error("status handler snapshot failed", slog.Any("error", err))
			return c.JSON(http.StatusServiceUnavailable, unavailableStatus())
		}

		return c.JSON(http.StatusOK, statusResponse{
			Status:         snap.Status,
			LastMessageAt:  nullableTime(snap.LastMessageAt),
			CachedEntries:  snap.CachedEntries,
			AvailableDates: snap.AvailableDays,
		})
	}
}

// NewPriceDayHandler exposes GET /<topic>/:date and serves the cached payload
// for that calendar day verbatim.
func NewPriceDayHandler(store port.PriceStore, topic domain.Topic) func(echo.Context) error {
	return func(c echo.Context) error {
		day, err := domain.ParseDay(c.Param("date"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": domain.ErrInvalidDay.Error()})
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), readTimeout)
		defer cancel()

		doc, err := store.Get(ctx, topic, day)
		switch {
		case errors.Is(err, port.ErrNotFound):
			days, listErr := store.ListDays(ctx, topic)
			if listErr != nil {
				slog.Error("price handler list days failed", slog.String("topic", string(topic)), slog.Any("error", listErr))
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "cache unavailable"})
			}
			return c.JSON(http.StatusOK, missResponse{
				Date:           day,
				Source:         string(topic),
				Data:           []any{},
				AvailableDates: nonNilDays(days),
			})
		case err != nil:
			slog.Error("price handler get failed", slog.String("topic", string(topic)), slog.String("day", day), slog.Any("error", err))
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "cache unavailable"})
		}

		return c.JSONBlob(http.StatusOK, doc.Payload)
	}
}

// NewDatesHandler exposes GET /dates listing every cached day per topic.
func NewDatesHandler(store port.PriceStore) func(echo.Context) error {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), readTimeout)
		defer cancel()

		dates := make(map[domain.Topic][]string, len(domain.Topics()))
		for _, topic := range domain.Topics() {
			days, err := store.ListDays(ctx, topic)
			if err != nil {
				slog.Error("dates handler list days failed", slog.String("topic", string(topic)), slog.Any("error", err))
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "cache unavailable"})
			}
			dates[topic] = nonNilDays(days)
		}

		return c.JSON(http.StatusOK, dates)
	}
}

func unavailableStatus() statusResponse {
	empty := make(map[domain.Topic][]string, len(domain.Topics()))
	for _, topic := range domain.Topics() {
		empty[topic] = []string{}
	}
	return statusResponse{Status: "unavailable", AvailableDates: empty}
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nonNilDays(days []string) []string {
	if days == nil {
		return []string{}
	}
	return days
}
