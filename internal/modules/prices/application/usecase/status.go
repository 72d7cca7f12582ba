package usecase

import (
	"context"
	"time"

	"gridfeed/internal/modules/prices/application/port"
	"gridfeed/internal/modules/prices/domain"
)

// statusScheduled is reported by the durable topology, where no consumer
// lives inside the process and freshness is tracked by the sync clock.
const statusScheduled = "scheduled"

// StateSource exposes the live consumer's connection state. The stream
// consumer implements it; the durable topology runs without one.
type StateSource interface {
	State() (domain.ConsumerState, string)
	LastMessageAt() time.Time
}

// StatusAggregator assembles the health snapshot served by GET /status.
// Exactly one of Stream and Clock is set, depending on the topology the
// process was booted in.
type StatusAggregator struct {
	Store  port.PriceStore
	Stream StateSource
	Clock  port.SyncMarker
}

func NewStatusAggregator(store port.PriceStore, stream StateSource, clock port.SyncMarker) *StatusAggregator {
	return &StatusAggregator{Store: store, Stream: stream, Clock: clock}
}

func (a *StatusAggregator) Snapshot(ctx context.Context) (domain.StatusSnapshot, error) {
	snap := domain.StatusSnapshot{AvailableDays: make(map[domain.Topic][]string, len(domain.Topics()))}

	switch {
	case a.Stream != nil:
		state, reason := a.Stream.State()
		snap.Status = renderState(state, reason)
		snap.LastMessageAt = a.Stream.LastMessageAt()
	case a.Clock != nil:
		last, err := a.Clock.LastSynced(ctx)
		if err != nil {
			return domain.StatusSnapshot{}, err
		}
		snap.Status = statusScheduled
		snap.LastMessageAt = last
	default:
		snap.Status = string(domain.StateDisconnected)
	}

	count, err := a.Store.EntryCount(ctx)
	if err != nil {
		return domain.StatusSnapshot{}, err
	}
	snap.CachedEntries = count

	for _, topic := range domain.Topics() {
		days, err := a.Store.ListDays(ctx, topic)
		if err != nil {
			return domain.StatusSnapshot{}, err
		}
		snap.AvailableDays[topic] = days
	}
	return snap, nil
}

// renderState folds the failure reason into the status string so operators
// see why the consumer died without digging through logs.
func renderState(state domain.ConsumerState, reason string) string {
	if state == domain.StateError && reason != "" {
		return string(state) + ": " + reason
	}
	return string(state)
}
