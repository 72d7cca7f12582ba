package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"gridfeed/internal/modules/prices/application/port"
	"gridfeed/internal/modules/prices/domain"
	"gridfeed/internal/shared/auth"
)

const defaultSyncBudget = 25 * time.Second

// SyncJob replays both topics into the durable store within a wall-clock
// budget, then advances the sync clock. A run stops when the stream drains
// or the budget elapses, whichever comes first; repeated runs converge on
// the same entries through last-write-wins upserts.
type SyncJob struct {
	Resolve port.CredentialResolver
	Open    port.SessionOpener
	Store   port.PriceStore
	Marker  port.SyncMarker
	Secret  string
	Budget  time.Duration

	now func() time.Time
}

type SyncReport struct {
	RunID     string
	Processed int
	Elapsed   time.Duration
	SyncedAt  time.Time
}

func NewSyncJob(resolve port.CredentialResolver, open port.SessionOpener, store port.PriceStore, marker port.SyncMarker, secret string, budget time.Duration) *SyncJob {
	return &SyncJob{
		Resolve: resolve,
		Open:    open,
		Store:   store,
		Marker:  marker,
		Secret:  secret,
		Budget:  budget,
		now:     time.Now,
	}
}

// Run performs one bounded replay. The presented secret is checked before
// anything else touches the broker or the store.
func (j *SyncJob) Run(ctx context.Context, presented string) (SyncReport, error) {
	if !auth.SecretEqual(j.Secret, presented) {
		return SyncReport{}, port.ErrUnauthorized
	}

	runID := uuid.NewString()
	started := j.now()
	budget := j.Budget
	if budget <= 0 {
		budget = defaultSyncBudget
	}

	bundle, err := j.Resolve()
	if err != nil {
		return SyncReport{}, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	source, err := j.Open(runCtx, bundle)
	if err != nil {
		return SyncReport{}, fmt.Errorf("open broker session: %w", err)
	}
	defer func() {
		if cerr := source.Close(); cerr != nil {
			slog.Warn("sync-run close session", slog.String("runId", runID), slog.Any("error", cerr))
		}
	}()

	slog.Info("sync-run started", slog.String("runId", runID), slog.Duration("budget", budget))

	processed := 0
	drained := make(chan struct{})
	var wg conc.WaitGroup
	wg.Go(func() {
		defer close(drained)
		for msg := range source.Messages() {
			doc, err := domain.DecodeDocument(msg, j.now().UTC())
			if err != nil {
				slog.Warn("sync-run skipping message",
					slog.String("runId", runID),
					slog.String("topic", string(msg.Topic)),
					slog.Int64("offset", msg.Offset),
					slog.Any("error", err))
				continue
			}
			if err := j.Store.Put(runCtx, doc); err != nil {
				slog.Error("sync-run store put failed",
					slog.String("runId", runID),
					slog.String("topic", string(doc.Topic)),
					slog.String("day", doc.Day),
					slog.Any("error", err))
				continue
			}
			processed++
		}
	})

	timer := time.NewTimer(budget)
	defer timer.Stop()

	var outcome string
	select {
	case <-drained:
		outcome = "drained"
	case <-timer.C:
		outcome = "budget exhausted"
	case <-ctx.Done():
		outcome = "canceled"
	}
	cancel()
	wg.Wait()

	completed := j.now().UTC()
	if err := j.Marker.MarkSynced(ctx, completed); err != nil {
		return SyncReport{}, fmt.Errorf("mark synced: %w", err)
	}

	report := SyncReport{
		RunID:     runID,
		Processed: processed,
		Elapsed:   j.now().Sub(started),
		SyncedAt:  completed,
	}
	slog.Info("sync-run finished",
		slog.String("runId", runID),
		slog.String("outcome", outcome),
		slog.Int("processed", report.Processed),
		slog.Duration("elapsed", report.Elapsed))
	return report, nil
}
