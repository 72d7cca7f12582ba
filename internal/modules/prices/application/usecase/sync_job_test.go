package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gridfeed/internal/modules/prices/application/port"
	"gridfeed/internal/modules/prices/domain"
	"gridfeed/internal/shared/credentials"
)

type fakeMarker struct {
	mu    sync.Mutex
	marks []time.Time
	err   error
}

func (f *fakeMarker) MarkSynced(ctx context.Context, completedAt time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marks = append(f.marks, completedAt)
	return nil
}

func (f *fakeMarker) LastSynced(ctx context.Context) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.marks) == 0 {
		return time.Time{}, nil
	}
	return f.marks[len(f.marks)-1], nil
}

func (f *fakeMarker) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.marks)
}

// endlessOpener mimics a live broker session: the channel keeps producing
// until the session context is canceled, then closes.
func endlessOpener() port.SessionOpener {
	return func(ctx context.Context, bundle credentials.Bundle) (port.MessageSource, error) {
		source := &fakeSource{messages: make(chan domain.Message)}
		go func() {
			defer close(source.messages)
			for i := 0; ; i++ {
				msg := priceMessage(domain.TopicCables, fmt.Sprintf("2026-01-%02d", i%28+1))
				select {
				case source.messages <- msg:
				case <-ctx.Done():
					return
				}
			}
		}()
		return source, nil
	}
}

func TestSyncJobRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	var resolved, opened atomic.Bool
	resolve := func() (credentials.Bundle, error) {
		resolved.Store(true)
		return credentials.Bundle{}, nil
	}
	open := func(ctx context.Context, bundle credentials.Bundle) (port.MessageSource, error) {
		opened.Store(true)
		return nil, errors.New("should not be reached")
	}
	store := &fakeStore{}
	marker := &fakeMarker{}

	job := NewSyncJob(resolve, open, store, marker, "s3cr3t", time.Second)

	_, err := job.Run(context.Background(), "wrong")
	if !errors.Is(err, port.ErrUnauthorized) {
		t.Fatalf("Run with wrong secret: got %v, want port.ErrUnauthorized", err)
	}
	if resolved.Load() || opened.Load() {
		t.Fatal("credentials were resolved or a session was opened for an unauthorized run")
	}
	if len(store.stored()) != 0 || marker.count() != 0 {
		t.Fatal("store or sync clock was touched by an unauthorized run")
	}
}

func TestSyncJobStopsAtBudget(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	marker := &fakeMarker{}
	job := NewSyncJob(okResolver, endlessOpener(), store, marker, "s3cr3t", 30*time.Millisecond)

	report, err := job.Run(context.Background(), "s3cr3t")
	if err != nil {
		t.Fatalf("Run: unexpected error %v", err)
	}

	if report.Elapsed < 30*time.Millisecond {
		t.Fatalf("Elapsed = %v, want at least the budget", report.Elapsed)
	}
	if report.Elapsed > 2*time.Second {
		t.Fatalf("Elapsed = %v, the budget did not bound the run", report.Elapsed)
	}
	if report.Processed == 0 {
		t.Fatal("Processed = 0, want some documents committed before the budget hit")
	}
	if report.Processed != len(store.stored()) {
		t.Fatalf("Processed = %d but store holds %d documents", report.Processed, len(store.stored()))
	}
	if marker.count() != 1 {
		t.Fatalf("sync clock advanced %d times, want exactly 1", marker.count())
	}
	if report.SyncedAt.IsZero() {
		t.Fatal("SyncedAt is zero")
	}
	if report.RunID == "" {
		t.Fatal("RunID is empty")
	}
}

func TestSyncJobFinishesEarlyWhenStreamEnds(t *testing.T) {
	t.Parallel()

	msgs := make(chan domain.Message, 3)
	msgs <- priceMessage(domain.TopicCables, "2026-02-27")
	msgs <- domain.Message{Topic: domain.TopicCables, Value: []byte("not json")}
	msgs <- priceMessage(domain.TopicExchanges, "2026-02-27")
	close(msgs)

	source := &fakeSource{messages: msgs}
	open := func(ctx context.Context, bundle credentials.Bundle) (port.MessageSource, error) {
		return source, nil
	}
	store := &fakeStore{}
	marker := &fakeMarker{}
	job := NewSyncJob(okResolver, open, store, marker, "s3cr3t", time.Minute)

	start := time.Now()
	report, err := job.Run(context.Background(), "s3cr3t")
	if err != nil {
		t.Fatalf("Run: unexpected error %v", err)
	}
	if took := time.Since(start); took > 10*time.Second {
		t.Fatalf("run took %v despite the stream ending immediately", took)
	}

	if report.Processed != 2 {
		t.Fatalf("Processed = %d, want 2 (the undecodable message is skipped)", report.Processed)
	}
	if marker.count() != 1 {
		t.Fatalf("sync clock advanced %d times, want exactly 1", marker.count())
	}
	if source.closes.Load() != 1 {
		t.Fatalf("session closed %d times, want 1", source.closes.Load())
	}
}

func TestSyncJobSurfacesResolveFailure(t *testing.T) {
	t.Parallel()

	var opened atomic.Bool
	resolve := func() (credentials.Bundle, error) {
		return credentials.Bundle{}, credentials.ErrIncomplete
	}
	open := func(ctx context.Context, bundle credentials.Bundle) (port.MessageSource, error) {
		opened.Store(true)
		return nil, nil
	}
	job := NewSyncJob(resolve, open, &fakeStore{}, &fakeMarker{}, "s3cr3t", time.Second)

	_, err := job.Run(context.Background(), "s3cr3t")
	if !errors.Is(err, credentials.ErrIncomplete) {
		t.Fatalf("Run: got %v, want credentials.ErrIncomplete", err)
	}
	if opened.Load() {
		t.Fatal("session was opened despite incomplete credentials")
	}
}

func TestSyncJobSurfacesMarkerFailure(t *testing.T) {
	t.Parallel()

	msgs := make(chan domain.Message)
	close(msgs)
	open := func(ctx context.Context, bundle credentials.Bundle) (port.MessageSource, error) {
		return &fakeSource{messages: msgs}, nil
	}
	cause := errors.New("redis down")
	job := NewSyncJob(okResolver, open, &fakeStore{}, &fakeMarker{err: cause}, "s3cr3t", time.Second)

	_, err := job.Run(context.Background(), "s3cr3t")
	if !errors.Is(err, cause) {
		t.Fatalf("Run: got %v, want the marker failure", err)
	}
}
