package broker

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"gridfeed/internal/modules/prices/domain"
)

func TestOpenRejectsEmptyConfig(t *testing.T) {
	t.Parallel()

	topics := map[domain.Topic]string{domain.TopicCables: "cables"}

	if _, err := Open(context.Background(), Config{Topics: topics}); !errors.Is(err, ErrNoBrokers) {
		t.Fatalf("expected ErrNoBrokers, got %v", err)
	}
	if _, err := Open(context.Background(), Config{Brokers: []string{"localhost:9092"}}); !errors.Is(err, ErrNoTopics) {
		t.Fatalf("expected ErrNoTopics, got %v", err)
	}
}

func TestEffectiveGroupIsUniquePerSession(t *testing.T) {
	t.Parallel()

	first := effectiveGroup("gridfeed-reader")
	second := effectiveGroup("gridfeed-reader")

	if !strings.HasPrefix(first, "gridfeed-reader-") {
		t.Fatalf("expected configured base as prefix, got %s", first)
	}
	if first == second {
		t.Fatalf("expected unique groups per session, got %s twice", first)
	}
	if got := effectiveGroup("  "); !strings.HasPrefix(got, "gridfeed-") {
		t.Fatalf("expected fallback base, got %s", got)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	session := &Session{
		messages: make(chan domain.Message),
		closed:   make(chan struct{}),
	}

	if err := session.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestBenignFetchErrors(t *testing.T) {
	t.Parallel()

	for _, err := range []error{context.Canceled, context.DeadlineExceeded, io.EOF} {
		if !benignFetchErr(err) {
			t.Fatalf("expected %v to be benign", err)
		}
	}
	if benignFetchErr(errors.New("broker unreachable")) {
		t.Fatal("unexpected benign classification")
	}
}

func TestConfigTimeoutDefaults(t *testing.T) {
	t.Parallel()

	var cfg Config
	if got := cfg.dialTimeout(); got != defaultDialTimeout {
		t.Fatalf("expected default dial timeout, got %v", got)
	}
	if got := cfg.readMaxWait(); got != defaultMaxWait {
		t.Fatalf("expected default max wait, got %v", got)
	}

	cfg = Config{DialTimeout: time.Second, ReadMaxWait: 50 * time.Millisecond}
	if got := cfg.dialTimeout(); got != time.Second {
		t.Fatalf("expected configured dial timeout, got %v", got)
	}
	if got := cfg.readMaxWait(); got != 50*time.Millisecond {
		t.Fatalf("expected configured max wait, got %v", got)
	}
}
