package broker

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sourcegraph/conc"

	"gridfeed/internal/modules/prices/domain"
)

var (
	ErrNoBrokers = errors.New("no kafka brokers configured")
	ErrNoTopics  = errors.New("no kafka topics configured")
)

const (
	defaultDialTimeout = 10 * time.Second
	defaultMaxWait     = 500 * time.Millisecond
	messageBuffer      = 64
)

// Config describes one broker session. Topics maps each logical price stream
// onto the kafka topic that carries it.
type Config struct {
	Brokers     []string
	GroupID     string
	Topics      map[domain.Topic]string
	TLS         *tls.Config
	DialTimeout time.Duration
	ReadMaxWait time.Duration
}

// Session consumes every configured topic from the earliest retained offset
// and merges the records into one channel. Each session runs under a unique
// consumer group and never commits offsets, so a fresh session always replays
// the full history.
type Session struct {
	readers   []*kafka.Reader
	messages  chan domain.Message
	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Open dials the first broker to force the TLS handshake and a topic metadata
// lookup up front, so connection and subscription failures surface here
// instead of inside the read loops. Retry policy belongs to the caller.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if len(cfg.Topics) == 0 {
		return nil, ErrNoTopics
	}

	dialer := &kafka.Dialer{
		Timeout:   cfg.dialTimeout(),
		DualStack: true,
		TLS:       cfg.TLS,
	}
	if err := probe(ctx, dialer, cfg); err != nil {
		return nil, err
	}

	group := effectiveGroup(cfg.GroupID)
	session := &Session{
		messages: make(chan domain.Message, messageBuffer),
		closed:   make(chan struct{}),
	}

	var wg conc.WaitGroup
	for logical, topic := range cfg.Topics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			GroupID:     group,
			Topic:       topic,
			Dialer:      dialer,
			StartOffset: kafka.FirstOffset,
			MinBytes:    1,
			MaxBytes:    10e6,
			MaxWait:     cfg.readMaxWait(),
		})
		session.readers = append(session.readers, reader)
		wg.Go(func() {
			session.consume(ctx, logical, reader)
		})
	}
	go func() {
		wg.Wait()
		close(session.messages)
	}()

	slog.Info("broker session open",
		slog.Any("brokers", cfg.Brokers),
		slog.String("group", group),
		slog.Int("topics", len(cfg.Topics)),
	)
	return session, nil
}

// Messages returns the merged record stream. The channel closes once every
// read loop has stopped, whether through Close, context cancellation, or a
// broker-side failure.
func (s *Session) Messages() <-chan domain.Message {
	return s.messages
}

// Close releases every reader. It is idempotent: calling it on an already
// closed session returns the same result without touching the network again.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		for _, reader := range s.readers {
			if err := reader.Close(); err != nil && s.closeErr == nil {
				s.closeErr = err
			}
		}
	})
	return s.closeErr
}

func (s *Session) consume(ctx context.Context, logical domain.Topic, reader *kafka.Reader) {
	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if !benignFetchErr(err) {
				slog.Warn("kafka fetch error",
					slog.String("topic", reader.Config().Topic),
					slog.Any("error", err),
				)
			}
			return
		}
		slog.Debug("kafka message fetched",
			slog.String("topic", m.Topic),
			slog.Int("partition", m.Partition),
			slog.Int64("offset", m.Offset),
		)
		msg := domain.Message{
			Topic:     logical,
			Partition: m.Partition,
			Offset:    m.Offset,
			Value:     m.Value,
			Time:      m.Time,
		}
		select {
		case s.messages <- msg:
		case <-ctx.Done():
			return
		case <-s.closed:
			return
		}
	}
}

func probe(ctx context.Context, dialer *kafka.Dialer, cfg Config) error {
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker %s: %w", cfg.Brokers[0], err)
	}
	defer conn.Close()

	topics := make([]string, 0, len(cfg.Topics))
	for _, topic := range cfg.Topics {
		topics = append(topics, topic)
	}
	if _, err := conn.ReadPartitions(topics...); err != nil {
		return fmt.Errorf("read topic metadata: %w", err)
	}
	return nil
}

// effectiveGroup derives a session-unique consumer group from the configured
// base so no prior committed offset can short-circuit the replay.
func effectiveGroup(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "gridfeed"
	}
	return base + "-" + uuid.NewString()[:8]
}

func benignFetchErr(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF)
}

func (c Config) dialTimeout() time.Duration {
	if c.DialTimeout > 0 {
		return c.DialTimeout
	}
	return defaultDialTimeout
}

func (c Config) readMaxWait() time.Duration {
	if c.ReadMaxWait > 0 {
		return c.ReadMaxWait
	}
	return defaultMaxWait
}
