package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"gridfeed/internal/modules/prices/application/port"
	"gridfeed/internal/modules/prices/domain"
)

var errStreamEnded = errors.New("message channel closed while the session was live")

// StreamConsumer drains the broker session for the lifetime of the process
// and upserts every decodable document into the price store. It does not
// reconnect: any session failure latches the error state and the consumer
// stays down until an operator restarts the service.
type StreamConsumer struct {
	Resolve port.CredentialResolver
	Open    port.SessionOpener
	Store   port.PriceStore

	now func() time.Time

	mu        sync.RWMutex
	state     domain.ConsumerState
	reason    string
	lastMsgAt time.Time
	cancel    context.CancelFunc

	done chan struct{}
}

func NewStreamConsumer(resolve port.CredentialResolver, open port.SessionOpener, store port.PriceStore) *StreamConsumer {
	return &StreamConsumer{
		Resolve: resolve,
		Open:    open,
		Store:   store,
		now:     time.Now,
		state:   domain.StateDisconnected,
		done:    make(chan struct{}),
	}
}

// Start launches the consume loop in the background. Call it once.
func (c *StreamConsumer) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(runCtx)
}

// Shutdown cancels the consume loop and waits for it to drain. Safe to call
// even when Start already returned through an error.
func (c *StreamConsumer) Shutdown() {
	c.mu.RLock()
	cancel := c.cancel
	c.mu.RUnlock()
	if cancel == nil {
		return
	}
	cancel()
	<-c.done
}

func (c *StreamConsumer) State() (domain.ConsumerState, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state, c.reason
}

func (c *StreamConsumer) LastMessageAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastMsgAt
}

func (c *StreamConsumer) run(ctx context.Context) {
	defer close(c.done)

	c.setState(domain.StateConnecting, "")
	slog.Info("stream-consumer connecting")

	bundle, err := c.Resolve()
	if err != nil {
		c.fail("resolve credentials", err)
		return
	}

	source, err := c.Open(ctx, bundle)
	if err != nil {
		c.fail("open broker session", err)
		return
	}
	defer func() {
		if err := source.Close(); err != nil {
			slog.Warn("stream-consumer close session", slog.Any("error", err))
		}
	}()

	c.setState(domain.StateConnected, "")
	slog.Info("stream-consumer connected, replaying from earliest")

	for msg := range source.Messages() {
		c.apply(ctx, msg)
	}

	if ctx.Err() != nil {
		c.setState(domain.StateDisconnected, "")
		slog.Info("stream-consumer stopped")
		return
	}
	c.fail("broker stream", errStreamEnded)
}

func (c *StreamConsumer) apply(ctx context.Context, msg domain.Message) {
	received := c.now().UTC()

	doc, err := domain.DecodeDocument(msg, received)
	if err != nil {
		slog.Warn("stream-consumer skipping message",
			slog.String("topic", string(msg.Topic)),
			slog.Int("partition", msg.Partition),
			slog.Int64("offset", msg.Offset),
			slog.Any("error", err))
		return
	}

	if err := c.Store.Put(ctx, doc); err != nil {
		slog.Error("stream-consumer store put failed",
			slog.String("topic", string(doc.Topic)),
			slog.String("day", doc.Day),
			slog.Any("error", err))
		return
	}
	c.markReceived(received)
	slog.Debug("stream-consumer cached document",
		slog.String("topic", string(doc.Topic)),
		slog.String("day", doc.Day))
}

func (c *StreamConsumer) markReceived(at time.Time) {
	c.mu.Lock()
	c.lastMsgAt = at
	c.mu.Unlock()
}

// setState ignores transitions out of the error state: once a session has
// failed it stays failed for the rest of the process lifetime.
func (c *StreamConsumer) setState(state domain.ConsumerState, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == domain.StateError {
		return
	}
	c.state = state
	c.reason = reason
}

func (c *StreamConsumer) fail(stage string, err error) {
	c.setState(domain.StateError, stage+": "+err.Error())
	slog.Error("stream-consumer failed", slog.String("stage", stage), slog.Any("error", err))
}
