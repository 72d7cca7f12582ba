package port

import (
	"context"
	"errors"

	"gridfeed/internal/modules/prices/domain"
	"gridfeed/internal/shared/credentials"
)

// ErrUnauthorized rejects a sync trigger whose bearer secret does not match
// the configured one. It fires before any broker or store access.
var ErrUnauthorized = errors.New("sync secret mismatch")

// MessageSource is an open broker session: a lazy, effectively-infinite
// stream of raw records. The channel closes when the session ends, whatever
// the reason. Close releases the underlying network resources and is safe to
// call more than once.
type MessageSource interface {
	Messages() <-chan domain.Message
	Close() error
}

// SessionOpener dials the broker with the resolved TLS credentials and
// subscribes every known topic from the earliest retained record. Opening is
// the only step that fails here; retry policy stays with the caller.
type SessionOpener func(ctx context.Context, bundle credentials.Bundle) (MessageSource, error)

// CredentialResolver produces the TLS client material a session needs, or an
// error when neither configured source is complete.
type CredentialResolver func() (credentials.Bundle, error)
