// Package idempotency gives Pub/Sub consumers at-most-once side effects on
// top of at-least-once delivery. Markers live in Redis under
// pb:idempotency:evt:<consumer>:<event_id> until the TTL lapses.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicate is returned by Once when the event already has a marker.
var ErrDuplicate = errors.New("event already processed")

type markerStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Guard deduplicates events for one consumer.
type Guard struct {
	store    markerStore
	consumer string
	ttl      time.Duration
}

// NewGuard scopes markers to consumer. A zero ttl keeps markers forever.
func NewGuard(store markerStore, consumer string, ttl time.Duration) (*Guard, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case consumer == "":
		return nil, errors.New("consumer name is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, consumer: consumer, ttl: ttl}, nil
}

// Once runs fn only if eventID has no marker yet. If fn fails the marker is
// dropped so a redelivery can retry, unless the failure is Permanent.
func (g *Guard) Once(ctx context.Context, eventID uuid.UUID, fn func(context.Context) error) error {
	if eventID == uuid.Nil {
		return Permanent(errors.New("event id is required"))
	}
	key := g.key(eventID)
	fresh, err := g.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		return fmt.Errorf("mark %s: %w", eventID, err)
	}
	if !fresh {
		return ErrDuplicate
	}

	runErr := fn(ctx)
	if runErr == nil || IsPermanent(runErr) {
		return runErr
	}
	if err := g.store.Del(ctx, key); err != nil {
		return errors.Join(runErr, fmt.Errorf("release %s: %w", eventID, err))
	}
	return runErr
}

func (g *Guard) key(eventID uuid.UUID) string {
	return g.store.IdempotencyKey("evt:"+g.consumer, eventID.String())
}

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks err as one a retry cannot fix.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
