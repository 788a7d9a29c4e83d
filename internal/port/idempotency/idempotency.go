package idempotency

import (
	"context"

	"github.com/google/uuid"
)

// Operation is a processed request remembered under an idempotency key.
// RequestHash fingerprints the request so a key reused for a different
// request can be told apart from a retry.
type Operation struct {
	RunID       uuid.UUID
	Type        string
	RequestHash string
	Result      []byte
}

// Store remembers processed requests. Callers scope keys to their owner
// before passing them in; the store treats keys as opaque.
type Store interface {
	Check(ctx context.Context, key string) (Operation, bool, error)
	Store(ctx context.Context, key string, op Operation) error
}

// Purger is implemented by stores whose keys expire. The sweeper calls it so
// expired keys do not accumulate.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}
