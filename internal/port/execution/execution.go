package execution

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	domainexec "github.com/alanyang/agent-exec/internal/domain/execution"
)

var (
	ErrNotFound       = errors.New("execution not found")
	ErrStatusConflict = errors.New("execution status changed concurrently")
)

// StatusUpdate carries the fields written alongside a status transition.
type StatusUpdate struct {
	At     time.Time
	Error  string
	Result any
}

// Repository stores execution records for the tracker.
type Repository interface {
	Create(ctx context.Context, rec domainexec.Record) error
	GetByID(ctx context.Context, id uuid.UUID) (domainexec.Record, error)
	List(ctx context.Context, filters domainexec.ListFilters) ([]domainexec.Record, error)

	// UpdateStatus performs an atomic CAS: only transitions if the current status matches `from`.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domainexec.Status, u StatusUpdate) error
}
