package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	domainexec "github.com/alanyang/agent-exec/internal/domain/execution"
	portexec "github.com/alanyang/agent-exec/internal/port/execution"
)

// ExecutionRepository keeps execution records in process memory. Terminal
// records are evicted once they are older than the retention window.
type ExecutionRepository struct {
	mu        sync.RWMutex
	records   map[uuid.UUID]domainexec.Record
	retention time.Duration
}

var _ portexec.Repository = (*ExecutionRepository)(nil)

func NewExecutionRepository(retention time.Duration) *ExecutionRepository {
	return &ExecutionRepository{
		records:   make(map[uuid.UUID]domainexec.Record),
		retention: retention,
	}
}

func (r *ExecutionRepository) Create(_ context.Context, rec domainexec.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.ID]; ok {
		return fmt.Errorf("execution %s already exists", rec.ID)
	}
	r.records[rec.ID] = cloneRecord(rec)
	return nil
}

func (r *ExecutionRepository) GetByID(_ context.Context, id uuid.UUID) (domainexec.Record, error) {
	r.mu.RLock()
	rec, ok := r.records[id]
	r.mu.RUnlock()

	if !ok || r.expired(rec, time.Now()) {
		return domainexec.Record{}, fmt.Errorf("execution %s: %w", id, portexec.ErrNotFound)
	}
	return cloneRecord(rec), nil
}

func (r *ExecutionRepository) List(_ context.Context, filters domainexec.ListFilters) ([]domainexec.Record, error) {
	now := time.Now()

	r.mu.Lock()
	out := make([]domainexec.Record, 0, len(r.records))
	for id, rec := range r.records {
		if r.expired(rec, now) {
			delete(r.records, id)
			continue
		}
		if filters.UserID != nil && rec.UserID != *filters.UserID {
			continue
		}
		if filters.AgentName != nil && rec.AgentName != *filters.AgentName {
			continue
		}
		if filters.Status != nil && rec.Status != *filters.Status {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.After(out[j].RegisteredAt) })
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}
	return out, nil
}

func (r *ExecutionRepository) UpdateStatus(_ context.Context, id uuid.UUID, from, to domainexec.Status, u portexec.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("execution %s: %w", id, portexec.ErrNotFound)
	}
	if rec.Status != from {
		return fmt.Errorf("execution %s is %s, expected %s: %w", id, rec.Status, from, portexec.ErrStatusConflict)
	}

	at := u.At
	rec.Status = to
	switch to {
	case domainexec.StatusStarted:
		rec.StartedAt = &at
	case domainexec.StatusCompleted, domainexec.StatusFailed:
		rec.CompletedAt = &at
		rec.Error = u.Error
		rec.Result = u.Result
	}
	r.records[id] = rec
	return nil
}

func (r *ExecutionRepository) expired(rec domainexec.Record, now time.Time) bool {
	if r.retention <= 0 || rec.CompletedAt == nil {
		return false
	}
	return now.Sub(*rec.CompletedAt) > r.retention
}

func cloneRecord(rec domainexec.Record) domainexec.Record {
	metrics := make(map[string]any, len(rec.Metrics))
	for k, v := range rec.Metrics {
		metrics[k] = v
	}
	rec.Metrics = metrics
	return rec
}
