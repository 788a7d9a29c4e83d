package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainexec "github.com/alanyang/agent-exec/internal/domain/execution"
	portexec "github.com/alanyang/agent-exec/internal/port/execution"
	porttracker "github.com/alanyang/agent-exec/internal/port/tracker"
)

var ErrInvalidTransition = errors.New("invalid execution transition")

// ErrNotFound is returned for unknown execution ids.
var ErrNotFound = portexec.ErrNotFound

// Service is the execution tracker: it mints execution ids and walks each record
// through registered → started → completed|failed, never backwards.
// [DIP] Storage is behind port/execution.Repository (memory or Postgres).
type Service struct {
	repo portexec.Repository
	now  func() time.Time
}

var _ porttracker.Tracker = (*Service)(nil)

func NewService(repo portexec.Repository) *Service {
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Register(ctx context.Context, reg porttracker.Registration) (uuid.UUID, error) {
	rec := domainexec.NewRecord(reg.AgentName, reg.CorrelationID, reg.ThreadID, reg.UserID, reg.Timeout)
	rec.RegisteredAt = s.now()

	if err := s.repo.Create(ctx, rec); err != nil {
		return uuid.Nil, fmt.Errorf("register execution: %w", err)
	}
	return rec.ID, nil
}

func (s *Service) Start(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, domainexec.StatusStarted, portexec.StatusUpdate{At: s.now()})
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID, result any, errMsg string) error {
	to := domainexec.StatusCompleted
	if errMsg != "" {
		to = domainexec.StatusFailed
	}
	return s.transition(ctx, id, to, portexec.StatusUpdate{At: s.now(), Error: errMsg, Result: result})
}

// CollectMetrics returns tracker-side metrics for one execution.
func (s *Service) CollectMetrics(ctx context.Context, id uuid.UUID) (map[string]any, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}

	m := map[string]any{
		"timeout_seconds":  rec.Timeout.Seconds(),
		"execution_status": string(rec.Status),
	}
	for k, v := range rec.Metrics {
		m[k] = v
	}
	if rec.StartedAt != nil {
		m["queue_time_ms"] = float64(rec.StartedAt.Sub(rec.RegisteredAt).Microseconds()) / 1000
		end := s.now()
		if rec.CompletedAt != nil {
			end = *rec.CompletedAt
		}
		m["tracker_elapsed_ms"] = float64(end.Sub(*rec.StartedAt).Microseconds()) / 1000
	}
	return m, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (domainexec.Record, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domainexec.Record{}, fmt.Errorf("get execution: %w", err)
	}
	return rec, nil
}

func (s *Service) List(ctx context.Context, filters domainexec.ListFilters) ([]domainexec.Record, error) {
	recs, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	return recs, nil
}

// SweepOverdue fails started executions that outlived timeout+grace, e.g. because
// the process running them died. It only terminates records; it never reports liveness.
func (s *Service) SweepOverdue(ctx context.Context, grace time.Duration) (int, error) {
	status := domainexec.StatusStarted
	started, err := s.repo.List(ctx, domainexec.ListFilters{Status: &status})
	if err != nil {
		return 0, fmt.Errorf("list started executions: %w", err)
	}

	now := s.now()
	swept := 0
	for _, rec := range started {
		if !rec.IsOverdue(grace, now) {
			continue
		}
		msg := fmt.Sprintf("Execution abandoned: no completion within %.1fs", rec.Timeout.Seconds())
		err := s.repo.UpdateStatus(ctx, rec.ID, domainexec.StatusStarted, domainexec.StatusFailed,
			portexec.StatusUpdate{At: now, Error: msg})
		if err != nil {
			if errors.Is(err, portexec.ErrStatusConflict) {
				continue // completed while we were looking, not stale
			}
			slog.ErrorContext(ctx, "sweep: failed to fail overdue execution", "execution_id", rec.ID, "error", err)
			continue
		}
		swept++
	}
	return swept, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to domainexec.Status, u portexec.StatusUpdate) error {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("transition execution to %s: %w", to, err)
	}
	if !rec.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, rec.Status, to)
	}
	if err := s.repo.UpdateStatus(ctx, id, rec.Status, to, u); err != nil {
		return fmt.Errorf("transition execution to %s: %w", to, err)
	}
	return nil
}
