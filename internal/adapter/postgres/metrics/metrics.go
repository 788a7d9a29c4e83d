package metrics

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyang/agent-exec/internal/domain/metric"
	portmetrics "github.com/alanyang/agent-exec/internal/port/metrics"
)

// Store appends metric points to execution_metrics.
type Store struct {
	pool *pgxpool.Pool
}

var _ portmetrics.Store = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Record(ctx context.Context, p metric.Point) error {
	query := `
		INSERT INTO execution_metrics (execution_id, run_id, agent_name, user_id, name, value, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err := s.pool.Exec(ctx, query, p.ExecutionID, p.RunID, p.AgentName, p.UserID, p.Name, p.Value, p.RecordedAt)
	if err != nil {
		return fmt.Errorf("inserting metric %s: %w", p.Name, err)
	}
	return nil
}

// ForExecution returns every point recorded for one execution, keyed by name.
func (s *Store) ForExecution(ctx context.Context, executionID uuid.UUID) (map[string]float64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, value FROM execution_metrics WHERE execution_id = $1`, executionID)
	if err != nil {
		return nil, fmt.Errorf("listing metrics: %w", err)
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scanning metric: %w", err)
		}
		out[name] = value
	}
	return out, rows.Err()
}
