package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainexec "github.com/alanyang/agent-exec/internal/domain/execution"
	portexec "github.com/alanyang/agent-exec/internal/port/execution"
)

const selectColumns = `
	SELECT id, agent_name, correlation_id, thread_id, user_id, timeout_ms, status,
		error, result_jsonb, metrics_jsonb, registered_at, started_at, completed_at
	FROM executions`

type Repository struct {
	pool *pgxpool.Pool
}

var _ portexec.Repository = (*Repository)(nil)

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, rec domainexec.Record) error {
	metricsJSON, err := json.Marshal(rec.Metrics)
	if err != nil {
		return fmt.Errorf("marshaling metrics: %w", err)
	}

	query := `
		INSERT INTO executions (id, agent_name, correlation_id, thread_id, user_id, timeout_ms,
			status, metrics_jsonb, registered_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = r.pool.Exec(ctx, query,
		rec.ID, rec.AgentName, rec.CorrelationID, rec.ThreadID, rec.UserID,
		rec.Timeout.Milliseconds(), string(rec.Status), metricsJSON, rec.RegisteredAt,
	)
	if err != nil {
		return fmt.Errorf("inserting execution: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domainexec.Record, error) {
	rec, err := scanRecord(r.pool.QueryRow(ctx, selectColumns+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainexec.Record{}, fmt.Errorf("execution %s: %w", id, portexec.ErrNotFound)
		}
		return domainexec.Record{}, fmt.Errorf("getting execution: %w", err)
	}
	return rec, nil
}

func (r *Repository) List(ctx context.Context, filters domainexec.ListFilters) ([]domainexec.Record, error) {
	query := selectColumns + ` WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filters.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, *filters.UserID)
		argIdx++
	}
	if filters.AgentName != nil {
		query += fmt.Sprintf(" AND agent_name = $%d", argIdx)
		args = append(args, *filters.AgentName)
		argIdx++
	}
	if filters.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(*filters.Status))
		argIdx++
	}

	query += " ORDER BY registered_at DESC"
	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filters.Limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing executions: %w", err)
	}
	defer rows.Close()

	var out []domainexec.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning execution: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateStatus is a CAS on status: the row only changes if it is still in `from`.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domainexec.Status, u portexec.StatusUpdate) error {
	var resultJSON []byte
	if u.Result != nil {
		data, err := json.Marshal(u.Result)
		if err != nil {
			return fmt.Errorf("marshaling result: %w", err)
		}
		resultJSON = data
	}

	query := `
		UPDATE executions SET
			status       = $1::text,
			started_at   = CASE WHEN $1::text = 'started' THEN $4 ELSE started_at END,
			completed_at = CASE WHEN $1::text IN ('completed', 'failed') THEN $4 ELSE completed_at END,
			error        = CASE WHEN $1::text IN ('completed', 'failed') THEN $5 ELSE error END,
			result_jsonb = CASE WHEN $1::text IN ('completed', 'failed') THEN $6::jsonb ELSE result_jsonb END
		WHERE id = $2 AND status = $3`

	tag, err := r.pool.Exec(ctx, query, string(to), id, string(from), u.At, u.Error, resultJSON)
	if err != nil {
		return fmt.Errorf("updating execution status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("execution %s not in %s: %w", id, from, portexec.ErrStatusConflict)
	}
	return nil
}

func scanRecord(row pgx.Row) (domainexec.Record, error) {
	var (
		rec                   domainexec.Record
		timeoutMS             int64
		status                string
		resultJSON, metricsJS []byte
		startedAt, completed  *time.Time
	)
	err := row.Scan(
		&rec.ID, &rec.AgentName, &rec.CorrelationID, &rec.ThreadID, &rec.UserID, &timeoutMS, &status,
		&rec.Error, &resultJSON, &metricsJS, &rec.RegisteredAt, &startedAt, &completed,
	)
	if err != nil {
		return domainexec.Record{}, err
	}

	rec.Timeout = time.Duration(timeoutMS) * time.Millisecond
	rec.Status = domainexec.Status(status)
	rec.StartedAt = startedAt
	rec.CompletedAt = completed

	if len(resultJSON) > 0 {
		if err := json.Unmarshal(resultJSON, &rec.Result); err != nil {
			return domainexec.Record{}, fmt.Errorf("unmarshaling result: %w", err)
		}
	}
	rec.Metrics = map[string]any{}
	if len(metricsJS) > 0 {
		if err := json.Unmarshal(metricsJS, &rec.Metrics); err != nil {
			return domainexec.Record{}, fmt.Errorf("unmarshaling metrics: %w", err)
		}
	}
	return rec, nil
}
