package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/alanyang/agent-exec/internal/domain/metric"
	portmetrics "github.com/alanyang/agent-exec/internal/port/metrics"
)

const (
	defaultKeyPrefix = "agentexec:metrics"
	defaultTTL       = 24 * time.Hour
)

// Store keeps one hash per execution (metric name → value) and a sorted set
// of execution ids scored by record time, so recent runs can be listed.
type Store struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

var _ portmetrics.Store = (*Store)(nil)

type Option func(*Store)

func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.keyPrefix = prefix }
}

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, keyPrefix: defaultKeyPrefix, ttl: defaultTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect parses a redis:// URL and verifies the server is reachable.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

func (s *Store) Record(ctx context.Context, p metric.Point) error {
	key := s.executionKey(p.ExecutionID)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, p.Name, p.Value)
	pipe.HSet(ctx, key, "_agent", p.AgentName, "_user", p.UserID, "_run", p.RunID.String())
	pipe.Expire(ctx, key, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), &redis.Z{Score: float64(p.RecordedAt.Unix()), Member: p.ExecutionID.String()})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recording metric %s: %w", p.Name, err)
	}
	return nil
}

// ForExecution returns the numeric metrics stored for one execution.
func (s *Store) ForExecution(ctx context.Context, executionID uuid.UUID) (map[string]float64, error) {
	raw, err := s.client.HGetAll(ctx, s.executionKey(executionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("reading metrics: %w", err)
	}

	out := make(map[string]float64, len(raw))
	for name, v := range raw {
		if len(name) > 0 && name[0] == '_' {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing metric %s: %w", name, err)
		}
		out[name] = f
	}
	return out, nil
}

// Recent lists execution ids recorded since the given time, newest first.
func (s *Store) Recent(ctx context.Context, since time.Time, limit int64) ([]uuid.UUID, error) {
	ids, err := s.client.ZRevRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
		Min:   strconv.FormatInt(since.Unix(), 10),
		Max:   "+inf",
		Count: limit,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("listing recent executions: %w", err)
	}

	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		out = append(out, parsed)
	}
	return out, nil
}

func (s *Store) executionKey(id uuid.UUID) string {
	return s.keyPrefix + ":" + id.String()
}

func (s *Store) indexKey() string {
	return s.keyPrefix + ":index"
}
