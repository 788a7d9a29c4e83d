package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	portidem "github.com/alanyang/agent-exec/internal/port/idempotency"
)

var ErrNotFound = errors.New("cache: not found")

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e cacheEntry) expired(now time.Time) bool { return now.After(e.expiresAt) }

// Cache is a TTL byte cache. It backs idempotent execution requests when no
// database is configured. Expired entries read as missing until Purge drops them.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

var _ portidem.Store = (*Cache)(nil)

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || entry.expired(time.Now()) {
		return nil, ErrNotFound
	}
	return entry.value, nil
}

func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	c.mu.Unlock()
	return nil
}

// Check implements port/idempotency.Store.
func (c *Cache) Check(ctx context.Context, key string) (portidem.Operation, bool, error) {
	data, err := c.Get(ctx, idempotencyKey(key))
	if errors.Is(err, ErrNotFound) {
		return portidem.Operation{}, false, nil
	}
	if err != nil {
		return portidem.Operation{}, false, err
	}
	var stored storedOperation
	if err := json.Unmarshal(data, &stored); err != nil {
		return portidem.Operation{}, false, fmt.Errorf("decoding stored operation: %w", err)
	}
	return portidem.Operation{
		RunID:       stored.RunID,
		Type:        stored.OpType,
		RequestHash: stored.RequestHash,
		Result:      stored.Result,
	}, true, nil
}

// Store implements port/idempotency.Store. While a key is live the first
// write wins; the check and the write happen under one lock.
func (c *Cache) Store(_ context.Context, key string, op portidem.Operation) error {
	data, err := json.Marshal(storedOperation{
		RunID:       op.RunID,
		OpType:      op.Type,
		RequestHash: op.RequestHash,
		Result:      op.Result,
	})
	if err != nil {
		return fmt.Errorf("encoding stored operation: %w", err)
	}

	k := idempotencyKey(key)
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[k]; ok && !e.expired(now) {
		return nil
	}
	c.entries[k] = cacheEntry{value: data, expiresAt: now.Add(c.ttl)}
	return nil
}

type storedOperation struct {
	RunID       uuid.UUID       `json:"run_id"`
	OpType      string          `json:"op_type"`
	RequestHash string          `json:"request_hash,omitempty"`
	Result      json.RawMessage `json:"result"`
}

func idempotencyKey(key string) string { return "idem:" + key }

// Purge drops every expired entry and reports how many were removed.
func (c *Cache) Purge(_ context.Context) (int64, error) {
	now := time.Now()
	var n int64
	c.mu.Lock()
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			n++
		}
	}
	c.mu.Unlock()
	return n, nil
}
