package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyang/agent-exec/internal/domain/event"
	porteventbus "github.com/alanyang/agent-exec/internal/port/eventbus"
)

// maxNotifyPayload stays under the 8000 byte pg_notify limit.
const maxNotifyPayload = 7900

type EventBus struct {
	pool *pgxpool.Pool
}

var _ porteventbus.EventBus = (*EventBus)(nil)

func New(pool *pgxpool.Pool) *EventBus {
	return &EventBus{pool: pool}
}

// Publish sends an event via Postgres NOTIFY on the channel for its type.
// Oversized payloads are replaced with a truncation marker so the lifecycle
// event itself is never lost.
func (eb *EventBus) Publish(ctx context.Context, e event.Event) error {
	data, err := encode(e)
	if err != nil {
		return err
	}

	channel := channelName(event.ChannelFor(e.Type))
	if _, err := eb.pool.Exec(ctx, "SELECT pg_notify($1, $2)", channel, string(data)); err != nil {
		return fmt.Errorf("publishing event on channel %s: %w", channel, err)
	}
	return nil
}

// Subscribe LISTENs on the channel from a dedicated pooled connection and
// invokes handler for every event received until Unsubscribe or ctx ends.
func (eb *EventBus) Subscribe(ctx context.Context, ch event.Channel, handler porteventbus.Handler) (porteventbus.Subscription, error) {
	conn, err := eb.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection for LISTEN: %w", err)
	}

	channel := channelName(ch)
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("executing LISTEN on channel %s: %w", channel, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer func() {
			conn.Exec(context.Background(), "UNLISTEN "+channel) //nolint:errcheck
			conn.Release()
			close(sub.done)
		}()

		for {
			notification, err := conn.Conn().WaitForNotification(subCtx)
			if err != nil {
				if subCtx.Err() != nil {
					return
				}
				slog.Warn("waiting for notification", "channel", channel, "error", err)
				continue
			}

			var e event.Event
			if err := json.Unmarshal([]byte(notification.Payload), &e); err != nil {
				slog.Warn("dropping malformed event", "channel", channel, "error", err)
				continue
			}

			handler(subCtx, e)
		}
	}()

	return sub, nil
}

func encode(e event.Event) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshaling event: %w", err)
	}
	if len(data) <= maxNotifyPayload {
		return data, nil
	}

	e.Payload = map[string]any{"truncated": true, "original_bytes": len(data)}
	data, err = json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshaling truncated event: %w", err)
	}
	return data, nil
}

func channelName(ch event.Channel) string {
	return "agent_exec_" + string(ch)
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *subscription) Unsubscribe() {
	s.cancel()
	<-s.done
}
