package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/alanyang/agent-exec/internal/domain/event"
	porteventbus "github.com/alanyang/agent-exec/internal/port/eventbus"
)

const subjectPrefix = "agentexec.events."

// Conn is the part of *nats.Conn the bus uses.
type Conn interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// EventBus fans events out over core NATS subjects, one subject per channel.
// Delivery is at-most-once, which matches the best-effort contract of the bridge.
type EventBus struct {
	conn Conn
}

var _ porteventbus.EventBus = (*EventBus)(nil)

func New(conn Conn) *EventBus {
	return &EventBus{conn: conn}
}

// Connect dials the server with reconnects enabled for the process lifetime.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("agent-exec"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return nc, nil
}

func (b *EventBus) Publish(_ context.Context, e event.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	subject := Subject(event.ChannelFor(e.Type))
	if err := b.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing event on %s: %w", subject, err)
	}
	return nil
}

func (b *EventBus) Subscribe(ctx context.Context, ch event.Channel, handler porteventbus.Handler) (porteventbus.Subscription, error) {
	subject := Subject(ch)
	sub, err := b.conn.Subscribe(subject, func(msg *nats.Msg) {
		var e event.Event
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			slog.Warn("dropping malformed event", "subject", subject, "error", err)
			return
		}
		handler(ctx, e)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	return &subscription{sub: sub, subject: subject}, nil
}

// Subject returns the NATS subject for a channel.
func Subject(ch event.Channel) string {
	return subjectPrefix + string(ch)
}

type subscription struct {
	sub     *nats.Subscription
	subject string
}

func (s *subscription) Unsubscribe() {
	if s.sub == nil {
		return
	}
	if err := s.sub.Unsubscribe(); err != nil {
		slog.Debug("nats unsubscribe", "subject", s.subject, "error", err)
	}
}
