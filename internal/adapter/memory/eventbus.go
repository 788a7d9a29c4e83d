package memory

import (
	"context"
	"sync"

	"github.com/alanyang/agent-exec/internal/domain/event"
	porteventbus "github.com/alanyang/agent-exec/internal/port/eventbus"
)

// EventBus delivers events to in-process subscribers synchronously, in publish order.
type EventBus struct {
	mu   sync.RWMutex
	subs map[event.Channel]map[*busSubscription]porteventbus.Handler
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[event.Channel]map[*busSubscription]porteventbus.Handler)}
}

func (b *EventBus) Publish(ctx context.Context, e event.Event) error {
	ch := event.ChannelFor(e.Type)

	b.mu.RLock()
	handlers := make([]porteventbus.Handler, 0, len(b.subs[ch]))
	for _, h := range b.subs[ch] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, e)
	}
	return nil
}

func (b *EventBus) Subscribe(_ context.Context, ch event.Channel, handler porteventbus.Handler) (porteventbus.Subscription, error) {
	sub := &busSubscription{bus: b, ch: ch}

	b.mu.Lock()
	if b.subs[ch] == nil {
		b.subs[ch] = make(map[*busSubscription]porteventbus.Handler)
	}
	b.subs[ch][sub] = handler
	b.mu.Unlock()

	return sub, nil
}

type busSubscription struct {
	bus  *EventBus
	ch   event.Channel
	once sync.Once
}

func (s *busSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs[s.ch], s)
		s.bus.mu.Unlock()
	})
}
