package bus

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Handler receives events published on the bus. A returned error is logged;
// it never stops delivery to the remaining handlers.
type Handler func(Event) error

// Token identifies a subscription and is used to unsubscribe.
type Token uint64

// Bus is an in-process publish/subscribe hub with namespace filtering.
// Handlers run synchronously on the publishing goroutine, in subscription order.
type Bus struct {
	mu     sync.RWMutex
	subs   []*subscription
	next   Token
	logger *zap.Logger
}

type subscription struct {
	token     Token
	namespace string
	fn        Handler
}

// New creates a new event bus. A nil logger discards handler failures.
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{logger: logger}
}

// Subscribe registers fn for every event whose Kind has namespace as prefix.
// An empty namespace matches all events.
func (b *Bus) Subscribe(namespace string, fn Handler) Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.subs = append(b.subs, &subscription{token: b.next, namespace: namespace, fn: fn})
	return b.next
}

// Unsubscribe removes the subscription. Unknown tokens are ignored.
func (b *Bus) Unsubscribe(tok Token) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.token == tok {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish invokes every matching handler. Handlers may subscribe or
// unsubscribe from inside a callback; changes apply to the next Publish.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	subs := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if evt.Matches(sub.namespace) {
			subs = append(subs, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := b.invoke(sub, evt); err != nil {
			b.logger.Warn("event handler failed",
				zap.String("kind", evt.Kind),
				zap.Uint64("token", uint64(sub.token)),
				zap.Error(err))
		}
	}
}

func (b *Bus) invoke(sub *subscription, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return sub.fn(evt)
}

// SubscribeChan returns a channel that receives events matching the given
// namespace prefix. bufSize controls the channel buffer; events are dropped
// when the subscriber is full. Returns the channel and an unsubscribe function.
func (b *Bus) SubscribeChan(namespace string, bufSize int) (<-chan Event, func()) {
	ch := make(chan Event, bufSize)
	var once sync.Once
	tok := b.Subscribe(namespace, func(evt Event) error {
		select {
		case ch <- evt:
		default:
			// Drop event if subscriber is full (non-blocking).
		}
		return nil
	})
	return ch, func() {
		once.Do(func() { b.Unsubscribe(tok) })
	}
}
