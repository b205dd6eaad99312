package eventbus

import (
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"webharness-go/core/event"
)

type subscription struct {
	id      string
	handler EventHandler
	session string // empty matches every event
}

func (s *subscription) matches(e event.Event) bool {
	if s.session == "" {
		return true
	}
	se, ok := e.(event.SessionEvent)
	return ok && se.SessionID() == s.session
}

// queueBus runs every handler on one dispatcher goroutine, in subscription
// order, so a subscriber sees events in the order they were published.
type queueBus struct {
	queue  chan event.Event
	logger *slog.Logger

	subsMu sync.RWMutex
	subs   []*subscription

	// stateMu orders Publish against Close so nothing is sent on a
	// closed queue.
	stateMu sync.RWMutex
	closed  bool
	done    chan struct{}

	seq     atomic.Uint64
	dropped atomic.Uint64
}

// New starts a bus with room for bufferSize undelivered events.
// A non-positive size means 100.
func New(bufferSize int, logger *slog.Logger) EventBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &queueBus{
		queue:  make(chan event.Event, bufferSize),
		logger: logger,
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *queueBus) Publish(e event.Event) {
	b.stateMu.RLock()
	defer b.stateMu.RUnlock()
	if b.closed {
		return
	}
	select {
	case b.queue <- e:
	default:
		n := b.dropped.Add(1)
		b.logger.Warn("Event dropped, buffer full", "event", e.EventName(), "dropped", n)
	}
}

func (b *queueBus) Subscribe(handler EventHandler) string {
	return b.add("", handler)
}

func (b *queueBus) SubscribeSession(sessionID string, handler EventHandler) string {
	return b.add(sessionID, handler)
}

func (b *queueBus) add(session string, handler EventHandler) string {
	sub := &subscription{
		id:      "sub-" + strconv.FormatUint(b.seq.Add(1), 10),
		handler: handler,
		session: session,
	}
	b.subsMu.Lock()
	b.subs = append(b.subs, sub)
	b.subsMu.Unlock()
	return sub.id
}

func (b *queueBus) Unsubscribe(subscriptionID string) {
	b.subsMu.Lock()
	b.subs = slices.DeleteFunc(b.subs, func(s *subscription) bool {
		return s.id == subscriptionID
	})
	b.subsMu.Unlock()
}

func (b *queueBus) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *queueBus) Close() {
	b.stateMu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.stateMu.Unlock()
	<-b.done
}

func (b *queueBus) run() {
	defer close(b.done)
	for e := range b.queue {
		b.subsMu.RLock()
		subs := slices.Clone(b.subs)
		b.subsMu.RUnlock()

		for _, sub := range subs {
			if sub.matches(e) {
				b.call(sub, e)
			}
		}
	}
}

// call keeps a panicking handler from stopping delivery to the rest.
func (b *queueBus) call(sub *subscription, e event.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked",
				"subscription", sub.id, "event", e.EventName(), "panic", r)
		}
	}()
	sub.handler(e)
}
