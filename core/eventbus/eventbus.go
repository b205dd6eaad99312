// Package eventbus delivers test run events to subscribers asynchronously.
package eventbus

import (
	"webharness-go/core/event"
)

// EventBus is the interface for the event bus.
type EventBus interface {
	// Publish queues an event for async dispatch. It never blocks;
	// events published to a full buffer are dropped and counted.
	Publish(e event.Event)

	// Subscribe subscribes to all events and returns a subscription ID.
	Subscribe(handler EventHandler) string

	// SubscribeSession subscribes to events whose SessionID matches.
	SubscribeSession(sessionID string, handler EventHandler) string

	// Unsubscribe removes a subscription by its ID.
	Unsubscribe(subscriptionID string)

	// Dropped returns how many events were discarded because the buffer was full.
	Dropped() uint64

	// Close drains queued events and stops dispatch. Publish is a no-op afterwards.
	Close()
}

// EventHandler is a function that handles an event.
type EventHandler func(e event.Event)
