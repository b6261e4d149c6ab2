package pubsub

import (
	"context"
	"encoding/json"
)

// Topics the editor publishes on
const (
	TopicGraph = "graph" // render_state, diff and view events
	TopicStyle = "style" // style configuration changes
)

// Event types
const (
	EventRenderState = "render_state" // Full frame, sent once to each new subscriber
	EventDiff        = "diff"
	EventView        = "view" // Interaction overlay, follows every diff
	EventStyle       = "style"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	Version int             `json:"version"` // Per-topic sequence number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic.
	// Context cancellation closes the subscription.
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data any) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}
