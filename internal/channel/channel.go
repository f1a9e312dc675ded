// Package channel is the messaging boundary between the two paired
// devices. A Link carries two logical sub-channels: a context channel
// holding the single latest payload per tag (read opportunistically by the
// peer on (re)connection), and a fire-and-forget message channel with no
// delivery guarantee. Neither sub-channel is usable before activation.
package channel

import "context"

// Message is the structured completion event the satellite sends back to
// the primary device.
type Message struct {
	ExerciseIndex int `json:"exerciseIndex"`
	SetIndex      int `json:"setIndex"`
	CompletedReps int `json:"completedReps"`
}

// Context tags used by the sync bridge.
const (
	TagData      = "data"
	TagActiveSet = "activeSet"
)

// ContextHandler receives the latest context payload for a tag.
type ContextHandler func(tag string, payload []byte)

// MessageHandler receives a fire-and-forget message.
type MessageHandler func(msg Message)

// Link is the capability interface for a device pairing. Implementations
// invoke handlers from their own goroutines; consumers serialize state
// access themselves.
type Link interface {
	// Activate performs the pairing handshake. SetContext and Send before
	// a successful Activate are dropped.
	Activate(ctx context.Context) error

	// SetContext replaces the latest deliverable context for a tag. The
	// channel is not a queue: an undelivered prior payload for the same
	// tag is superseded.
	SetContext(tag string, payload []byte) error

	// Send transmits a message once if the peer is reachable, otherwise
	// drops it. No retry.
	Send(msg Message) error

	HandleContext(fn ContextHandler)
	HandleMessage(fn MessageHandler)

	Close() error
}
