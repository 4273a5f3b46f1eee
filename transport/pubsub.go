// Package transport defines a minimal pub/sub abstraction for delivering
// notification payloads to a listener.NotificationListener. The upstream
// bus itself is an external collaborator (spec.md §1); this package and
// its memory/nats subadapters exist only to give the teacher's pub/sub
// dependencies a concrete home feeding the in-scope dispatch pipeline.
package transport

import "context"

// Message is one delivered notification payload.
type Message interface {
	// Data returns the raw payload — the bytes a listener.Process call
	// expects.
	Data() []byte

	// Subject returns the channel/subject the message arrived on.
	Subject() string

	// Ack acknowledges successful processing.
	Ack() error

	// Nak signals processing failure, requesting redelivery.
	Nak() error
}

// Publisher publishes raw payloads to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close() error
}

// Consumer subscribes to a subject and yields delivered messages. Once ctx
// is done no further messages are delivered on the returned channel. The
// in-memory broker does not close the channel at that point, nor on
// Consumer.Close; it closes it only when the broker itself is closed.
type Consumer interface {
	Subscribe(ctx context.Context) (<-chan Message, error)
	Close() error
}
