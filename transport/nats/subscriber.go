// Package nats wires a NATS JetStream stream to a
// listener.NotificationListener, adapted from the teacher's JetStream
// pubsub consumer. The upstream trigger's publishing side is the external
// collaborator named in spec.md §1; this is only the subscribing half,
// feeding raw payloads into listener.Process.
package nats

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/ADORSYS-GIS/postgres-index-cache/listener"
)

// jetstreamNew is overridden in tests to inject a mock jetstream.JetStream
// without a running NATS server, mirroring the teacher's JetStreamNew var.
var jetstreamNew = jetstream.New

// Subscriber consumes a JetStream stream and feeds every message's
// payload into a NotificationListener.
type Subscriber struct {
	js            jetstream.JetStream
	streamName    string
	consumerName  string
	filterSubject string
}

// NewSubscriber creates a Subscriber on connection nc for streamName.
// consumerName and filterSubject may be empty: consumerName defaults to
// "cache-listener-consumer", and filterSubject defaults at Run time to
// the bound listener's configured channel.
func NewSubscriber(nc *nats.Conn, streamName, consumerName, filterSubject string) (*Subscriber, error) {
	if nc == nil {
		return nil, fmt.Errorf("nats: connection cannot be nil")
	}
	if streamName == "" {
		return nil, fmt.Errorf("nats: stream name is required")
	}
	js, err := jetstreamNew(nc)
	if err != nil {
		return nil, fmt.Errorf("nats: create jetstream context: %w", err)
	}
	return &Subscriber{
		js:            js,
		streamName:    streamName,
		consumerName:  consumerName,
		filterSubject: filterSubject,
	}, nil
}

// Run ensures the stream and a durable consumer exist, then consumes
// until ctx is done, calling l.Process(ctx, msg.Data()) for each message
// and acking it. l.Process never errors, so every delivered message is
// acked exactly once.
func (s *Subscriber) Run(ctx context.Context, l *listener.NotificationListener) error {
	filterSubject := s.filterSubject
	if filterSubject == "" {
		filterSubject = l.Channel()
	}

	_, err := s.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     s.streamName,
		Subjects: []string{filterSubject},
		Storage:  jetstream.MemoryStorage,
	})
	if err != nil {
		return fmt.Errorf("nats: ensure stream: %w", err)
	}

	consumerName := s.consumerName
	if consumerName == "" {
		consumerName = "cache-listener-consumer"
	}
	cons, err := s.js.CreateOrUpdateConsumer(ctx, s.streamName, jetstream.ConsumerConfig{
		Durable:       consumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		FilterSubject: filterSubject,
	})
	if err != nil {
		return fmt.Errorf("nats: create consumer: %w", err)
	}

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		l.Process(ctx, msg.Data())
		_ = msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("nats: consume: %w", err)
	}
	defer cc.Stop()

	<-ctx.Done()
	return ctx.Err()
}
