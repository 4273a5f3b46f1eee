// Package memory provides an in-process transport.Publisher/Consumer pair
// for exercising a listener.NotificationListener without a real broker —
// adapted from the teacher's in-memory pub/sub engine, trimmed to exact
// subject matching since cache-invalidation channels are named, not
// wildcarded.
package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ADORSYS-GIS/postgres-index-cache/transport"
)

// ErrClosed is returned by operations on a closed Broker.
var ErrClosed = errors.New("memory: broker closed")

// Broker routes published payloads to every subscriber on the same exact
// subject.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string][]chan transport.Message
	closed      atomic.Bool
}

// New creates an empty Broker.
func New() *Broker {
	return &Broker{subscribers: make(map[string][]chan transport.Message)}
}

// NewPublisher returns a Publisher bound to this broker.
func (b *Broker) NewPublisher() transport.Publisher {
	return &publisher{broker: b}
}

// NewConsumer returns a Consumer subscribing to subject on this broker.
func (b *Broker) NewConsumer(subject string) transport.Consumer {
	return &consumer{broker: b, subject: subject, bufSize: 64}
}

// Close shuts down the broker and closes every subscriber channel.
func (b *Broker) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, chans := range b.subscribers {
		for _, ch := range chans {
			close(ch)
		}
	}
	b.subscribers = nil
	return nil
}

func (b *Broker) publish(subject string, data []byte) error {
	if b.closed.Load() {
		return ErrClosed
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers[subject] {
		msg := &message{data: data, subject: subject}
		select {
		case ch <- msg:
		default:
			// Slow subscriber: drop rather than block the publisher.
		}
	}
	return nil
}

func (b *Broker) subscribe(subject string, bufSize int) (chan transport.Message, func(), error) {
	if b.closed.Load() {
		return nil, nil, ErrClosed
	}
	ch := make(chan transport.Message, bufSize)

	b.mu.Lock()
	b.subscribers[subject] = append(b.subscribers[subject], ch)
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		chans := b.subscribers[subject]
		for i, c := range chans {
			if c == ch {
				b.subscribers[subject] = append(chans[:i], chans[i+1:]...)
				break
			}
		}
	}
	return ch, unsubscribe, nil
}

type message struct {
	data    []byte
	subject string
}

func (m *message) Data() []byte    { return m.data }
func (m *message) Subject() string { return m.subject }
func (m *message) Ack() error      { return nil }
func (m *message) Nak() error      { return nil }

type publisher struct {
	broker *Broker
	closed atomic.Bool
}

func (p *publisher) Publish(_ context.Context, subject string, data []byte) error {
	if p.closed.Load() {
		return ErrClosed
	}
	return p.broker.publish(subject, data)
}

func (p *publisher) Close() error {
	p.closed.Store(true)
	return nil
}

type consumer struct {
	broker  *Broker
	subject string
	bufSize int
}

func (c *consumer) Subscribe(ctx context.Context) (<-chan transport.Message, error) {
	ch, unsubscribe, err := c.broker.subscribe(c.subject, c.bufSize)
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return ch, nil
}

func (c *consumer) Close() error {
	return nil
}
