package nats

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/mock"
)

// mockJetStream is a mock implementation of jetstream.JetStream, adapted
// from the teacher's MockJetStream to cover only the calls Subscriber.Run
// makes.
type mockJetStream struct {
	mock.Mock
	jetstream.JetStream
}

func (m *mockJetStream) CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	args := m.Called(ctx, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(jetstream.Stream), args.Error(1)
}

func (m *mockJetStream) CreateOrUpdateConsumer(ctx context.Context, stream string, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error) {
	args := m.Called(ctx, stream, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(jetstream.Consumer), args.Error(1)
}

// mockConsumer is a mock jetstream.Consumer that hands its Consume handler
// back to the test through handlerCh, so the test can drive message
// delivery directly.
type mockConsumer struct {
	mock.Mock
	jetstream.Consumer
	handlerCh chan jetstream.MessageHandler
}

func newMockConsumer() *mockConsumer {
	return &mockConsumer{handlerCh: make(chan jetstream.MessageHandler, 1)}
}

func (m *mockConsumer) Consume(handler jetstream.MessageHandler, _ ...jetstream.PullConsumeOpt) (jetstream.ConsumeContext, error) {
	args := m.Called(handler)
	select {
	case m.handlerCh <- handler:
	default:
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(jetstream.ConsumeContext), args.Error(1)
}

// mockConsumeContext is a mock jetstream.ConsumeContext whose Stop is
// observable via its stopped field.
type mockConsumeContext struct {
	mock.Mock
	jetstream.ConsumeContext
	stopped bool
}

func (m *mockConsumeContext) Stop() {
	m.stopped = true
	m.Called()
}

// mockMsg is a mock jetstream.Msg carrying a fixed payload.
type mockMsg struct {
	mock.Mock
	data []byte
}

func newMockMsg(data []byte) *mockMsg { return &mockMsg{data: data} }

func (m *mockMsg) Data() []byte         { return m.data }
func (m *mockMsg) Subject() string      { return "cache_invalidation" }
func (m *mockMsg) Reply() string        { return "" }
func (m *mockMsg) Headers() nats.Header { return nil }

func (m *mockMsg) Ack() error {
	args := m.Called()
	return args.Error(0)
}

func (m *mockMsg) Nak() error {
	args := m.Called()
	return args.Error(0)
}

func (m *mockMsg) NakWithDelay(d time.Duration) error {
	args := m.Called(d)
	return args.Error(0)
}

func (m *mockMsg) Term() error {
	args := m.Called()
	return args.Error(0)
}

func (m *mockMsg) TermWithReason(reason string) error {
	args := m.Called(reason)
	return args.Error(0)
}

func (m *mockMsg) InProgress() error {
	args := m.Called()
	return args.Error(0)
}

func (m *mockMsg) DoubleAck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockMsg) Metadata() (*jetstream.MsgMetadata, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jetstream.MsgMetadata), args.Error(1)
}
