package nats

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ADORSYS-GIS/postgres-index-cache/listener"
	"github.com/ADORSYS-GIS/postgres-index-cache/notify"
)

func TestNewSubscriberRejectsNilConnection(t *testing.T) {
	_, err := NewSubscriber(nil, "stream", "", "")
	assert.Error(t, err)
}

func TestNewSubscriberRejectsEmptyStreamName(t *testing.T) {
	// The empty-stream-name check runs before the jetstream context is
	// ever created, so a zero-value connection is enough to exercise it.
	_, err := NewSubscriber(&nats.Conn{}, "", "", "")
	assert.Error(t, err)
}

func TestRunFeedsMessagesIntoListenerAndAcks(t *testing.T) {
	js := &mockJetStream{}
	js.On("CreateOrUpdateStream", mock.Anything, mock.Anything).Return(nil, nil)

	consumer := newMockConsumer()
	consumeCtx := &mockConsumeContext{}
	consumeCtx.On("Stop").Return()
	consumer.On("Consume", mock.Anything).Return(consumeCtx, nil)

	js.On("CreateOrUpdateConsumer", mock.Anything, "stream", mock.Anything).Return(consumer, nil)

	sub := &Subscriber{js: js, streamName: "stream", consumerName: "cache-listener-consumer"}

	l := listener.New()
	received := make(chan notify.ChangeEvent, 1)
	l.RegisterHandler(&recordingHandler{table: "users", out: received})

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- sub.Run(ctx, l) }()

	var handler jetstream.MessageHandler
	select {
	case handler = <-consumer.handlerCh:
	case <-time.After(time.Second):
		t.Fatal("Consume was never called")
	}

	msg := newMockMsg([]byte(`{"table":"users","action":"delete","id":"00000000-0000-0000-0000-000000000001"}`))
	msg.On("Ack").Return(nil)
	handler(msg)

	select {
	case event := <-received:
		assert.Equal(t, notify.ActionDelete, event.Kind)
	case <-time.After(time.Second):
		t.Fatal("listener never received the message")
	}
	msg.AssertCalled(t, "Ack")

	cancel()
	require.ErrorIs(t, <-runErr, context.Canceled)
	assert.True(t, consumeCtx.stopped)
}

func TestRunDefaultsFilterSubjectToListenerChannel(t *testing.T) {
	js := &mockJetStream{}
	var gotSubjects []string
	js.On("CreateOrUpdateStream", mock.Anything, mock.MatchedBy(func(cfg jetstream.StreamConfig) bool {
		gotSubjects = cfg.Subjects
		return true
	})).Return(nil, nil)

	consumer := newMockConsumer()
	consumeCtx := &mockConsumeContext{}
	consumeCtx.On("Stop").Return()
	consumer.On("Consume", mock.Anything).Return(consumeCtx, nil)
	js.On("CreateOrUpdateConsumer", mock.Anything, "stream", mock.Anything).Return(consumer, nil)

	sub := &Subscriber{js: js, streamName: "stream"}
	l := listener.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sub.Run(ctx, l)

	select {
	case <-consumer.handlerCh:
	case <-time.After(time.Second):
		t.Fatal("Consume was never called")
	}

	require.Equal(t, []string{listener.DefaultChannel}, gotSubjects)
}

type recordingHandler struct {
	table string
	out   chan notify.ChangeEvent
}

func (h *recordingHandler) TableName() string { return h.table }
func (h *recordingHandler) Handle(_ context.Context, event notify.ChangeEvent) {
	h.out <- event
}
