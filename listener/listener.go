// Package listener dispatches decoded notification payloads to the
// per-table handler registered for them.
package listener

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ADORSYS-GIS/postgres-index-cache/logging"
	"github.com/ADORSYS-GIS/postgres-index-cache/notify"
)

// DefaultChannel is the pub/sub channel name the upstream trigger
// contract publishes on unless the deployment overrides it.
const DefaultChannel = "cache_invalidation"

// Handler applies a decoded ChangeEvent for the one table it is bound to.
// Implementations are expected to be idempotent under redelivery.
type Handler interface {
	TableName() string
	Handle(ctx context.Context, event notify.ChangeEvent)
}

// NotificationListener routes decoded ChangeEvents to the handler
// registered for their table. Registration is safe to call concurrently
// with Process: the registry is guarded by its own RWMutex, so dispatch
// never blocks on anything but that lock.
type NotificationListener struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	channel  string
	logger   *slog.Logger
}

// New creates a listener bound to DefaultChannel.
func New() *NotificationListener {
	return &NotificationListener{
		handlers: make(map[string]Handler),
		channel:  DefaultChannel,
		logger:   logging.Default(),
	}
}

// WithChannel sets the channel name and returns the receiver for chaining.
func (l *NotificationListener) WithChannel(name string) *NotificationListener {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.channel = name
	return l
}

// WithLogger sets the logger used for decode failures and dropped events,
// and returns the receiver for chaining.
func (l *NotificationListener) WithLogger(logger *slog.Logger) *NotificationListener {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger = logger
	return l
}

// Channel returns the configured channel name.
func (l *NotificationListener) Channel() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.channel
}

// RegisterHandler binds h at h.TableName(), replacing any handler
// previously registered for that table.
func (l *NotificationListener) RegisterHandler(h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[h.TableName()] = h
}

// Process decodes payload and dispatches it to the registered handler for
// its table. Decode failures and unregistered tables are logged and
// dropped; Process never returns an error and never panics on malformed
// input, so producers can call it freely without inspecting a result.
func (l *NotificationListener) Process(ctx context.Context, payload []byte) {
	event, err := notify.Decode(payload)
	if err != nil {
		l.log().Warn("dropping notification: decode failed", "error", err)
		return
	}

	l.mu.RLock()
	handler, ok := l.handlers[event.Table]
	l.mu.RUnlock()

	if !ok {
		l.log().Warn("dropping notification: no handler registered", "table", event.Table)
		return
	}
	handler.Handle(ctx, event)
}

func (l *NotificationListener) log() *slog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.logger != nil {
		return l.logger
	}
	return logging.Default()
}
