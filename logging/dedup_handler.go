package logging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DedupHandler wraps a slog.Handler and collapses identical log entries
// (same level, message and attributes, ignoring timestamp) into one line
// carrying a repeat count. It exists to protect the notification path: a
// misbehaving upstream producer that resends the same malformed payload,
// or keeps naming an unregistered table, must not flood the log.
type DedupHandler struct {
	handler     slog.Handler
	mu          *sync.Mutex
	window      int
	dedupMap    map[uint64]*dedupEntry
	dedupOrder  []uint64
	flushTicker *time.Ticker
	stopChan    chan struct{}
	wg          *sync.WaitGroup
}

type dedupEntry struct {
	record slog.Record
	count  int
}

// NewDedupHandler wraps handler with deduplication. window bounds how
// many distinct entries accumulate before a forced flush; a window <= 0
// falls back to 100.
func NewDedupHandler(handler slog.Handler, window int) *DedupHandler {
	if window <= 0 {
		window = 100
	}
	h := &DedupHandler{
		handler:     handler,
		mu:          &sync.Mutex{},
		window:      window,
		dedupMap:    make(map[uint64]*dedupEntry),
		dedupOrder:  make([]uint64, 0, window),
		flushTicker: time.NewTicker(time.Second),
		stopChan:    make(chan struct{}),
		wg:          &sync.WaitGroup{},
	}
	h.wg.Add(1)
	go h.flushLoop()
	return h
}

// Enabled reports whether the handler handles records at the given level.
func (h *DedupHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle buffers r, merging it into a prior identical entry if one is
// pending, instead of emitting a duplicate immediately.
func (h *DedupHandler) Handle(_ context.Context, r slog.Record) error {
	key := hashRecord(r)

	h.mu.Lock()
	defer h.mu.Unlock()

	if entry, exists := h.dedupMap[key]; exists {
		entry.count++
		return nil
	}
	h.dedupMap[key] = &dedupEntry{record: r.Clone(), count: 1}
	h.dedupOrder = append(h.dedupOrder, key)
	if len(h.dedupOrder) >= h.window {
		h.flushBatchLocked()
	}
	return nil
}

func hashRecord(r slog.Record) uint64 {
	hash := xxhash.New()
	hash.WriteString(r.Level.String())
	hash.WriteString("|")
	hash.WriteString(r.Message)
	hash.WriteString("|")
	r.Attrs(func(a slog.Attr) bool {
		hash.WriteString(a.Key)
		hash.WriteString("=")
		hash.WriteString(a.Value.String())
		hash.WriteString("|")
		return true
	})
	return hash.Sum64()
}

func (h *DedupHandler) flushLoop() {
	defer h.wg.Done()
	for {
		select {
		case <-h.flushTicker.C:
			h.mu.Lock()
			if len(h.dedupOrder) > 0 {
				h.flushBatchLocked()
			}
			h.mu.Unlock()
		case <-h.stopChan:
			h.mu.Lock()
			if len(h.dedupOrder) > 0 {
				h.flushBatchLocked()
			}
			h.mu.Unlock()
			return
		}
	}
}

// flushBatchLocked writes buffered entries to the underlying handler. It
// must be called with h.mu held, and briefly releases it around the call
// to h.handler.Handle so a handler that itself logs cannot deadlock.
func (h *DedupHandler) flushBatchLocked() {
	if len(h.dedupOrder) == 0 {
		return
	}
	records := make([]slog.Record, 0, len(h.dedupOrder))
	for _, key := range h.dedupOrder {
		entry := h.dedupMap[key]
		if entry == nil {
			continue
		}
		r := entry.record
		if entry.count > 1 {
			r.AddAttrs(slog.Int("repeated_count", entry.count))
		}
		records = append(records, r)
	}
	h.dedupMap = make(map[uint64]*dedupEntry)
	h.dedupOrder = h.dedupOrder[:0]

	h.mu.Unlock()
	for _, r := range records {
		_ = h.handler.Handle(context.Background(), r)
	}
	h.mu.Lock()
}

// WithAttrs returns a handler sharing this one's dedup state, wrapping the
// underlying handler's WithAttrs.
func (h *DedupHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(h.handler.WithAttrs(attrs))
}

// WithGroup returns a handler sharing this one's dedup state, wrapping the
// underlying handler's WithGroup.
func (h *DedupHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.derive(h.handler.WithGroup(name))
}

func (h *DedupHandler) derive(inner slog.Handler) *DedupHandler {
	return &DedupHandler{
		handler:     inner,
		mu:          h.mu,
		window:      h.window,
		dedupMap:    h.dedupMap,
		dedupOrder:  h.dedupOrder,
		flushTicker: h.flushTicker,
		stopChan:    h.stopChan,
		wg:          h.wg,
	}
}

// Close flushes any pending entries and stops the background flush loop.
// Calling it again after the first call is a no-op.
func (h *DedupHandler) Close() error {
	h.mu.Lock()
	select {
	case <-h.stopChan:
		h.mu.Unlock()
		return nil
	default:
	}
	close(h.stopChan)
	h.mu.Unlock()
	h.flushTicker.Stop()
	h.wg.Wait()
	return nil
}
