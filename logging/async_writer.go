package logging

import (
	"io"
	"sync"
	"time"
)

// AsyncWriter wraps an io.Writer with a buffered background writer, so a
// caller on the hot path — notably NotificationListener.Process dropping
// a malformed payload — does not wait for log I/O. Write blocks only
// while the buffer channel is full.
type AsyncWriter struct {
	writer      io.Writer
	logChan     chan []byte
	flushTicker *time.Ticker
	stopChan    chan struct{}
	wg          sync.WaitGroup
	closed      bool
	mu          sync.Mutex

	batchSize    int
	flushTimeout time.Duration
}

// NewAsyncWriter wraps w with default buffering (10000-entry channel,
// 100-entry batches, 100ms flush timeout).
func NewAsyncWriter(w io.Writer) *AsyncWriter {
	return NewAsyncWriterSized(w, 10000, 100, 100*time.Millisecond)
}

// NewAsyncWriterSized wraps w with explicit buffering parameters.
func NewAsyncWriterSized(w io.Writer, bufferSize, batchSize int, flushTimeout time.Duration) *AsyncWriter {
	aw := &AsyncWriter{
		writer:       w,
		logChan:      make(chan []byte, bufferSize),
		flushTicker:  time.NewTicker(flushTimeout),
		stopChan:     make(chan struct{}),
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
	}
	aw.wg.Add(1)
	go aw.writeLoop()
	return aw
}

// Write queues p for asynchronous writing. The returned count always
// equals len(p) on success; the copy means the caller's slice can be
// reused immediately.
func (aw *AsyncWriter) Write(p []byte) (int, error) {
	aw.mu.Lock()
	if aw.closed {
		aw.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	aw.mu.Unlock()

	buf := make([]byte, len(p))
	copy(buf, p)
	aw.logChan <- buf
	return len(p), nil
}

func (aw *AsyncWriter) writeLoop() {
	defer aw.wg.Done()
	batch := make([][]byte, 0, aw.batchSize)

	for {
		select {
		case data, ok := <-aw.logChan:
			if !ok {
				aw.flushBatch(batch)
				return
			}
			batch = append(batch, data)
			if len(batch) >= aw.batchSize {
				aw.flushBatch(batch)
				batch = batch[:0]
			}
		case <-aw.flushTicker.C:
			if len(batch) > 0 {
				aw.flushBatch(batch)
				batch = batch[:0]
			}
		case <-aw.stopChan:
			for len(aw.logChan) > 0 {
				batch = append(batch, <-aw.logChan)
				if len(batch) >= aw.batchSize {
					aw.flushBatch(batch)
					batch = batch[:0]
				}
			}
			if len(batch) > 0 {
				aw.flushBatch(batch)
			}
			return
		}
	}
}

func (aw *AsyncWriter) flushBatch(batch [][]byte) {
	if len(batch) == 0 {
		return
	}
	for _, entry := range batch {
		_, _ = aw.writer.Write(entry)
	}
}

// Close stops the background writer after flushing pending entries.
func (aw *AsyncWriter) Close() error {
	aw.mu.Lock()
	if aw.closed {
		aw.mu.Unlock()
		return nil
	}
	aw.closed = true
	aw.mu.Unlock()

	close(aw.stopChan)
	aw.flushTicker.Stop()
	aw.wg.Wait()
	return nil
}
