package task

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"sportiz/internal/logger"
	"sportiz/internal/repository"
)

// DefaultWriteTimeout bounds a single storage write
const DefaultWriteTimeout = 5 * time.Second

// writeJob is one queued write. Jobs with a done channel are flush barriers.
type writeJob struct {
	key   string
	value []byte
	done  chan struct{}
}

// Writer persists snapshots in the background, one at a time, in enqueue order.
// Enqueue never blocks on storage; failed writes are logged and counted.
type Writer struct {
	store        repository.KeyValueWriter
	writeTimeout time.Duration
	logger       *logger.Logger

	mu      sync.Mutex
	queue   []writeJob
	stopped bool

	wake     chan struct{}
	stopCh   chan struct{}
	wg       sync.WaitGroup
	failures atomic.Int64
}

// NewWriter creates a new Writer over store. Call Start before enqueuing.
func NewWriter(store repository.KeyValueWriter, writeTimeout time.Duration) *Writer {
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &Writer{
		store:        store,
		writeTimeout: writeTimeout,
		logger:       logger.GetGlobalLogger().WithField("component", "writer"),
		wake:         make(chan struct{}, 1),
		stopCh:       make(chan struct{}),
	}
}

// Start begins the background write loop
func (w *Writer) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop writes everything still queued and stops the loop
func (w *Writer) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()
}

// Enqueue schedules value to be written under key
func (w *Writer) Enqueue(key string, value []byte) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		w.failures.Add(1)
		w.logger.Warn("Write dropped after stop", map[string]interface{}{"key": key})
		return
	}
	w.queue = append(w.queue, writeJob{key: key, value: value})
	w.mu.Unlock()

	w.signal()
}

// Flush waits until every write enqueued before the call has been attempted
func (w *Writer) Flush(ctx context.Context) error {
	done := make(chan struct{})

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.queue = append(w.queue, writeJob{done: done})
	w.mu.Unlock()

	w.signal()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Failures returns the number of writes that did not reach storage
func (w *Writer) Failures() int64 {
	return w.failures.Load()
}

func (w *Writer) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// run is the main loop draining the queue
func (w *Writer) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.stopCh:
			w.drain()
			return
		}
	}
}

// drain processes jobs until the queue is empty
func (w *Writer) drain() {
	for {
		w.mu.Lock()
		if len(w.queue) == 0 {
			w.mu.Unlock()
			return
		}
		job := w.queue[0]
		w.queue = w.queue[1:]
		w.mu.Unlock()

		if job.done != nil {
			close(job.done)
			continue
		}
		w.write(job)
	}
}

func (w *Writer) write(job writeJob) {
	ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
	defer cancel()

	if err := w.store.Set(ctx, job.key, job.value); err != nil {
		w.failures.Add(1)
		w.logger.Error("Failed to persist snapshot", map[string]interface{}{
			"key":   job.key,
			"error": err.Error(),
		})
		return
	}

	w.logger.Debug("Snapshot persisted", map[string]interface{}{
		"key":   job.key,
		"bytes": len(job.value),
	})
}
