// File: internal/services/persistence/writer.go
package persistence

import (
	"context"
	"sync"
	"time"
)

// Writer persists the latest scheduled value in the background. Scheduling
// never blocks; a value scheduled while an earlier one is still waiting
// replaces it, so the store always ends up with the most recent snapshot.
type Writer[T any] struct {
	adapter  *Adapter[T]
	key      string
	debounce time.Duration
	timeout  time.Duration
	recorder Recorder
	logger   Logger

	mu      sync.Mutex
	pending *T
	closed  bool

	writeMu sync.Mutex // orders saves between the loop and Flush

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewWriter starts the background goroutine. Call Close to stop it.
func NewWriter[T any](adapter *Adapter[T], key string, config *Config, recorder Recorder, logger Logger) *Writer[T] {
	if config == nil {
		config = DefaultConfig()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	w := &Writer[T]{
		adapter:  adapter,
		key:      key,
		debounce: config.Debounce,
		timeout:  config.Timeout,
		recorder: recorder,
		logger:   logger,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

// Schedule queues value for writing.
func (w *Writer[T]) Schedule(value T) {
	w.mu.Lock()
	superseded := w.pending != nil
	w.pending = &value
	closed := w.closed
	w.mu.Unlock()

	w.recorder.WriteScheduled(superseded)
	if closed {
		return
	}
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Pending reports whether a scheduled value has not been written yet.
func (w *Writer[T]) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending != nil
}

// Flush writes the pending value, if any, before returning.
func (w *Writer[T]) Flush(ctx context.Context) error {
	return w.writePending(ctx)
}

// Close stops the background goroutine and flushes what is left.
func (w *Writer[T]) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.stop)
	select {
	case <-w.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return w.Flush(ctx)
}

func (w *Writer[T]) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
		case <-w.stop:
			return
		}

		if w.debounce > 0 {
			timer := time.NewTimer(w.debounce)
			select {
			case <-timer.C:
			case <-w.stop:
				timer.Stop()
				return
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		_ = w.writePending(ctx)
		cancel()
	}
}

func (w *Writer[T]) writePending(ctx context.Context) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.Lock()
	value := w.pending
	w.pending = nil
	w.mu.Unlock()

	if value == nil {
		return nil
	}

	err := w.adapter.Save(ctx, w.key, *value)
	w.recorder.WriteDone(err)
	if err != nil {
		// The session keeps working from memory; the next change retries.
		w.logger.Warn("state write failed, continuing in memory", "key", w.key, "error", err)
		return err
	}
	w.logger.Debug("state written", "key", w.key)
	return nil
}
