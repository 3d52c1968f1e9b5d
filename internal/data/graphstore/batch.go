// # internal/data/graphstore/batch.go
package graphstore

import (
	"context"
	"sync"
	"time"

	"molgraph/internal/core/errors"
	"molgraph/internal/shared/logger"
	"molgraph/internal/shared/observability"

	"go.uber.org/zap"
)

// BatchWriterConfig controls the flush thresholds for the BatchWriter.
type BatchWriterConfig struct {
	// BatchSize is the number of entries that trigger an automatic flush.
	// Defaults to 16 when zero or negative.
	BatchSize int
	// FlushInterval is the maximum time to wait before flushing pending entries.
	// Defaults to 1s when zero or negative.
	FlushInterval time.Duration
}

func (c BatchWriterConfig) batchSize() int {
	if c.BatchSize <= 0 {
		return 16
	}
	return c.BatchSize
}

func (c BatchWriterConfig) flushInterval() time.Duration {
	if c.FlushInterval <= 0 {
		return time.Second
	}
	return c.FlushInterval
}

// BatchWriter accumulates entries and commits them to a Store in single
// transactions from one goroutine. Entries are committed in submission order.
// The first write error is latched and returned by every later call.
type BatchWriter struct {
	store *Store
	cfg   BatchWriterConfig

	ch      chan *Entry
	flushCh chan chan error
	done    chan struct{}
	wg      sync.WaitGroup

	// sendMu is held shared by Submit for its whole send and exclusively by
	// Close while it marks the writer closed, so no send lands after done.
	sendMu sync.RWMutex
	closed bool

	mu       sync.Mutex
	err      error
	written  int
	closeErr error
}

// NewBatchWriter creates a BatchWriter and starts its goroutine. Callers must
// call Close to drain remaining entries.
func NewBatchWriter(store *Store, cfg BatchWriterConfig) *BatchWriter {
	w := &BatchWriter{
		store:   store,
		cfg:     cfg,
		ch:      make(chan *Entry, cfg.batchSize()*2),
		flushCh: make(chan chan error, 1),
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Submit enqueues e for the next flush. It blocks while the queue is full.
// Submit may race with Close: an entry either is accepted and committed by
// Close, or Submit reports the writer closed.
func (w *BatchWriter) Submit(ctx context.Context, e *Entry) error {
	if e == nil {
		return nil
	}
	w.sendMu.RLock()
	defer w.sendMu.RUnlock()
	if err := w.latched(); err != nil {
		return err
	}
	if w.closed {
		return errors.New(errors.CodeInvalidState, "batch writer closed")
	}
	select {
	case w.ch <- e:
		observability.WriteQueueDepth.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Flush writes all pending entries and waits for the commit.
func (w *BatchWriter) Flush() error {
	result := make(chan error, 1)
	select {
	case w.flushCh <- result:
	case <-w.done:
		return w.latched()
	}
	if err := <-result; err != nil {
		return err
	}
	return w.latched()
}

// Close flushes remaining entries and stops the goroutine. It waits for
// in-flight Submit calls and is safe to call more than once.
func (w *BatchWriter) Close() error {
	w.sendMu.Lock()
	if w.closed {
		w.sendMu.Unlock()
		w.mu.Lock()
		defer w.mu.Unlock()
		return w.closeErr
	}
	w.closed = true
	w.sendMu.Unlock()

	close(w.done)
	w.wg.Wait()
	err := w.latched()

	w.mu.Lock()
	w.closeErr = err
	w.mu.Unlock()
	return err
}

// Written returns the number of committed entries.
func (w *BatchWriter) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

func (w *BatchWriter) latched() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *BatchWriter) run() {
	defer w.wg.Done()

	batch := make([]*Entry, 0, w.cfg.batchSize())
	ticker := time.NewTicker(w.cfg.flushInterval())
	defer ticker.Stop()

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := w.writeBatch(batch)
		observability.WriteQueueDepth.Sub(float64(len(batch)))
		batch = batch[:0]
		return err
	}

	for {
		select {
		case e := <-w.ch:
			batch = append(batch, e)
			if len(batch) >= w.cfg.batchSize() {
				drainPending(&batch, w.ch)
				_ = flush()
				ticker.Reset(w.cfg.flushInterval())
			}

		case result := <-w.flushCh:
			drainPending(&batch, w.ch)
			result <- flush()

		case <-ticker.C:
			drainPending(&batch, w.ch)
			_ = flush()

		case <-w.done:
			drainPending(&batch, w.ch)
			_ = flush()
			return
		}
	}
}

func (w *BatchWriter) writeBatch(entries []*Entry) error {
	if err := w.latched(); err != nil {
		return err
	}
	start := time.Now()
	replaced, err := w.store.PutBatch(context.Background(), entries)
	observability.WriteBatchFlushSeconds.Observe(time.Since(start).Seconds())

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.err = err
		logger.Error("graph batch write failed", logger.Path(w.store.Path()), zap.Int(logger.FieldCount, len(entries)), logger.Err(err))
		return err
	}
	w.written += len(entries) - len(replaced)
	for _, name := range replaced {
		logger.Warn("graph entry overwritten", logger.Path(w.store.Path()), logger.QueryID(name))
	}
	return nil
}

func drainPending(batch *[]*Entry, ch <-chan *Entry) {
	for {
		select {
		case e := <-ch:
			*batch = append(*batch, e)
		default:
			return
		}
	}
}
