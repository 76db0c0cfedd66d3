package queue

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memcore/internal/memerr"
)

// TxRunner is the transactional surface the queue needs from the store. It
// is satisfied by *store.Store.WithTx.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// Stats is a snapshot of queue bookkeeping, exposed through getStats().
type Stats struct {
	Queued              int
	Processing          bool
	ConsecutiveFailures int
	TotalFlushed        int64
	TotalDropped        int64
	LastError           error
}

// Queue buffers write ops and applies them off the hot path in batches,
// inside one transaction per batch, on a background tick.
type Queue struct {
	db     TxRunner
	logger *zap.Logger

	maxQueueSize int
	batchSize    int
	interval     time.Duration
	maxFailures  int

	mu           sync.Mutex
	buf          []Op
	processing   bool
	failures     int
	totalFlushed int64
	totalDropped int64
	lastErr      error

	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger attaches a logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(q *Queue) { q.logger = logger }
}

// New builds a Queue. maxQueueSize, batchSize, interval and maxFailures fall
// back to the spec's defaults (1000, 10, 1s, 10) when zero.
func New(db TxRunner, maxQueueSize, batchSize int, interval time.Duration, maxFailures int, opts ...Option) *Queue {
	if maxQueueSize <= 0 {
		maxQueueSize = 1000
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	if interval <= 0 {
		interval = time.Second
	}
	if maxFailures <= 0 {
		maxFailures = 10
	}

	q := &Queue{
		db:           db,
		logger:       zap.NewNop(),
		maxQueueSize: maxQueueSize,
		batchSize:    batchSize,
		interval:     interval,
		maxFailures:  maxFailures,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start begins the background flush loop. Idempotent: calling Start twice
// is a no-op.
func (q *Queue) Start() {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	go q.run()
}

// Write enqueues op without blocking. It returns ErrQueueOverflow if the
// buffer is already at maxQueueSize, leaving the caller to retry or fall
// back to a synchronous write.
func (q *Queue) Write(op Op) error {
	if err := op.validate(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) >= q.maxQueueSize {
		return memerr.ErrQueueOverflow
	}
	q.buf = append(q.buf, op)
	return nil
}

// Flush drains the queue synchronously, applying batches until the buffer is
// empty. It returns the error of the first batch that fails; that batch is
// re-queued, or the whole buffer dropped once consecutive failures reach the
// limit.
func (q *Queue) Flush(ctx context.Context) error {
	for {
		drained, err := q.drainOne(ctx)
		if err != nil {
			return err
		}
		if !drained {
			return nil
		}
	}
}

// IsIdle reports whether the queue is empty and not currently processing a
// batch.
func (q *Queue) IsIdle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf) == 0 && !q.processing
}

// GetStats returns a snapshot of queue bookkeeping.
func (q *Queue) GetStats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Queued:              len(q.buf),
		Processing:          q.processing,
		ConsecutiveFailures: q.failures,
		TotalFlushed:        q.totalFlushed,
		TotalDropped:        q.totalDropped,
		LastError:           q.lastErr,
	}
}

// Shutdown flushes any buffered writes and stops the background ticker. It
// waits up to grace for the in-flight batch to finish before halting.
func (q *Queue) Shutdown(ctx context.Context, grace time.Duration) error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return q.Flush(ctx)
	}
	q.mu.Unlock()

	flushErr := q.Flush(ctx)

	close(q.stopCh)
	select {
	case <-q.doneCh:
	case <-time.After(grace):
		q.logger.Warn("queue shutdown grace period elapsed before run loop exited")
	}
	return flushErr
}

func (q *Queue) run() {
	defer close(q.doneCh)

	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			q.safeDrainOne(context.Background())
		}
	}
}

// safeDrainOne wraps drainOne with panic recovery so a single bad batch
// never takes down the background loop.
func (q *Queue) safeDrainOne(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("queue batch panicked, recovering", zap.Any("panic", r))
		}
	}()
	for {
		drained, err := q.drainOne(ctx)
		if err != nil {
			q.logger.Error("queue batch failed", zap.Error(err))
		}
		if !drained {
			return
		}
	}
}

// drainOne applies one batch. It returns drained=true if a batch was
// applied (so the caller should loop again), false once the buffer is empty
// or when the batch failed.
func (q *Queue) drainOne(ctx context.Context) (drained bool, err error) {
	q.mu.Lock()
	if len(q.buf) == 0 {
		q.mu.Unlock()
		return false, nil
	}
	n := q.batchSize
	if n > len(q.buf) {
		n = len(q.buf)
	}
	batch := append([]Op(nil), q.buf[:n]...)
	q.processing = true
	q.mu.Unlock()

	applyErr := q.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, op := range batch {
			if err := apply(tx, op); err != nil {
				return fmt.Errorf("apply %s on %s: %w", op.Type, op.Table, err)
			}
		}
		return nil
	})

	q.mu.Lock()
	defer q.mu.Unlock()
	q.processing = false

	if applyErr == nil {
		q.buf = q.buf[n:]
		q.failures = 0
		q.totalFlushed += int64(len(batch))
		return true, nil
	}

	q.lastErr = applyErr
	q.failures++
	if q.failures >= q.maxFailures {
		// Drop the whole queue to unblock the main loop; surfaced via stats.
		dropped := int64(len(q.buf))
		q.totalDropped += dropped
		q.buf = nil
		q.failures = 0
		q.logger.Error("queue dropped after consecutive batch failures",
			zap.Int64("dropped", dropped), zap.Error(applyErr))
		return false, applyErr
	}

	// Re-queue the batch at the head for a simple retry on the next tick.
	q.buf = append(append([]Op(nil), batch...), q.buf...)
	return false, applyErr
}
