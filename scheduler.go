package memcore

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memcore/internal/memerr"
)

// startScheduler launches the background goroutine that periodically runs
// compression tier evaluation and pattern-template pruning on the
// interval configured for compression evaluation. It is idempotent:
// calling it while already running is a no-op.
func (e *Engine) startScheduler() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.schedStarted {
		return
	}
	e.schedStopCh = make(chan struct{})
	e.schedDoneCh = make(chan struct{})
	e.schedStarted = true

	interval := e.cfg.Compression.EvaluationInterval.Duration()
	if interval <= 0 {
		interval = time.Hour
	}
	go e.runScheduler(interval)
}

// stopScheduler signals the background loop to exit and waits for it to
// finish. Safe to call even if the scheduler was never started.
func (e *Engine) stopScheduler() {
	e.mu.Lock()
	if !e.schedStarted {
		e.mu.Unlock()
		return
	}
	e.schedStarted = false
	stopCh := e.schedStopCh
	doneCh := e.schedDoneCh
	e.mu.Unlock()

	close(stopCh)
	<-doneCh
}

func (e *Engine) runScheduler(interval time.Duration) {
	defer close(e.schedDoneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.schedStopCh:
			return
		case <-ticker.C:
			e.runMaintenanceSweep(context.Background())
		}
	}
}

// runMaintenanceSweep evaluates compression tiers and prunes any pattern
// template that has crossed the use_count/success_rate threshold. A
// failure in one does not prevent the other from running.
func (e *Engine) runMaintenanceSweep(ctx context.Context) {
	start := time.Now()
	if _, err := e.EvaluateTiers(ctx); err != nil {
		e.log.Error(ctx, "tier evaluation sweep failed", zap.Error(err))
	}
	e.metrics.TierEvaluationDuration.Record(ctx, time.Since(start).Seconds())

	if err := e.prunePatterns(ctx); err != nil {
		e.log.Error(ctx, "pattern prune sweep failed", zap.Error(err))
	}

	if n, err := e.expireCausalRelations(ctx); err != nil {
		e.log.Error(ctx, "causal relation expiry sweep failed", zap.Error(err))
	} else if n > 0 {
		e.metrics.CausalExpirations.Add(ctx, int64(n))
	}
}

// prunePatterns deletes every pattern template that has reached the
// auto-prune threshold (use_count >= 100 and success_rate < 0.4).
func (e *Engine) prunePatterns(ctx context.Context) error {
	ids, err := e.store.PrunablePatterns(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := e.store.PrunePattern(ctx, id); err != nil {
			return &memerr.PatternPruneError{PatternID: id, Reason: err.Error()}
		}
	}
	return nil
}
