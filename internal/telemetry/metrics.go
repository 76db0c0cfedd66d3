package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all memcore metrics.
const meterName = "github.com/fyrsmithlabs/memcore"

// Metrics holds all OpenTelemetry metric instruments for the memory core.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// StoreDuration tracks store() call latency, including provenance
	// gating and vector index insertion.
	StoreDuration metric.Float64Histogram

	// QueryDuration tracks query() (k-NN search) latency.
	QueryDuration metric.Float64Histogram

	// CausalQueryDuration tracks queryCausal() BFS traversal latency.
	CausalQueryDuration metric.Float64Histogram

	// EnhanceDuration tracks enhanceEntry() ego-graph enhancement latency.
	EnhanceDuration metric.Float64Histogram

	// TierEvaluationDuration tracks a full evaluateTiers() sweep.
	TierEvaluationDuration metric.Float64Histogram

	// QueueFlushDuration tracks a single batched queue flush.
	QueueFlushDuration metric.Float64Histogram

	// --- Counters ---

	// TierTransitions counts entries moved between compression tiers. Use
	// with attributes: attribute.String("from", ...), attribute.String("to", ...).
	TierTransitions metric.Int64Counter

	// ProvenanceRejections counts store() calls rejected by the L-Score
	// gate. Use with attribute.String("reason", ...).
	ProvenanceRejections metric.Int64Counter

	// QueueBatchFailures counts failed batch flush attempts.
	QueueBatchFailures metric.Int64Counter

	// QueueDrops counts write queues dropped after exceeding the
	// consecutive-failure limit.
	QueueDrops metric.Int64Counter

	// CausalExpirations counts causal relations removed by expireCausal().
	CausalExpirations metric.Int64Counter

	// --- Gauges ---

	// QueueDepth tracks the current number of pending operations in the
	// async write queue.
	QueueDepth metric.Int64UpDownCounter

	// VectorIndexSize tracks the number of vectors currently indexed.
	VectorIndexSize metric.Int64UpDownCounter

	// --- Value recorders ---

	// LScoreDistribution records the L-Score computed for each stored
	// entry's provenance, for observing drift in lineage quality over time.
	LScoreDistribution metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) for
// in-process memory-core operations, which are expected to complete in
// single-digit milliseconds rather than the network-bound latencies a
// service boundary would see.
var latencyBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StoreDuration, err = m.Float64Histogram("memcore.store.duration",
		metric.WithDescription("Latency of store() calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.QueryDuration, err = m.Float64Histogram("memcore.query.duration",
		metric.WithDescription("Latency of vector k-NN query() calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CausalQueryDuration, err = m.Float64Histogram("memcore.causal_query.duration",
		metric.WithDescription("Latency of queryCausal() BFS traversal."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EnhanceDuration, err = m.Float64Histogram("memcore.enhance.duration",
		metric.WithDescription("Latency of enhanceEntry() ego-graph enhancement."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TierEvaluationDuration, err = m.Float64Histogram("memcore.tier_evaluation.duration",
		metric.WithDescription("Latency of a full evaluateTiers() sweep."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if met.QueueFlushDuration, err = m.Float64Histogram("memcore.queue.flush.duration",
		metric.WithDescription("Latency of a single batched queue flush."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.TierTransitions, err = m.Int64Counter("memcore.tier.transitions",
		metric.WithDescription("Total entries moved between compression tiers, by from/to tier."),
	); err != nil {
		return nil, err
	}
	if met.ProvenanceRejections, err = m.Int64Counter("memcore.provenance.rejections",
		metric.WithDescription("Total store() calls rejected by the L-Score gate."),
	); err != nil {
		return nil, err
	}
	if met.QueueBatchFailures, err = m.Int64Counter("memcore.queue.batch_failures",
		metric.WithDescription("Total failed batch flush attempts."),
	); err != nil {
		return nil, err
	}
	if met.QueueDrops, err = m.Int64Counter("memcore.queue.drops",
		metric.WithDescription("Total write queues dropped after exceeding the consecutive-failure limit."),
	); err != nil {
		return nil, err
	}
	if met.CausalExpirations, err = m.Int64Counter("memcore.causal.expirations",
		metric.WithDescription("Total causal relations removed by expireCausal()."),
	); err != nil {
		return nil, err
	}

	if met.QueueDepth, err = m.Int64UpDownCounter("memcore.queue.depth",
		metric.WithDescription("Current number of pending operations in the async write queue."),
	); err != nil {
		return nil, err
	}
	if met.VectorIndexSize, err = m.Int64UpDownCounter("memcore.vector_index.size",
		metric.WithDescription("Current number of vectors held in the index."),
	); err != nil {
		return nil, err
	}

	if met.LScoreDistribution, err = m.Float64Histogram("memcore.provenance.l_score",
		metric.WithDescription("Distribution of L-Scores computed for stored entries."),
		metric.WithExplicitBucketBoundaries(0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("telemetry: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordTierTransition is a convenience method that records an entry moving
// from one compression tier to another.
func (m *Metrics) RecordTierTransition(ctx context.Context, from, to string) {
	m.TierTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("from", from),
			attribute.String("to", to),
		),
	)
}

// RecordProvenanceRejection is a convenience method that records a store()
// call rejected by the L-Score gate.
func (m *Metrics) RecordProvenanceRejection(ctx context.Context, reason string) {
	m.ProvenanceRejections.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordQueueBatchFailure is a convenience method that records a failed
// batch flush attempt.
func (m *Metrics) RecordQueueBatchFailure(ctx context.Context, consecutiveFailures int) {
	m.QueueBatchFailures.Add(ctx, 1,
		metric.WithAttributes(attribute.Int("consecutive_failures", consecutiveFailures)),
	)
}
