// Package memcore implements the Memory Core: a persistent semantic-memory
// engine for AI agents. It composes a durable relational store, an
// in-process vector index, a five-tier compression manager, a provenance
// and causal graph, an ego-graph enhancer, and an async write queue behind
// a single handle, constructed once and owned by the caller — there is no
// process-global singleton.
package memcore

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/fyrsmithlabs/memcore/internal/compression"
	"github.com/fyrsmithlabs/memcore/internal/config"
	"github.com/fyrsmithlabs/memcore/internal/ego"
	"github.com/fyrsmithlabs/memcore/internal/logging"
	"github.com/fyrsmithlabs/memcore/internal/provenance"
	"github.com/fyrsmithlabs/memcore/internal/queue"
	"github.com/fyrsmithlabs/memcore/internal/store"
	"github.com/fyrsmithlabs/memcore/internal/telemetry"
	"github.com/fyrsmithlabs/memcore/internal/vectorindex"
)

// metadata keys under which the enhancer weights are persisted as JSON rows
// in system_metadata (PQ codebooks live in their own pq_codebooks table).
const (
	metaKeyProjectionWeights = "ego_projection_weights"
	metaKeyAttentionWeights  = "ego_attention_weights"
)

// Engine is the single handle owning every Memory Core component. Lifecycle
// is construct (New) -> Initialize -> many operations -> Close, which stops
// the scheduler, flushes the write queue and closes the store.
type Engine struct {
	cfg      *config.Config
	embedder Embedder
	log      *logging.Logger
	metrics  *telemetry.Metrics

	store       *store.Store
	index       *vectorindex.Index
	compression *compression.Manager
	enhancer    *ego.Enhancer
	edges       provenance.StoreEdgeSource
	queue       *queue.Queue

	aggMethod ego.Method

	mu            sync.Mutex
	schedStopCh   chan struct{}
	schedDoneCh   chan struct{}
	schedStarted  bool
}

// Option configures optional Engine behavior beyond the required
// constructor arguments.
type Option func(*Engine)

// WithLogger attaches a structured logger. Without one, New builds a logger
// from logging.NewDefaultConfig().
func WithLogger(log *logging.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithMetrics attaches an OpenTelemetry metrics instance. Defaults to
// telemetry.DefaultMetrics().
func WithMetrics(m *telemetry.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithAggregationMethod selects the ego-graph neighbor aggregation
// strategy. Defaults to mean.
func WithAggregationMethod(method ego.Method) Option {
	return func(e *Engine) { e.aggMethod = method }
}

// New opens the persistent store, builds the vector index and compression
// manager, loads or initializes ego-graph enhancer weights, and wires the
// async write queue. It does not yet run startup validation or legacy
// migration — call Initialize for that.
func New(ctx context.Context, cfg *config.Config, embedder Embedder, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &Engine{cfg: cfg, embedder: embedder, aggMethod: ego.MethodMean}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		log, err := logging.NewLogger(logging.NewDefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("build default logger: %w", err)
		}
		e.log = log
	}
	if e.metrics == nil {
		e.metrics = telemetry.DefaultMetrics()
	}

	s, err := store.Open(ctx, cfg.Store, e.log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	e.store = s
	e.edges = provenance.StoreEdgeSource{Store: s}

	e.index = vectorindex.New(cfg.Vector.Dimension, cfg.Vector.NormTolerance)

	e.compression = compression.NewManager(s, e.index, cfg.Compression, cfg.Vector.Dimension, e.log)
	if err := e.compression.LoadCodebooks(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("load codebooks: %w", err)
	}

	projection, attn, err := e.loadOrInitEgoWeights(ctx)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("load ego weights: %w", err)
	}
	enhancer, err := ego.NewEnhancer(s, labelSourceFor(s), e.index, cfg.Ego, e.aggMethod, attn, projection)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("new enhancer: %w", err)
	}
	e.enhancer = enhancer

	e.queue = queue.New(s, cfg.Queue.MaxQueueSize, cfg.Queue.BatchSize,
		cfg.Queue.FlushInterval.Duration(), cfg.Queue.MaxFailures, queue.WithLogger(e.log.Underlying()))

	return e, nil
}

// loadOrInitEgoWeights loads projection (and, for attention aggregation,
// query/key) weights from system_metadata, generating and persisting a
// fresh Xavier-initialized set on first run. Training these weights is out
// of scope; they are a loadable artifact per the spec's non-goals.
func (e *Engine) loadOrInitEgoWeights(ctx context.Context) (*ego.Projection, *ego.AttentionWeights, error) {
	rng := rand.New(rand.NewSource(1))

	var projection *ego.Projection
	if raw, ok, err := e.store.GetMetadata(ctx, metaKeyProjectionWeights); err != nil {
		return nil, nil, err
	} else if ok {
		projection, err = ego.UnmarshalProjectionWeights([]byte(raw))
		if err != nil {
			return nil, nil, err
		}
	} else {
		projection = ego.NewProjection(e.cfg.Ego.ProjectionInputDim, e.cfg.Ego.ProjectionHidden,
			e.cfg.Ego.ProjectionOutDim, ego.ActivationGELU, true, true, rng)
		blob, err := projection.MarshalWeights()
		if err != nil {
			return nil, nil, err
		}
		if err := e.store.SetMetadata(ctx, metaKeyProjectionWeights, string(blob)); err != nil {
			return nil, nil, err
		}
	}

	var attn *ego.AttentionWeights
	if e.aggMethod == ego.MethodAttention {
		if raw, ok, err := e.store.GetMetadata(ctx, metaKeyAttentionWeights); err != nil {
			return nil, nil, err
		} else if ok {
			attn, err = unmarshalAttentionWeights([]byte(raw))
			if err != nil {
				return nil, nil, err
			}
		} else {
			attn = ego.NewAttentionWeights(e.cfg.Ego.AttentionDim, e.cfg.Vector.Dimension, rng)
			blob, err := marshalAttentionWeights(attn)
			if err != nil {
				return nil, nil, err
			}
			if err := e.store.SetMetadata(ctx, metaKeyAttentionWeights, string(blob)); err != nil {
				return nil, nil, err
			}
		}
	}
	return projection, attn, nil
}

// Initialize runs startup vector-index validation, migrates a legacy
// vector dump if present and the index is empty, and starts the
// background scheduler (tier evaluation + pattern pruning) and the async
// write queue's flush loop. Call once after New, before any operation.
func (e *Engine) Initialize(ctx context.Context) error {
	if err := e.validateStartup(ctx); err != nil {
		return err
	}
	if err := e.migrateLegacyDumpIfPresent(ctx); err != nil {
		return err
	}
	e.queue.Start()
	e.startScheduler()
	return nil
}

// Close flushes the write queue, persists no further metadata (weights are
// already durable as soon as they are generated), stops the background
// scheduler, and closes the store. Close is idempotent-safe to call once.
func (e *Engine) Close(ctx context.Context) error {
	e.stopScheduler()

	grace := e.cfg.Queue.FlushInterval.Duration()
	if grace <= 0 {
		grace = time.Second
	}
	var firstErr error
	if err := e.queue.Shutdown(ctx, grace); err != nil {
		firstErr = fmt.Errorf("shutdown queue: %w", err)
	}
	if err := e.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close store: %w", err)
	}
	return firstErr
}

// labelSource adapts *store.Store's vector-mapping lookup to ego.LabelSource.
type labelSource struct {
	store *store.Store
}

func labelSourceFor(s *store.Store) labelSource {
	return labelSource{store: s}
}

func (l labelSource) LabelFor(ctx context.Context, entryID string) (int64, bool, error) {
	m, err := l.store.GetVectorMapping(ctx, entryID)
	if err != nil {
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return m.Label, true, nil
}
