package memcore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memcore/internal/logging"
	"github.com/fyrsmithlabs/memcore/internal/memerr"
	"github.com/fyrsmithlabs/memcore/internal/provenance"
	"github.com/fyrsmithlabs/memcore/internal/queue"
	"github.com/fyrsmithlabs/memcore/internal/store"
)

// Store embeds content as a new entry: it resolves parent L-Scores, computes
// the child's own L-Score, applies the threshold gate, assigns an id and a
// vector label, inserts the vector into the in-process index, and persists
// the entry/tags/provenance/vector-mapping rows in one transaction. A
// rejected gate leaves no trace — nothing is inserted into the index or the
// store.
func (e *Engine) Store(ctx context.Context, content string, opts StoreOptions) (*Entry, error) {
	start := time.Now()
	defer func() { e.metrics.StoreDuration.Record(ctx, time.Since(start).Seconds()) }()

	lScore, depth, err := e.computeLScore(ctx, opts)
	if err != nil {
		return nil, err
	}
	if opts.SessionID != "" {
		ctx = logging.WithSessionID(ctx, opts.SessionID)
	}
	if opts.AgentID != "" {
		ctx = logging.WithAgentID(ctx, opts.AgentID)
	}

	if err := provenance.Gate(lScore, e.cfg.Provenance.Threshold, e.cfg.Provenance.EnforceThreshold); err != nil {
		e.metrics.RecordProvenanceRejection(ctx, "below_threshold")
		e.log.Warn(ctx, "provenance gate rejected entry",
			zap.Float64("l_score", lScore), zap.Float64("threshold", e.cfg.Provenance.Threshold),
			zap.Int("lineage_depth", depth))
		return nil, err
	}

	vec, embedErr := embedOne(ctx, e.embedder, content)
	pending := embedErr != nil
	if pending {
		e.log.Warn(ctx, "embed failed, storing entry with pending embedding", zap.Error(embedErr))
	}

	id := uuid.NewString()
	now := time.Now()
	entry := &store.Entry{
		ID: id, Content: content, Source: opts.Source, Importance: opts.Importance,
		SessionID: nullString(opts.SessionID), AgentID: nullString(opts.AgentID), Context: nullString(opts.Context),
		PendingEmbedding: pending, Tags: opts.Tags, CreatedAt: now, UpdatedAt: now,
	}

	var label int64
	if !pending {
		label, err = e.store.NextLabel(ctx)
		if err != nil {
			return nil, err
		}
		if err := e.index.Add(label, vec); err != nil {
			return nil, err
		}
	}

	if txErr := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := e.store.InsertEntry(ctx, tx, entry); err != nil {
			return err
		}
		rec := &store.ProvenanceRecord{EntryID: id, LineageDepth: depth, Confidence: opts.Confidence, Relevance: opts.Relevance, LScore: lScore}
		if err := e.store.InsertProvenance(ctx, tx, rec, opts.ParentIDs); err != nil {
			return err
		}
		if !pending {
			mapping := &store.VectorMapping{EntryID: id, Label: label, CompressionTier: "HOT"}
			if err := e.store.InsertVectorMapping(ctx, tx, mapping); err != nil {
				return err
			}
		}
		return nil
	}); txErr != nil {
		if !pending {
			e.index.Delete(label)
		}
		return nil, txErr
	}
	e.metrics.VectorIndexSize.Add(ctx, 1)

	fields := []zap.Field{zap.String("entry.id", id), zap.Float64("l_score", lScore)}
	if !pending {
		fields = append(fields, logging.VectorSummary("vector", vec))
	}
	e.log.Debug(ctx, "entry stored", fields...)

	return toPublicEntry(entry, lScore, depth), nil
}

// computeLScore resolves the L-Scores and lineage depths of opts.ParentIDs
// and rolls them up for the entry about to be created.
func (e *Engine) computeLScore(ctx context.Context, opts StoreOptions) (float64, int, error) {
	if len(opts.ParentIDs) == 0 {
		return provenance.Compute(nil, e.cfg.Provenance.DepthDecay)
	}
	scores, err := e.store.ParentLScores(ctx, opts.ParentIDs)
	if err != nil {
		return 0, 0, err
	}
	depths, err := e.store.ParentLineageDepths(ctx, opts.ParentIDs)
	if err != nil {
		return 0, 0, err
	}
	edges := make([]provenance.ParentEdge, len(opts.ParentIDs))
	for i, id := range opts.ParentIDs {
		edges[i] = provenance.ParentEdge{
			Parent:     provenance.ParentInfo{LScore: scores[id], Depth: depths[id]},
			Confidence: opts.Confidence,
			Relevance:  opts.Relevance,
		}
	}
	return provenance.Compute(edges, e.cfg.Provenance.DepthDecay)
}

// Update mutates an entry's tags and/or importance. A patch without tags is
// handed to the async queue rather than applied inline, since the caller
// does not need read-your-write consistency on metadata patches; a patch
// with tags is applied inline in full, importance included.
func (e *Engine) Update(ctx context.Context, id string, patch UpdatePatch) error {
	if _, err := e.store.GetEntry(ctx, id); err != nil {
		return err
	}
	data := map[string]any{"updated_at": time.Now()}
	if patch.Importance != nil {
		data["importance"] = *patch.Importance
	}
	if patch.Tags != nil {
		// Tag membership lives in a side table the generic queue op model
		// cannot address; apply the whole patch inline, importance and
		// updated_at included.
		if err := e.store.UpdateEntryMetadata(ctx, id, patch.Importance, patch.Tags); err != nil {
			return err
		}
		return nil
	}
	return e.queue.Write(queue.Op{Type: queue.OpUpdate, Table: "entries", ID: id, Data: data})
}

// Delete removes an entry's vector from the in-process index immediately
// (the index has no SQL durability of its own) and defers the cascading
// SQL row deletion to the async write queue.
func (e *Engine) Delete(ctx context.Context, id string) error {
	mapping, err := e.store.GetVectorMapping(ctx, id)
	if err != nil && !isNotFound(err) {
		return err
	}
	if mapping != nil {
		e.index.Delete(mapping.Label)
	}
	e.enhancer.Invalidate(id)

	return e.queue.Write(queue.Op{Type: queue.OpDelete, Table: "entries", ID: id})
}

// RecordVectorAccess bumps an entry's access counter and last-accessed
// timestamp synchronously: vector_mappings is keyed by entry_id rather
// than the generic "id" column the write queue's op model assumes, and the
// counter update is already a single atomic statement, so there is no
// benefit to routing it through the queue.
func (e *Engine) RecordVectorAccess(ctx context.Context, id string) error {
	_, err := e.store.RecordAccess(ctx, id)
	return err
}

func isNotFound(err error) bool {
	var nf *memerr.NotFound
	return errors.As(err, &nf)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func toPublicEntry(e *store.Entry, lScore float64, depth int) *Entry {
	return &Entry{
		ID: e.ID, Content: e.Content, Source: e.Source, Importance: e.Importance,
		SessionID: e.SessionID.String, AgentID: e.AgentID.String, Context: e.Context.String,
		Tags: e.Tags, PendingEmbedding: e.PendingEmbedding, LScore: lScore, LineageDepth: depth,
		CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt,
	}
}
