package compression

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/fyrsmithlabs/memcore/internal/config"
	"github.com/fyrsmithlabs/memcore/internal/logging"
	"github.com/fyrsmithlabs/memcore/internal/memerr"
	"github.com/fyrsmithlabs/memcore/internal/store"
	"github.com/fyrsmithlabs/memcore/internal/vectorindex"
)

// TierTransition describes one entry's demotion during an evaluate sweep.
type TierTransition struct {
	EntryID  string
	FromTier Tier
	ToTier   Tier
	NewBytes int
	OldBytes int
}

// Manager owns the PQ codebooks and the evaluate-and-transition sweep. It
// reads access statistics from the store and mutates both the store and the
// in-memory vector index when demoting a vector out of HOT.
type Manager struct {
	store     *store.Store
	index     *vectorindex.Index
	cfg       config.CompressionConfig
	dimension int
	log       *logging.Logger

	coolPQ *ProductQuantizer
	coldPQ *ProductQuantizer
}

// NewManager constructs a tier manager bound to a store and vector index.
// Codebooks are not loaded until LoadCodebooks or TrainCodebooks is called.
func NewManager(s *store.Store, idx *vectorindex.Index, cfg config.CompressionConfig, dimension int, log *logging.Logger) *Manager {
	return &Manager{store: s, index: idx, cfg: cfg, dimension: dimension, log: log}
}

// LoadCodebooks loads previously trained COOL/COLD codebooks from the store,
// if present. It is not an error for a codebook to be absent; encoding into
// that tier will fail with ErrCodebookNotLoaded until one is trained.
func (m *Manager) LoadCodebooks(ctx context.Context) error {
	if cb, err := m.store.LoadCodebook(ctx, string(COOL)); err == nil {
		m.coolPQ = pqFromRecord(cb)
	}
	if cb, err := m.store.LoadCodebook(ctx, string(COLD)); err == nil {
		m.coldPQ = pqFromRecord(cb)
	}
	return nil
}

func pqFromRecord(cb *store.PQCodebook) *ProductQuantizer {
	return &ProductQuantizer{
		Dimension:     cb.SubvectorDim * cb.NumSubvectors,
		NumSubvectors: cb.NumSubvectors,
		SubvectorDim:  cb.SubvectorDim,
		NumCentroids:  cb.NumCentroids,
		Centroids:     DeserializeCentroids(cb.Centroids),
	}
}

// TrainCodebooks trains both the COOL (PQ8, 256 centroids) and COLD (PQ4, 16
// centroids) codebooks from a sample of vectors and persists them.
func (m *Manager) TrainCodebooks(ctx context.Context, sample [][]float32) error {
	rng := rand.New(rand.NewSource(1)) // fixed seed: codebook training is deterministic given a sample.

	coolPQ, err := NewProductQuantizer(m.dimension, m.cfg.NumSubvectors, 256)
	if err != nil {
		return err
	}
	if err := coolPQ.Train(sample, m.cfg.KMeansIterations, m.cfg.KMeansMinTrainingSize, rng); err != nil {
		return fmt.Errorf("train COOL codebook: %w", err)
	}

	coldPQ, err := NewProductQuantizer(m.dimension, m.cfg.NumSubvectors, 16)
	if err != nil {
		return err
	}
	if err := coldPQ.Train(sample, m.cfg.KMeansIterations, m.cfg.KMeansMinTrainingSize, rng); err != nil {
		return fmt.Errorf("train COLD codebook: %w", err)
	}

	trainedAt := now()
	if err := m.store.SaveCodebook(ctx, &store.PQCodebook{
		Tier: string(COOL), NumSubvectors: coolPQ.NumSubvectors, NumCentroids: coolPQ.NumCentroids,
		SubvectorDim: coolPQ.SubvectorDim, Centroids: SerializeCentroids(coolPQ.Centroids),
		TrainedAt: trainedAt, TrainingSize: len(sample),
	}); err != nil {
		return fmt.Errorf("save COOL codebook: %w", err)
	}
	if err := m.store.SaveCodebook(ctx, &store.PQCodebook{
		Tier: string(COLD), NumSubvectors: coldPQ.NumSubvectors, NumCentroids: coldPQ.NumCentroids,
		SubvectorDim: coldPQ.SubvectorDim, Centroids: SerializeCentroids(coldPQ.Centroids),
		TrainedAt: trainedAt, TrainingSize: len(sample),
	}); err != nil {
		return fmt.Errorf("save COLD codebook: %w", err)
	}

	m.coolPQ, m.coldPQ = coolPQ, coldPQ
	return nil
}

var now = time.Now

// EvaluateAndTransition runs one sweep: if the total vector count is below
// MinVectorsForCompression it is a no-op; otherwise every mapping's target
// tier is computed from its access frequency and demoted if the target is
// lower-precision than its current tier. Each entry is re-encoded within
// its own short transaction, never holding a lock for the whole sweep.
func (m *Manager) EvaluateAndTransition(ctx context.Context) ([]TierTransition, error) {
	mappings, err := m.store.AllVectorMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vector mappings: %w", err)
	}
	if len(mappings) < m.cfg.MinVectorsForCompression {
		return nil, nil
	}

	maxAccess, err := m.store.MaxAccessCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("max access count: %w", err)
	}

	var transitions []TierTransition
	for _, mapping := range mappings {
		select {
		case <-ctx.Done():
			return transitions, ctx.Err()
		default:
		}

		current := Tier(mapping.CompressionTier)
		target := TargetTier(mapping.AccessCount, maxAccess)

		currentOrder, err := Order(current)
		if err != nil {
			return transitions, err
		}
		targetOrder, err := Order(target)
		if err != nil {
			return transitions, err
		}
		if targetOrder >= currentOrder {
			continue // never promote; equal or higher-precision target is a no-op.
		}

		transition, err := m.demote(ctx, mapping, current, target)
		if err != nil {
			return transitions, fmt.Errorf("demote %s: %w", mapping.EntryID, err)
		}
		transitions = append(transitions, transition)
	}
	return transitions, nil
}

// demote re-encodes one entry's vector from its current tier into target,
// always round-tripping through a float32 representation: HOT sources it
// from the in-memory index, any other tier decompresses first.
func (m *Manager) demote(ctx context.Context, mapping *store.VectorMapping, current, target Tier) (TierTransition, error) {
	vec, err := m.loadFloat32(ctx, mapping, current)
	if err != nil {
		return TierTransition{}, err
	}

	encoded, err := m.encode(vec, target)
	if err != nil {
		return TierTransition{}, err
	}

	if err := m.applyDemotion(ctx, mapping.EntryID, target, encoded); err != nil {
		return TierTransition{}, err
	}

	if target != HOT {
		m.index.Delete(mapping.Label)
	}

	return TierTransition{
		EntryID:  mapping.EntryID,
		FromTier: current,
		ToTier:   target,
		OldBytes: BytesPerVector(current, m.dimension),
		NewBytes: BytesPerVector(target, m.dimension),
	}, nil
}

func (m *Manager) loadFloat32(ctx context.Context, mapping *store.VectorMapping, current Tier) ([]float32, error) {
	if current == HOT {
		vec, ok := m.index.GetVector(mapping.Label)
		if !ok {
			return nil, fmt.Errorf("label %d not present in index", mapping.Label)
		}
		return vec, nil
	}

	data, err := m.store.CompressedData(ctx, mapping.EntryID)
	if err != nil {
		return nil, err
	}

	switch current {
	case WARM:
		return DecodeFloat16(data, m.dimension)
	case COOL:
		if m.coolPQ == nil {
			return nil, fmt.Errorf("decode COOL: %w", memerr.ErrCodebookNotLoaded)
		}
		return m.coolPQ.Decode(UnpackCodesPQ8(data))
	case COLD:
		if m.coldPQ == nil {
			return nil, fmt.Errorf("decode COLD: %w", memerr.ErrCodebookNotLoaded)
		}
		return m.coldPQ.Decode(UnpackCodesPQ4(data, m.coldPQ.NumSubvectors))
	case FROZEN:
		return DecodeBinary(data, m.dimension)
	default:
		return nil, fmt.Errorf("unknown current tier %q", current)
	}
}

func (m *Manager) encode(vec []float32, target Tier) ([]byte, error) {
	switch target {
	case WARM:
		return EncodeFloat16(vec), nil
	case COOL:
		if m.coolPQ == nil {
			return nil, memerr.ErrCodebookNotLoaded
		}
		codes, err := m.coolPQ.Encode(vec)
		if err != nil {
			return nil, err
		}
		return PackCodesPQ8(codes), nil
	case COLD:
		if m.coldPQ == nil {
			return nil, memerr.ErrCodebookNotLoaded
		}
		codes, err := m.coldPQ.Encode(vec)
		if err != nil {
			return nil, err
		}
		return PackCodesPQ4(codes), nil
	case FROZEN:
		return EncodeBinary(vec), nil
	default:
		return nil, fmt.Errorf("cannot encode to tier %q", target)
	}
}

// applyDemotion persists the new tier, byte count, and compressed payload
// for one entry inside a single short transaction.
func (m *Manager) applyDemotion(ctx context.Context, entryID string, target Tier, data []byte) error {
	return m.store.WithTx(ctx, func(tx *sql.Tx) error {
		var blob []byte
		if target != HOT {
			blob = data
		}
		return m.store.UpdateTier(ctx, tx, entryID, string(target), int64(BytesPerVector(target, m.dimension)), blob)
	})
}
