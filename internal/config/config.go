// Package config provides configuration loading for the memory core.
//
// Configuration is loaded from defaults, then an optional YAML file, then
// environment variables, in that order of increasing precedence.
package config

import (
	"fmt"
	"time"
)

// Config holds the complete memory core configuration.
type Config struct {
	Store       StoreConfig       `koanf:"store"`
	Vector      VectorConfig      `koanf:"vector"`
	Compression CompressionConfig `koanf:"compression"`
	Provenance  ProvenanceConfig  `koanf:"provenance"`
	Ego         EgoConfig         `koanf:"ego"`
	Queue       QueueConfig       `koanf:"queue"`
}

// StoreConfig controls the persistent store (internal/store).
type StoreConfig struct {
	// DataDir is the directory holding the database file, its journal,
	// and the legacy vector dump used for one-time migration.
	DataDir string `koanf:"data_dir"`

	// BusyTimeout bounds how long a writer waits on SQLITE_BUSY before
	// failing, under the single-writer/multi-reader journaling model.
	BusyTimeout Duration `koanf:"busy_timeout"`
}

// VectorConfig controls the in-process vector index (internal/vectorindex).
type VectorConfig struct {
	// Dimension is fixed at construction and may not change across the
	// life of a store. Default: 768.
	Dimension int `koanf:"dimension"`

	// NormTolerance is the maximum allowed deviation of a vector's norm
	// from 1.0 before it is re-normalized at the index boundary.
	NormTolerance float64 `koanf:"norm_tolerance"`
}

// CompressionConfig controls the tier manager (internal/compression).
type CompressionConfig struct {
	// EvaluationInterval bounds how often evaluateTiers runs automatically.
	EvaluationInterval Duration `koanf:"evaluation_interval"`

	// MinVectorsForCompression gates evaluation: below this count, the
	// whole store stays HOT.
	MinVectorsForCompression int `koanf:"min_vectors_for_compression"`

	// NumSubvectors is the number of contiguous chunks a vector is split
	// into for product quantization. Must evenly divide VectorConfig.Dimension.
	NumSubvectors int `koanf:"num_subvectors"`

	// KMeansIterations bounds codebook training when enough vectors are
	// available to train rather than random-sample.
	KMeansIterations int `koanf:"kmeans_iterations"`

	// KMeansMinTrainingSize is the vector count at or above which k-means
	// training runs instead of random-centroid sampling.
	KMeansMinTrainingSize int `koanf:"kmeans_min_training_size"`
}

// ProvenanceConfig controls L-Score computation and gating.
type ProvenanceConfig struct {
	// DepthDecay is the exponential base applied per unit of lineage depth.
	DepthDecay float64 `koanf:"depth_decay"`

	// Threshold is the minimum acceptable L-Score for a gated store().
	Threshold float64 `koanf:"threshold"`

	// EnforceThreshold toggles gate enforcement.
	EnforceThreshold bool `koanf:"enforce_threshold"`
}

// EgoConfig controls the ego-graph enhancer.
type EgoConfig struct {
	MaxHops            int     `koanf:"max_hops"`
	MaxNeighborsPerHop int     `koanf:"max_neighbors_per_hop"`
	DistanceDecay      float64 `koanf:"distance_decay"`
	SelfLoopWeight     float64 `koanf:"self_loop_weight"`
	AttentionDim       int     `koanf:"attention_dim"`
	CacheCapacity      int     `koanf:"cache_capacity"`
	ProjectionInputDim int     `koanf:"projection_input_dim"`
	ProjectionOutDim   int     `koanf:"projection_out_dim"`
	ProjectionHidden   int     `koanf:"projection_hidden"`
}

// QueueConfig controls the async write queue.
type QueueConfig struct {
	MaxQueueSize  int      `koanf:"max_queue_size"`
	BatchSize     int      `koanf:"batch_size"`
	FlushInterval Duration `koanf:"flush_interval"`
	MaxFailures   int      `koanf:"max_consecutive_failures"`
}

// Validate checks the configuration for internally-inconsistent values.
func (c *Config) Validate() error {
	if c.Vector.Dimension <= 0 {
		return fmt.Errorf("vector.dimension must be > 0, got %d", c.Vector.Dimension)
	}
	if c.Vector.NormTolerance <= 0 {
		return fmt.Errorf("vector.norm_tolerance must be > 0")
	}
	if c.Compression.NumSubvectors <= 0 || c.Vector.Dimension%c.Compression.NumSubvectors != 0 {
		return fmt.Errorf("compression.num_subvectors (%d) must evenly divide vector.dimension (%d)",
			c.Compression.NumSubvectors, c.Vector.Dimension)
	}
	if c.Provenance.DepthDecay <= 0 || c.Provenance.DepthDecay > 1 {
		return fmt.Errorf("provenance.depth_decay must be in (0, 1], got %f", c.Provenance.DepthDecay)
	}
	if c.Provenance.Threshold < 0 || c.Provenance.Threshold > 1 {
		return fmt.Errorf("provenance.threshold must be in [0, 1], got %f", c.Provenance.Threshold)
	}
	if c.Ego.MaxHops <= 0 {
		return fmt.Errorf("ego.max_hops must be > 0")
	}
	if c.Ego.DistanceDecay <= 0 || c.Ego.DistanceDecay > 1 {
		return fmt.Errorf("ego.distance_decay must be in (0, 1], got %f", c.Ego.DistanceDecay)
	}
	if c.Ego.SelfLoopWeight < 0 || c.Ego.SelfLoopWeight > 1 {
		return fmt.Errorf("ego.self_loop_weight must be in [0, 1], got %f", c.Ego.SelfLoopWeight)
	}
	if c.Queue.MaxQueueSize <= 0 {
		return fmt.Errorf("queue.max_queue_size must be > 0")
	}
	if c.Queue.BatchSize <= 0 || c.Queue.BatchSize > c.Queue.MaxQueueSize {
		return fmt.Errorf("queue.batch_size must be in (0, max_queue_size]")
	}
	return nil
}

// Default returns the configuration's production-ready defaults.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			DataDir:     "./data",
			BusyTimeout: Duration(5 * time.Second),
		},
		Vector: VectorConfig{
			Dimension:     768,
			NormTolerance: 0.01,
		},
		Compression: CompressionConfig{
			EvaluationInterval:       Duration(time.Hour),
			MinVectorsForCompression: 1000,
			NumSubvectors:            96,
			KMeansIterations:         10,
			KMeansMinTrainingSize:    256,
		},
		Provenance: ProvenanceConfig{
			DepthDecay:       0.9,
			Threshold:        0.3,
			EnforceThreshold: true,
		},
		Ego: EgoConfig{
			MaxHops:            2,
			MaxNeighborsPerHop: 50,
			DistanceDecay:      0.7,
			SelfLoopWeight:     0.5,
			AttentionDim:       64,
			CacheCapacity:      1000,
			ProjectionInputDim: 768,
			ProjectionOutDim:   1024,
			ProjectionHidden:   512,
		},
		Queue: QueueConfig{
			MaxQueueSize:  1000,
			BatchSize:     10,
			FlushInterval: Duration(time.Second),
			MaxFailures:   10,
		},
	}
}
