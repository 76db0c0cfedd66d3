package memcore

import "time"

// Entry is the public view of a stored memory: content plus the metadata
// the caller may read or mutate.
type Entry struct {
	ID               string
	Content          string
	Source           string
	Importance       float64
	SessionID        string
	AgentID          string
	Context          string
	Tags             []string
	PendingEmbedding bool
	LScore           float64
	LineageDepth     int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// StoreOptions configures store(). ParentIDs, if given, must already exist;
// Confidence/Relevance are recorded against each parent edge and feed the
// L-Score rollup.
type StoreOptions struct {
	Tags       []string
	Source     string
	Importance float64
	ParentIDs  []string
	Confidence float64
	Relevance  float64
	SessionID  string
	AgentID    string
	Context    string
}

// UpdatePatch carries the mutable fields of an entry. A nil pointer/slice
// means "leave unchanged".
type UpdatePatch struct {
	Importance *float64
	Tags       []string
}

// QueryFilters narrows query() results after the vector search has run.
type QueryFilters struct {
	Sources       []string
	Tags          []string
	MinImportance float64
	SessionID     string
	AgentID       string
	After         time.Time
	Before        time.Time
}

// QueryOptions configures query().
type QueryOptions struct {
	TopK              int
	MinScore          float64
	Filters           QueryFilters
	IncludeProvenance bool
	Rerank            bool
	Enhance           bool
}

// QueryResult is one ranked hit from query().
type QueryResult struct {
	Entry      Entry
	Score      float64
	Distance   float64
	Provenance *ProvenanceInfo
}

// ProvenanceInfo is the optional per-result provenance detail requested via
// QueryOptions.IncludeProvenance.
type ProvenanceInfo struct {
	LScore       float64
	LineageDepth int
	ParentIDs    []string
}

// CausalRelation is the public view of a stored causal hyperedge.
type CausalRelation struct {
	ID        string
	Type      string
	Strength  float64
	Sources   []string
	Targets   []string
	CreatedAt time.Time
	TTLMillis int64
}

// CausalPath is one reachable node from queryCausal, with hop depth and
// the cumulative strength of the path that reached it first.
type CausalPath struct {
	EntryID       string
	Depth         int
	TotalStrength float64
}

// EnhancementResult is the public view of ego.Result.
type EnhancementResult struct {
	EntryID      string
	Embedding    []float32
	NeighborIDs  []string
	Cached       bool
}

// TierTransition is the public view of compression.TierTransition.
type TierTransition struct {
	EntryID  string
	FromTier string
	ToTier   string
}

// Stats aggregates counters across all components for getStats().
type Stats struct {
	EntryCount      int
	VectorCount     int
	QueueDepth      int
	QueueDropped    bool
}
