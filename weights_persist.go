package memcore

import (
	"encoding/json"

	"github.com/fyrsmithlabs/memcore/internal/ego"
)

// attentionBlob is the JSON layout attention query/key weights are
// persisted as in system_metadata, mirroring how ego.Projection's own
// weights are marshaled.
type attentionBlob struct {
	Query []float32 `json:"query"`
	Key   []float32 `json:"key"`
	Dim   int        `json:"dim"`
}

func marshalAttentionWeights(attn *ego.AttentionWeights) ([]byte, error) {
	return json.Marshal(attentionBlob{Query: attn.Query, Key: attn.Key, Dim: attn.Dim})
}

func unmarshalAttentionWeights(data []byte) (*ego.AttentionWeights, error) {
	var blob attentionBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, err
	}
	return &ego.AttentionWeights{Query: blob.Query, Key: blob.Key, Dim: blob.Dim}, nil
}
