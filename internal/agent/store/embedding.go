package store

import (
	"context"
	"crypto/md5" //nolint:gosec // fingerprint, not security
	"math/big"

	"github.com/kart-io/rag-agent/internal/model"
	"github.com/kart-io/rag-agent/pkg/cache"
)

// EmbeddingDim is the fixed length of the hash-derived vectors.
const EmbeddingDim = 48

var thousand = big.NewInt(1000)

// HashVectorizer derives a deterministic fixed-length vector from content.
// Identical content always yields the identical vector, which makes search
// results reproducible in tests without an embedding backend.
type HashVectorizer struct{}

// Vector implements Vectorizer. Each component i is (md5(text) >> 8i) mod
// 1000, scaled into [0, 1).
func (HashVectorizer) Vector(_ context.Context, text string) ([]float64, error) {
	sum := md5.Sum([]byte(text)) //nolint:gosec
	h := new(big.Int).SetBytes(sum[:])

	vec := make([]float64, 0, EmbeddingDim)
	shifted := new(big.Int)
	mod := new(big.Int)
	for i := 0; i < EmbeddingDim*8; i += 8 {
		shifted.Rsh(h, uint(i))
		mod.Mod(shifted, thousand)
		vec = append(vec, float64(mod.Int64())/1000.0)
	}
	return vec, nil
}

// Similarity is the length-normalized dot product of two vectors clipped
// to [0, 1]. Without the normalization the dot of two hash vectors almost
// always exceeds 1 and every pair would saturate at the clip boundary.
func Similarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	score := dot / float64(n)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// localSearcher ranks candidates by normalized dot product over vectors it
// indexed in memory. It is the default VectorSearcher.
type localSearcher struct {
	vectors cache.Cache[string, []float64]
}

// NewLocalSearcher creates the in-process vector searcher.
func NewLocalSearcher() VectorSearcher {
	return &localSearcher{vectors: cache.NewMemoryCache[string, []float64]()}
}

func (s *localSearcher) Index(_ context.Context, doc *model.Document, vector []float64) error {
	s.vectors.Set(doc.ID, vector)
	return nil
}

func (s *localSearcher) Rank(_ context.Context, queryVector []float64, candidates []*model.Document) ([]float64, error) {
	scores := make([]float64, len(candidates))
	for i, doc := range candidates {
		if vec, ok := s.vectors.Get(doc.ID); ok {
			scores[i] = Similarity(queryVector, vec)
		}
	}
	return scores, nil
}
