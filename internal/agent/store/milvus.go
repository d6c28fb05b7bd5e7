package store

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/rag-agent/internal/model"
	milvuscomp "github.com/kart-io/rag-agent/pkg/component/milvus"
	"github.com/kart-io/rag-agent/pkg/llm"
)

// LLMVectorizer adapts an embedding provider to the Vectorizer contract,
// for deployments that replace the hash fingerprint with real embeddings.
type LLMVectorizer struct {
	provider llm.EmbeddingProvider
}

// NewLLMVectorizer wraps the given embedding provider.
func NewLLMVectorizer(provider llm.EmbeddingProvider) *LLMVectorizer {
	return &LLMVectorizer{provider: provider}
}

// Vector implements Vectorizer.
func (v *LLMVectorizer) Vector(ctx context.Context, text string) ([]float64, error) {
	embedding, err := v.provider.EmbedSingle(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	out := make([]float64, len(embedding))
	for i, f := range embedding {
		out[i] = float64(f)
	}
	return out, nil
}

// MilvusSearcher ranks candidates through a Milvus collection instead of
// the in-process dot product. Document ids are carried as a VARCHAR field
// so search hits can be mapped back to candidates.
type MilvusSearcher struct {
	client     *milvuscomp.Client
	collection string
}

// NewMilvusSearcher ensures the collection exists and returns the searcher.
func NewMilvusSearcher(client *milvuscomp.Client, collection string, dimension int) (*MilvusSearcher, error) {
	err := client.CreateCollection(context.Background(), &milvuscomp.CollectionSchema{
		Name:        collection,
		Description: "document content vectors",
		Dimension:   dimension,
		MetaFields: []milvuscomp.MetaField{
			{Name: "doc_id", DataType: entity.FieldTypeVarChar, MaxLen: 64},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create collection %q: %w", collection, err)
	}
	return &MilvusSearcher{client: client, collection: collection}, nil
}

// Index implements VectorSearcher.
func (s *MilvusSearcher) Index(ctx context.Context, doc *model.Document, vector []float64) error {
	_, err := s.client.Insert(ctx, s.collection, &milvuscomp.InsertData{
		Embeddings: [][]float32{toFloat32(vector)},
		Metadata: map[string][]any{
			"doc_id": {doc.ID},
		},
	})
	if err != nil {
		return fmt.Errorf("index document %q: %w", doc.ID, err)
	}
	return nil
}

// Rank implements VectorSearcher. Candidates missing from the search
// response score zero.
func (s *MilvusSearcher) Rank(ctx context.Context, queryVector []float64, candidates []*model.Document) ([]float64, error) {
	hits, err := s.client.Search(ctx, s.collection, toFloat32(queryVector), len(candidates), []string{"doc_id"})
	if err != nil {
		return nil, fmt.Errorf("search collection %q: %w", s.collection, err)
	}

	byID := make(map[string]float64, len(hits))
	for _, hit := range hits {
		if id, ok := hit.Metadata["doc_id"].(string); ok {
			score := float64(hit.Score)
			if score < 0 {
				score = 0
			}
			if score > 1 {
				score = 1
			}
			byID[id] = score
		}
	}

	scores := make([]float64, len(candidates))
	for i, doc := range candidates {
		scores[i] = byID[doc.ID]
	}
	return scores, nil
}

func toFloat32(vector []float64) []float32 {
	out := make([]float32, len(vector))
	for i, f := range vector {
		out[i] = float32(f)
	}
	return out
}
