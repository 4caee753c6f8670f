package retriever

import (
	"context"
	"fmt"
	"maps"

	"github.com/smallnest/docchat/log"
	"github.com/smallnest/docchat/rag/store"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
)

// DefaultSimilarityThreshold is the minimum query similarity a chunk must
// exceed to survive the embeddings filter.
const DefaultSimilarityThreshold = 0.2

// SimilarityKey is the metadata key holding the filter's query similarity.
const SimilarityKey = "query_similarity_score"

// Filter narrows a retrieved document set for a query.
type Filter interface {
	Compress(ctx context.Context, query string, docs []schema.Document) ([]schema.Document, error)
}

// EmbeddingsFilter drops documents whose embedding similarity to the query
// is not strictly above a threshold. Order is preserved.
type EmbeddingsFilter struct {
	embedder  embeddings.Embedder
	threshold float64
}

var _ Filter = (*EmbeddingsFilter)(nil)

// NewEmbeddingsFilter creates a filter. A threshold of 0 keeps every
// document with positive similarity.
func NewEmbeddingsFilter(embedder embeddings.Embedder, threshold float64) *EmbeddingsFilter {
	return &EmbeddingsFilter{embedder: embedder, threshold: threshold}
}

// Threshold returns the similarity threshold.
func (f *EmbeddingsFilter) Threshold() float64 { return f.threshold }

// Compress implements Filter.
func (f *EmbeddingsFilter) Compress(ctx context.Context, query string, docs []schema.Document) ([]schema.Document, error) {
	if len(docs) == 0 {
		return docs, nil
	}
	queryVec, err := f.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.PageContent
	}
	vectors, err := f.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("got %d vectors for %d documents", len(vectors), len(docs))
	}

	kept := make([]schema.Document, 0, len(docs))
	for i, d := range docs {
		sim := store.CosineSimilarity(queryVec, vectors[i])
		if sim <= f.threshold {
			continue
		}
		metadata := maps.Clone(d.Metadata)
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[SimilarityKey] = sim
		kept = append(kept, schema.Document{PageContent: d.PageContent, Metadata: metadata, Score: d.Score})
	}
	log.Debug("embeddings filter kept %d of %d documents", len(kept), len(docs))
	return kept, nil
}

// ContextualCompression runs a base retriever and passes its results through a Filter.
type ContextualCompression struct {
	base   schema.Retriever
	filter Filter
}

var _ schema.Retriever = (*ContextualCompression)(nil)

// NewContextualCompression composes base with filter.
func NewContextualCompression(base schema.Retriever, filter Filter) *ContextualCompression {
	return &ContextualCompression{base: base, filter: filter}
}

// GetRelevantDocuments implements schema.Retriever.
func (r *ContextualCompression) GetRelevantDocuments(ctx context.Context, query string) ([]schema.Document, error) {
	docs, err := r.base.GetRelevantDocuments(ctx, query)
	if err != nil {
		return nil, err
	}
	return r.filter.Compress(ctx, query, docs)
}
