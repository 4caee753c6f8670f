package store

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"
	"sync"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

// ErrEmptyCorpus is returned when an index would be built from no chunks.
var ErrEmptyCorpus = errors.New("empty corpus: no documents to index")

// Match is one scored search hit, carrying the chunk vector for re-ranking.
type Match struct {
	Document schema.Document
	Vector   []float32
	Score    float64
}

// Stats describes the contents of an index.
type Stats struct {
	Documents int
	Dimension int
}

// InMemoryIndex keeps (chunk, vector) pairs in memory and searches them by
// exact cosine similarity. It is safe for concurrent readers.
type InMemoryIndex struct {
	mu       sync.RWMutex
	embedder embeddings.Embedder
	docs     []schema.Document
	vectors  [][]float32
}

var _ vectorstores.VectorStore = (*InMemoryIndex)(nil)

// NewInMemoryIndex creates an empty index that embeds with embedder.
func NewInMemoryIndex(embedder embeddings.Embedder) *InMemoryIndex {
	return &InMemoryIndex{embedder: embedder}
}

// FromDocuments builds an index from chunks with a single batched embedding call.
func FromDocuments(ctx context.Context, embedder embeddings.Embedder, chunks []schema.Document) (*InMemoryIndex, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyCorpus
	}
	idx := NewInMemoryIndex(embedder)
	if _, err := idx.AddDocuments(ctx, chunks); err != nil {
		return nil, err
	}
	return idx, nil
}

// AddDocuments embeds docs in one call and appends them. The returned IDs are
// the positions of the new documents in the index.
func (s *InMemoryIndex) AddDocuments(ctx context.Context, docs []schema.Document, _ ...vectorstores.Option) ([]string, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.PageContent
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}
	return s.AddBatch(docs, vectors)
}

// AddBatch appends documents whose vectors were computed elsewhere.
func (s *InMemoryIndex) AddBatch(docs []schema.Document, vectors [][]float32) ([]string, error) {
	if len(docs) != len(vectors) {
		return nil, fmt.Errorf("got %d vectors for %d documents", len(vectors), len(docs))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := 0
	if len(s.vectors) > 0 {
		dim = len(s.vectors[0])
	}
	ids := make([]string, len(docs))
	for i, vec := range vectors {
		if len(vec) == 0 {
			return nil, fmt.Errorf("document %d has an empty vector", i)
		}
		if dim == 0 {
			dim = len(vec)
		}
		if len(vec) != dim {
			return nil, fmt.Errorf("document %d: vector dimension %d, want %d", i, len(vec), dim)
		}
	}
	for i, doc := range docs {
		ids[i] = strconv.Itoa(len(s.docs))
		s.docs = append(s.docs, schema.Document{
			PageContent: doc.PageContent,
			Metadata:    maps.Clone(doc.Metadata),
		})
		s.vectors = append(s.vectors, vectors[i])
	}
	return ids, nil
}

// EmbedQuery embeds a query with the index's embedder.
func (s *InMemoryIndex) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vec, nil
}

// SearchVector returns up to n matches ordered by descending similarity to
// vec. Documents whose metadata does not contain every filter entry are skipped.
func (s *InMemoryIndex) SearchVector(_ context.Context, vec []float32, n int, filter map[string]any) ([]Match, error) {
	if n <= 0 {
		return nil, fmt.Errorf("n must be positive, got %d", n)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]Match, 0, len(s.docs))
	for i, doc := range s.docs {
		if !matchesFilter(doc, filter) {
			continue
		}
		matches = append(matches, Match{
			Document: doc,
			Vector:   s.vectors[i],
			Score:    CosineSimilarity(vec, s.vectors[i]),
		})
	}
	slices.SortStableFunc(matches, func(a, b Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(matches) > n {
		matches = matches[:n]
	}
	for i := range matches {
		matches[i].Document = withScore(matches[i].Document, matches[i].Score)
	}
	return matches, nil
}

// SimilaritySearch implements vectorstores.VectorStore. It honours the
// ScoreThreshold and Filters (map[string]any) options.
func (s *InMemoryIndex) SimilaritySearch(ctx context.Context, query string, n int, options ...vectorstores.Option) ([]schema.Document, error) {
	opts := vectorstores.Options{}
	for _, opt := range options {
		opt(&opts)
	}
	filter, err := filterFromOptions(opts)
	if err != nil {
		return nil, err
	}

	vec, err := s.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	matches, err := s.SearchVector(ctx, vec, n, filter)
	if err != nil {
		return nil, err
	}

	docs := make([]schema.Document, 0, len(matches))
	for _, m := range matches {
		if opts.ScoreThreshold > 0 && m.Score < float64(opts.ScoreThreshold) {
			continue
		}
		docs = append(docs, m.Document)
	}
	return docs, nil
}

// Stats reports the number of documents and the vector dimension.
func (s *InMemoryIndex) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Documents: len(s.docs)}
	if len(s.vectors) > 0 {
		st.Dimension = len(s.vectors[0])
	}
	return st
}

func filterFromOptions(opts vectorstores.Options) (map[string]any, error) {
	if opts.Filters == nil {
		return nil, nil
	}
	filter, ok := opts.Filters.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unsupported filter type %T", opts.Filters)
	}
	return filter, nil
}

// matchesFilter compares with reflect.DeepEqual so slice and map values
// can be used as filters.
func matchesFilter(doc schema.Document, filter map[string]any) bool {
	for key, value := range filter {
		docValue, exists := doc.Metadata[key]
		if !exists || !reflect.DeepEqual(docValue, value) {
			return false
		}
	}
	return true
}

func withScore(doc schema.Document, score float64) schema.Document {
	return schema.Document{
		PageContent: doc.PageContent,
		Metadata:    maps.Clone(doc.Metadata),
		Score:       float32(score),
	}
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// the lengths differ or either vector is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
