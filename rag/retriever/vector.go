package retriever

import (
	"context"
	"fmt"
	"math"

	"github.com/smallnest/docchat/log"
	"github.com/smallnest/docchat/rag/store"
	"github.com/tmc/langchaingo/schema"
)

const (
	DefaultK      = 5
	DefaultFetchK = 7
	DefaultLambda = 0.5
)

// Searcher is the part of an index the MMR retriever needs.
type Searcher interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	SearchVector(ctx context.Context, vec []float32, n int, filter map[string]any) ([]store.Match, error)
}

// MMR retrieves FetchK candidates by similarity and selects K of them by
// maximal marginal relevance. Results keep their chunk metadata and carry the
// query similarity in Score.
type MMR struct {
	searcher Searcher
	k        int
	fetchK   int
	lambda   float64
	filter   map[string]any
}

var _ schema.Retriever = (*MMR)(nil)

// Option configures an MMR retriever.
type Option func(*MMR)

// WithK sets the number of documents returned.
func WithK(k int) Option {
	return func(r *MMR) { r.k = k }
}

// WithFetchK sets the size of the candidate pool.
func WithFetchK(fetchK int) Option {
	return func(r *MMR) { r.fetchK = fetchK }
}

// WithLambda sets the relevance/diversity balance; 1 is pure relevance.
func WithLambda(lambda float64) Option {
	return func(r *MMR) { r.lambda = lambda }
}

// WithFilter restricts candidates to chunks whose metadata matches filter.
func WithFilter(filter map[string]any) Option {
	return func(r *MMR) { r.filter = filter }
}

// NewMMR creates a retriever with k=5, fetchK=7 and lambda=0.5.
func NewMMR(searcher Searcher, opts ...Option) *MMR {
	r := &MMR{
		searcher: searcher,
		k:        DefaultK,
		fetchK:   DefaultFetchK,
		lambda:   DefaultLambda,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.fetchK < r.k {
		r.fetchK = r.k
	}
	return r
}

// GetRelevantDocuments implements schema.Retriever.
func (r *MMR) GetRelevantDocuments(ctx context.Context, query string) ([]schema.Document, error) {
	if r.k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", r.k)
	}
	vec, err := r.searcher.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	candidates, err := r.searcher.SearchVector(ctx, vec, r.fetchK, r.filter)
	if err != nil {
		return nil, err
	}

	selected := maxMarginalRelevance(candidates, r.k, r.lambda)
	log.Debug("mmr selected %d of %d candidates", len(selected), len(candidates))

	docs := make([]schema.Document, len(selected))
	for i, m := range selected {
		docs[i] = m.Document
	}
	return docs, nil
}

// maxMarginalRelevance picks up to k matches. The first pick is the most
// similar to the query; each following pick maximizes
// lambda*relevance - (1-lambda)*max similarity to the picks so far.
func maxMarginalRelevance(candidates []store.Match, k int, lambda float64) []store.Match {
	if len(candidates) == 0 {
		return nil
	}
	k = min(k, len(candidates))

	remaining := make([]store.Match, len(candidates))
	copy(remaining, candidates)
	selected := make([]store.Match, 0, k)

	for len(selected) < k {
		bestIdx := 0
		bestScore := math.Inf(-1)
		for i, cand := range remaining {
			redundancy := 0.0
			for _, s := range selected {
				redundancy = max(redundancy, store.CosineSimilarity(cand.Vector, s.Vector))
			}
			score := lambda*cand.Score - (1-lambda)*redundancy
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}
