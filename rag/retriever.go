package rag

import (
	"context"
	"fmt"

	"github.com/smallnest/docchat/log"
	"github.com/smallnest/docchat/rag/retriever"
	"github.com/smallnest/docchat/rag/splitter"
	"github.com/smallnest/docchat/rag/store"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
)

type retrieverConfig struct {
	compression bool
	threshold   float64
	splitter    []splitter.Option
	mmr         []retriever.Option
}

// RetrieverOption configures ConfigureRetriever.
type RetrieverOption func(*retrieverConfig)

// WithCompression wraps the retriever in an embeddings similarity filter.
func WithCompression(enabled bool) RetrieverOption {
	return func(c *retrieverConfig) { c.compression = enabled }
}

// WithSimilarityThreshold sets the compression filter threshold.
func WithSimilarityThreshold(threshold float64) RetrieverOption {
	return func(c *retrieverConfig) { c.threshold = threshold }
}

// WithSplitterOptions overrides the chunking defaults.
func WithSplitterOptions(opts ...splitter.Option) RetrieverOption {
	return func(c *retrieverConfig) { c.splitter = append(c.splitter, opts...) }
}

// WithMMROptions overrides the MMR search defaults.
func WithMMROptions(opts ...retriever.Option) RetrieverOption {
	return func(c *retrieverConfig) { c.mmr = append(c.mmr, opts...) }
}

// ConfigureRetriever splits docs into chunks, embeds every chunk in one
// batch and returns an MMR retriever over them. With compression enabled
// the MMR results are filtered by their similarity to the query.
func ConfigureRetriever(ctx context.Context, docs []schema.Document, embedder embeddings.Embedder, opts ...RetrieverOption) (schema.Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder", ErrMissingDependency)
	}
	cfg := &retrieverConfig{threshold: retriever.DefaultSimilarityThreshold}
	for _, opt := range opts {
		opt(cfg)
	}

	chunks, err := splitter.NewRecursive(cfg.splitter...).SplitDocuments(docs)
	if err != nil {
		return nil, fmt.Errorf("split documents: %w", err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("configure retriever: %w", ErrEmptyCorpus)
	}

	index, err := store.FromDocuments(ctx, embedder, chunks)
	if err != nil {
		return nil, fmt.Errorf("index chunks: %w", err)
	}
	stats := index.Stats()
	log.Info("indexed %d chunks from %d documents (dimension %d)", stats.Documents, len(docs), stats.Dimension)

	var r schema.Retriever = retriever.NewMMR(index, cfg.mmr...)
	if cfg.compression {
		log.Debug("compression enabled, similarity threshold %.2f", cfg.threshold)
		r = retriever.NewContextualCompression(r, retriever.NewEmbeddingsFilter(embedder, cfg.threshold))
	}
	return r, nil
}
