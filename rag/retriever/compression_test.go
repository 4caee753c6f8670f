package retriever

import (
	"context"
	"testing"

	"github.com/smallnest/docchat/rag/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"
)

func TestEmbeddingsFilter(t *testing.T) {
	ctx := context.Background()
	emb := &mapEmbedder{vocab: []string{"sky", "blue", "grass", "green"}}
	docs := []schema.Document{
		{PageContent: "The sky is blue.", Metadata: map[string]any{"source": "sky.txt"}},
		{PageContent: "Grass is green."},
		{PageContent: "Blue sky again."},
	}

	t.Run("Keeps only similar documents in order", func(t *testing.T) {
		f := NewEmbeddingsFilter(emb, DefaultSimilarityThreshold)
		got, err := f.Compress(ctx, "what color is the sky", docs)
		require.NoError(t, err)
		assert.Equal(t, []string{"The sky is blue.", "Blue sky again."}, contents(got))
		assert.Equal(t, "sky.txt", got[0].Metadata["source"])
		assert.Greater(t, got[0].Metadata[SimilarityKey], DefaultSimilarityThreshold)
		assert.Nil(t, docs[0].Metadata[SimilarityKey])
	})

	t.Run("Threshold is strict", func(t *testing.T) {
		f := NewEmbeddingsFilter(emb, 0)
		got, err := f.Compress(ctx, "green", docs)
		require.NoError(t, err)
		assert.Equal(t, []string{"Grass is green."}, contents(got))
	})

	t.Run("Empty input", func(t *testing.T) {
		f := NewEmbeddingsFilter(emb, DefaultSimilarityThreshold)
		got, err := f.Compress(ctx, "sky", nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("Embedding failure", func(t *testing.T) {
		f := NewEmbeddingsFilter(&mapEmbedder{err: errService}, DefaultSimilarityThreshold)
		_, err := f.Compress(ctx, "sky", docs)
		assert.ErrorIs(t, err, errService)
	})
}

func TestContextualCompression(t *testing.T) {
	ctx := context.Background()

	t.Run("Subset of base results", func(t *testing.T) {
		emb := &mapEmbedder{vocab: []string{"sky", "blue", "grass", "green", "sea"}}
		idx, err := store.FromDocuments(ctx, emb, []schema.Document{
			{PageContent: "The sky is blue."},
			{PageContent: "Grass is green."},
			{PageContent: "The sea is blue."},
			{PageContent: "Green grass grows."},
			{PageContent: "Sky and sea."},
			{PageContent: "Nothing relevant here."},
		})
		require.NoError(t, err)

		base := NewMMR(idx)
		compressed := NewContextualCompression(base, NewEmbeddingsFilter(emb, DefaultSimilarityThreshold))

		plain, err := base.GetRelevantDocuments(ctx, "blue sky")
		require.NoError(t, err)
		filtered, err := compressed.GetRelevantDocuments(ctx, "blue sky")
		require.NoError(t, err)

		assert.LessOrEqual(t, len(filtered), 5)
		assert.Less(t, len(filtered), len(plain))
		assert.Subset(t, contents(plain), contents(filtered))
	})

	t.Run("Base error", func(t *testing.T) {
		r := NewContextualCompression(&staticRetriever{err: errService}, NewEmbeddingsFilter(&mapEmbedder{}, 0.2))
		_, err := r.GetRelevantDocuments(ctx, "q")
		assert.ErrorIs(t, err, errService)
	})
}
