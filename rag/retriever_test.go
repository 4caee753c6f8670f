package rag

import (
	"context"
	"strings"
	"testing"

	"github.com/smallnest/docchat/rag/retriever"
	"github.com/smallnest/docchat/rag/splitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/schema"
)

func TestConfigureRetriever_MMR(t *testing.T) {
	ctx := context.Background()
	emb := &keywordEmbedder{}
	docs := []schema.Document{
		{PageContent: "The sky is blue.", Metadata: map[string]any{"source": "sky.txt"}},
		{PageContent: "Grass is green.", Metadata: map[string]any{"source": "grass.txt"}},
	}

	r, err := ConfigureRetriever(ctx, docs, emb)
	require.NoError(t, err)
	assert.IsType(t, &retriever.MMR{}, r)
	assert.Equal(t, 1, emb.calls)

	got, err := r.GetRelevantDocuments(ctx, "What color is the sky?")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "The sky is blue.", got[0].PageContent)
	assert.Equal(t, "sky.txt", got[0].Metadata["source"])
}

func TestConfigureRetriever_LongDocumentIsChunked(t *testing.T) {
	ctx := context.Background()
	emb := &keywordEmbedder{}
	text := strings.Repeat("The sky is blue. ", 600)

	r, err := ConfigureRetriever(ctx, []schema.Document{{PageContent: text}}, emb)
	require.NoError(t, err)

	got, err := r.GetRelevantDocuments(ctx, "sky")
	require.NoError(t, err)
	assert.Len(t, got, retriever.DefaultK)
	for _, d := range got {
		assert.LessOrEqual(t, len([]rune(d.PageContent)), splitter.DefaultChunkSize)
	}
}

func TestConfigureRetriever_Compression(t *testing.T) {
	ctx := context.Background()
	docs := []schema.Document{
		{PageContent: "The sky is blue."},
		{PageContent: "Grass is green."},
	}

	r, err := ConfigureRetriever(ctx, docs, &keywordEmbedder{}, WithCompression(true))
	require.NoError(t, err)
	assert.IsType(t, &retriever.ContextualCompression{}, r)

	got, err := r.GetRelevantDocuments(ctx, "sky")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "The sky is blue.", got[0].PageContent)
	assert.Contains(t, got[0].Metadata, retriever.SimilarityKey)
}

func TestConfigureRetriever_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := ConfigureRetriever(ctx, nil, &keywordEmbedder{})
	assert.ErrorIs(t, err, ErrEmptyCorpus)

	_, err = ConfigureRetriever(ctx, []schema.Document{{PageContent: "x"}}, &keywordEmbedder{err: errService})
	assert.ErrorIs(t, err, errService)

	_, err = ConfigureRetriever(ctx, []schema.Document{{PageContent: "x"}}, nil)
	assert.ErrorIs(t, err, ErrMissingDependency)

	_, err = ConfigureRetriever(ctx, []schema.Document{{PageContent: "x"}}, &keywordEmbedder{},
		WithSplitterOptions(splitter.WithChunkOverlap(5000)))
	assert.ErrorIs(t, err, splitter.ErrInvalidConfig)
}
