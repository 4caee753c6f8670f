package chain

import (
	"context"
	"strings"
	"testing"

	"github.com/smallnest/docchat/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

func skyDocs() []schema.Document {
	return []schema.Document{
		{PageContent: "The sky is blue.", Metadata: map[string]any{"source": "sky.txt"}},
		{PageContent: "Grass is green.", Metadata: map[string]any{"source": "grass.txt"}},
	}
}

func TestConversationalRetrieval_FirstTurn(t *testing.T) {
	ctx := context.Background()
	llm := &scriptedModel{reply: replyByPrefix("Use the following", "  The sky is blue.  ")}
	ret := &recordingRetriever{docs: skyDocs()}
	session := NewSession(Standard)

	c, err := Configure(llm, ret, session, Standard)
	require.NoError(t, err)

	out, err := chains.Call(ctx, c, map[string]any{"question": "What color is the sky?"})
	require.NoError(t, err)
	assert.Equal(t, "The sky is blue.", out["answer"])
	assert.NotContains(t, out, SourceDocumentsKey)

	// No history means no condensing call.
	require.Len(t, llm.prompts, 1)
	assert.Equal(t, []string{"What color is the sky?"}, ret.queries)
	assert.Contains(t, llm.prompts[0], "The sky is blue.\n\nGrass is green.")
	assert.Contains(t, llm.prompts[0], "Question: What color is the sky?")
	assert.NotContains(t, llm.prompts[0], "Chat History:")

	turns, err := session.Turns(ctx)
	require.NoError(t, err)
	assert.Equal(t, []memory.Turn{{Human: "What color is the sky?", AI: "The sky is blue."}}, turns)
}

func TestConversationalRetrieval_CondensesFollowUp(t *testing.T) {
	ctx := context.Background()
	llm := &scriptedModel{reply: replyByPrefix(
		"Given the following conversation", " Why is the sky blue? ",
		"Use the following", "Rayleigh scattering.",
	)}
	ret := &recordingRetriever{docs: skyDocs()}
	session := NewSession(Standard)
	require.NoError(t, session.History().AddUserMessage(ctx, "What color is the sky?"))
	require.NoError(t, session.History().AddAIMessage(ctx, "The sky is blue."))

	c, err := Configure(llm, ret, session, Standard)
	require.NoError(t, err)

	out, err := chains.Call(ctx, c, map[string]any{"question": "Why?"})
	require.NoError(t, err)
	assert.Equal(t, "Rayleigh scattering.", out["answer"])

	require.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[0], "Human: What color is the sky?\nAI: The sky is blue.")
	assert.Contains(t, llm.prompts[0], "Follow Up Input: Why?")
	assert.Equal(t, []string{"Why is the sky blue?"}, ret.queries)
	assert.Contains(t, llm.prompts[1], "Chat History:")
	assert.Contains(t, llm.prompts[1], "Question: Why is the sky blue?")

	turns, err := session.Turns(ctx)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, memory.Turn{Human: "Why?", AI: "Rayleigh scattering."}, turns[1])
}

func TestConversationalRetrieval_EmptyCondenseKeepsQuestion(t *testing.T) {
	ctx := context.Background()
	llm := &scriptedModel{reply: replyByPrefix("Use the following", "ok")}
	ret := &recordingRetriever{}
	c := NewConversationalRetrieval(llm, ret, memory.NewSession("question", "answer").Memory(), Budget{}, false)

	_, err := c.Call(ctx, map[string]any{
		"question":         "Why?",
		memory.HistoryKey: []memory.Turn{{Human: "hi", AI: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Why?"}, ret.queries)
}

func TestConversationalRetrieval_ReturnSourceDocuments(t *testing.T) {
	ctx := context.Background()
	llm := &scriptedModel{reply: func(string) string { return "blue" }}
	ret := &recordingRetriever{docs: skyDocs()}

	c, err := Configure(llm, ret, NewSession(Standard), Standard, WithReturnSourceDocuments(true))
	require.NoError(t, err)
	assert.Equal(t, []string{"answer", SourceDocumentsKey}, c.GetOutputKeys())

	out, err := chains.Call(ctx, c, map[string]any{"question": "sky?"})
	require.NoError(t, err)
	assert.Equal(t, skyDocs(), out[SourceDocumentsKey])
}

func TestConversationalRetrieval_BudgetDropsDocuments(t *testing.T) {
	ctx := context.Background()
	llm := &scriptedModel{reply: func(string) string { return "blue" }}
	ret := &recordingRetriever{docs: skyDocs()}

	// The budget covers the template text plus the first document only.
	bare, err := answerPrompt.Format(map[string]any{"context": "", "chat_history": "", "question": "sky?"})
	require.NoError(t, err)
	limit := wordCounter{}.Count(bare) + wordCounter{}.Count("The sky is blue.")

	c, err := Configure(llm, ret, NewSession(Standard), Standard,
		WithMaxTokens(limit), WithTokenCounter(wordCounter{}), WithReturnSourceDocuments(true))
	require.NoError(t, err)

	out, err := chains.Call(ctx, c, map[string]any{"question": "sky?"})
	require.NoError(t, err)
	assert.Equal(t, skyDocs()[:1], out[SourceDocumentsKey])
	require.Len(t, llm.prompts, 1)
	assert.NotContains(t, llm.prompts[0], "Grass is green.")
	assert.LessOrEqual(t, wordCounter{}.Count(llm.prompts[0]), limit)
}

func TestConversationalRetrieval_BudgetCountsTemplate(t *testing.T) {
	ctx := context.Background()
	llm := &scriptedModel{reply: func(string) string { return "blue" }}
	ret := &recordingRetriever{docs: skyDocs()}

	// Question and documents alone fit; the template text does not.
	c, err := Configure(llm, ret, NewSession(Standard), Standard,
		WithMaxTokens(10), WithTokenCounter(wordCounter{}), WithReturnSourceDocuments(true))
	require.NoError(t, err)

	out, err := chains.Call(ctx, c, map[string]any{"question": "sky?"})
	require.NoError(t, err)
	assert.Empty(t, out[SourceDocumentsKey])
}

func TestConversationalRetrieval_Streaming(t *testing.T) {
	ctx := context.Background()
	llm := &scriptedModel{reply: func(string) string { return "streamed answer" }}
	c, err := Configure(llm, &recordingRetriever{}, NewSession(Standard), Standard)
	require.NoError(t, err)

	var chunks strings.Builder
	_, err = chains.Call(ctx, c, map[string]any{"question": "q"},
		chains.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			chunks.Write(chunk)
			return nil
		}))
	require.NoError(t, err)
	assert.Equal(t, "streamed answer", chunks.String())
}

func TestConversationalRetrieval_Errors(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewSession("question", "answer").Memory()

	c := NewConversationalRetrieval(&scriptedModel{}, &recordingRetriever{}, mem, Budget{}, false)
	_, err := c.Call(ctx, map[string]any{"question": 42})
	assert.ErrorIs(t, err, chains.ErrInputValuesWrongType)

	_, err = c.Call(ctx, map[string]any{"question": "q", memory.HistoryKey: 3})
	assert.ErrorIs(t, err, chains.ErrInputValuesWrongType)

	c = NewConversationalRetrieval(&scriptedModel{}, &recordingRetriever{err: errService}, mem, Budget{}, false)
	_, err = c.Call(ctx, map[string]any{"question": "q"})
	assert.ErrorIs(t, err, errService)

	c = NewConversationalRetrieval(&scriptedModel{err: errService}, &recordingRetriever{}, mem, Budget{}, false)
	_, err = c.Call(ctx, map[string]any{"question": "q"})
	assert.ErrorIs(t, err, errService)
}

func TestHistoryTurns(t *testing.T) {
	msgs := []llms.ChatMessage{
		llms.HumanChatMessage{Content: "hi"},
		llms.AIChatMessage{Content: "hello"},
	}
	want := []memory.Turn{{Human: "hi", AI: "hello"}}

	got, err := historyTurns(msgs)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = historyTurns([]any{msgs[0], msgs[1]})
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = historyTurns("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = historyTurns([]any{"nope"})
	assert.ErrorIs(t, err, chains.ErrInputValuesWrongType)
}
