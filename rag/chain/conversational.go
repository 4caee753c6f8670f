package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallnest/docchat/log"
	"github.com/smallnest/docchat/memory"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// SourceDocumentsKey is the optional output field listing the documents an answer used.
const SourceDocumentsKey = "source_documents"

// ConversationalRetrieval answers a question from retrieved documents. With
// prior turns in chat_history it first rewrites the question so it stands
// on its own.
type ConversationalRetrieval struct {
	llm           llms.Model
	retriever     schema.Retriever
	memory        schema.Memory
	budget        Budget
	returnSources bool
}

var _ chains.Chain = (*ConversationalRetrieval)(nil)

// NewConversationalRetrieval creates the Standard strategy chain.
func NewConversationalRetrieval(llm llms.Model, retriever schema.Retriever, mem schema.Memory, budget Budget, returnSources bool) *ConversationalRetrieval {
	return &ConversationalRetrieval{
		llm:           llm,
		retriever:     retriever,
		memory:        mem,
		budget:        budget,
		returnSources: returnSources,
	}
}

func (c *ConversationalRetrieval) Call(ctx context.Context, values map[string]any, options ...chains.ChainCallOption) (map[string]any, error) {
	question, ok := values["question"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: %q must be a string", chains.ErrInputValuesWrongType, "question")
	}
	history, err := historyTurns(values[memory.HistoryKey])
	if err != nil {
		return nil, err
	}

	standalone := question
	if len(history) > 0 {
		fixed, err := condensePrompt.Format(map[string]any{"chat_history": "", "question": question})
		if err != nil {
			return nil, err
		}
		condenseHistory, _ := c.budget.Fit(fixed, history, nil)
		standalone, err = c.condense(ctx, condenseHistory, question)
		if err != nil {
			return nil, err
		}
	}

	docs, err := c.retriever.GetRelevantDocuments(ctx, standalone)
	if err != nil {
		return nil, fmt.Errorf("retrieve documents: %w", err)
	}

	// A non-empty placeholder keeps the history header in the measured prompt.
	historySlot := ""
	if len(history) > 0 {
		historySlot = " "
	}
	fixed, err := answerPrompt.Format(map[string]any{"context": "", "chat_history": historySlot, "question": standalone})
	if err != nil {
		return nil, err
	}
	keptHistory, keptDocs := c.budget.Fit(fixed, history, docs)
	if len(keptHistory) < len(history) || len(keptDocs) < len(docs) {
		log.Info("token budget %d: kept %d/%d turns and %d/%d documents",
			c.budget.MaxTokens, len(keptHistory), len(history), len(keptDocs), len(docs))
	}

	prompt, err := answerPrompt.Format(map[string]any{
		"context":      joinDocuments(keptDocs),
		"chat_history": renderHistory(keptHistory),
		"question":     standalone,
	})
	if err != nil {
		return nil, err
	}
	answer, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, chains.GetLLMCallOptions(options...)...)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	out := map[string]any{Standard.OutputKey(): strings.TrimSpace(answer)}
	if c.returnSources {
		out[SourceDocumentsKey] = keptDocs
	}
	return out, nil
}

func (c *ConversationalRetrieval) condense(ctx context.Context, history []memory.Turn, question string) (string, error) {
	prompt, err := condensePrompt.Format(map[string]any{
		"chat_history": renderHistory(history),
		"question":     question,
	})
	if err != nil {
		return "", err
	}
	rewritten, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("condense question: %w", err)
	}
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return question, nil
	}
	log.Debug("condensed question %q to %q", question, rewritten)
	return rewritten, nil
}

func (c *ConversationalRetrieval) GetMemory() schema.Memory { return c.memory }

func (c *ConversationalRetrieval) GetInputKeys() []string { return Standard.InputKeys() }

func (c *ConversationalRetrieval) GetOutputKeys() []string {
	if c.returnSources {
		return []string{Standard.OutputKey(), SourceDocumentsKey}
	}
	return []string{Standard.OutputKey()}
}

// historyTurns accepts the chat_history forms callers and memories supply.
func historyTurns(v any) ([]memory.Turn, error) {
	switch h := v.(type) {
	case nil:
		return nil, nil
	case []memory.Turn:
		return h, nil
	case []llms.ChatMessage:
		return memory.PairTurns(h), nil
	case []any:
		msgs := make([]llms.ChatMessage, 0, len(h))
		for _, item := range h {
			m, ok := item.(llms.ChatMessage)
			if !ok {
				return nil, fmt.Errorf("%w: chat_history element %T", chains.ErrInputValuesWrongType, item)
			}
			msgs = append(msgs, m)
		}
		return memory.PairTurns(msgs), nil
	case string:
		if strings.TrimSpace(h) == "" {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("%w: chat_history of type %T", chains.ErrInputValuesWrongType, v)
}
