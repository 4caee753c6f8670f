package chain

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/smallnest/docchat/log"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// Forward-looking generation defaults.
const (
	DefaultMaxIter          = 10
	DefaultMinProb          = 0.2
	DefaultMinTokenGap      = 5
	DefaultNumPadTokens     = 2
	DefaultMaxGenerationLen = 32
)

var wordChar = regexp.MustCompile(`[\p{L}\p{N}_]`)

// Flare answers by generating a short continuation at a time. Spans the
// model generated with low confidence become questions, the questions are
// used to retrieve fresh context, and the continuation is regenerated
// against it. Generation stops once the model writes FinishedMarker.
type Flare struct {
	llm       llms.Model
	generator TokenGenerator
	retriever schema.Retriever
	memory    schema.Memory
	budget    Budget

	MaxIter          int
	MinProb          float64
	MinTokenGap      int
	NumPadTokens     int
	MaxGenerationLen int
}

var _ chains.Chain = (*Flare)(nil)

// NewFlare creates the ForwardLooking strategy chain. llm writes the
// follow-up questions; generator writes the response tokens.
func NewFlare(llm llms.Model, generator TokenGenerator, retriever schema.Retriever, mem schema.Memory, budget Budget) *Flare {
	if generator == nil {
		generator = ModelGenerator{LLM: llm}
	}
	return &Flare{
		llm:              llm,
		generator:        generator,
		retriever:        retriever,
		memory:           mem,
		budget:           budget,
		MaxIter:          DefaultMaxIter,
		MinProb:          DefaultMinProb,
		MinTokenGap:      DefaultMinTokenGap,
		NumPadTokens:     DefaultNumPadTokens,
		MaxGenerationLen: DefaultMaxGenerationLen,
	}
}

func (f *Flare) Call(ctx context.Context, values map[string]any, options ...chains.ChainCallOption) (map[string]any, error) {
	userInput, ok := values["user_input"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: %q must be a string", chains.ErrInputValuesWrongType, "user_input")
	}
	callOpts := chains.GetLLMCallOptions(options...)
	if f.MaxGenerationLen > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(f.MaxGenerationLen))
	}

	response := ""
	for i := 0; i < f.MaxIter; i++ {
		log.Debug("flare iteration %d, response so far: %q", i, response)

		tokens, err := f.generate(ctx, userInput, "", response, callOpts)
		if err != nil {
			return nil, err
		}
		texts := make([]string, len(tokens))
		logProbs := make([]float64, len(tokens))
		for j, t := range tokens {
			texts[j] = t.Text
			logProbs[j] = t.LogProb
		}

		spans := lowConfidenceSpans(texts, logProbs, f.MinProb, f.MinTokenGap, f.NumPadTokens)
		initial := strings.TrimSpace(response) + " " + strings.Join(texts, "")

		if len(spans) == 0 {
			response = initial
			final, finished := parseFinished(response)
			if finished {
				return map[string]any{ForwardLooking.OutputKey(): final}, nil
			}
			continue
		}

		marginal, finished, err := f.retrieveAndContinue(ctx, userInput, initial, response, spans, callOpts)
		if err != nil {
			return nil, err
		}
		response = strings.TrimSpace(response) + " " + marginal
		if finished {
			break
		}
	}
	final, _ := parseFinished(response)
	return map[string]any{ForwardLooking.OutputKey(): final}, nil
}

func (f *Flare) generate(ctx context.Context, userInput, contextText, response string, callOpts []llms.CallOption) ([]Token, error) {
	prompt, err := flareResponsePrompt.Format(map[string]any{
		"user_input": userInput,
		"context":    contextText,
		"response":   response,
	})
	if err != nil {
		return nil, err
	}
	tokens, err := f.generator.GenerateTokens(ctx, prompt, callOpts...)
	if err != nil {
		return nil, fmt.Errorf("generate response: %w", err)
	}
	return tokens, nil
}

// retrieveAndContinue asks one question per uncertain span, retrieves
// documents for every question and regenerates the continuation with them.
func (f *Flare) retrieveAndContinue(ctx context.Context, userInput, current, response string, spans []string, callOpts []llms.CallOption) (string, bool, error) {
	var docs []schema.Document
	for _, span := range spans {
		prompt, err := flareQuestionPrompt.Format(map[string]any{
			"user_input":       userInput,
			"current_response": current,
			"uncertain_span":   span,
		})
		if err != nil {
			return "", false, err
		}
		question, err := llms.GenerateFromSinglePrompt(ctx, f.llm, prompt)
		if err != nil {
			return "", false, fmt.Errorf("generate question: %w", err)
		}
		question = strings.TrimSpace(question)
		log.Debug("flare span %q asks %q", span, question)

		found, err := f.retriever.GetRelevantDocuments(ctx, question)
		if err != nil {
			return "", false, fmt.Errorf("retrieve documents: %w", err)
		}
		docs = append(docs, found...)
	}

	fixed, err := flareResponsePrompt.Format(map[string]any{"user_input": userInput, "context": "", "response": response})
	if err != nil {
		return "", false, err
	}
	_, docs = f.budget.Fit(fixed, nil, docs)
	tokens, err := f.generate(ctx, userInput, joinDocuments(docs), response, callOpts)
	if err != nil {
		return "", false, err
	}
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteString(t.Text)
	}
	marginal, finished := parseFinished(sb.String())
	return marginal, finished, nil
}

func (f *Flare) GetMemory() schema.Memory { return f.memory }

func (f *Flare) GetInputKeys() []string { return ForwardLooking.InputKeys() }

func (f *Flare) GetOutputKeys() []string { return []string{ForwardLooking.OutputKey()} }

// parseFinished strips FinishedMarker from text and reports whether it was present.
func parseFinished(text string) (string, bool) {
	cleaned := strings.TrimSpace(text)
	finished := strings.Contains(cleaned, FinishedMarker)
	return strings.TrimSpace(strings.ReplaceAll(cleaned, FinishedMarker, "")), finished
}

// lowConfidenceSpans returns the generated text around every token whose
// probability is below minProb. Low tokens closer than minTokenGap are
// merged into one span, and each span extends numPad tokens past its last
// low token. Tokens without a word character are ignored.
func lowConfidenceSpans(tokens []string, logProbs []float64, minProb float64, minTokenGap, numPad int) []string {
	var low []int
	for i, lp := range logProbs {
		if i >= len(tokens) {
			break
		}
		if math.Exp(lp) < minProb && wordChar.MatchString(tokens[i]) {
			low = append(low, i)
		}
	}
	if len(low) == 0 {
		return nil
	}

	spans := [][2]int{{low[0], low[0] + numPad + 1}}
	for i := 1; i < len(low); i++ {
		idx := low[i]
		end := idx + numPad + 1
		if idx-low[i-1] < minTokenGap {
			spans[len(spans)-1][1] = end
		} else {
			spans = append(spans, [2]int{idx, end})
		}
	}

	out := make([]string, len(spans))
	for i, s := range spans {
		end := min(s[1], len(tokens))
		out[i] = strings.Join(tokens[s[0]:end], "")
	}
	return out
}
