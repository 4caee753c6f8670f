package chain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
)

// Token is one generated token and its natural log probability.
type Token struct {
	Text    string
	LogProb float64
}

// TokenGenerator produces a completion as tokens with log probabilities.
type TokenGenerator interface {
	GenerateTokens(ctx context.Context, prompt string, options ...llms.CallOption) ([]Token, error)
}

// ModelGenerator adapts an llms.Model that cannot report log probabilities.
// Every token it returns has LogProb 0, so no span is ever low confidence.
type ModelGenerator struct {
	LLM llms.Model
}

func (g ModelGenerator) GenerateTokens(ctx context.Context, prompt string, options ...llms.CallOption) ([]Token, error) {
	text, err := llms.GenerateFromSinglePrompt(ctx, g.LLM, prompt, options...)
	if err != nil {
		return nil, err
	}
	return splitWords(text), nil
}

func splitWords(text string) []Token {
	var tokens []Token
	for _, piece := range strings.SplitAfter(text, " ") {
		if piece == "" {
			continue
		}
		tokens = append(tokens, Token{Text: piece})
	}
	return tokens
}

// ErrNoChoices is returned when the completion endpoint answers without a choice.
var ErrNoChoices = errors.New("completion returned no choices")

// OpenAIGenerator requests per-token log probabilities from an OpenAI
// compatible chat completion endpoint. The request is not streamed, so a
// StreamingFunc call option is ignored.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates a generator for model. An empty model selects gpt-4o-mini.
func NewOpenAIGenerator(client *openai.Client, model string) *OpenAIGenerator {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIGenerator{client: client, model: model}
}

func (g *OpenAIGenerator) GenerateTokens(ctx context.Context, prompt string, options ...llms.CallOption) ([]Token, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	// The temperature field is omitted when zero and the endpoint then
	// samples at 1, so zero is sent as the smallest positive float32.
	temperature := float32(opts.Temperature)
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   opts.MaxTokens,
		Stop:        opts.StopWords,
		LogProbs:    true,
	}
	if opts.Model != "" {
		req.Model = opts.Model
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	choice := resp.Choices[0]
	if choice.LogProbs == nil || len(choice.LogProbs.Content) == 0 {
		// Endpoint ignored logprobs; treat the text as fully confident.
		return splitWords(choice.Message.Content), nil
	}
	tokens := make([]Token, len(choice.LogProbs.Content))
	for i, lp := range choice.LogProbs.Content {
		tokens[i] = Token{Text: lp.Token, LogProb: lp.LogProb}
	}
	return tokens, nil
}
