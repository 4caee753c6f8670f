package chain

import (
	"strings"

	"github.com/smallnest/docchat/memory"
	"github.com/tmc/langchaingo/prompts"
	"github.com/tmc/langchaingo/schema"
)

var condensePrompt = prompts.NewPromptTemplate(
	`Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question, in its original language.

Chat History:
{{.chat_history}}
Follow Up Input: {{.question}}
Standalone question:`,
	[]string{"chat_history", "question"},
)

var answerPrompt = prompts.NewPromptTemplate(
	`Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer.

{{.context}}
{{if .chat_history}}
Chat History:
{{.chat_history}}
{{end}}
Question: {{.question}}
Helpful Answer:`,
	[]string{"context", "chat_history", "question"},
)

// FinishedMarker ends a forward-looking response.
const FinishedMarker = "FINISHED"

var flareResponsePrompt = prompts.NewPromptTemplate(
	`Respond to the user message using any relevant context. If context is provided, ground your answer in that context. When the response is complete, write `+FinishedMarker+`.

>>> CONTEXT: {{.context}}
>>> USER INPUT: {{.user_input}}
>>> RESPONSE: {{.response}}`,
	[]string{"context", "user_input", "response"},
)

var flareQuestionPrompt = prompts.NewPromptTemplate(
	`Given a user input and a partial response to it, write a question whose answer is the given term, entity or phrase.

>>> USER INPUT: {{.user_input}}
>>> EXISTING PARTIAL RESPONSE: {{.current_response}}

The question whose answer is "{{.uncertain_span}}" is:`,
	[]string{"user_input", "current_response", "uncertain_span"},
)

func renderHistory(turns []memory.Turn) string {
	var sb strings.Builder
	for _, t := range turns {
		if t.Human != "" {
			sb.WriteString("Human: ")
			sb.WriteString(t.Human)
			sb.WriteString("\n")
		}
		if t.AI != "" {
			sb.WriteString("AI: ")
			sb.WriteString(t.AI)
			sb.WriteString("\n")
		}
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func joinDocuments(docs []schema.Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.PageContent
	}
	return strings.Join(parts, "\n\n")
}
