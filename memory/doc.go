// Package memory provides session-scoped conversation memory.
//
// A Session owns one chat history and the input/output keys of the chain it
// serves. The keys are fixed at construction, so two sessions in the same
// process never share state:
//
//	s := memory.NewSession("question", "answer")
//	mem := s.Memory() // langchaingo schema.Memory with key "chat_history"
//
// Histories default to an in-process buffer. Durable histories from
// store/redis, store/sqlite and store/postgres plug in with WithHistory.
// MarshalMessage and UnmarshalMessage define the JSON form those stores use.
package memory
