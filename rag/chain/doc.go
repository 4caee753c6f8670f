// Package chain builds the question answering chains used by the document
// chat pipeline.
//
// Two strategies are available. Standard condenses a follow-up question
// against the conversation, retrieves once and answers from the retrieved
// documents. ForwardLooking (FLARE) generates the answer a short piece at a
// time and retrieves again for every span the model produced with low
// confidence.
//
//	session := chain.NewSession(chain.Standard)
//	c, err := chain.Configure(llm, retriever, session, chain.Standard)
//	if err != nil {
//		return err
//	}
//	out, err := chains.Call(ctx, c, map[string]any{"question": "What color is the sky?"})
//
// Both strategies fit history and documents into a token budget before
// prompting, dropping the oldest turns first and then the lowest ranked
// documents.
package chain
