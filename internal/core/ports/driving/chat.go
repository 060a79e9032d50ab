package driving

import "context"

// ChatService runs conversational turns with optional document context.
type ChatService interface {
	// Turn appends the user message, retrieves document context when a
	// document id is given, generates a reply and appends it. Turns for
	// the same conversation id are applied atomically and in submission
	// order. A generation failure is returned as an error with the user
	// message preserved; it is never embedded as a synthetic reply.
	Turn(ctx context.Context, req TurnRequest) (*TurnResult, error)

	// Reset clears one conversation, or all of them when id is empty.
	// Unknown ids are a no-op.
	Reset(ctx context.Context, conversationID string) error
}

// TurnRequest is the input to a single chat turn.
type TurnRequest struct {
	// ConversationID resumes an existing conversation. Empty or unknown
	// ids start a fresh one.
	ConversationID string

	// Message is the user's message. Must be non-empty.
	Message string

	// DocumentID selects the document to retrieve context from.
	// Empty means no retrieval; unknown ids silently yield no context.
	DocumentID string

	// TopK is the number of chunks to retrieve. Zero means the default.
	TopK int
}

// TurnResult is the outcome of a successful chat turn.
type TurnResult struct {
	// ConversationID identifies the (possibly new) conversation.
	ConversationID string

	// Reply is the generated assistant reply.
	Reply string
}
