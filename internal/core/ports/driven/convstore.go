package driven

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// ConversationStore owns chat histories keyed by opaque conversation ids.
//
// The store has explicit get-or-create semantics: an unknown id and a
// missing id are treated identically, both yielding a fresh conversation.
// This is part of the contract, not fallback logic at call sites.
type ConversationStore interface {
	// Ensure returns the id of an existing conversation, creating a new
	// one when id is empty or unknown. The returned id is always valid.
	Ensure(ctx context.Context, id string) (string, error)

	// Append adds a message to the conversation, creating it first when
	// id is empty or unknown. Returns the (possibly new) conversation id.
	Append(ctx context.Context, id string, role domain.Role, content string) (string, error)

	// Recent returns the last n messages in chronological order, or
	// fewer if the history is shorter. Unknown ids yield an empty slice.
	Recent(ctx context.Context, id string, n int) ([]domain.Message, error)

	// Reset removes a single conversation. Unknown ids are a no-op.
	Reset(ctx context.Context, id string) error

	// ResetAll removes every conversation.
	ResetAll(ctx context.Context) error
}
