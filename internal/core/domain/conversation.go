package domain

import "time"

// Role identifies the author of a chat message.
type Role string

// Message roles. These map directly onto the roles accepted by
// chat-completion style LLM APIs.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Conversation is an ordered chat history identified by an opaque id.
type Conversation struct {
	// ID is the unique identifier for the conversation.
	ID string

	// Messages is the full history in append (chronological) order.
	Messages []Message

	// CreatedAt is when the conversation was first created.
	CreatedAt time.Time

	// UpdatedAt is when a message was last appended.
	UpdatedAt time.Time
}

// Message is a single role-tagged chat message.
// Messages are immutable once appended.
type Message struct {
	// Role is the message author: system, user or assistant.
	Role Role

	// Content is the message text.
	Content string

	// CreatedAt is when the message was appended.
	CreatedAt time.Time
}
