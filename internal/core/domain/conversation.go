package domain

import "time"

// Role identifies the author of a conversation message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// StorageMode selects which conversation store handles a request.
type StorageMode string

// Conversation storage modes.
const (
	// ModeMemoryOnly always uses the transient in-memory store.
	ModeMemoryOnly StorageMode = "memory-only"

	// ModePersistAll always uses the durable store.
	ModePersistAll StorageMode = "persist-all"

	// ModeSmart uses the durable store for identified users and the
	// transient store for anonymous ones.
	ModeSmart StorageMode = "smart"
)

// Conversation is an ordered, append-only exchange of messages.
type Conversation struct {
	// ID is the unique identifier for the conversation.
	ID string

	// UserID is the owner's identity. Empty means anonymous.
	UserID string

	// Title is a short human-readable label, derived from the first
	// user message when not set explicitly.
	Title string

	// CreatedAt is when the conversation was created.
	CreatedAt time.Time

	// UpdatedAt is when a message was last appended or the title changed.
	UpdatedAt time.Time
}

// Message is a single turn within a conversation.
type Message struct {
	// ID is the unique identifier for the message.
	ID string

	// ConversationID links to the parent Conversation.
	ConversationID string

	// Role is who authored the message.
	Role Role

	// Content is the message text.
	Content string

	// Sources cites the retrieved chunks an assistant answer drew on.
	Sources []Source

	// CreatedAt orders messages within the conversation.
	CreatedAt time.Time
}

// Source cites a retrieved chunk used to ground an answer.
type Source struct {
	// Excerpt is a truncated slice of the chunk content.
	Excerpt string

	// Origin identifies where the content came from (document title or
	// collection id).
	Origin string

	// Score is the retrieval similarity score.
	Score float64
}

// ChatEventKind discriminates events on a streaming chat response.
type ChatEventKind string

// Streaming chat event kinds. Done and Error are terminal; exactly one
// of them ends every stream.
const (
	EventContent ChatEventKind = "content"
	EventSources ChatEventKind = "sources"
	EventDone    ChatEventKind = "done"
	EventError   ChatEventKind = "error"
)

// ChatEvent is one element of the pull-based streaming chat sequence.
type ChatEvent struct {
	Kind ChatEventKind

	// Content carries the text fragment for EventContent and the full
	// accumulated answer for EventDone.
	Content string

	// Sources is set on EventSources.
	Sources []Source

	// Err is set on EventError.
	Err error
}
