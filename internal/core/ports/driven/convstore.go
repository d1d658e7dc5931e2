package driven

import (
	"context"

	"github.com/nimbus-labs/corpus/internal/core/domain"
)

// ConversationStore persists conversations and their messages.
//
// Two implementations exist: a transient in-memory store whose entries
// expire after an idle window, and a durable SQLite-backed store whose
// entries live until explicitly deleted. A selector picks one per
// request based on storage mode and caller identity.
type ConversationStore interface {
	// CreateConversation creates a conversation owned by userID
	// (empty = anonymous).
	CreateConversation(ctx context.Context, userID, title string) (*domain.Conversation, error)

	// GetConversation retrieves a conversation by ID.
	// Returns domain.ErrNotFound when absent (or expired).
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)

	// FindByUserID returns a user's conversations, most recently
	// updated first.
	FindByUserID(ctx context.Context, userID string) ([]domain.Conversation, error)

	// AddMessage appends a message to a conversation and bumps its
	// UpdatedAt.
	AddMessage(ctx context.Context, msg *domain.Message) error

	// GetMessages returns a conversation's messages in append order.
	GetMessages(ctx context.Context, conversationID string) ([]domain.Message, error)

	// UpdateTitle sets a conversation's title.
	UpdateTitle(ctx context.Context, conversationID, title string) error

	// DeleteConversation removes a conversation and all its messages.
	DeleteConversation(ctx context.Context, id string) error
}
