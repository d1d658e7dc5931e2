package driving

import (
	"context"

	"github.com/nimbus-labs/corpus/internal/core/domain"
)

// ChatService manages multi-turn conversations with streaming answers.
type ChatService interface {
	// CreateConversation starts a conversation for userID
	// (empty = anonymous).
	CreateConversation(ctx context.Context, userID, title string) (*domain.Conversation, error)

	// GetConversation retrieves a conversation wherever it is stored.
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)

	// GetUserConversations lists a user's conversations, most recently
	// updated first.
	GetUserConversations(ctx context.Context, userID string) ([]domain.Conversation, error)

	// GetHistory returns a conversation's messages in append order.
	GetHistory(ctx context.Context, conversationID string) ([]domain.Message, error)

	// SendMessage runs one full exchange and returns the assistant
	// answer once complete.
	SendMessage(ctx context.Context, message, conversationID, userID string) (*domain.Answer, string, error)

	// SendMessageStream runs one exchange, yielding the answer
	// incrementally. The returned channel carries content events
	// followed by a sources event and a terminal done event; provider
	// failures surface as a terminal error event rather than a raised
	// error, since partial output may already have been consumed. The
	// channel is closed after the terminal event. The second return
	// value is the conversation ID (created on demand when empty).
	SendMessageStream(ctx context.Context, message, conversationID, userID string) (<-chan domain.ChatEvent, string, error)

	// DeleteConversation removes a conversation from whichever store
	// holds it.
	DeleteConversation(ctx context.Context, id string) error
}
