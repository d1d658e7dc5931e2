package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/nimbus-labs/corpus/internal/core/domain"
	"github.com/nimbus-labs/corpus/internal/core/ports/driven"
	"github.com/nimbus-labs/corpus/internal/core/ports/driving"
	"github.com/nimbus-labs/corpus/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// FallbackAnswer is persisted and streamed when retrieval finds nothing
// relevant to the user's message.
const FallbackAnswer = domain.NoInformationAnswer

// titleWordLimit bounds how many leading words of the first user
// message become the conversation title.
const titleWordLimit = 6

// ChatService orchestrates multi-turn conversations: store selection,
// message persistence, RAG retrieval, and streaming generation.
type ChatService struct {
	selector     *StoreSelector
	rag          *RAGService
	generation   driven.GenerationService
	systemPrompt string
}

// ChatOption configures a ChatService.
type ChatOption func(*ChatService)

// WithChatSystemPrompt overrides the default system instruction.
func WithChatSystemPrompt(prompt string) ChatOption {
	return func(s *ChatService) {
		if prompt != "" {
			s.systemPrompt = prompt
		}
	}
}

// NewChatService creates a chat orchestrator.
func NewChatService(selector *StoreSelector, rag *RAGService, generation driven.GenerationService, opts ...ChatOption) *ChatService {
	s := &ChatService{
		selector:     selector,
		rag:          rag,
		generation:   generation,
		systemPrompt: DefaultSystemPrompt,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateConversation starts a conversation for userID.
func (s *ChatService) CreateConversation(ctx context.Context, userID, title string) (*domain.Conversation, error) {
	store := s.selector.Select(userID)
	conv, err := store.CreateConversation(ctx, userID, title)
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	return conv, nil
}

// GetConversation retrieves a conversation wherever it is stored.
func (s *ChatService) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	_, conv, err := s.selector.Locate(ctx, id)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// GetUserConversations lists a user's conversations from the store that
// owns them under the configured mode.
func (s *ChatService) GetUserConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	store := s.selector.Select(userID)
	convs, err := store.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	return convs, nil
}

// GetHistory returns a conversation's messages in append order.
func (s *ChatService) GetHistory(ctx context.Context, conversationID string) ([]domain.Message, error) {
	store, _, err := s.selector.Locate(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	msgs, err := store.GetMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("reading messages: %w", err)
	}
	return msgs, nil
}

// DeleteConversation removes a conversation from whichever store holds it.
func (s *ChatService) DeleteConversation(ctx context.Context, id string) error {
	store, _, err := s.selector.Locate(ctx, id)
	if err != nil {
		return err
	}
	if err := store.DeleteConversation(ctx, id); err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	return nil
}

// SendMessage runs one full exchange and returns the assistant answer
// once the stream completes.
func (s *ChatService) SendMessage(ctx context.Context, message, conversationID, userID string) (*domain.Answer, string, error) {
	events, convID, err := s.SendMessageStream(ctx, message, conversationID, userID)
	if err != nil {
		return nil, "", err
	}

	answer := &domain.Answer{}
	for event := range events {
		switch event.Kind {
		case domain.EventContent:
			answer.Content += event.Content
		case domain.EventSources:
			answer.Sources = event.Sources
		case domain.EventDone:
			if event.Content != "" {
				answer.Content = event.Content
			}
		case domain.EventError:
			return nil, convID, event.Err
		}
	}

	return answer, convID, nil
}

// SendMessageStream runs one exchange, yielding the answer incrementally.
// Setup failures (store resolution, persisting the user message) are
// returned directly; everything after the stream starts surfaces as a
// terminal error event instead, since partial output may already have
// been consumed.
func (s *ChatService) SendMessageStream(ctx context.Context, message, conversationID, userID string) (<-chan domain.ChatEvent, string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, "", fmt.Errorf("%w: empty message", domain.ErrInvalidInput)
	}

	store, conv, err := s.resolveConversation(ctx, conversationID, userID)
	if err != nil {
		return nil, "", err
	}

	history, err := store.GetMessages(ctx, conv.ID)
	if err != nil {
		return nil, "", fmt.Errorf("reading history: %w", err)
	}

	userMsg := &domain.Message{
		ConversationID: conv.ID,
		Role:           domain.RoleUser,
		Content:        message,
	}
	if err := store.AddMessage(ctx, userMsg); err != nil {
		return nil, "", fmt.Errorf("persisting user message: %w", err)
	}

	if conv.Title == "" && len(history) == 0 {
		if err := store.UpdateTitle(ctx, conv.ID, deriveTitle(message)); err != nil {
			logger.Warn("setting conversation title: %v", err)
		}
	}

	events := make(chan domain.ChatEvent)
	go s.run(ctx, store, conv.ID, message, history, events)
	return events, conv.ID, nil
}

// resolveConversation locates an existing conversation or creates a new
// one when conversationID is empty.
func (s *ChatService) resolveConversation(ctx context.Context, conversationID, userID string) (driven.ConversationStore, *domain.Conversation, error) {
	if conversationID == "" {
		store := s.selector.Select(userID)
		conv, err := store.CreateConversation(ctx, userID, "")
		if err != nil {
			return nil, nil, fmt.Errorf("creating conversation: %w", err)
		}
		return store, conv, nil
	}

	store, conv, err := s.selector.Locate(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	return store, conv, nil
}

// run drives one exchange: retrieval, streaming generation, and final
// persistence. It owns the events channel and closes it after the
// terminal event.
func (s *ChatService) run(ctx context.Context, store driven.ConversationStore, conversationID, message string, history []domain.Message, events chan<- domain.ChatEvent) {
	defer close(events)

	retrieved, err := s.rag.Retrieve(ctx, message, domain.RetrieveOptions{})
	if err != nil {
		s.emit(ctx, events, domain.ChatEvent{Kind: domain.EventError, Err: fmt.Errorf("retrieving context: %w", err)})
		return
	}

	// Nothing relevant: persist the fallback and finish without a
	// generation call.
	if len(retrieved.Chunks) == 0 {
		assistantMsg := &domain.Message{
			ConversationID: conversationID,
			Role:           domain.RoleAssistant,
			Content:        FallbackAnswer,
		}
		if err := store.AddMessage(ctx, assistantMsg); err != nil {
			s.emit(ctx, events, domain.ChatEvent{Kind: domain.EventError, Err: fmt.Errorf("persisting fallback message: %w", err)})
			return
		}
		if !s.emit(ctx, events, domain.ChatEvent{Kind: domain.EventContent, Content: FallbackAnswer}) {
			return
		}
		s.emit(ctx, events, domain.ChatEvent{Kind: domain.EventDone, Content: FallbackAnswer})
		return
	}

	if s.generation == nil {
		s.emit(ctx, events, domain.ChatEvent{Kind: domain.EventError, Err: domain.ErrGenerationUnavailable})
		return
	}

	messages := s.rag.buildMessages(message, retrieved.Chunks, domain.QueryOptions{
		SystemPrompt: s.systemPrompt,
		History:      history,
	})

	chunks, err := s.generation.GenerateStream(ctx, messages, driven.GenerateOptions{})
	if err != nil {
		s.emit(ctx, events, domain.ChatEvent{Kind: domain.EventError, Err: fmt.Errorf("starting generation: %w", err)})
		return
	}

	var accumulated strings.Builder
	for chunk := range chunks {
		if chunk.Err != nil {
			s.emit(ctx, events, domain.ChatEvent{Kind: domain.EventError, Err: chunk.Err})
			return
		}
		if chunk.Content != "" {
			accumulated.WriteString(chunk.Content)
			if !s.emit(ctx, events, domain.ChatEvent{Kind: domain.EventContent, Content: chunk.Content}) {
				return
			}
		}
		if chunk.Done {
			break
		}
	}

	if ctx.Err() != nil {
		return
	}

	sources := sourcesFrom(retrieved.Chunks)
	assistantMsg := &domain.Message{
		ConversationID: conversationID,
		Role:           domain.RoleAssistant,
		Content:        accumulated.String(),
		Sources:        sources,
	}
	if err := store.AddMessage(ctx, assistantMsg); err != nil {
		s.emit(ctx, events, domain.ChatEvent{Kind: domain.EventError, Err: fmt.Errorf("persisting assistant message: %w", err)})
		return
	}

	if !s.emit(ctx, events, domain.ChatEvent{Kind: domain.EventSources, Sources: sources}) {
		return
	}
	s.emit(ctx, events, domain.ChatEvent{Kind: domain.EventDone, Content: accumulated.String()})
}

// emit sends an event unless ctx is cancelled. Reports whether the send
// happened.
func (s *ChatService) emit(ctx context.Context, events chan<- domain.ChatEvent, event domain.ChatEvent) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

// deriveTitle takes the leading words of the first user message.
func deriveTitle(message string) string {
	words := strings.Fields(message)
	if len(words) > titleWordLimit {
		return strings.Join(words[:titleWordLimit], " ") + "..."
	}
	return strings.Join(words, " ")
}
