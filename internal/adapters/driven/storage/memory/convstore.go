// Package memory provides in-memory storage adapters. The conversation
// store is transient with idle-based expiry; the document and vector
// stores back memory-only deployments and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nimbus-labs/corpus/internal/core/domain"
	"github.com/nimbus-labs/corpus/internal/core/ports/driven"
	"github.com/nimbus-labs/corpus/internal/logger"
)

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

// Default expiry settings for transient conversations.
const (
	DefaultTTL           = 30 * time.Minute
	DefaultSweepInterval = 5 * time.Minute
)

// conversationEntry pairs a conversation with its messages and the last
// time any operation touched it.
type conversationEntry struct {
	conv       domain.Conversation
	messages   []domain.Message
	lastAccess time.Time
}

// ConversationStore keeps conversations in process memory. Entries
// expire after sitting idle for the configured TTL; any read or write
// refreshes the idle clock. A background sweeper reclaims expired
// entries, and reads treat a not-yet-swept expired entry as absent.
type ConversationStore struct {
	mu      sync.RWMutex
	entries map[string]*conversationEntry

	ttl   time.Duration
	sweep time.Duration

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// ConversationStoreOption configures a ConversationStore.
type ConversationStoreOption func(*ConversationStore)

// WithTTL sets the idle expiry window.
func WithTTL(ttl time.Duration) ConversationStoreOption {
	return func(s *ConversationStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSweepInterval sets how often expired entries are reclaimed.
func WithSweepInterval(interval time.Duration) ConversationStoreOption {
	return func(s *ConversationStore) {
		if interval > 0 {
			s.sweep = interval
		}
	}
}

// NewConversationStore creates a transient conversation store and
// starts its background sweeper.
func NewConversationStore(opts ...ConversationStoreOption) *ConversationStore {
	s := &ConversationStore{
		entries: make(map[string]*conversationEntry),
		ttl:     DefaultTTL,
		sweep:   DefaultSweepInterval,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.sweepLoop()
	return s
}

// Close stops the background sweeper.
func (s *ConversationStore) Close() {
	s.once.Do(func() {
		close(s.stop)
		<-s.done
	})
}

// sweepLoop reclaims expired entries until Close is called.
func (s *ConversationStore) sweepLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

// evictExpired removes every entry idle longer than the TTL.
func (s *ConversationStore) evictExpired() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted int
	for id, entry := range s.entries {
		if now.Sub(entry.lastAccess) > s.ttl {
			delete(s.entries, id)
			evicted++
		}
	}
	if evicted > 0 {
		logger.Debug("evicted %d expired conversation(s)", evicted)
	}
}

// live returns the entry for id if present and unexpired, refreshing
// its idle clock. Callers must hold the write lock.
func (s *ConversationStore) live(id string) (*conversationEntry, bool) {
	entry, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	if time.Since(entry.lastAccess) > s.ttl {
		delete(s.entries, id)
		return nil, false
	}
	entry.lastAccess = time.Now()
	return entry, true
}

// CreateConversation creates a conversation owned by userID.
func (s *ConversationStore) CreateConversation(_ context.Context, userID, title string) (*domain.Conversation, error) {
	now := time.Now().UTC()
	conv := domain.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.entries[conv.ID] = &conversationEntry{conv: conv, lastAccess: time.Now()}
	s.mu.Unlock()

	result := conv
	return &result, nil
}

// GetConversation retrieves a conversation by ID.
func (s *ConversationStore) GetConversation(_ context.Context, id string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(id)
	if !ok {
		return nil, domain.ErrNotFound
	}

	conv := entry.conv
	return &conv, nil
}

// FindByUserID returns a user's conversations, most recently updated first.
func (s *ConversationStore) FindByUserID(_ context.Context, userID string) ([]domain.Conversation, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var convs []domain.Conversation
	for id, entry := range s.entries {
		if now.Sub(entry.lastAccess) > s.ttl {
			delete(s.entries, id)
			continue
		}
		if entry.conv.UserID == userID {
			convs = append(convs, entry.conv)
		}
	}

	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})

	return convs, nil
}

// AddMessage appends a message to a conversation.
func (s *ConversationStore) AddMessage(_ context.Context, msg *domain.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(msg.ConversationID)
	if !ok {
		return domain.ErrNotFound
	}

	entry.messages = append(entry.messages, *msg)
	entry.conv.UpdatedAt = msg.CreatedAt
	return nil
}

// GetMessages returns a conversation's messages in append order.
func (s *ConversationStore) GetMessages(_ context.Context, conversationID string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(conversationID)
	if !ok {
		return nil, domain.ErrNotFound
	}

	msgs := make([]domain.Message, len(entry.messages))
	copy(msgs, entry.messages)
	return msgs, nil
}

// UpdateTitle sets a conversation's title.
func (s *ConversationStore) UpdateTitle(_ context.Context, conversationID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(conversationID)
	if !ok {
		return domain.ErrNotFound
	}

	entry.conv.Title = title
	entry.conv.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteConversation removes a conversation and its messages.
func (s *ConversationStore) DeleteConversation(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// Len reports the number of live entries. Used by stats and tests.
func (s *ConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
