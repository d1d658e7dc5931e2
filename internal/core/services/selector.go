package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimbus-labs/corpus/internal/core/domain"
	"github.com/nimbus-labs/corpus/internal/core/ports/driven"
)

// StoreSelector picks the conversation store for a request: transient or
// durable depending on storage mode and caller identity. Selection is a
// pure function of (mode, identity).
type StoreSelector struct {
	mode      domain.StorageMode
	transient driven.ConversationStore
	durable   driven.ConversationStore
}

// NewStoreSelector creates a selector. The durable store may be nil for
// memory-only deployments; Select falls back to the transient store when
// the mode asks for an absent durable one.
func NewStoreSelector(mode domain.StorageMode, transient, durable driven.ConversationStore) *StoreSelector {
	if mode == "" {
		mode = domain.ModeSmart
	}
	return &StoreSelector{
		mode:      mode,
		transient: transient,
		durable:   durable,
	}
}

// Select returns the store that should own a new conversation for the
// given caller identity.
func (s *StoreSelector) Select(userID string) driven.ConversationStore {
	switch s.mode {
	case domain.ModeMemoryOnly:
		return s.transient
	case domain.ModePersistAll:
		if s.durable != nil {
			return s.durable
		}
		return s.transient
	default: // smart
		if userID == "" || s.durable == nil {
			return s.transient
		}
		return s.durable
	}
}

// Locate finds the store currently holding a conversation, trying the
// transient store first, then the durable one. Callers do not know a
// priori which store owns an existing conversation.
func (s *StoreSelector) Locate(ctx context.Context, conversationID string) (driven.ConversationStore, *domain.Conversation, error) {
	conv, err := s.transient.GetConversation(ctx, conversationID)
	if err == nil {
		return s.transient, conv, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, fmt.Errorf("checking transient store: %w", err)
	}

	if s.durable == nil {
		return nil, nil, domain.ErrNotFound
	}

	conv, err = s.durable.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("checking durable store: %w", err)
	}
	return s.durable, conv, nil
}

// Mode returns the configured storage mode.
func (s *StoreSelector) Mode() domain.StorageMode {
	return s.mode
}
