// Package testutil provides in-memory fakes for tests.
package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/kristentruong11/sun11this/internal/store"
)

// MemStore is an in-memory store.Client with failure injection and a
// configurable visibility lag, for exercising reconciliation behavior
// without a database.
type MemStore struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]store.Conversation
	messages      map[uuid.UUID][]store.Message

	// CreateMessageErr, when set, is returned by CreateMessage instead of
	// persisting anything.
	CreateMessageErr error

	// ListMessagesErr, when set, is returned by ListMessages.
	ListMessagesErr error

	// holdBack causes ListMessages to omit the newest N messages of each
	// conversation, simulating a replica that has not caught up. Set via
	// SetHoldBack; reads may happen on background refetch goroutines.
	holdBack int

	// CreateCalls counts CreateMessage invocations, including failed
	// ones.
	CreateCalls int
}

// SetHoldBack changes how many trailing messages ListMessages hides.
func (s *MemStore) SetHoldBack(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holdBack = n
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		conversations: make(map[uuid.UUID]store.Conversation),
		messages:      make(map[uuid.UUID][]store.Message),
	}
}

var _ store.Client = (*MemStore)(nil)

func (s *MemStore) ListConversations(ctx context.Context) ([]store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, c)
	}
	return out, nil
}

func (s *MemStore) CreateConversation(ctx context.Context, c store.Conversation) (store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = uuid.New()
	s.conversations[c.ID] = c
	return c, nil
}

func (s *MemStore) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.conversations, id)
	delete(s.messages, id)
	return nil
}

func (s *MemStore) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ListMessagesErr != nil {
		return nil, s.ListMessagesErr
	}

	all := s.messages[conversationID]
	visible := len(all) - s.holdBack
	if visible < 0 {
		visible = 0
	}
	if limit > 0 && visible > limit {
		visible = limit
	}
	out := make([]store.Message, visible)
	copy(out, all[:visible])
	return out, nil
}

func (s *MemStore) CreateMessage(ctx context.Context, draft store.Message) (store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.CreateCalls++
	if s.CreateMessageErr != nil {
		return store.Message{}, s.CreateMessageErr
	}
	if err := store.ValidateDraft(draft); err != nil {
		return store.Message{}, err
	}

	m := draft
	m.ID = uuid.NewString()
	s.messages[m.ConversationID] = append(s.messages[m.ConversationID], m)

	if c, ok := s.conversations[m.ConversationID]; ok {
		c.LastMessageAt = m.Timestamp
		s.conversations[m.ConversationID] = c
	}
	return m, nil
}

// Seed stores a message directly, bypassing validation and failure
// injection, and returns it with its assigned id.
func (s *MemStore) Seed(conversationID uuid.UUID, m store.Message) store.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = uuid.NewString()
	m.ConversationID = conversationID
	s.messages[conversationID] = append(s.messages[conversationID], m)
	return m
}

// Remove deletes a stored message by id.
func (s *MemStore) Remove(conversationID uuid.UUID, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.messages[conversationID][:0]
	for _, m := range s.messages[conversationID] {
		if m.ID != id {
			kept = append(kept, m)
		}
	}
	s.messages[conversationID] = kept
}
