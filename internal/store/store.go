package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Client is the remote store contract the core depends on.
//
// Implementations must be safe for concurrent use. Every error returned is
// the failure of that single operation; callers decide retry policy.
type Client interface {
	// ListConversations returns all conversations, newest activity first.
	ListConversations(ctx context.Context) ([]Conversation, error)

	// CreateConversation persists a new conversation and returns it with
	// its server-assigned id.
	CreateConversation(ctx context.Context, c Conversation) (Conversation, error)

	// DeleteConversation removes a conversation and all its messages.
	DeleteConversation(ctx context.Context, id uuid.UUID) error

	// ListMessages returns up to limit messages of a conversation ordered
	// by timestamp ascending. limit <= 0 means the default page size.
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error)

	// CreateMessage persists a draft message and returns the stored copy
	// with its server-assigned id.
	CreateMessage(ctx context.Context, m Message) (Message, error)
}

// DefaultMessageLimit is the page size used when callers pass limit <= 0.
const DefaultMessageLimit = 100

// ValidateDraft checks a message before it is handed to a Client.
// The temporary-id prefix is reserved for the synchronizer.
func ValidateDraft(m Message) error {
	if m.ConversationID == uuid.Nil {
		return fmt.Errorf("%w: missing conversation id", ErrValidation)
	}
	if strings.TrimSpace(m.Content) == "" {
		return fmt.Errorf("%w: empty content", ErrValidation)
	}
	switch m.Role {
	case RoleUser, RoleAssistant, RoleKnowledge:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrValidation, m.Role)
	}
	if m.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrValidation)
	}
	return nil
}
