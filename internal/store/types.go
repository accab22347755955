// Package store defines the remote store contract for conversations and
// messages, and provides the PostgreSQL implementation.
//
// The core packages (timeline, turn, app) depend only on the Client
// interface; the concrete backend is selected once at startup.
package store

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

// Valid message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleKnowledge Role = "knowledge"
)

// TurnKind classifies what a message turn carries.
type TurnKind string

// Valid turn kinds.
const (
	TurnText      TurnKind = "text"
	TurnQuiz      TurnKind = "quiz"
	TurnFlashcard TurnKind = "flashcard"
	TurnTrueFalse TurnKind = "true_false"
	TurnImage     TurnKind = "image"
)

// Entity enumerates the persisted entity kinds. Each kind has a fixed table
// binding resolved at definition time; there is no dynamic name-to-table
// mapping anywhere in the repository.
type Entity int

// Persisted entity kinds.
const (
	EntityConversation Entity = iota
	EntityMessage
	EntityLesson
)

// Table returns the fixed table name for the entity kind.
func (e Entity) Table() string {
	switch e {
	case EntityConversation:
		return "conversations"
	case EntityMessage:
		return "messages"
	case EntityLesson:
		return "lessons"
	default:
		return ""
	}
}

// TempIDPrefix marks locally generated message ids that have not been
// persisted yet. Server-assigned ids are UUID strings and never carry it.
const TempIDPrefix = "temp_"

// Conversation is a persisted chat session container.
type Conversation struct {
	ID            uuid.UUID
	Title         string
	CreatedAt     time.Time
	LastMessageAt time.Time
}

// LessonRef anchors a message to the knowledge-base lesson it was grounded
// in, if any.
type LessonRef struct {
	Grade  int    `json:"grade"`
	Lesson int    `json:"lesson"`
	Title  string `json:"title"`
}

// Message is one turn within a conversation.
//
// ID is a string rather than a UUID: until the remote store confirms the
// create, a message is identified by a locally generated temporary id
// (TempIDPrefix + counter). Within a conversation, display order is
// Timestamp ascending; id ordering is not guaranteed to agree with it under
// concurrent writers.
type Message struct {
	ID             string
	ConversationID uuid.UUID
	Role           Role
	Content        string
	Timestamp      time.Time
	Kind           TurnKind
	LessonRef      *LessonRef
}

// Persisted reports whether the message carries a server-assigned id.
func (m Message) Persisted() bool {
	return m.ID != "" && !strings.HasPrefix(m.ID, TempIDPrefix)
}
