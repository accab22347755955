package store

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestEntityTable(t *testing.T) {
	tests := []struct {
		entity Entity
		want   string
	}{
		{EntityConversation, "conversations"},
		{EntityMessage, "messages"},
		{EntityLesson, "lessons"},
		{Entity(99), ""},
	}
	for _, tt := range tests {
		if got := tt.entity.Table(); got != tt.want {
			t.Errorf("Entity(%d).Table() = %q, want %q", tt.entity, got, tt.want)
		}
	}
}

func TestMessagePersisted(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"temporary id", TempIDPrefix + "1", false},
		{"empty id", "", false},
		{"server id", uuid.NewString(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Message{ID: tt.id}
			if got := m.Persisted(); got != tt.want {
				t.Errorf("Persisted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateDraft(t *testing.T) {
	valid := Message{
		ConversationID: uuid.New(),
		Role:           RoleUser,
		Content:        "Bài 2 Lớp 12",
		Timestamp:      time.Now(),
		Kind:           TurnText,
	}

	if err := ValidateDraft(valid); err != nil {
		t.Fatalf("ValidateDraft(valid) error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Message)
	}{
		{"missing conversation id", func(m *Message) { m.ConversationID = uuid.Nil }},
		{"empty content", func(m *Message) { m.Content = "   " }},
		{"unknown role", func(m *Message) { m.Role = "system" }},
		{"zero timestamp", func(m *Message) { m.Timestamp = time.Time{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid
			tt.mutate(&m)
			if err := ValidateDraft(m); !errors.Is(err, ErrValidation) {
				t.Errorf("ValidateDraft() error = %v, want ErrValidation", err)
			}
		})
	}
}
