package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Client on top of a pgx connection pool.
//
// Postgres is safe for concurrent use by multiple goroutines.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a Postgres store client.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{pool: pool, logger: logger}
}

// ListConversations returns all conversations ordered by last activity,
// newest first.
func (p *Postgres) ListConversations(ctx context.Context) ([]Conversation, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, title, created_at, last_message_at
		FROM conversations
		ORDER BY last_message_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var conversations []Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	p.logger.Debug("listed conversations", "count", len(conversations))
	return conversations, nil
}

// CreateConversation persists a conversation and returns it with its
// server-assigned id.
func (p *Postgres) CreateConversation(ctx context.Context, c Conversation) (Conversation, error) {
	row := p.pool.QueryRow(ctx, `
		INSERT INTO conversations (title, created_at, last_message_at)
		VALUES ($1, $2, $3)
		RETURNING id, title, created_at, last_message_at`,
		c.Title, c.CreatedAt, c.LastMessageAt)

	created, err := scanConversation(row)
	if err != nil {
		return Conversation{}, fmt.Errorf("creating conversation: %w", err)
	}

	p.logger.Debug("created conversation", "id", created.ID, "title", created.Title)
	return created, nil
}

// DeleteConversation removes a conversation. Messages are removed by the
// ON DELETE CASCADE constraint on messages.conversation_id.
func (p *Postgres) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM conversations WHERE id = $1`, uuidToPg(id))
	if err != nil {
		return fmt.Errorf("deleting conversation %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("deleting conversation %s: %w", id, ErrNotFound)
	}

	p.logger.Debug("deleted conversation", "id", id)
	return nil
}

// ListMessages returns up to limit messages ordered by timestamp ascending.
func (p *Postgres) ListMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, conversation_id, role, content, ts, kind, lesson_ref
		FROM messages
		WHERE conversation_id = $1
		ORDER BY ts ASC
		LIMIT $2`,
		uuidToPg(conversationID), limit)
	if err != nil {
		return nil, fmt.Errorf("listing messages for %s: %w", conversationID, err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			// Skip malformed rows rather than failing the whole fetch;
			// a refresh must never drop messages the client already knows.
			p.logger.Warn("skipping malformed message row", "error", err)
			continue
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing messages for %s: %w", conversationID, err)
	}

	p.logger.Debug("listed messages", "conversation_id", conversationID, "count", len(messages))
	return messages, nil
}

// CreateMessage persists a draft and returns the stored row. The draft's
// temporary id, if any, is discarded; the database assigns the real id.
func (p *Postgres) CreateMessage(ctx context.Context, m Message) (Message, error) {
	if err := ValidateDraft(m); err != nil {
		return Message{}, err
	}

	refJSON, err := marshalLessonRef(m.LessonRef)
	if err != nil {
		return Message{}, err
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO messages (conversation_id, role, content, ts, kind, lesson_ref)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, conversation_id, role, content, ts, kind, lesson_ref`,
		uuidToPg(m.ConversationID), string(m.Role), m.Content, m.Timestamp, string(m.Kind), refJSON)

	created, err := scanMessage(row)
	if err != nil {
		return Message{}, fmt.Errorf("creating message: %w", err)
	}

	// Keep the sidebar ordering current. Best-effort: the message is
	// already durable.
	if _, err := p.pool.Exec(ctx,
		`UPDATE conversations SET last_message_at = $1 WHERE id = $2`,
		m.Timestamp, uuidToPg(m.ConversationID)); err != nil {
		p.logger.Warn("updating conversation activity", "error", err)
	}

	p.logger.Debug("created message",
		"id", created.ID,
		"conversation_id", created.ConversationID,
		"role", created.Role)
	return created, nil
}

// scanConversation converts one conversations row to the application type.
// This is the only place the conversation storage schema is interpreted.
func scanConversation(row pgx.Row) (Conversation, error) {
	var (
		id            pgtype.UUID
		title         *string
		createdAt     pgtype.Timestamptz
		lastMessageAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &title, &createdAt, &lastMessageAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, fmt.Errorf("scanning conversation: %w", err)
	}

	c := Conversation{
		ID:            pgToUUID(id),
		CreatedAt:     createdAt.Time,
		LastMessageAt: lastMessageAt.Time,
	}
	if title != nil {
		c.Title = *title
	}
	return c, nil
}

// scanMessage converts one messages row to the application type.
// This is the only place the message storage schema is interpreted.
func scanMessage(row pgx.Row) (Message, error) {
	var (
		id             pgtype.UUID
		conversationID pgtype.UUID
		role           string
		content        string
		ts             pgtype.Timestamptz
		kind           string
		refJSON        []byte
	)
	if err := row.Scan(&id, &conversationID, &role, &content, &ts, &kind, &refJSON); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Message{}, ErrNotFound
		}
		return Message{}, fmt.Errorf("scanning message: %w", err)
	}

	ref, err := unmarshalLessonRef(refJSON)
	if err != nil {
		return Message{}, err
	}

	return Message{
		ID:             pgToUUID(id).String(),
		ConversationID: pgToUUID(conversationID),
		Role:           Role(role),
		Content:        content,
		Timestamp:      ts.Time,
		Kind:           TurnKind(kind),
		LessonRef:      ref,
	}, nil
}

func marshalLessonRef(ref *LessonRef) ([]byte, error) {
	if ref == nil {
		return nil, nil
	}
	data, err := json.Marshal(ref)
	if err != nil {
		return nil, fmt.Errorf("marshaling lesson ref: %w", err)
	}
	return data, nil
}

func unmarshalLessonRef(data []byte) (*LessonRef, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var ref LessonRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("unmarshaling lesson ref: %w", err)
	}
	return &ref, nil
}

// uuidToPg converts uuid.UUID to pgtype.UUID.
func uuidToPg(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// pgToUUID converts pgtype.UUID to uuid.UUID.
func pgToUUID(id pgtype.UUID) uuid.UUID {
	if !id.Valid {
		return uuid.Nil
	}
	return id.Bytes
}
