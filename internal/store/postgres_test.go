package store

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// rowFunc adapts a scan function to pgx.Row, so the row codecs can be
// exercised without a database.
type rowFunc func(dest ...any) error

func (f rowFunc) Scan(dest ...any) error { return f(dest...) }

func TestScanMessage(t *testing.T) {
	id := uuid.New()
	convID := uuid.New()
	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	row := rowFunc(func(dest ...any) error {
		*(dest[0].(*pgtype.UUID)) = pgtype.UUID{Bytes: id, Valid: true}
		*(dest[1].(*pgtype.UUID)) = pgtype.UUID{Bytes: convID, Valid: true}
		*(dest[2].(*string)) = string(RoleAssistant)
		*(dest[3].(*string)) = "nội dung trả lời"
		*(dest[4].(*pgtype.Timestamptz)) = pgtype.Timestamptz{Time: ts, Valid: true}
		*(dest[5].(*string)) = string(TurnText)
		*(dest[6].(*[]byte)) = []byte(`{"grade":10,"lesson":1,"title":"Hiện thực lịch sử"}`)
		return nil
	})

	m, err := scanMessage(row)
	if err != nil {
		t.Fatalf("scanMessage() error = %v", err)
	}
	if m.ID != id.String() {
		t.Errorf("ID = %q, want %q", m.ID, id.String())
	}
	if m.ConversationID != convID {
		t.Errorf("ConversationID = %v, want %v", m.ConversationID, convID)
	}
	if m.Role != RoleAssistant || m.Content != "nội dung trả lời" || m.Kind != TurnText {
		t.Errorf("message = %+v", m)
	}
	if !m.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", m.Timestamp, ts)
	}
	if m.LessonRef == nil || m.LessonRef.Grade != 10 || m.LessonRef.Lesson != 1 {
		t.Errorf("LessonRef = %+v, want (10, 1)", m.LessonRef)
	}
	if !m.Persisted() {
		t.Error("scanned message reports itself unpersisted")
	}
}

func TestScanMessageNullLessonRef(t *testing.T) {
	row := rowFunc(func(dest ...any) error {
		*(dest[0].(*pgtype.UUID)) = pgtype.UUID{Bytes: uuid.New(), Valid: true}
		*(dest[1].(*pgtype.UUID)) = pgtype.UUID{Bytes: uuid.New(), Valid: true}
		*(dest[2].(*string)) = string(RoleUser)
		*(dest[3].(*string)) = "câu hỏi"
		*(dest[4].(*pgtype.Timestamptz)) = pgtype.Timestamptz{Time: time.Now(), Valid: true}
		*(dest[5].(*string)) = string(TurnText)
		return nil
	})

	m, err := scanMessage(row)
	if err != nil {
		t.Fatalf("scanMessage() error = %v", err)
	}
	if m.LessonRef != nil {
		t.Errorf("LessonRef = %+v, want nil for a NULL column", m.LessonRef)
	}
}

func TestScanMessageMalformedLessonRef(t *testing.T) {
	row := rowFunc(func(dest ...any) error {
		*(dest[0].(*pgtype.UUID)) = pgtype.UUID{Bytes: uuid.New(), Valid: true}
		*(dest[1].(*pgtype.UUID)) = pgtype.UUID{Bytes: uuid.New(), Valid: true}
		*(dest[2].(*string)) = string(RoleUser)
		*(dest[3].(*string)) = "câu hỏi"
		*(dest[4].(*pgtype.Timestamptz)) = pgtype.Timestamptz{Time: time.Now(), Valid: true}
		*(dest[5].(*string)) = string(TurnText)
		*(dest[6].(*[]byte)) = []byte(`{not json`)
		return nil
	})

	if _, err := scanMessage(row); err == nil {
		t.Fatal("scanMessage() accepted a malformed lesson_ref column")
	}
}

func TestScanMessageNoRows(t *testing.T) {
	row := rowFunc(func(dest ...any) error { return pgx.ErrNoRows })

	if _, err := scanMessage(row); !errors.Is(err, ErrNotFound) {
		t.Fatalf("scanMessage() error = %v, want ErrNotFound", err)
	}
}

func TestScanConversation(t *testing.T) {
	id := uuid.New()
	created := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	last := created.Add(time.Hour)
	title := "Bài 1 Lớp 10"

	row := rowFunc(func(dest ...any) error {
		*(dest[0].(*pgtype.UUID)) = pgtype.UUID{Bytes: id, Valid: true}
		*(dest[1].(**string)) = &title
		*(dest[2].(*pgtype.Timestamptz)) = pgtype.Timestamptz{Time: created, Valid: true}
		*(dest[3].(*pgtype.Timestamptz)) = pgtype.Timestamptz{Time: last, Valid: true}
		return nil
	})

	c, err := scanConversation(row)
	if err != nil {
		t.Fatalf("scanConversation() error = %v", err)
	}
	if c.ID != id || c.Title != title {
		t.Errorf("conversation = %+v", c)
	}
	if !c.CreatedAt.Equal(created) || !c.LastMessageAt.Equal(last) {
		t.Errorf("timestamps = (%v, %v), want (%v, %v)", c.CreatedAt, c.LastMessageAt, created, last)
	}
}

func TestScanConversationNullTitle(t *testing.T) {
	row := rowFunc(func(dest ...any) error {
		*(dest[0].(*pgtype.UUID)) = pgtype.UUID{Bytes: uuid.New(), Valid: true}
		*(dest[2].(*pgtype.Timestamptz)) = pgtype.Timestamptz{Time: time.Now(), Valid: true}
		*(dest[3].(*pgtype.Timestamptz)) = pgtype.Timestamptz{Time: time.Now(), Valid: true}
		return nil
	})

	c, err := scanConversation(row)
	if err != nil {
		t.Fatalf("scanConversation() error = %v", err)
	}
	if c.Title != "" {
		t.Errorf("Title = %q, want empty for a NULL column", c.Title)
	}
}

func TestScanConversationNoRows(t *testing.T) {
	row := rowFunc(func(dest ...any) error { return pgx.ErrNoRows })

	if _, err := scanConversation(row); !errors.Is(err, ErrNotFound) {
		t.Fatalf("scanConversation() error = %v, want ErrNotFound", err)
	}
}

func TestLessonRefCodec(t *testing.T) {
	data, err := marshalLessonRef(nil)
	if err != nil || data != nil {
		t.Fatalf("marshalLessonRef(nil) = (%q, %v), want (nil, nil)", data, err)
	}
	ref, err := unmarshalLessonRef(nil)
	if err != nil || ref != nil {
		t.Fatalf("unmarshalLessonRef(nil) = (%+v, %v), want (nil, nil)", ref, err)
	}

	in := &LessonRef{Grade: 12, Lesson: 2, Title: "Cách mạng tháng Tám năm 1945"}
	data, err = marshalLessonRef(in)
	if err != nil {
		t.Fatalf("marshalLessonRef() error = %v", err)
	}
	out, err := unmarshalLessonRef(data)
	if err != nil {
		t.Fatalf("unmarshalLessonRef() error = %v", err)
	}
	if *out != *in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}
